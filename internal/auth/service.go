package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bazaar-chain/bazaar-auth/internal/identity"
	"github.com/bazaar-chain/bazaar-auth/internal/logging"
	"github.com/bazaar-chain/bazaar-auth/internal/metrics"
	"github.com/bazaar-chain/bazaar-auth/internal/wallet"
)

var (
	// ErrUserNotFound means no challenge was ever issued for the address.
	ErrUserNotFound = errors.New("user not found")
	// ErrSignatureMismatch covers both a wrong signing key and a stale or
	// replayed challenge. Callers cannot tell the two apart.
	ErrSignatureMismatch = errors.New("signature verification failed")
)

// Service issues wallet challenges and verifies signed responses.
type Service struct {
	repo    identity.Repository
	nonces  *identity.NonceStore
	label   string
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewService builds the authenticator. label is the product part of the challenge message.
func NewService(repo identity.Repository, label string, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		repo:    repo,
		nonces:  identity.NewNonceStore(repo),
		label:   label,
		metrics: m,
		logger:  logger,
	}
}

// Challenge is what a client needs to produce a login signature.
type Challenge struct {
	Message string
	Nonce   string
	User    identity.Identity
}

// Proof records which address proved possession of its key and against which nonce.
type Proof struct {
	Address string
	Nonce   string
}

// Message returns the challenge text for nonce.
func (s *Service) Message(nonce string) string {
	return wallet.ChallengeMessage(s.label, nonce)
}

// Challenge creates the identity on first sight and rotates its nonce on every call.
func (s *Service) Challenge(ctx context.Context, rawAddress string) (Challenge, error) {
	address, err := wallet.Normalize(rawAddress)
	if err != nil {
		return Challenge{}, err
	}

	user, err := s.nonces.CreateOrRotate(ctx, address)
	if err != nil {
		return Challenge{}, fmt.Errorf("issue challenge: %w", err)
	}
	s.metrics.IncChallenges()
	s.logger.Info("auth.challenge issued", slog.String("wallet_address", address))

	return Challenge{Message: s.Message(user.Nonce), Nonce: user.Nonce, User: user}, nil
}

// Authenticate checks signature against the challenge derived from the
// current nonce without consuming it. Callers must consume Proof.Nonce with a
// compare-and-swap write.
func (s *Service) Authenticate(ctx context.Context, rawAddress, signature string) (Proof, error) {
	address, err := wallet.Normalize(rawAddress)
	if err != nil {
		return Proof{}, err
	}

	user, err := s.repo.FindByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return Proof{}, ErrUserNotFound
		}
		return Proof{}, fmt.Errorf("load identity: %w", err)
	}

	recovered, err := wallet.RecoverSigner(s.Message(user.Nonce), signature)
	if err != nil {
		return Proof{}, err
	}
	if !wallet.SameAddress(recovered, address) {
		return Proof{}, ErrSignatureMismatch
	}
	return Proof{Address: address, Nonce: user.Nonce}, nil
}

// Verify authenticates the caller and rotates the nonce so the same signature
// succeeds at most once.
func (s *Service) Verify(ctx context.Context, rawAddress, signature string) (identity.Identity, error) {
	user, err := s.verify(ctx, rawAddress, signature)
	outcome := Outcome(err)
	s.metrics.IncVerification(outcome)
	if err != nil {
		s.logger.Warn("auth.verify rejected", slog.String("wallet_address", rawAddress), slog.String("outcome", outcome))
		return identity.Identity{}, err
	}
	s.logger.Info("auth.verify succeeded", slog.String("wallet_address", user.Address))
	return user, nil
}

func (s *Service) verify(ctx context.Context, rawAddress, signature string) (identity.Identity, error) {
	proof, err := s.Authenticate(ctx, rawAddress, signature)
	if err != nil {
		return identity.Identity{}, err
	}

	user, err := s.nonces.Rotate(ctx, proof.Address, proof.Nonce)
	if err != nil {
		return identity.Identity{}, ConsumeError(err)
	}
	return user, nil
}

// ConsumeError maps a failed compare-and-swap on a proven nonce to the
// authentication taxonomy. A concurrent rotation looks like a stale signature.
func ConsumeError(err error) error {
	switch {
	case errors.Is(err, identity.ErrNonceMismatch):
		return ErrSignatureMismatch
	case errors.Is(err, identity.ErrNotFound):
		return ErrUserNotFound
	default:
		return fmt.Errorf("rotate nonce: %w", err)
	}
}

// Outcome labels err for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, wallet.ErrInvalidAddress):
		return metrics.OutcomeInvalidAddress
	case errors.Is(err, ErrUserNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, wallet.ErrInvalidSignature):
		return metrics.OutcomeInvalidSignature
	case errors.Is(err, ErrSignatureMismatch):
		return metrics.OutcomeMismatch
	default:
		return metrics.OutcomeError
	}
}
