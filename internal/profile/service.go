package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bazaar-chain/bazaar-auth/internal/auth"
	"github.com/bazaar-chain/bazaar-auth/internal/identity"
	"github.com/bazaar-chain/bazaar-auth/internal/logging"
	"github.com/bazaar-chain/bazaar-auth/internal/metrics"
	"github.com/bazaar-chain/bazaar-auth/internal/notification"
	"github.com/bazaar-chain/bazaar-auth/internal/wallet"
)

// Service reads profiles and applies signed profile updates.
type Service struct {
	repo     identity.Repository
	auth     *auth.Service
	nonces   *identity.NonceStore
	notifier notification.Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewService wires the reconciler. notifier may be nil.
func NewService(repo identity.Repository, authSvc *auth.Service, notifier notification.Notifier, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Service{
		repo:     repo,
		auth:     authSvc,
		nonces:   identity.NewNonceStore(repo),
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// UpdateInput is a signed profile update. A nil Attributes leaves stored
// rows untouched; a non-nil one replaces them entirely.
type UpdateInput struct {
	WalletAddress string
	Signature     string
	Patch         identity.ProfilePatch
	Attributes    *[]identity.Attribute
}

// Get returns the stored profile for rawAddress including attribute rows.
func (s *Service) Get(ctx context.Context, rawAddress string) (identity.Identity, error) {
	address, err := wallet.Normalize(rawAddress)
	if err != nil {
		return identity.Identity{}, err
	}
	user, err := s.repo.FindByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return identity.Identity{}, auth.ErrUserNotFound
		}
		return identity.Identity{}, fmt.Errorf("load profile: %w", err)
	}
	return user, nil
}

// Update verifies the signature against the live nonce, then swaps the nonce,
// patches scalars and reconciles attributes as one unit. If the nonce moved
// in between nothing is written.
func (s *Service) Update(ctx context.Context, in UpdateInput) (identity.Identity, error) {
	user, err := s.update(ctx, in)
	outcome := auth.Outcome(err)
	s.metrics.IncProfileUpdate(outcome)
	if err != nil {
		s.logger.Warn("profile.update rejected", slog.String("wallet_address", in.WalletAddress), slog.String("outcome", outcome))
		return identity.Identity{}, err
	}

	s.logger.Info("profile.update applied",
		slog.String("wallet_address", user.Address),
		slog.Int("extra_fields", len(user.Attributes)),
		slog.Bool("replaced_extra_fields", in.Attributes != nil),
	)
	if s.notifier != nil {
		if err := s.notifier.Send(ctx, notification.Message{
			Kind:        notification.KindProfileUpdated,
			Destination: user.Address,
			Body:        fmt.Sprintf("profile updated with %d extra fields", len(user.Attributes)),
		}); err != nil {
			s.logger.Warn("profile.update notification failed", slog.Any("error", err))
		}
	}
	return user, nil
}

func (s *Service) update(ctx context.Context, in UpdateInput) (identity.Identity, error) {
	proof, err := s.auth.Authenticate(ctx, in.WalletAddress, in.Signature)
	if err != nil {
		return identity.Identity{}, err
	}

	next, err := s.nonces.Next()
	if err != nil {
		return identity.Identity{}, err
	}
	update := identity.ProfileUpdate{ProfilePatch: in.Patch}
	if in.Attributes != nil {
		update.ReplaceAttributes = true
		update.Attributes = *in.Attributes
	}

	user, err := s.repo.UpdateProfile(ctx, proof.Address, proof.Nonce, next, update)
	if err != nil {
		return identity.Identity{}, auth.ConsumeError(err)
	}
	return user, nil
}
