package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

const nonceBytes = 16

var (
	// ErrNotFound is returned when no identity exists for an address.
	ErrNotFound = errors.New("identity not found")
	// ErrNonceMismatch is returned by compare-and-swap writes when the stored
	// nonce is no longer the one the caller verified against.
	ErrNonceMismatch = errors.New("nonce mismatch")
)

// NewNonce returns 128 bits from crypto/rand, hex encoded.
func NewNonce() (string, error) {
	buf := make([]byte, nonceBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random nonce: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// NonceStore owns the single nonce slot of every identity.
type NonceStore struct {
	repo     Repository
	generate func() (string, error)
}

// NewNonceStore wraps repo with the default crypto/rand generator.
func NewNonceStore(repo Repository) *NonceStore {
	return &NonceStore{repo: repo, generate: NewNonce}
}

// Next draws a fresh nonce without persisting it.
func (s *NonceStore) Next() (string, error) {
	return s.generate()
}

// CreateOrRotate creates the identity when address is unseen and otherwise
// overwrites its nonce unconditionally. Any previously issued challenge stops verifying.
func (s *NonceStore) CreateOrRotate(ctx context.Context, address string) (Identity, error) {
	nonce, err := s.generate()
	if err != nil {
		return Identity{}, err
	}
	return s.repo.UpsertNonce(ctx, address, nonce)
}

// Current returns the live nonce for address.
func (s *NonceStore) Current(ctx context.Context, address string) (string, error) {
	id, err := s.repo.FindByAddress(ctx, address)
	if err != nil {
		return "", err
	}
	return id.Nonce, nil
}

// Rotate replaces expected with a fresh nonce only if expected is still live.
func (s *NonceStore) Rotate(ctx context.Context, address, expected string) (Identity, error) {
	next, err := s.generate()
	if err != nil {
		return Identity{}, err
	}
	return s.repo.CompareAndSwapNonce(ctx, address, expected, next)
}
