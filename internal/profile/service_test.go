package profile

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/bazaar-chain/bazaar-auth/internal/auth"
	"github.com/bazaar-chain/bazaar-auth/internal/identity"
	"github.com/bazaar-chain/bazaar-auth/internal/identity/mocks"
	"github.com/bazaar-chain/bazaar-auth/internal/logging"
	"github.com/bazaar-chain/bazaar-auth/internal/notification"
	"github.com/bazaar-chain/bazaar-auth/internal/wallet/wallettest"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (n *recordingNotifier) Send(_ context.Context, m notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, m)
	return nil
}

type fixture struct {
	repo     identity.Repository
	auth     *auth.Service
	svc      *Service
	notifier *recordingNotifier
	key      wallettest.Key
}

func newFixture(t *testing.T, repo identity.Repository) fixture {
	t.Helper()
	authSvc := auth.NewService(repo, "Bazaar", nil, logging.Discard())
	n := &recordingNotifier{}
	return fixture{
		repo:     repo,
		auth:     authSvc,
		svc:      NewService(repo, authSvc, n, nil, logging.Discard()),
		notifier: n,
		key:      wallettest.NewKey(t),
	}
}

// sign issues a fresh challenge and signs it.
func (f fixture) sign(t *testing.T) (auth.Challenge, string) {
	t.Helper()
	ch, err := f.auth.Challenge(context.Background(), f.key.Address)
	require.NoError(t, err)
	return ch, f.key.Sign(t, ch.Message)
}

func strPtr(s string) *string { return &s }

func attrs(a ...identity.Attribute) *[]identity.Attribute { return &a }

func TestUpdateAppliesScalarsAndAttributes(t *testing.T) {
	f := newFixture(t, identity.NewMemoryRepository())
	ctx := context.Background()
	ch, sig := f.sign(t)

	user, err := f.svc.Update(ctx, UpdateInput{
		WalletAddress: f.key.Address,
		Signature:     sig,
		Patch:         identity.ProfilePatch{DisplayName: strPtr("alice"), Bio: strPtr("hi")},
		Attributes:    attrs(identity.Attribute{Field: "twitter", Value: "@alice"}),
	})
	require.NoError(t, err)
	require.Equal(t, "alice", *user.DisplayName)
	require.Equal(t, "hi", *user.Bio)
	require.Nil(t, user.Email)
	require.Equal(t, []identity.Attribute{{Field: "twitter", Value: "@alice"}}, user.Attributes)
	require.NotEqual(t, ch.Nonce, user.Nonce)

	require.Len(t, f.notifier.sent, 1)
	require.Equal(t, notification.KindProfileUpdated, f.notifier.sent[0].Kind)
	require.Equal(t, f.key.Address, f.notifier.sent[0].Destination)
}

func TestUpdateReconcilesAttributeSet(t *testing.T) {
	f := newFixture(t, identity.NewMemoryRepository())
	ctx := context.Background()

	_, sig := f.sign(t)
	_, err := f.svc.Update(ctx, UpdateInput{
		WalletAddress: f.key.Address,
		Signature:     sig,
		Attributes: attrs(
			identity.Attribute{Field: "x", Value: "0"},
			identity.Attribute{Field: "y", Value: "2"},
		),
	})
	require.NoError(t, err)

	_, sig = f.sign(t)
	user, err := f.svc.Update(ctx, UpdateInput{
		WalletAddress: f.key.Address,
		Signature:     sig,
		Attributes:    attrs(identity.Attribute{Field: "x", Value: "1"}),
	})
	require.NoError(t, err)
	require.Equal(t, []identity.Attribute{{Field: "x", Value: "1"}}, user.Attributes)
}

func TestUpdateOmittedAttributesAreKept(t *testing.T) {
	f := newFixture(t, identity.NewMemoryRepository())
	ctx := context.Background()

	_, sig := f.sign(t)
	_, err := f.svc.Update(ctx, UpdateInput{
		WalletAddress: f.key.Address,
		Signature:     sig,
		Attributes:    attrs(identity.Attribute{Field: "site", Value: "example.org"}),
	})
	require.NoError(t, err)

	_, sig = f.sign(t)
	user, err := f.svc.Update(ctx, UpdateInput{
		WalletAddress: f.key.Address,
		Signature:     sig,
		Patch:         identity.ProfilePatch{Email: strPtr("a@example.org")},
	})
	require.NoError(t, err)
	require.Equal(t, "a@example.org", *user.Email)
	require.Len(t, user.Attributes, 1)

	_, sig = f.sign(t)
	user, err = f.svc.Update(ctx, UpdateInput{
		WalletAddress: f.key.Address,
		Signature:     sig,
		Attributes:    attrs(),
	})
	require.NoError(t, err)
	require.Empty(t, user.Attributes)
	require.Equal(t, "a@example.org", *user.Email)
}

func TestUpdateRejectsReplayedSignature(t *testing.T) {
	f := newFixture(t, identity.NewMemoryRepository())
	ctx := context.Background()
	_, sig := f.sign(t)

	in := UpdateInput{WalletAddress: f.key.Address, Signature: sig, Patch: identity.ProfilePatch{Bio: strPtr("one")}}
	_, err := f.svc.Update(ctx, in)
	require.NoError(t, err)

	in.Patch.Bio = strPtr("two")
	_, err = f.svc.Update(ctx, in)
	require.ErrorIs(t, err, auth.ErrSignatureMismatch)

	stored, err := f.svc.Get(ctx, f.key.Address)
	require.NoError(t, err)
	require.Equal(t, "one", *stored.Bio)
}

func TestUpdateSignedAgainstOlderNonceWritesNothing(t *testing.T) {
	f := newFixture(t, identity.NewMemoryRepository())
	ctx := context.Background()
	_, stale := f.sign(t)
	_, _ = f.sign(t)

	_, err := f.svc.Update(ctx, UpdateInput{
		WalletAddress: f.key.Address,
		Signature:     stale,
		Patch:         identity.ProfilePatch{DisplayName: strPtr("mallory")},
		Attributes:    attrs(),
	})
	require.ErrorIs(t, err, auth.ErrSignatureMismatch)

	stored, err := f.svc.Get(ctx, f.key.Address)
	require.NoError(t, err)
	require.Nil(t, stored.DisplayName)
	require.Empty(t, f.notifier.sent)
}

func TestUpdateUnknownWallet(t *testing.T) {
	f := newFixture(t, identity.NewMemoryRepository())
	_, err := f.svc.Update(context.Background(), UpdateInput{
		WalletAddress: f.key.Address,
		Signature:     f.key.Sign(t, "anything"),
	})
	require.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestUpdateLosesRaceInsideTransaction(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	f := newFixture(t, repo)
	ctx := context.Background()

	stored := identity.Identity{ID: "id-1", Address: f.key.Address, Nonce: "abc"}
	repo.EXPECT().FindByAddress(gomock.Any(), f.key.Address).Return(stored, nil)
	repo.EXPECT().
		UpdateProfile(gomock.Any(), f.key.Address, "abc", gomock.Any(), gomock.Any()).
		Return(identity.Identity{}, identity.ErrNonceMismatch)

	_, err := f.svc.Update(ctx, UpdateInput{
		WalletAddress: f.key.Address,
		Signature:     f.key.Sign(t, f.auth.Message("abc")),
	})
	require.ErrorIs(t, err, auth.ErrSignatureMismatch)
	require.Empty(t, f.notifier.sent)
}

func TestUpdateStorageFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockRepository(ctrl)
	f := newFixture(t, repo)
	boom := errors.New("tx aborted")

	stored := identity.Identity{ID: "id-1", Address: f.key.Address, Nonce: "abc"}
	repo.EXPECT().FindByAddress(gomock.Any(), f.key.Address).Return(stored, nil)
	repo.EXPECT().
		UpdateProfile(gomock.Any(), f.key.Address, "abc", gomock.Any(), identity.ProfileUpdate{ReplaceAttributes: true}).
		Return(identity.Identity{}, boom)

	_, err := f.svc.Update(context.Background(), UpdateInput{
		WalletAddress: f.key.Address,
		Signature:     f.key.Sign(t, f.auth.Message("abc")),
		Attributes:    attrs(),
	})
	require.ErrorIs(t, err, boom)
	require.Equal(t, "error", auth.Outcome(err))
}

func TestGetProfile(t *testing.T) {
	f := newFixture(t, identity.NewMemoryRepository())
	ctx := context.Background()

	_, err := f.svc.Get(ctx, f.key.Address)
	require.ErrorIs(t, err, auth.ErrUserNotFound)

	ch, _ := f.sign(t)
	user, err := f.svc.Get(ctx, ch.User.Address)
	require.NoError(t, err)
	require.Equal(t, ch.User.ID, user.ID)
	require.NotNil(t, user.Attributes)
}
