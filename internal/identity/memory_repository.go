package identity

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryRecord struct {
	identity   Identity
	attributes map[string]string
}

type memoryRepository struct {
	mu      sync.RWMutex
	records map[string]*memoryRecord
}

// NewMemoryRepository builds an in-memory identity store for development and tests.
func NewMemoryRepository() Repository {
	return &memoryRepository{records: make(map[string]*memoryRecord)}
}

func (r *memoryRepository) UpsertNonce(_ context.Context, address, nonce string) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	rec, ok := r.records[address]
	if !ok {
		rec = &memoryRecord{
			identity:   Identity{ID: uuid.NewString(), Address: address, CreatedAt: now},
			attributes: make(map[string]string),
		}
		r.records[address] = rec
	}
	rec.identity.Nonce = nonce
	rec.identity.UpdatedAt = now
	return rec.snapshot(), nil
}

func (r *memoryRepository) FindByAddress(_ context.Context, address string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[address]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return rec.snapshot(), nil
}

func (r *memoryRepository) CompareAndSwapNonce(_ context.Context, address, expected, next string) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.live(address, expected)
	if err != nil {
		return Identity{}, err
	}
	rec.identity.Nonce = next
	rec.identity.UpdatedAt = time.Now().UTC()
	return rec.snapshot(), nil
}

func (r *memoryRepository) UpdateProfile(_ context.Context, address, expected, next string, update ProfileUpdate) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.live(address, expected)
	if err != nil {
		return Identity{}, err
	}
	rec.identity.Nonce = next
	update.ProfilePatch.apply(&rec.identity)
	if update.ReplaceAttributes {
		plan := Reconcile(rec.snapshot().Attributes, update.Attributes)
		for _, field := range plan.Deletes {
			delete(rec.attributes, field)
		}
		for _, a := range plan.Upserts {
			rec.attributes[a.Field] = a.Value
		}
	}
	rec.identity.UpdatedAt = time.Now().UTC()
	return rec.snapshot(), nil
}

func (r *memoryRepository) live(address, expected string) (*memoryRecord, error) {
	rec, ok := r.records[address]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.identity.Nonce != expected {
		return nil, ErrNonceMismatch
	}
	return rec, nil
}

func (rec *memoryRecord) snapshot() Identity {
	out := rec.identity
	out.DisplayName = copyString(rec.identity.DisplayName)
	out.Email = copyString(rec.identity.Email)
	out.Bio = copyString(rec.identity.Bio)
	out.AvatarURL = copyString(rec.identity.AvatarURL)
	out.Attributes = make([]Attribute, 0, len(rec.attributes))
	for field, value := range rec.attributes {
		out.Attributes = append(out.Attributes, Attribute{Field: field, Value: value})
	}
	sort.Slice(out.Attributes, func(i, j int) bool { return out.Attributes[i].Field < out.Attributes[j].Field })
	return out
}
