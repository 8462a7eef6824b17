//go:generate mockgen -source=repository.go -destination=mocks/repository_mock.go -package=mocks Repository

package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists identities and their attribute rows. Nonce writes other
// than UpsertNonce are compare-and-swap on the expected current nonce.
type Repository interface {
	// UpsertNonce creates the identity with nonce or replaces its current nonce.
	UpsertNonce(ctx context.Context, address, nonce string) (Identity, error)
	// FindByAddress loads the identity with its attribute rows ordered by field.
	FindByAddress(ctx context.Context, address string) (Identity, error)
	// CompareAndSwapNonce sets next only while the stored nonce equals expected.
	CompareAndSwapNonce(ctx context.Context, address, expected, next string) (Identity, error)
	// UpdateProfile swaps the nonce, applies the scalar patch and reconciles
	// attributes in a single all-or-nothing unit.
	UpdateProfile(ctx context.Context, address, expected, next string, update ProfileUpdate) (Identity, error)
}

const identityColumns = `id, wallet_address, nonce, display_name, email, bio, avatar_url, created_at, updated_at`

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// UpsertNonce inserts or rotates in one statement so concurrent challenges
// resolve to whichever write lands last.
func (r *PostgresRepository) UpsertNonce(ctx context.Context, address, nonce string) (Identity, error) {
	now := time.Now().UTC()
	row := r.db.QueryRow(ctx, `INSERT INTO identities (id, wallet_address, nonce, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $4)
        ON CONFLICT (wallet_address) DO UPDATE SET nonce = EXCLUDED.nonce, updated_at = EXCLUDED.updated_at
        RETURNING `+identityColumns, uuid.New(), address, nonce, now)
	id, err := scanIdentity(row)
	if err != nil {
		return Identity{}, fmt.Errorf("upsert nonce: %w", err)
	}
	id.Attributes, err = loadAttributes(ctx, r.db, id.ID)
	if err != nil {
		return Identity{}, err
	}
	return id, nil
}

// FindByAddress fetches an identity and its attributes.
func (r *PostgresRepository) FindByAddress(ctx context.Context, address string) (Identity, error) {
	row := r.db.QueryRow(ctx, `SELECT `+identityColumns+` FROM identities WHERE wallet_address = $1`, address)
	id, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, ErrNotFound
		}
		return Identity{}, err
	}
	id.Attributes, err = loadAttributes(ctx, r.db, id.ID)
	if err != nil {
		return Identity{}, err
	}
	return id, nil
}

// CompareAndSwapNonce rotates the nonce with a single conditional UPDATE.
func (r *PostgresRepository) CompareAndSwapNonce(ctx context.Context, address, expected, next string) (Identity, error) {
	row := r.db.QueryRow(ctx, `UPDATE identities SET nonce = $3, updated_at = $4
        WHERE wallet_address = $1 AND nonce = $2
        RETURNING `+identityColumns, address, expected, next, time.Now().UTC())
	id, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, r.missOrMismatch(ctx, r.db, address)
		}
		return Identity{}, err
	}
	id.Attributes, err = loadAttributes(ctx, r.db, id.ID)
	if err != nil {
		return Identity{}, err
	}
	return id, nil
}

// UpdateProfile applies the whole update inside one transaction.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, address, expected, next string, update ProfileUpdate) (Identity, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Identity{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	now := time.Now().UTC()
	row := tx.QueryRow(ctx, `UPDATE identities SET
            nonce = $3,
            display_name = COALESCE($4, display_name),
            email = COALESCE($5, email),
            bio = COALESCE($6, bio),
            avatar_url = COALESCE($7, avatar_url),
            updated_at = $8
        WHERE wallet_address = $1 AND nonce = $2
        RETURNING `+identityColumns,
		address, expected, next, update.DisplayName, update.Email, update.Bio, update.AvatarURL, now)
	id, err := scanIdentity(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Identity{}, r.missOrMismatch(ctx, tx, address)
		}
		return Identity{}, err
	}

	if update.ReplaceAttributes {
		if err := replaceAttributes(ctx, tx, id.ID, update.Attributes, now); err != nil {
			return Identity{}, err
		}
	}

	id.Attributes, err = loadAttributes(ctx, tx, id.ID)
	if err != nil {
		return Identity{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Identity{}, err
	}
	return id, nil
}

// replaceAttributes runs after the identity row is locked by the nonce
// update, so the stored set cannot change underneath the diff.
func replaceAttributes(ctx context.Context, tx pgx.Tx, identityID string, desired []Attribute, now time.Time) error {
	stored, err := loadAttributes(ctx, tx, identityID)
	if err != nil {
		return err
	}
	plan := Reconcile(stored, desired)
	if plan.Empty() {
		return nil
	}

	batch := &pgx.Batch{}
	if len(plan.Deletes) > 0 {
		batch.Queue(`DELETE FROM identity_attributes WHERE identity_id = $1 AND field = ANY($2)`, identityID, plan.Deletes)
	}
	for _, a := range plan.Upserts {
		batch.Queue(`INSERT INTO identity_attributes (identity_id, field, value, updated_at)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT (identity_id, field) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
			identityID, a.Field, a.Value, now)
	}

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("reconcile attributes: %w", err)
		}
	}
	return results.Close()
}

func (r *PostgresRepository) missOrMismatch(ctx context.Context, q querier, address string) error {
	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM identities WHERE wallet_address = $1)`, address).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrNonceMismatch
}

func scanIdentity(row pgx.Row) (Identity, error) {
	var (
		id        uuid.UUID
		createdAt time.Time
		updatedAt time.Time
		out       Identity
	)
	if err := row.Scan(&id, &out.Address, &out.Nonce, &out.DisplayName, &out.Email, &out.Bio, &out.AvatarURL, &createdAt, &updatedAt); err != nil {
		return Identity{}, err
	}
	out.ID = id.String()
	out.CreatedAt = createdAt.UTC()
	out.UpdatedAt = updatedAt.UTC()
	return out, nil
}

func loadAttributes(ctx context.Context, q querier, identityID string) ([]Attribute, error) {
	rows, err := q.Query(ctx, `SELECT field, value FROM identity_attributes WHERE identity_id = $1 ORDER BY field`, identityID)
	if err != nil {
		return nil, fmt.Errorf("load attributes: %w", err)
	}
	attrs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Attribute, error) {
		var a Attribute
		err := row.Scan(&a.Field, &a.Value)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("load attributes: %w", err)
	}
	if attrs == nil {
		attrs = []Attribute{}
	}
	return attrs, nil
}
