package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// bootstrapLockKey serializes Register calls so only one admin is created.
const bootstrapLockKey int64 = 0x68656c70

const identityColumns = `id, name, email, password_hash, role, phone, first_name, last_name, designation, created_at, updated_at`

type identityRepository struct {
	pool *pgxpool.Pool
}

// NewIdentityRepository returns a Postgres-backed implementation.
func NewIdentityRepository(pool *pgxpool.Pool) IdentityRepository {
	return &identityRepository{pool: pool}
}

func (r *identityRepository) Register(ctx context.Context, identity *domain.Identity) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockKey); err != nil {
		return err
	}
	var existing int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM identities`).Scan(&existing); err != nil {
		return err
	}
	identity.Role = domain.RoleForNewIdentity(existing)
	if err := insertIdentity(ctx, tx, identity); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *identityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	return insertIdentity(ctx, r.pool, identity)
}

func insertIdentity(ctx context.Context, q queryer, identity *domain.Identity) error {
	const query = `
        INSERT INTO identities (id, name, email, password_hash, role, phone, first_name, last_name, designation, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := q.Exec(ctx, query,
		identity.ID,
		identity.Name,
		identity.Email,
		identity.PasswordHash,
		identity.Role,
		identity.Phone,
		identity.FirstName,
		identity.LastName,
		identity.Designation,
		identity.CreatedAt,
		identity.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

func (r *identityRepository) Update(ctx context.Context, identity *domain.Identity) error {
	const query = `
        UPDATE identities SET name=$1, password_hash=$2, phone=$3, first_name=$4, last_name=$5,
            designation=$6, updated_at=$7
        WHERE id=$8`

	cmd, err := r.pool.Exec(ctx, query,
		identity.Name,
		identity.PasswordHash,
		identity.Phone,
		identity.FirstName,
		identity.LastName,
		identity.Designation,
		identity.UpdatedAt,
		identity.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *identityRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM identities WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *identityRepository) GetByID(ctx context.Context, id string) (*domain.Identity, error) {
	return r.fetchSingle(ctx, `SELECT `+identityColumns+` FROM identities WHERE id=$1`, id)
}

func (r *identityRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	return r.fetchSingle(ctx, `SELECT `+identityColumns+` FROM identities WHERE email=$1`, email)
}

func (r *identityRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Identity, error) {
	var identity domain.Identity
	if err := r.pool.QueryRow(ctx, query, arg).Scan(identityScanTargets(&identity)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &identity, nil
}

func (r *identityRepository) List(ctx context.Context) ([]domain.Identity, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+identityColumns+` FROM identities ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Identity{}
	for rows.Next() {
		var identity domain.Identity
		if err := rows.Scan(identityScanTargets(&identity)...); err != nil {
			return nil, err
		}
		result = append(result, identity)
	}
	return result, rows.Err()
}

func (r *identityRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM identities`).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *identityRepository) AdminExists(ctx context.Context) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM identities WHERE role=$1)`, domain.RoleAdmin).Scan(&exists)
	return exists, err
}

func identityScanTargets(identity *domain.Identity) []any {
	return []any{
		&identity.ID,
		&identity.Name,
		&identity.Email,
		&identity.PasswordHash,
		&identity.Role,
		&identity.Phone,
		&identity.FirstName,
		&identity.LastName,
		&identity.Designation,
		&identity.CreatedAt,
		&identity.UpdatedAt,
	}
}
