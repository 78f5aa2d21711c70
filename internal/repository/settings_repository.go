package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// settingsRowID is the primary key of the single settings row.
const settingsRowID = 1

type settingsRepository struct {
	pool *pgxpool.Pool
}

// NewSettingsRepository returns a Postgres-backed SettingsRepository storing
// the singleton as a JSONB document.
func NewSettingsRepository(pool *pgxpool.Pool) SettingsRepository {
	return &settingsRepository{pool: pool}
}

func (r *settingsRepository) GetOrCreate(ctx context.Context, defaults domain.Settings) (*domain.Settings, error) {
	payload, err := json.Marshal(defaults)
	if err != nil {
		return nil, err
	}
	const insert = `
        INSERT INTO settings (id, data, updated_at) VALUES ($1, $2, $3)
        ON CONFLICT (id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, insert, settingsRowID, payload, defaults.UpdatedAt); err != nil {
		return nil, err
	}

	var raw []byte
	if err := r.pool.QueryRow(ctx, `SELECT data FROM settings WHERE id=$1`, settingsRowID).Scan(&raw); err != nil {
		return nil, err
	}
	var settings domain.Settings
	if err := json.Unmarshal(raw, &settings); err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *settingsRepository) Save(ctx context.Context, settings domain.Settings) error {
	payload, err := json.Marshal(settings)
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO settings (id, data, updated_at) VALUES ($1, $2, $3)
        ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`
	_, err = r.pool.Exec(ctx, query, settingsRowID, payload, settings.UpdatedAt)
	return err
}
