package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"mattress-store/internal/domain"
)

var (
	ErrSettingsNotFound = errors.New("settings not found")
)

// SettingsRepository stores the single store-settings row
type SettingsRepository interface {
	Get(ctx context.Context) (*domain.Settings, error)
	Create(ctx context.Context, settings *domain.Settings) error
	Update(ctx context.Context, settings *domain.Settings) error
}

type settingsRepository struct {
	db *sql.DB
}

// NewSettingsRepository creates a new instance of SettingsRepository
func NewSettingsRepository(db *sql.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context) (*domain.Settings, error) {
	query := `
		SELECT id, store_name, slogan, email, whatsapp, address, updated_at
		FROM settings
		ORDER BY updated_at DESC
		LIMIT 1
	`

	settings := &domain.Settings{}
	err := r.db.QueryRowContext(ctx, query).Scan(
		&settings.ID,
		&settings.StoreName,
		&settings.Slogan,
		&settings.Email,
		&settings.WhatsApp,
		&settings.Address,
		&settings.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSettingsNotFound
		}
		return nil, fmt.Errorf("failed to get settings: %w", err)
	}

	return settings, nil
}

func (r *settingsRepository) Create(ctx context.Context, settings *domain.Settings) error {
	query := `
		INSERT INTO settings (id, store_name, slogan, email, whatsapp, address, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		settings.ID,
		settings.StoreName,
		settings.Slogan,
		settings.Email,
		settings.WhatsApp,
		settings.Address,
		settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create settings: %w", err)
	}

	return nil
}

func (r *settingsRepository) Update(ctx context.Context, settings *domain.Settings) error {
	query := `
		UPDATE settings
		SET store_name = $2, slogan = $3, email = $4, whatsapp = $5, address = $6, updated_at = $7
		WHERE id = $1
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		settings.ID,
		settings.StoreName,
		settings.Slogan,
		settings.Email,
		settings.WhatsApp,
		settings.Address,
		settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update settings: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrSettingsNotFound
	}

	return nil
}
