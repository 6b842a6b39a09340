package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"mattress-store/internal/domain"
	"mattress-store/internal/repository"

	"github.com/google/uuid"
)

// SettingsInput holds the editable store settings
type SettingsInput struct {
	StoreName string
	Slogan    string
	Email     string
	WhatsApp  string
	Address   string
}

// SettingsService reads and saves the single store-settings record
type SettingsService interface {
	Get(ctx context.Context) (*domain.Settings, error)
	Save(ctx context.Context, input SettingsInput) (*domain.Settings, error)
}

type settingsService struct {
	settingsRepo repository.SettingsRepository
}

// NewSettingsService creates a new instance of SettingsService
func NewSettingsService(settingsRepo repository.SettingsRepository) SettingsService {
	return &settingsService{settingsRepo: settingsRepo}
}

// Get returns the stored settings, or empty settings when none were saved yet
func (s *settingsService) Get(ctx context.Context) (*domain.Settings, error) {
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		if errors.Is(err, repository.ErrSettingsNotFound) {
			return &domain.Settings{}, nil
		}
		return nil, &domain.FetchError{Op: "load settings", Err: err}
	}
	return settings, nil
}

// Save updates the existing settings row or creates the first one
func (s *settingsService) Save(ctx context.Context, input SettingsInput) (*domain.Settings, error) {
	settings := &domain.Settings{
		StoreName: strings.TrimSpace(input.StoreName),
		Slogan:    strings.TrimSpace(input.Slogan),
		Email:     strings.TrimSpace(input.Email),
		WhatsApp:  strings.TrimSpace(input.WhatsApp),
		Address:   strings.TrimSpace(input.Address),
		UpdatedAt: time.Now(),
	}

	existing, err := s.settingsRepo.Get(ctx)
	switch {
	case err == nil:
		settings.ID = existing.ID
		if err := s.settingsRepo.Update(ctx, settings); err != nil {
			return nil, domain.NewOperationError("update settings", err)
		}
	case errors.Is(err, repository.ErrSettingsNotFound):
		settings.ID = uuid.New()
		if err := s.settingsRepo.Create(ctx, settings); err != nil {
			return nil, domain.NewOperationError("create settings", err)
		}
	default:
		return nil, domain.NewOperationError("load settings", err)
	}

	return settings, nil
}
