package repository

import (
	"context"
	"fmt"

	"github.com/officine/bilan/internal/model"
)

type SettingsRepository interface {
	// Load returns nil without error when settings.json has never been written.
	Load(ctx context.Context) (*model.Settings, error)
	Save(ctx context.Context, settings *model.Settings) error
	LogoPath() string
	HasLogo() bool
	// SaveLogo stores already encoded PNG bytes.
	SaveLogo(ctx context.Context, png []byte) error
}

type settingsRepo struct {
	settingsFile string
	logoFile     string
}

func NewSettingsRepository(settingsFile, logoFile string) SettingsRepository {
	return &settingsRepo{settingsFile: settingsFile, logoFile: logoFile}
}

func (r *settingsRepo) Load(_ context.Context) (*model.Settings, error) {
	var settings model.Settings
	found, err := readJSON(r.settingsFile, &settings)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &settings, nil
}

func (r *settingsRepo) Save(_ context.Context, settings *model.Settings) error {
	payload, err := encodeJSON(settings)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(r.settingsFile, payload, 0o600); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (r *settingsRepo) LogoPath() string {
	return r.logoFile
}

func (r *settingsRepo) HasLogo() bool {
	return fileExists(r.logoFile)
}

func (r *settingsRepo) SaveLogo(_ context.Context, png []byte) error {
	if err := writeFileAtomic(r.logoFile, png, 0o644); err != nil {
		return fmt.Errorf("save logo: %w", err)
	}
	return nil
}
