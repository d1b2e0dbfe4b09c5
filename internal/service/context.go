package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"

	apperrors "github.com/officine/bilan/internal/errors"
	"github.com/officine/bilan/internal/model"
	"github.com/officine/bilan/internal/repository"
)

const (
	msgSettingsInvalid = "Parametrage applicatif manquant ou invalide"
	msgMissingField    = "Champ obligatoire manquant: %s"
	msgLogoMissing     = "Logo de la pharmacie manquant"
	msgNoQuestionnaire = "Aucun questionnaire disponible"
	msgLogoUnreadable  = "Logo illisible: formats acceptes PNG ou JPEG"
	fieldLogoImage     = "logo_image"
)

type ContextService struct {
	settingsRepo      repository.SettingsRepository
	questionnaireRepo repository.QuestionnaireRepository
}

func NewContextService(
	settingsRepo repository.SettingsRepository,
	questionnaireRepo repository.QuestionnaireRepository,
) *ContextService {
	return &ContextService{
		settingsRepo:      settingsRepo,
		questionnaireRepo: questionnaireRepo,
	}
}

// loadSettings treats an unreadable settings file like a missing one.
func (s *ContextService) loadSettings(ctx context.Context) *model.Settings {
	settings, err := s.settingsRepo.Load(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("settings unreadable")
		return nil
	}
	return settings
}

func (s *ContextService) LoadPharmacyContext(ctx context.Context) model.PharmacyContext {
	var pc model.PharmacyContext
	if settings := s.loadSettings(ctx); settings != nil {
		pc = model.PharmacyContext{
			NomPharmacie: settings.NomPharmacie,
			Adresse:      settings.Adresse,
			CodePostal:   settings.CodePostal,
			Ville:        settings.Ville,
			SiteWeb:      settings.SiteWeb,
			Instagram:    settings.Instagram,
			Facebook:     settings.Facebook,
			X:            settings.X,
			LinkedIn:     settings.LinkedIn,
		}
	}
	if s.settingsRepo.HasLogo() {
		if abs, err := filepath.Abs(s.settingsRepo.LogoPath()); err == nil {
			pc.LogoPath = abs
		}
	}
	return pc
}

// CheckPreconditions returns every failing condition, in display order.
func (s *ContextService) CheckPreconditions(ctx context.Context) []string {
	var problems []string

	settings := s.loadSettings(ctx)
	if settings == nil {
		problems = append(problems, msgSettingsInvalid)
	} else {
		for _, field := range settings.MissingRequired() {
			problems = append(problems, fmt.Sprintf(msgMissingField, field))
		}
	}

	if !s.settingsRepo.HasLogo() {
		problems = append(problems, msgLogoMissing)
	}

	if len(s.ListAvailableAgeRanges(ctx)) == 0 {
		problems = append(problems, msgNoQuestionnaire)
	}

	return problems
}

// ListAvailableAgeRanges keeps the canonical order, never the directory order.
func (s *ContextService) ListAvailableAgeRanges(ctx context.Context) []model.AgeRange {
	var available []model.AgeRange
	for _, ageRange := range model.AgeRanges {
		if s.HasQuestionnaire(ctx, ageRange) {
			available = append(available, ageRange)
		}
	}
	return available
}

// HasQuestionnaire re-reads the file on every call.
func (s *ContextService) HasQuestionnaire(ctx context.Context, ageRange model.AgeRange) bool {
	q, err := s.questionnaireRepo.FindByAgeRange(ctx, ageRange)
	if err != nil {
		log.Warn().Err(err).Str("ageRange", string(ageRange)).Msg("questionnaire unreadable")
		return false
	}
	return q != nil && len(q.Questions) > 0
}

// SaveSettings validates and stores the settings together with the logo found
// at logoSource. An empty logoSource keeps the logo already on disk.
func (s *ContextService) SaveSettings(ctx context.Context, settings *model.Settings, logoSource string) error {
	var problems []string
	for _, field := range settings.MissingRequired() {
		problems = append(problems, fmt.Sprintf(msgMissingField, field))
	}

	var logoPNG []byte
	if logoSource == "" {
		if !s.settingsRepo.HasLogo() {
			problems = append(problems, fmt.Sprintf(msgMissingField, fieldLogoImage))
		}
	} else {
		encoded, err := readLogoAsPNG(logoSource)
		if err != nil {
			log.Warn().Err(err).Str("source", logoSource).Msg("logo rejected")
			problems = append(problems, msgLogoUnreadable)
		}
		logoPNG = encoded
	}

	if len(problems) > 0 {
		return apperrors.ValidationError("Validation echouee", problems)
	}

	if err := s.settingsRepo.Save(ctx, settings); err != nil {
		return err
	}
	if logoPNG != nil {
		if err := s.settingsRepo.SaveLogo(ctx, logoPNG); err != nil {
			return err
		}
	}

	log.Info().Str("pharmacie", settings.NomPharmacie).Msg("settings saved")
	return nil
}

// IsConfigured reports whether complete settings and a logo are on disk.
func (s *ContextService) IsConfigured(ctx context.Context) bool {
	settings := s.loadSettings(ctx)
	if settings == nil || len(settings.MissingRequired()) > 0 {
		return false
	}
	return s.settingsRepo.HasLogo()
}

// readLogoAsPNG returns PNG bytes as-is and re-encodes JPEG images.
func readLogoAsPNG(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read logo: %w", err)
	}

	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("decode logo: %w", err)
	}

	switch format {
	case "png":
		return raw, nil
	case "jpeg":
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode logo: %w", err)
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unsupported logo format %q", format)
	}
}
