package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/officine/bilan/internal/ai"
	apperrors "github.com/officine/bilan/internal/errors"
	"github.com/officine/bilan/internal/markdown"
	"github.com/officine/bilan/internal/repository"
	"github.com/officine/bilan/internal/util"
)

const (
	actionPlanHeading = "## Plan d'action - 3 points pharmacien"
	actionPointCount  = 3
)

func VigilanceFileName(sessionID string) string {
	return "Vigilance_" + util.ShortID(sessionID) + ".md"
}

type VigilanceResult struct {
	SessionID string `json:"session_id"`
	ShortID   string `json:"short_id"`
	Path      string `json:"vigilance_md_path"`
	Text      string `json:"vigilance_text,omitempty"`
}

type CompleterFactory func(provider ai.Provider, apiKey string) (ai.Completer, error)

type VigilanceService struct {
	settingsRepo repository.SettingsRepository
	prompts      repository.PromptRepository
	docs         repository.DocumentRepository
	newCompleter CompleterFactory
}

func NewVigilanceService(
	settingsRepo repository.SettingsRepository,
	prompts repository.PromptRepository,
	docs repository.DocumentRepository,
	timeout time.Duration,
) *VigilanceService {
	return &VigilanceService{
		settingsRepo: settingsRepo,
		prompts:      prompts,
		docs:         docs,
		newCompleter: func(provider ai.Provider, apiKey string) (ai.Completer, error) {
			return ai.NewClient(provider, apiKey, timeout)
		},
	}
}

type aiSettings struct {
	provider ai.Provider
	apiKey   string
	model    string
}

func (s *VigilanceService) loadAISettings(ctx context.Context) (*aiSettings, error) {
	settings, err := s.settingsRepo.Load(ctx)
	if err != nil || settings == nil {
		return nil, apperrors.Unavailable("Configuration applicative absente (settings.json)")
	}

	raw := strings.TrimSpace(settings.FournisseurIA)
	if raw == "" {
		return nil, apperrors.Unavailable("Fournisseur IA non configure")
	}
	provider, ok := ai.NormalizeProvider(raw)
	if !ok {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Fournisseur IA non supporte: %s", raw))
	}

	apiKey := strings.TrimSpace(settings.CleAPI)
	if apiKey == "" {
		return nil, apperrors.Unavailable("Cle API IA absente")
	}

	return &aiSettings{
		provider: provider,
		apiKey:   apiKey,
		model:    ai.ResolveModel(provider, settings.ModeleIA),
	}, nil
}

// IdentifyVigilancePoints sends the summary document to the configured
// provider and stores its answer in the vigilance document.
func (s *VigilanceService) IdentifyVigilancePoints(ctx context.Context, sessionID string) (*VigilanceResult, error) {
	if !util.IsValidUUID(sessionID) {
		return nil, apperrors.NotFound(fmt.Sprintf("Session inconnue: %s", sessionID))
	}

	summaryName := SummaryFileName(sessionID)
	summary, found, err := s.docs.Read(ctx, summaryName)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.Unavailable(fmt.Sprintf("Fichier QuestionnaireComplet absent: %s", summaryName))
	}

	systemPrompt, err := s.prompts.Load(ctx)
	if err != nil {
		return nil, err
	}
	if systemPrompt == "" {
		return nil, apperrors.Unavailable("Fichier promptvigilance.txt absent ou vide")
	}

	cfg, err := s.loadAISettings(ctx)
	if err != nil {
		return nil, err
	}

	var meta summaryFrontmatter
	userMessage, err := markdown.SplitFrontmatter(summary, &meta)
	if err != nil {
		log.Warn().Err(err).Str("sessionId", sessionID).Msg("summary frontmatter unreadable: sending whole file")
		userMessage = summary
	}

	completer, err := s.newCompleter(cfg.provider, cfg.apiKey)
	if err != nil {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Fournisseur IA non supporte: %s", cfg.provider))
	}

	text, err := completer.Complete(ctx, cfg.model, systemPrompt, userMessage)
	if err != nil {
		log.Error().Err(err).
			Str("provider", string(cfg.provider)).
			Str("model", cfg.model).
			Msg("vigilance generation failed")
		if errors.Is(err, ai.ErrEmptyResponse) {
			return nil, apperrors.External("IA", err).WithDetails([]string{"Reponse IA vide"})
		}
		return nil, apperrors.External("IA", err)
	}

	shortID := util.ShortID(sessionID)
	content := fmt.Sprintf("# Vigilance - Session %s\n\n## Points de vigilance\n\n%s\n", shortID, text)
	name := VigilanceFileName(sessionID)
	if err := s.docs.Write(ctx, name, content); err != nil {
		return nil, err
	}

	log.Info().
		Str("sessionId", sessionID).
		Str("provider", string(cfg.provider)).
		Str("model", cfg.model).
		Msg("vigilance points identified")

	return &VigilanceResult{
		SessionID: sessionID,
		ShortID:   shortID,
		Path:      s.docs.Path(name),
		Text:      text,
	}, nil
}

// SaveActionPoints writes the pharmacist's plan into the vigilance document,
// replacing any plan saved before.
func (s *VigilanceService) SaveActionPoints(ctx context.Context, sessionID string, points []string) (*VigilanceResult, error) {
	if len(points) != actionPointCount {
		return nil, apperrors.ValidationError("Exactement 3 points du plan d'action requis", nil)
	}
	for i, p := range points {
		if strings.TrimSpace(p) == "" {
			return nil, apperrors.ValidationError(fmt.Sprintf("Point %d du plan d'action vide ou invalide", i+1), nil)
		}
	}
	if !util.IsValidUUID(sessionID) {
		return nil, apperrors.NotFound(fmt.Sprintf("Session inconnue: %s", sessionID))
	}

	name := VigilanceFileName(sessionID)
	content, found, err := s.docs.Read(ctx, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.Unavailable(fmt.Sprintf("Fichier Vigilance absent: %s", name))
	}

	var plan strings.Builder
	for i, p := range points {
		fmt.Fprintf(&plan, "%d. %s\n", i+1, strings.TrimSpace(p))
	}

	if err := s.docs.Write(ctx, name, markdown.ReplaceTrailingSection(content, actionPlanHeading, plan.String())); err != nil {
		return nil, err
	}

	log.Info().Str("sessionId", sessionID).Msg("action plan saved")
	return &VigilanceResult{
		SessionID: sessionID,
		ShortID:   util.ShortID(sessionID),
		Path:      s.docs.Path(name),
	}, nil
}
