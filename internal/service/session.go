package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/officine/bilan/internal/audit"
	"github.com/officine/bilan/internal/config"
	apperrors "github.com/officine/bilan/internal/errors"
	"github.com/officine/bilan/internal/model"
	"github.com/officine/bilan/internal/repository"
	"github.com/officine/bilan/internal/util"
)

type SessionService struct {
	sessionRepo  repository.SessionRepository
	settingsRepo repository.SettingsRepository
	appContext   *ContextService
	newID        func() (string, error)
	now          func() time.Time
}

func NewSessionService(
	sessionRepo repository.SessionRepository,
	settingsRepo repository.SettingsRepository,
	appContext *ContextService,
) *SessionService {
	return &SessionService{
		sessionRepo:  sessionRepo,
		settingsRepo: settingsRepo,
		appContext:   appContext,
		newID:        newSessionID,
		now:          time.Now,
	}
}

func newSessionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

func (s *SessionService) CreateSession(ctx context.Context, ageRange model.AgeRange, sex model.Sex) (*model.Session, error) {
	if !util.IsValidEnum(ageRange, model.AgeRanges) {
		return nil, invalidAgeRange(ageRange)
	}
	if !util.IsValidEnum(sex, model.Sexes) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("Sexe invalide: %s", sex))
	}

	if problems := s.appContext.CheckPreconditions(ctx); len(problems) > 0 {
		return nil, apperrors.PreconditionFailed(problems)
	}
	if !s.appContext.HasQuestionnaire(ctx, ageRange) {
		return nil, apperrors.Unavailable(
			fmt.Sprintf("Aucun questionnaire disponible pour la tranche d'age: %s", ageRange))
	}

	var snapshot model.PharmacySnapshot
	settings, err := s.settingsRepo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if settings != nil {
		snapshot = settings.Snapshot()
	}

	session := &model.Session{
		AgeRange:  ageRange,
		Sex:       sex,
		CreatedAt: model.NewLocalTime(s.now()),
		Status:    model.SessionStatusActive,
		Metadata:  model.SessionMetadata{Pharmacie: snapshot},
	}

	for attempt := 1; attempt <= config.MaxSessionIDAttempts; attempt++ {
		id, err := s.newID()
		if err != nil {
			return nil, fmt.Errorf("generate session id: %w", err)
		}
		session.SessionID = id

		err = s.sessionRepo.Create(ctx, session)
		if err == nil {
			audit.Log(ctx, audit.Event{
				Type:      audit.EventSessionCreate,
				SessionID: id,
				Details:   map[string]any{"age_range": string(ageRange), "sex": string(sex)},
			})
			return session, nil
		}
		if !errors.Is(err, repository.ErrAlreadyExists) {
			return nil, err
		}
		log.Warn().Str("sessionId", id).Int("attempt", attempt).Msg("session id collision")
	}

	log.Error().
		Int("attempts", config.MaxSessionIDAttempts).
		Msg("could not allocate a unique session id")
	return nil, apperrors.ResourceExhausted("Impossible de generer un identifiant de session unique")
}

// LoadSession never touches the disk with an id that is not a canonical UUID.
func (s *SessionService) LoadSession(ctx context.Context, sessionID string) (*model.Session, error) {
	if !util.IsValidUUID(sessionID) {
		return nil, apperrors.NotFound(fmt.Sprintf("Session inconnue: %s", sessionID))
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrCorrupt) {
			return nil, apperrors.Corrupt(fmt.Sprintf("Session invalide: %s", sessionID), err)
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		return nil, apperrors.NotFound(fmt.Sprintf("Session inconnue: %s", sessionID))
	}
	return session, nil
}

// CloseSession ends the interview. Closing twice is a no-op.
func (s *SessionService) CloseSession(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return session, nil
	}

	session.Status = model.SessionStatusClosed
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, err
	}

	audit.Log(ctx, audit.Event{Type: audit.EventSessionClose, SessionID: sessionID})
	return session, nil
}
