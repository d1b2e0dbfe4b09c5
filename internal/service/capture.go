package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/officine/bilan/internal/errors"
	"github.com/officine/bilan/internal/model"
	"github.com/officine/bilan/internal/repository"
	"github.com/officine/bilan/internal/util"
)

type CaptureService struct {
	responseRepo repository.ResponseRepository
	sessions     *SessionService
	now          func() time.Time
}

func NewCaptureService(responseRepo repository.ResponseRepository, sessions *SessionService) *CaptureService {
	return &CaptureService{
		responseRepo: responseRepo,
		sessions:     sessions,
		now:          time.Now,
	}
}

// ValidateResponses checks that every item is an object with a non-empty
// question_id and a value key. A null value is accepted.
func ValidateResponses(responses []json.RawMessage) []string {
	var problems []string
	for i, raw := range responses {
		prefix := fmt.Sprintf("Reponse %d", i+1)

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
			problems = append(problems, prefix+": format invalide")
			continue
		}

		var questionID string
		if rawID, ok := fields["question_id"]; !ok || json.Unmarshal(rawID, &questionID) != nil || questionID == "" {
			problems = append(problems, prefix+": question_id manquant")
		}
		if _, ok := fields["value"]; !ok {
			problems = append(problems, prefix+": value manquant")
		}
	}
	return problems
}

// SaveResponses persists a submission for an active session. A later
// submission replaces an earlier one.
func (s *CaptureService) SaveResponses(
	ctx context.Context,
	sessionID string,
	responses []json.RawMessage,
	submittedAt string,
) (*model.ResponseRecord, error) {
	session, err := s.sessions.LoadSession(ctx, sessionID)
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeNotFound) || apperrors.HasCode(err, apperrors.ErrCodeCorrupt) {
			return nil, apperrors.ValidationError(fmt.Sprintf("Session inconnue: %s", sessionID), nil)
		}
		return nil, err
	}
	if !session.IsActive() {
		return nil, apperrors.ValidationError(fmt.Sprintf("Session inactive: %s", sessionID), nil)
	}

	if problems := ValidateResponses(responses); len(problems) > 0 {
		return nil, apperrors.ValidationError("Reponses invalides: "+strings.Join(problems, "; "), problems)
	}

	if submittedAt == "" {
		submittedAt = model.NewLocalTime(s.now()).String()
	}
	if responses == nil {
		responses = []json.RawMessage{}
	}

	record := &model.ResponseRecord{
		SessionID:      sessionID,
		SubmittedAt:    submittedAt,
		ResponsesCount: len(responses),
		Responses:      responses,
	}
	if err := s.responseRepo.Save(ctx, record); err != nil {
		return nil, err
	}

	log.Info().
		Str("sessionId", sessionID).
		Int("responses", record.ResponsesCount).
		Msg("responses saved")
	return record, nil
}

// LoadResponses returns nil when nothing usable has been submitted.
func (s *CaptureService) LoadResponses(ctx context.Context, sessionID string) (*model.ResponseRecord, error) {
	if !util.IsValidUUID(sessionID) {
		return nil, nil
	}
	record, err := s.responseRepo.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrCorrupt) {
			log.Warn().Err(err).Str("sessionId", sessionID).Msg("responses file unreadable")
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

// HasResponses is a single stat call, cheap enough for polling.
func (s *CaptureService) HasResponses(ctx context.Context, sessionID string) bool {
	if !util.IsValidUUID(sessionID) {
		return false
	}
	return s.responseRepo.Exists(ctx, sessionID)
}
