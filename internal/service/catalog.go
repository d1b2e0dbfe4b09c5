package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/officine/bilan/internal/errors"
	"github.com/officine/bilan/internal/model"
	"github.com/officine/bilan/internal/repository"
	"github.com/officine/bilan/internal/util"
)

type CatalogService struct {
	questionnaireRepo repository.QuestionnaireRepository
	sessions          *SessionService
	now               func() time.Time
}

func NewCatalogService(
	questionnaireRepo repository.QuestionnaireRepository,
	sessions *SessionService,
) *CatalogService {
	return &CatalogService{
		questionnaireRepo: questionnaireRepo,
		sessions:          sessions,
		now:               time.Now,
	}
}

func invalidAgeRange(ageRange model.AgeRange) error {
	return apperrors.InvalidInput(fmt.Sprintf("Tranche d'age invalide: %s", ageRange))
}

func (s *CatalogService) find(ctx context.Context, ageRange model.AgeRange) (*model.Questionnaire, error) {
	q, err := s.questionnaireRepo.FindByAgeRange(ctx, ageRange)
	if err != nil {
		if errors.Is(err, repository.ErrCorrupt) {
			return nil, apperrors.Corrupt(
				fmt.Sprintf("Questionnaire invalide pour la tranche d'age: %s", ageRange), err)
		}
		return nil, fmt.Errorf("load questionnaire: %w", err)
	}
	return q, nil
}

// List returns the age ranges that have a questionnaire file, populated or not.
func (s *CatalogService) List(ctx context.Context) []model.AgeRange {
	var out []model.AgeRange
	for _, ageRange := range model.AgeRanges {
		q, err := s.questionnaireRepo.FindByAgeRange(ctx, ageRange)
		if q != nil || errors.Is(err, repository.ErrCorrupt) {
			out = append(out, ageRange)
		}
	}
	return out
}

// Load returns an empty version 1 questionnaire when none has been saved yet.
func (s *CatalogService) Load(ctx context.Context, ageRange model.AgeRange) (*model.Questionnaire, error) {
	if !util.IsValidEnum(ageRange, model.AgeRanges) {
		return nil, invalidAgeRange(ageRange)
	}
	q, err := s.find(ctx, ageRange)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return &model.Questionnaire{AgeRange: ageRange, Version: 1, Questions: []model.Question{}}, nil
	}
	return q, nil
}

// LoadForAgeRange is the strict variant used when serving an interview: an
// absent or empty questionnaire is NotFound.
func (s *CatalogService) LoadForAgeRange(ctx context.Context, ageRange model.AgeRange) (*model.Questionnaire, error) {
	q, err := s.find(ctx, ageRange)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, apperrors.NotFound(
			fmt.Sprintf("Questionnaire non disponible pour la tranche d'age: %s", ageRange))
	}
	if len(q.Questions) == 0 {
		return nil, apperrors.NotFound(
			fmt.Sprintf("Questionnaire vide pour la tranche d'age: %s", ageRange))
	}
	return q, nil
}

func (s *CatalogService) LoadForSession(ctx context.Context, sessionID string) (*model.Questionnaire, error) {
	session, err := s.sessions.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.AgeRange == "" {
		return nil, apperrors.NotFound("Session sans tranche d'age")
	}
	return s.LoadForAgeRange(ctx, session.AgeRange)
}

// Validate lists every structural problem of q. It does not touch the disk.
func (s *CatalogService) Validate(q *model.Questionnaire) []string {
	var problems []string

	if !util.IsValidEnum(q.AgeRange, model.AgeRanges) {
		problems = append(problems, fmt.Sprintf("Tranche d'age invalide ou manquante: %s", q.AgeRange))
	}
	if len(q.Questions) == 0 {
		return append(problems, "Le questionnaire doit contenir au moins une question")
	}

	for i, question := range q.Questions {
		prefix := fmt.Sprintf("Question %d", i+1)

		if strings.TrimSpace(question.Label) == "" {
			problems = append(problems, prefix+": libelle manquant")
		}
		if question.SexTarget != "" && !util.IsValidEnum(question.SexTarget, model.SexTargets) {
			problems = append(problems, fmt.Sprintf("%s: sex_target invalide (%s)", prefix, question.SexTarget))
		}
		if !util.IsValidEnum(question.Type, model.QuestionTypes) {
			problems = append(problems, fmt.Sprintf("%s: type invalide (%s)", prefix, question.Type))
			continue
		}

		switch question.Type {
		case model.QuestionTypeSingleChoice, model.QuestionTypeMultipleChoice:
			if len(question.Options) < 2 {
				problems = append(problems, fmt.Sprintf(
					"%s: les questions de type %s necessitent au moins 2 options", prefix, question.Type))
				break
			}
			for j, opt := range question.Options {
				if strings.TrimSpace(opt) == "" {
					problems = append(problems, fmt.Sprintf("%s, option %d: libelle vide", prefix, j+1))
				}
			}
		case model.QuestionTypeScale:
			sc := question.ScaleConfig
			if sc == nil {
				problems = append(problems, prefix+": scale_config manquant")
				break
			}
			if sc.Step <= 0 {
				problems = append(problems, prefix+": scale_config.step invalide")
			}
			if sc.Min >= sc.Max {
				problems = append(problems, prefix+": scale_config.min doit etre inferieur a max")
			}
		}
	}
	return problems
}

// Save validates q, keeps the creation date of any earlier version and stamps
// updated_at.
func (s *CatalogService) Save(ctx context.Context, q *model.Questionnaire) error {
	if problems := s.Validate(q); len(problems) > 0 {
		return apperrors.ValidationError("Validation echouee", problems)
	}

	now := model.NewLocalTime(s.now()).String()
	toSave := *q
	toSave.CreatedAt = now
	if existing, err := s.questionnaireRepo.FindByAgeRange(ctx, q.AgeRange); err == nil && existing != nil && existing.CreatedAt != "" {
		toSave.CreatedAt = existing.CreatedAt
	}
	toSave.UpdatedAt = now
	if toSave.Version == 0 {
		toSave.Version = 1
	}

	if err := s.questionnaireRepo.Save(ctx, &toSave); err != nil {
		return err
	}
	*q = toSave

	log.Info().
		Str("ageRange", string(q.AgeRange)).
		Int("questions", len(q.Questions)).
		Msg("questionnaire saved")
	return nil
}

func (s *CatalogService) Delete(ctx context.Context, ageRange model.AgeRange) (bool, error) {
	if !util.IsValidEnum(ageRange, model.AgeRanges) {
		return false, invalidAgeRange(ageRange)
	}
	deleted, err := s.questionnaireRepo.Delete(ctx, ageRange)
	if err != nil {
		return false, err
	}
	if deleted {
		log.Info().Str("ageRange", string(ageRange)).Msg("questionnaire deleted")
	}
	return deleted, nil
}

// NewQuestion returns a blank question whose id follows the highest qN id in
// questions.
func NewQuestion(questions []model.Question, qtype model.QuestionType) model.Question {
	maxNum := 0
	for _, q := range questions {
		if !strings.HasPrefix(q.ID, "q") {
			continue
		}
		if n, err := strconv.Atoi(q.ID[1:]); err == nil && n > maxNum {
			maxNum = n
		}
	}

	question := model.Question{
		ID:        fmt.Sprintf("q%d", maxNum+1),
		Order:     len(questions),
		Type:      qtype,
		Required:  true,
		SexTarget: model.SexTargetMixed,
		Options:   []string{},
	}
	switch qtype {
	case model.QuestionTypeScale:
		sc := model.DefaultScaleConfig
		question.ScaleConfig = &sc
	case model.QuestionTypeSingleChoice, model.QuestionTypeMultipleChoice:
		question.Options = []string{"", ""}
	}
	return question
}
