package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/officine/bilan/internal/model"
)

type QuestionnaireRepository interface {
	// FindByAgeRange returns nil without error when no file exists for the range.
	FindByAgeRange(ctx context.Context, ageRange model.AgeRange) (*model.Questionnaire, error)
	Save(ctx context.Context, questionnaire *model.Questionnaire) error
	Delete(ctx context.Context, ageRange model.AgeRange) (bool, error)
}

type questionnaireRepo struct {
	dir string
}

func NewQuestionnaireRepository(questionnaireDir string) QuestionnaireRepository {
	return &questionnaireRepo{dir: questionnaireDir}
}

func (r *questionnaireRepo) path(ageRange model.AgeRange) string {
	return filepath.Join(r.dir, string(ageRange)+".json")
}

func (r *questionnaireRepo) FindByAgeRange(_ context.Context, ageRange model.AgeRange) (*model.Questionnaire, error) {
	var questionnaire model.Questionnaire
	found, err := readJSON(r.path(ageRange), &questionnaire)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &questionnaire, nil
}

func (r *questionnaireRepo) Save(_ context.Context, questionnaire *model.Questionnaire) error {
	payload, err := encodeJSON(questionnaire)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(r.path(questionnaire.AgeRange), payload, 0o644); err != nil {
		return fmt.Errorf("save questionnaire %s: %w", questionnaire.AgeRange, err)
	}
	return nil
}

func (r *questionnaireRepo) Delete(_ context.Context, ageRange model.AgeRange) (bool, error) {
	err := os.Remove(r.path(ageRange))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete questionnaire %s: %w", ageRange, err)
	}
	return true, nil
}
