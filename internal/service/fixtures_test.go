package service

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/officine/bilan/internal/config"
	"github.com/officine/bilan/internal/model"
	"github.com/officine/bilan/internal/repository"
)

type testEnv struct {
	paths     config.Paths
	settings  repository.SettingsRepository
	appCtx    *ContextService
	sessions  *SessionService
	catalog   *CatalogService
	qr        *QRService
	capture   *CaptureService
	summary   *SummaryService
	docs      repository.DocumentRepository
	prompts   repository.PromptRepository
	vigilance *VigilanceService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	paths := config.NewPaths(t.TempDir())

	settingsRepo := repository.NewSettingsRepository(paths.SettingsFile, paths.LogoFile)
	questionnaireRepo := repository.NewQuestionnaireRepository(paths.QuestionnaireDir)
	docs := repository.NewDocumentRepository(paths.SessionsDir)
	prompts := repository.NewPromptRepository(paths.PromptFile)

	appCtx := NewContextService(settingsRepo, questionnaireRepo)
	sessions := NewSessionService(repository.NewSessionRepository(paths.SessionsDir), settingsRepo, appCtx)
	catalog := NewCatalogService(questionnaireRepo, sessions)
	capture := NewCaptureService(repository.NewResponseRepository(paths.SessionsDir), sessions)

	return &testEnv{
		paths:     paths,
		settings:  settingsRepo,
		appCtx:    appCtx,
		sessions:  sessions,
		catalog:   catalog,
		qr:        NewQRService(repository.NewSecretRepository(paths.SecretFile), sessions, "http://tablet.test/questionnaire", 5000),
		capture:   capture,
		summary:   NewSummaryService(sessions, catalog, capture, docs),
		docs:      docs,
		prompts:   prompts,
		vigilance: NewVigilanceService(settingsRepo, prompts, docs, 0),
	}
}

func validSettings() *model.Settings {
	return &model.Settings{
		NomPharmacie:  "Pharmacie du Port",
		Adresse:       "3 quai de la Douane",
		CodePostal:    "29200",
		Ville:         "Brest",
		Telephone:     "0298000000",
		FournisseurIA: "openai",
		CleAPI:        "sk-test",
		SiteWeb:       "https://pharmacie-du-port.example",
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func sampleQuestions() []model.Question {
	return []model.Question{
		{ID: "q1", Order: 0, Type: model.QuestionTypeBoolean, Label: "Fumez-vous ?", Required: true, SexTarget: model.SexTargetMixed},
		{ID: "q2", Order: 1, Type: model.QuestionTypeSingleChoice, Label: "Activite physique", SexTarget: model.SexTargetMixed,
			Options: []string{"Jamais", "Parfois", "Souvent"}},
		{ID: "q3", Order: 2, Type: model.QuestionTypeShortText, Label: "Dernier frottis", SexTarget: model.SexTargetFemale},
		{ID: "q4", Order: 3, Type: model.QuestionTypeScale, Label: "Niveau de stress", SexTarget: model.SexTargetMale,
			ScaleConfig: &model.ScaleConfig{Min: 0, Max: 5, Step: 0.5}},
		{ID: "obligatoire1", Order: 4, Type: model.QuestionTypeShortText, Label: "Poids (kg)"},
		{ID: "Obligatoire2", Order: 5, Type: model.QuestionTypeShortText, Label: "Taille (m)"},
	}
}

// configure writes complete settings, a logo and a questionnaire for each age range.
func (e *testEnv) configure(t *testing.T, ageRanges ...model.AgeRange) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.settings.Save(ctx, validSettings()))
	require.NoError(t, e.settings.SaveLogo(ctx, pngBytes(t)))
	for _, ar := range ageRanges {
		e.writeQuestionnaire(t, ar, sampleQuestions())
	}
}

func (e *testEnv) writeQuestionnaire(t *testing.T, ageRange model.AgeRange, questions []model.Question) {
	t.Helper()
	q := model.Questionnaire{AgeRange: ageRange, Version: 1, Questions: questions}
	data, err := json.Marshal(q)
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(e.paths.QuestionnaireDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(e.paths.QuestionnaireDir, string(ageRange)+".json"), data, 0o644))
}

func (e *testEnv) createSession(t *testing.T, ageRange model.AgeRange, sex model.Sex) *model.Session {
	t.Helper()
	s, err := e.sessions.CreateSession(context.Background(), ageRange, sex)
	require.NoError(t, err)
	return s
}

func rawResponses(t *testing.T, items ...map[string]any) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		data, err := json.Marshal(item)
		require.NoError(t, err)
		out = append(out, data)
	}
	return out
}
