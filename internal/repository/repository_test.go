package repository

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/officine/bilan/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSessionID = "6f1c2d3e-4a5b-4c6d-8e9f-0a1b2c3d4e5f"

func newTestSession(id string) *model.Session {
	return &model.Session{
		SessionID: id,
		AgeRange:  model.AgeRange45to50,
		Sex:       model.SexMale,
		CreatedAt: model.NewLocalTime(time.Now()),
		Status:    model.SessionStatusActive,
		Metadata: model.SessionMetadata{Pharmacie: model.PharmacySnapshot{
			NomPharmacie: "Pharmacie du Port",
			Ville:        "Brest",
		}},
	}
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("create then find", func(t *testing.T) {
		repo := NewSessionRepository(filepath.Join(t.TempDir(), "data", "sessions"))
		require.NoError(t, repo.Create(ctx, newTestSession(testSessionID)))

		found, err := repo.FindByID(ctx, testSessionID)
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, testSessionID, found.SessionID)
		assert.Equal(t, model.SexMale, found.Sex)
		assert.Equal(t, "Pharmacie du Port", found.Metadata.Pharmacie.NomPharmacie)
		assert.True(t, repo.Exists(ctx, testSessionID))
	})

	t.Run("create never overwrites", func(t *testing.T) {
		repo := NewSessionRepository(t.TempDir())
		require.NoError(t, repo.Create(ctx, newTestSession(testSessionID)))

		second := newTestSession(testSessionID)
		second.AgeRange = model.AgeRange70to75
		err := repo.Create(ctx, second)
		assert.True(t, errors.Is(err, ErrAlreadyExists))

		found, err := repo.FindByID(ctx, testSessionID)
		require.NoError(t, err)
		assert.Equal(t, model.AgeRange45to50, found.AgeRange)
	})

	t.Run("missing returns nil", func(t *testing.T) {
		repo := NewSessionRepository(t.TempDir())
		found, err := repo.FindByID(ctx, testSessionID)
		require.NoError(t, err)
		assert.Nil(t, found)
		assert.False(t, repo.Exists(ctx, testSessionID))
	})

	t.Run("unparseable file is corrupt", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, testSessionID+".json"), []byte("{nope"), 0o644))

		repo := NewSessionRepository(dir)
		_, err := repo.FindByID(ctx, testSessionID)
		assert.True(t, errors.Is(err, ErrCorrupt))
	})

	t.Run("update replaces status", func(t *testing.T) {
		repo := NewSessionRepository(t.TempDir())
		session := newTestSession(testSessionID)
		require.NoError(t, repo.Create(ctx, session))

		session.Status = model.SessionStatusClosed
		require.NoError(t, repo.Update(ctx, session))

		found, err := repo.FindByID(ctx, testSessionID)
		require.NoError(t, err)
		assert.False(t, found.IsActive())
	})

	t.Run("leaves no temp files behind", func(t *testing.T) {
		dir := t.TempDir()
		repo := NewSessionRepository(dir)
		require.NoError(t, repo.Create(ctx, newTestSession(testSessionID)))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, testSessionID+".json", entries[0].Name())
	})
}

func TestResponseRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewResponseRepository(t.TempDir())

	assert.False(t, repo.Exists(ctx, testSessionID))

	first := &model.ResponseRecord{
		SessionID:      testSessionID,
		SubmittedAt:    "2026-03-04T09:15:30",
		ResponsesCount: 1,
		Responses:      []json.RawMessage{json.RawMessage(`{"question_id":"q1","value":true}`)},
	}
	require.NoError(t, repo.Save(ctx, first))
	assert.True(t, repo.Exists(ctx, testSessionID))

	second := &model.ResponseRecord{
		SessionID:      testSessionID,
		SubmittedAt:    "2026-03-04T09:16:00",
		ResponsesCount: 0,
		Responses:      []json.RawMessage{},
	}
	require.NoError(t, repo.Save(ctx, second))

	found, err := repo.FindBySessionID(ctx, testSessionID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-04T09:16:00", found.SubmittedAt)
	assert.Equal(t, 0, found.ResponsesCount)
}

func TestSecretRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("first writer wins", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config", "qr_secret.key")
		repo := NewSecretRepository(path)

		_, found, err := repo.Load(ctx)
		require.NoError(t, err)
		assert.False(t, found)

		got, err := repo.CreateIfAbsent(ctx, "aaaa")
		require.NoError(t, err)
		assert.Equal(t, "aaaa", got)

		got, err = repo.CreateIfAbsent(ctx, "bbbb")
		require.NoError(t, err)
		assert.Equal(t, "aaaa", got)

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	})

	t.Run("concurrent creators agree", func(t *testing.T) {
		repo := NewSecretRepository(filepath.Join(t.TempDir(), "qr_secret.key"))

		var wg sync.WaitGroup
		results := make([]string, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				got, err := repo.CreateIfAbsent(ctx, string(rune('a'+i)))
				assert.NoError(t, err)
				results[i] = got
			}(i)
		}
		wg.Wait()

		for _, r := range results {
			assert.Equal(t, results[0], r)
		}
	})

	t.Run("trims whitespace", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "qr_secret.key")
		require.NoError(t, os.WriteFile(path, []byte("cafe\n"), 0o600))

		secret, found, err := NewSecretRepository(path).Load(ctx)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "cafe", secret)
	})
}

func TestQuestionnaireRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewQuestionnaireRepository(filepath.Join(t.TempDir(), "questionnaires"))

	missing, err := repo.FindByAgeRange(ctx, model.AgeRange18to25)
	require.NoError(t, err)
	assert.Nil(t, missing)

	q := &model.Questionnaire{
		AgeRange: model.AgeRange18to25,
		Version:  1,
		Questions: []model.Question{
			{ID: "q1", Order: 1, Type: model.QuestionTypeBoolean, Label: "Fumez-vous ?", Required: true},
		},
	}
	require.NoError(t, repo.Save(ctx, q))

	found, err := repo.FindByAgeRange(ctx, model.AgeRange18to25)
	require.NoError(t, err)
	require.Len(t, found.Questions, 1)
	assert.Equal(t, "Fumez-vous ?", found.Questions[0].Label)

	deleted, err := repo.Delete(ctx, model.AgeRange18to25)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.Delete(ctx, model.AgeRange18to25)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSettingsRepository(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	repo := NewSettingsRepository(
		filepath.Join(dir, "config", "settings.json"),
		filepath.Join(dir, "config", "img", "logo.png"),
	)

	settings, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, settings)
	assert.False(t, repo.HasLogo())

	require.NoError(t, repo.Save(ctx, &model.Settings{NomPharmacie: "Pharmacie du Port"}))
	require.NoError(t, repo.SaveLogo(ctx, []byte("\x89PNG")))

	settings, err = repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Pharmacie du Port", settings.NomPharmacie)
	assert.True(t, repo.HasLogo())
}

func TestDocumentRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(t.TempDir())

	_, found, err := repo.Read(ctx, "Vigilance_6f1c2d3e.md")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.Write(ctx, "Vigilance_6f1c2d3e.md", "# Vigilance\n"))
	content, found, err := repo.Read(ctx, "Vigilance_6f1c2d3e.md")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "# Vigilance\n", content)

	t.Run("names cannot escape the directory", func(t *testing.T) {
		assert.Equal(t, filepath.Dir(repo.Path("x.md")), filepath.Dir(repo.Path("../../x.md")))
	})
}

func TestPromptRepository(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "promptvigilance.txt")

	prompt, err := NewPromptRepository(path).Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, prompt)

	require.NoError(t, os.WriteFile(path, []byte("  Tu es pharmacien.\n"), 0o644))
	prompt, err = NewPromptRepository(path).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Tu es pharmacien.", prompt)
}
