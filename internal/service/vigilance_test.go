package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/officine/bilan/internal/ai"
	apperrors "github.com/officine/bilan/internal/errors"
	"github.com/officine/bilan/internal/markdown"
)

type fakeCompleter struct {
	provider     ai.Provider
	model        string
	systemPrompt string
	userMessage  string
	reply        string
	err          error
}

func (f *fakeCompleter) Complete(_ context.Context, model, systemPrompt, userMessage string) (string, error) {
	f.model = model
	f.systemPrompt = systemPrompt
	f.userMessage = userMessage
	return f.reply, f.err
}

const vigilanceSessionID = "0b8f7c1e-2d3a-4b5c-9d8e-7f6a5b4c3d2e"

func setupVigilance(t *testing.T) (*testEnv, *fakeCompleter) {
	t.Helper()
	env := newTestEnv(t)
	env.configure(t)

	fake := &fakeCompleter{reply: "- Tabagisme actif\n- Surpoids"}
	env.vigilance.newCompleter = func(provider ai.Provider, _ string) (ai.Completer, error) {
		fake.provider = provider
		return fake, nil
	}

	require.NoError(t, os.MkdirAll(filepath.Dir(env.paths.PromptFile), 0o755))
	require.NoError(t, os.WriteFile(env.paths.PromptFile, []byte("  Identifie les points de vigilance.\n"), 0o644))

	content, err := markdown.RenderFrontmatter(
		summaryFrontmatter{SessionID: vigilanceSessionID, ShortID: "0b8f7c1e", AgeRange: "45-50"},
		"# Questionnaire Complet - Session 0b8f7c1e\n",
	)
	require.NoError(t, err)
	require.NoError(t, env.docs.Write(context.Background(), SummaryFileName(vigilanceSessionID), content))
	return env, fake
}

func TestIdentifyVigilancePoints(t *testing.T) {
	ctx := context.Background()

	t.Run("sends the summary body and writes the document", func(t *testing.T) {
		env, fake := setupVigilance(t)

		result, err := env.vigilance.IdentifyVigilancePoints(ctx, vigilanceSessionID)
		require.NoError(t, err)

		assert.Equal(t, ai.ProviderOpenAI, fake.provider)
		assert.Equal(t, ai.ResolveModel(ai.ProviderOpenAI, ""), fake.model)
		assert.Equal(t, "Identifie les points de vigilance.", fake.systemPrompt)
		assert.Equal(t, "# Questionnaire Complet - Session 0b8f7c1e\n", fake.userMessage)

		assert.Equal(t, "0b8f7c1e", result.ShortID)
		assert.Equal(t, fake.reply, result.Text)
		content, found, err := env.docs.Read(ctx, VigilanceFileName(vigilanceSessionID))
		require.NoError(t, err)
		require.True(t, found)
		assert.Equal(t, "# Vigilance - Session 0b8f7c1e\n\n## Points de vigilance\n\n- Tabagisme actif\n- Surpoids\n", content)
	})

	t.Run("missing summary", func(t *testing.T) {
		env, _ := setupVigilance(t)
		require.NoError(t, os.Remove(env.docs.Path(SummaryFileName(vigilanceSessionID))))

		_, err := env.vigilance.IdentifyVigilancePoints(ctx, vigilanceSessionID)
		assert.Equal(t, apperrors.ErrCodeUnavailable, apperrors.GetCode(err))
		assert.Contains(t, err.Error(), "Fichier QuestionnaireComplet absent")
	})

	t.Run("blank prompt", func(t *testing.T) {
		env, _ := setupVigilance(t)
		require.NoError(t, os.WriteFile(env.paths.PromptFile, []byte("\n\n"), 0o644))

		_, err := env.vigilance.IdentifyVigilancePoints(ctx, vigilanceSessionID)
		assert.Equal(t, apperrors.ErrCodeUnavailable, apperrors.GetCode(err))
	})

	t.Run("provider settings", func(t *testing.T) {
		cases := []struct {
			name     string
			provider string
			apiKey   string
			code     apperrors.ErrorCode
		}{
			{"no provider", " ", "sk-test", apperrors.ErrCodeUnavailable},
			{"unsupported provider", "watson", "sk-test", apperrors.ErrCodeInvalidInput},
			{"no key", "anthropic", "", apperrors.ErrCodeUnavailable},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				env, _ := setupVigilance(t)
				settings := validSettings()
				settings.FournisseurIA = tc.provider
				settings.CleAPI = tc.apiKey
				require.NoError(t, env.settings.Save(ctx, settings))

				_, err := env.vigilance.IdentifyVigilancePoints(ctx, vigilanceSessionID)
				assert.Equal(t, tc.code, apperrors.GetCode(err))
			})
		}
	})

	t.Run("provider failure is external and leaves no document", func(t *testing.T) {
		env, fake := setupVigilance(t)
		fake.err = errors.New("status 500")

		_, err := env.vigilance.IdentifyVigilancePoints(ctx, vigilanceSessionID)
		assert.Equal(t, apperrors.ErrCodeExternal, apperrors.GetCode(err))
		_, found, _ := env.docs.Read(ctx, VigilanceFileName(vigilanceSessionID))
		assert.False(t, found)
	})
}

func TestSaveActionPoints(t *testing.T) {
	ctx := context.Background()
	env, _ := setupVigilance(t)
	_, err := env.vigilance.IdentifyVigilancePoints(ctx, vigilanceSessionID)
	require.NoError(t, err)

	t.Run("appends then replaces the plan", func(t *testing.T) {
		_, err := env.vigilance.SaveActionPoints(ctx, vigilanceSessionID, []string{"Arret tabac", "Bilan lipidique", "Marche"})
		require.NoError(t, err)
		_, err = env.vigilance.SaveActionPoints(ctx, vigilanceSessionID, []string{" Sevrage ", "Prise de sang", "Activite"})
		require.NoError(t, err)

		content, _, err := env.docs.Read(ctx, VigilanceFileName(vigilanceSessionID))
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(content, actionPlanHeading))
		assert.NotContains(t, content, "Arret tabac")
		assert.True(t, strings.HasSuffix(content, actionPlanHeading+"\n\n1. Sevrage\n2. Prise de sang\n3. Activite\n"))
		assert.Contains(t, content, "- Surpoids")
	})

	t.Run("requires exactly three non blank points", func(t *testing.T) {
		_, err := env.vigilance.SaveActionPoints(ctx, vigilanceSessionID, []string{"a", "b"})
		assert.Equal(t, apperrors.ErrCodeValidation, apperrors.GetCode(err))

		_, err = env.vigilance.SaveActionPoints(ctx, vigilanceSessionID, []string{"a", " ", "c"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Point 2 du plan d'action vide ou invalide")
	})

	t.Run("requires the vigilance document", func(t *testing.T) {
		_, err := env.vigilance.SaveActionPoints(ctx, "1c9e8d7f-6a5b-4c3d-8e2f-1a0b9c8d7e6f", []string{"a", "b", "c"})
		assert.Equal(t, apperrors.ErrCodeUnavailable, apperrors.GetCode(err))
	})
}
