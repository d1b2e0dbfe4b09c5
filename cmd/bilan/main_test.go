package main

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/officine/bilan/internal/errors"
	"github.com/officine/bilan/internal/model"
)

func run(t *testing.T, base string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{"--base", base}, args...))
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCLIWorkflow(t *testing.T) {
	base := t.TempDir()
	inputs := t.TempDir()

	out, err := run(t, base, "preconditions")
	require.Error(t, err)
	assert.Contains(t, out, "Logo de la pharmacie manquant")

	var logo bytes.Buffer
	require.NoError(t, png.Encode(&logo, image.NewRGBA(image.Rect(0, 0, 2, 2))))
	logoPath := writeFile(t, inputs, "logo.png", logo.String())
	settingsPath := writeFile(t, inputs, "settings.json", `{
		"nom_pharmacie": "Pharmacie du Centre",
		"adresse": "8 rue Nationale",
		"code_postal": "37000",
		"ville": "Tours",
		"telephone": "0247000000",
		"fournisseur_ia": "anthropic",
		"cle_api": "key",
		"site_web": "https://pharmacie-centre.example"
	}`)

	_, err = run(t, base, "settings", "save", settingsPath, "--logo", logoPath)
	require.NoError(t, err)

	out, err = run(t, base, "settings", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Pharmacie du Centre")
	assert.Contains(t, out, "https://pharmacie-centre.example")

	questionnairePath := writeFile(t, inputs, "q.json", `{
		"questions": [
			{"id": "q1", "order": 0, "type": "boolean", "label": "Fumez-vous ?", "required": true}
		]
	}`)
	out, err = run(t, base, "questionnaire", "import", "18-25", questionnairePath)
	require.NoError(t, err)
	assert.Contains(t, out, "imported 1 question(s) for 18-25")

	out, err = run(t, base, "q", "add-question", "18-25", "--type", "single_choice",
		"--label", "Activite physique", "--options", "Jamais,Parfois,Souvent")
	require.NoError(t, err)
	assert.Contains(t, out, "added q2 to 18-25")

	out, err = run(t, base, "questionnaire", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "18-25\tv1\t2 question(s)")

	out, err = run(t, base, "age-ranges")
	require.NoError(t, err)
	assert.Equal(t, "18-25\n", out)

	out, err = run(t, base, "preconditions")
	require.NoError(t, err)
	assert.Contains(t, out, "Application prete")

	out, err = run(t, base, "session", "create", "--age-range", "18-25", "--sex", "H")
	require.NoError(t, err)
	fields := strings.Fields(out)
	require.GreaterOrEqual(t, len(fields), 2)
	sessionID := fields[1]

	pngPath := filepath.Join(inputs, "qr.png")
	out, err = run(t, base, "qr", sessionID, "--base-url", "http://10.0.0.2:5000/questionnaire", "--png", pngPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "http://10.0.0.2:5000/questionnaire?v=1&sid="+sessionID+"&t="))
	img, err := os.Open(pngPath)
	require.NoError(t, err)
	defer img.Close()
	_, err = png.Decode(img)
	assert.NoError(t, err)

	out, err = run(t, base, "session", "show", sessionID)
	require.NoError(t, err)
	assert.Contains(t, out, "statut: active")
	assert.Contains(t, out, "reponses: false")

	_, err = run(t, base, "summary", sessionID)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnavailable))

	_, err = run(t, base, "session", "close", sessionID)
	require.NoError(t, err)
	_, err = run(t, base, "qr", sessionID, "--base-url", "http://10.0.0.2:5000/questionnaire")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeInvalidState))

	out, err = run(t, base, "questionnaire", "delete", "18-25")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted questionnaire 18-25")
}

func TestCLIValidationErrors(t *testing.T) {
	base := t.TempDir()

	t.Run("session create requires flags", func(t *testing.T) {
		_, err := run(t, base, "session", "create", "--age-range", "18-25")
		assert.Error(t, err)
	})

	t.Run("invalid questionnaire lists problems", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "q.json", `{"questions": [{"id": "q1", "type": "scale", "label": ""}]}`)
		_, err := run(t, base, "questionnaire", "import", "45-50", path)
		require.Error(t, err)
		problems := apperrors.Problems(err)
		assert.Contains(t, problems, "Question 1: libelle manquant")
		assert.Contains(t, problems, "Question 1: scale_config manquant")
	})

	t.Run("age range mismatch", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "q.json", `{"age_range": "70-75", "questions": []}`)
		_, err := run(t, base, "questionnaire", "import", "45-50", path)
		assert.ErrorContains(t, err, "not 45-50")
	})

	t.Run("interview without patient", func(t *testing.T) {
		_, err := run(t, base, "interview")
		assert.ErrorContains(t, err, "--age-range and --sex are required")
	})

	t.Run("action plan needs three points", func(t *testing.T) {
		_, err := run(t, base, "action-points", "3f2b9c1a-0000-4000-8000-000000000000", "a", "b")
		assert.Error(t, err)
	})
}

func TestParseNotes(t *testing.T) {
	notes, err := parseNotes([]string{"q1=Arret du tabac envisage", "q2 = a = b", "q1=Revu"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"q1": "Revu", "q2": "a = b"}, notes)

	_, err = parseNotes([]string{"sans separateur"})
	assert.Error(t, err)
	_, err = parseNotes([]string{"=texte"})
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	t.Run("status labels", func(t *testing.T) {
		assert.Contains(t, renderStatus(model.QuestionnaireStatusDisponible), "Disponible")
		assert.Contains(t, renderStatus(model.QuestionnaireStatusEnCours), "En cours")
		assert.Contains(t, renderStatus(model.QuestionnaireStatusTermine), "Termine")
	})

	t.Run("preconditions", func(t *testing.T) {
		rendered := renderPreconditions([]string{"Logo de la pharmacie manquant", "Aucun questionnaire disponible"})
		assert.Contains(t, rendered, "Preconditions non remplies")
		assert.Contains(t, rendered, "Logo de la pharmacie manquant")
		assert.Contains(t, rendered, "Aucun questionnaire disponible")
	})

	t.Run("application errors hide their code", func(t *testing.T) {
		err := apperrors.ValidationError("Validation echouee", []string{"Champ obligatoire manquant: ville"})
		rendered := renderError(err)
		assert.Contains(t, rendered, "Validation echouee")
		assert.Contains(t, rendered, "Champ obligatoire manquant: ville")
		assert.NotContains(t, rendered, "VALIDATION_ERROR")
	})

	t.Run("plain errors", func(t *testing.T) {
		assert.Contains(t, renderError(errors.New("listen on :5000: address in use")), "address in use")
	})
}
