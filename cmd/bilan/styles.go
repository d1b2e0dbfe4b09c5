package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	apperrors "github.com/officine/bilan/internal/errors"
	"github.com/officine/bilan/internal/model"
)

var (
	green = lipgloss.Color("#a6e3a1")
	peach = lipgloss.Color("#fab387")
	red   = lipgloss.Color("#f38ba8")
	blue  = lipgloss.Color("#74c7ec")
	muted = lipgloss.Color("#a6adc8")

	titleStyle = lipgloss.NewStyle().Foreground(blue).Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(green).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(red).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(muted)

	badge = lipgloss.NewStyle().Padding(0, 1).Bold(true)

	panel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(muted).
		Padding(0, 1)
)

var statusBadges = map[model.QuestionnaireStatus]lipgloss.Style{
	model.QuestionnaireStatusDisponible: badge.Foreground(blue),
	model.QuestionnaireStatusEnCours:    badge.Foreground(peach),
	model.QuestionnaireStatusTermine:    badge.Foreground(green),
}

var statusLabels = map[model.QuestionnaireStatus]string{
	model.QuestionnaireStatusDisponible: "Disponible",
	model.QuestionnaireStatusEnCours:    "En cours",
	model.QuestionnaireStatusTermine:    "Termine",
}

func renderStatus(status model.QuestionnaireStatus) string {
	label, ok := statusLabels[status]
	if !ok {
		label = string(status)
	}
	return "Questionnaire " + statusBadges[status].Render(label)
}

func renderPreconditions(problems []string) string {
	if len(problems) == 0 {
		return okStyle.Render("✓ Application prete")
	}
	lines := []string{titleStyle.Render("Preconditions non remplies")}
	for _, p := range problems {
		lines = append(lines, failStyle.Render("✗ ")+p)
	}
	return panel.Render(strings.Join(lines, "\n"))
}

// renderError shows the message of application errors without their code,
// followed by any validation problems.
func renderError(err error) string {
	msg := err.Error()
	if appErr, ok := apperrors.AsAppError(err); ok {
		msg = appErr.Message
	}
	lines := []string{failStyle.Render("Erreur: ") + msg}
	for _, p := range apperrors.Problems(err) {
		lines = append(lines, mutedStyle.Render("  - ")+p)
	}
	return strings.Join(lines, "\n")
}
