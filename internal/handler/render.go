package handler

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/officine/bilan/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type questionView struct {
	Number   int
	ID       string
	Type     string
	Label    string
	Required bool
	Options  []string
	Scale    model.ScaleConfig
}

// questionMeta is what the submit script needs to read each widget back.
type questionMeta struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type questionnairePage struct {
	PharmacyName string
	AgeRange     string
	SessionID    string
	SubmitURL    string
	Questions    []questionView
	Meta         []questionMeta
}

type deniedPage struct {
	Message string
}

func newQuestionnairePage(session *model.Session, questions []model.Question, submitURL string) questionnairePage {
	page := questionnairePage{
		PharmacyName: session.Metadata.Pharmacie.NomPharmacie,
		AgeRange:     string(session.AgeRange),
		SessionID:    session.SessionID,
		SubmitURL:    submitURL,
		Questions:    make([]questionView, 0, len(questions)),
		Meta:         make([]questionMeta, 0, len(questions)),
	}
	for i, q := range questions {
		view := questionView{
			Number:   i + 1,
			ID:       q.ID,
			Type:     string(q.Type),
			Label:    q.Label,
			Required: q.Required,
			Options:  q.Options,
			Scale:    model.DefaultScaleConfig,
		}
		if q.ScaleConfig != nil {
			view.Scale = *q.ScaleConfig
		}
		page.Questions = append(page.Questions, view)
		page.Meta = append(page.Meta, questionMeta{ID: q.ID, Type: string(q.Type)})
	}
	return page
}

func renderPage(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
