package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/officine/bilan/internal/errors"
	"github.com/officine/bilan/internal/markdown"
	"github.com/officine/bilan/internal/model"
	"github.com/officine/bilan/internal/repository"
	"github.com/officine/bilan/internal/util"
)

const (
	weightQuestionID = "obligatoire1"
	heightQuestionID = "Obligatoire2"
	notAnswered      = "non renseigne"
	notComputable    = "non calculable"
)

type SummaryItem struct {
	QuestionID      string             `json:"question_id"`
	Label           string             `json:"label"`
	Type            model.QuestionType `json:"type"`
	Options         []string           `json:"options"`
	ResponseValue   any                `json:"response_value"`
	ResponseDisplay string             `json:"response_display"`
}

// Metrics holds the body measurements found in the answers. Nil means the
// answer was missing or not a positive number.
type Metrics struct {
	PoidsKg    *float64 `json:"poids_kg"`
	TailleM    *float64 `json:"taille_m"`
	IMC        *float64 `json:"imc"`
	IMCDisplay string   `json:"imc_display"`
}

type Summary struct {
	SessionID    string         `json:"session_id"`
	ShortID      string         `json:"short_id"`
	AgeRange     model.AgeRange `json:"age_range"`
	MarkdownPath string         `json:"md_path"`
	Items        []SummaryItem  `json:"items"`
	Metrics      Metrics        `json:"metrics"`
}

// InterviewNotes is what the pharmacist adds during the face to face review.
type InterviewNotes struct {
	// Notes is keyed by question id.
	Notes         map[string]string
	BloodPressure string
	Report        string
}

type summaryFrontmatter struct {
	SessionID   string `yaml:"session_id"`
	ShortID     string `yaml:"short_id"`
	AgeRange    string `yaml:"age_range"`
	Sex         string `yaml:"sex,omitempty"`
	GeneratedAt string `yaml:"generated_at"`
	IMC         string `yaml:"imc"`
}

func SummaryFileName(sessionID string) string {
	return "QuestionnaireComplet_" + util.ShortID(sessionID) + ".md"
}

type SummaryService struct {
	sessions *SessionService
	catalog  *CatalogService
	capture  *CaptureService
	docs     repository.DocumentRepository
	now      func() time.Time
}

func NewSummaryService(
	sessions *SessionService,
	catalog *CatalogService,
	capture *CaptureService,
	docs repository.DocumentRepository,
) *SummaryService {
	return &SummaryService{
		sessions: sessions,
		catalog:  catalog,
		capture:  capture,
		docs:     docs,
		now:      time.Now,
	}
}

// BuildSummary pairs every question with its answer and writes the summary
// document without pharmacist input.
func (s *SummaryService) BuildSummary(ctx context.Context, sessionID string) (*Summary, error) {
	summary, session, err := s.assemble(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.write(ctx, summary, session, InterviewNotes{}); err != nil {
		return nil, err
	}
	log.Info().Str("sessionId", sessionID).Int("items", len(summary.Items)).Msg("summary built")
	return summary, nil
}

// CaptureInterviewNotes regenerates the summary document with the
// pharmacist's notes, blood pressure and report.
func (s *SummaryService) CaptureInterviewNotes(ctx context.Context, sessionID string, notes InterviewNotes) (*Summary, error) {
	summary, session, err := s.assemble(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := s.write(ctx, summary, session, notes); err != nil {
		return nil, err
	}
	log.Info().Str("sessionId", sessionID).Msg("interview notes captured")
	return summary, nil
}

func (s *SummaryService) assemble(ctx context.Context, sessionID string) (*Summary, *model.Session, error) {
	session, err := s.sessions.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session.AgeRange == "" {
		return nil, nil, apperrors.NotFound("Session sans tranche d'age")
	}

	record, err := s.capture.LoadResponses(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if record == nil {
		return nil, nil, apperrors.Unavailable(fmt.Sprintf("Fichier reponses absent pour la session: %s", sessionID))
	}

	questionnaire, err := s.catalog.LoadForAgeRange(ctx, session.AgeRange)
	if err != nil {
		return nil, nil, err
	}

	// Sessions written before sex was recorded see every question.
	questions := questionnaire.Questions
	if session.HasValidSex() {
		questions = model.FilterBySex(questions, session.Sex)
	}

	answers := make(map[string]any)
	for _, resp := range record.Decoded() {
		if resp.QuestionID != "" {
			answers[resp.QuestionID] = resp.Value
		}
	}

	items := make([]SummaryItem, 0, len(questions))
	for _, q := range questions {
		value := answers[q.ID]
		options := q.Options
		if options == nil {
			options = []string{}
		}
		items = append(items, SummaryItem{
			QuestionID:      q.ID,
			Label:           q.Label,
			Type:            q.Type,
			Options:         options,
			ResponseValue:   value,
			ResponseDisplay: FormatResponseValue(value, q.Type),
		})
	}

	return &Summary{
		SessionID:    sessionID,
		ShortID:      util.ShortID(sessionID),
		AgeRange:     session.AgeRange,
		MarkdownPath: s.docs.Path(SummaryFileName(sessionID)),
		Items:        items,
		Metrics:      ExtractMetrics(items),
	}, session, nil
}

func (s *SummaryService) write(ctx context.Context, summary *Summary, session *model.Session, notes InterviewNotes) error {
	meta := summaryFrontmatter{
		SessionID:   summary.SessionID,
		ShortID:     summary.ShortID,
		AgeRange:    string(summary.AgeRange),
		Sex:         string(session.Sex),
		GeneratedAt: model.NewLocalTime(s.now()).String(),
		IMC:         summary.Metrics.IMCDisplay,
	}
	content, err := markdown.RenderFrontmatter(meta, renderSummaryBody(summary, notes))
	if err != nil {
		return err
	}
	return s.docs.Write(ctx, SummaryFileName(summary.SessionID), content)
}

func renderSummaryBody(summary *Summary, notes InterviewNotes) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("# Questionnaire Complet - Session %s", summary.ShortID)
	line("")
	line("**Session**: %s", summary.SessionID)
	line("**Tranche d'age**: %s ans", summary.AgeRange)
	line("")
	line("---")
	line("")

	for i, item := range summary.Items {
		line("## %d. %s", i+1, item.Label)
		line("")
		line("**Reponse**: %s", item.ResponseDisplay)
		line("")
		line("_Notes pharmacien:_")
		if note := notes.Notes[item.QuestionID]; strings.TrimSpace(note) != "" {
			line("")
			line("%s", note)
		}
		line("")
		line("")
		line("---")
		line("")
	}

	poids, taille := notAnswered, notAnswered
	if summary.Metrics.PoidsKg != nil {
		poids = fmt.Sprintf("%.1f", *summary.Metrics.PoidsKg)
	}
	if summary.Metrics.TailleM != nil {
		taille = fmt.Sprintf("%.2f", *summary.Metrics.TailleM)
	}
	line("## Mesures patient")
	line("")
	line("- **Poids (kg)**: %s", poids)
	line("- **Taille (m)**: %s", taille)
	line("- **IMC**: %s", summary.Metrics.IMCDisplay)
	line("- **Tension (mmHg)**: %s", strings.TrimSpace(notes.BloodPressure))
	line("")
	line("---")
	line("")

	line("## Rapport du pharmacien")
	line("")
	if strings.TrimSpace(notes.Report) != "" {
		line("%s", notes.Report)
	}
	line("")
	b.WriteString("\n")

	return b.String()
}

// FormatResponseValue renders an answer for the pharmacist.
func FormatResponseValue(value any, qtype model.QuestionType) string {
	if value == nil {
		return notAnswered
	}

	switch qtype {
	case model.QuestionTypeBoolean:
		if v, ok := value.(bool); ok {
			if v {
				return "Oui"
			}
			return "Non"
		}
		return formatScalar(value)
	case model.QuestionTypeMultipleChoice:
		if list, ok := value.([]any); ok {
			if len(list) == 0 {
				return notAnswered
			}
			parts := make([]string, 0, len(list))
			for _, v := range list {
				parts = append(parts, formatScalar(v))
			}
			return strings.Join(parts, ", ")
		}
		return formatScalar(value)
	case model.QuestionTypeScale:
		return formatScalar(value)
	}

	if v, ok := value.(string); ok && strings.TrimSpace(v) == "" {
		return notAnswered
	}
	return formatScalar(value)
}

func formatScalar(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(v)
	}
}

// parsePositive accepts numbers and numeric strings with either decimal
// separator.
func parsePositive(value any) *float64 {
	if value == nil {
		return nil
	}
	var raw string
	switch v := value.(type) {
	case float64:
		raw = strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		raw = v
	default:
		return nil
	}
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	num, err := strconv.ParseFloat(raw, 64)
	if err != nil || num <= 0 || math.IsInf(num, 0) || math.IsNaN(num) {
		return nil
	}
	return &num
}

// ExtractMetrics finds weight and height by their reserved ids first, then by
// label, and derives the BMI.
func ExtractMetrics(items []SummaryItem) Metrics {
	var weightRaw, heightRaw any
	for _, item := range items {
		switch item.QuestionID {
		case weightQuestionID:
			weightRaw = item.ResponseValue
		case heightQuestionID:
			heightRaw = item.ResponseValue
		}
	}
	if weightRaw == nil {
		weightRaw = findByLabel(items, "poids")
	}
	if heightRaw == nil {
		heightRaw = findByLabel(items, "taille")
	}

	m := Metrics{
		PoidsKg:    parsePositive(weightRaw),
		TailleM:    parsePositive(heightRaw),
		IMCDisplay: notComputable,
	}
	if m.PoidsKg != nil && m.TailleM != nil {
		imc := *m.PoidsKg / (*m.TailleM * *m.TailleM)
		m.IMC = &imc
		m.IMCDisplay = fmt.Sprintf("%.1f", imc)
	}
	return m
}

func findByLabel(items []SummaryItem, word string) any {
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Label), word) {
			return item.ResponseValue
		}
	}
	return nil
}
