package model

import "encoding/json"

type Questionnaire struct {
	AgeRange  AgeRange   `json:"age_range"`
	Version   int        `json:"version"`
	CreatedAt string     `json:"created_at"`
	UpdatedAt string     `json:"updated_at"`
	Questions []Question `json:"questions"`
}

type Question struct {
	ID          string       `json:"id"`
	Order       int          `json:"order"`
	Type        QuestionType `json:"type"`
	Label       string       `json:"label"`
	Required    bool         `json:"required"`
	SexTarget   SexTarget    `json:"sex_target,omitempty"`
	Options     []string     `json:"options"`
	ScaleConfig *ScaleConfig `json:"scale_config"`
}

// Audience returns the sex target, treating an unset value as mixed.
func (q *Question) Audience() SexTarget {
	if q.SexTarget == "" {
		return SexTargetMixed
	}
	return q.SexTarget
}

// VisibleTo reports whether the question is shown to a patient of the given sex.
func (q *Question) VisibleTo(sex Sex) bool {
	audience := q.Audience()
	return audience == SexTargetMixed || string(audience) == string(sex)
}

type ScaleConfig struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

var DefaultScaleConfig = ScaleConfig{Min: 1, Max: 10, Step: 1}

// FilterBySex keeps the questions visible to sex, preserving order.
func FilterBySex(questions []Question, sex Sex) []Question {
	out := make([]Question, 0, len(questions))
	for _, q := range questions {
		if q.VisibleTo(sex) {
			out = append(out, q)
		}
	}
	return out
}

// Response is one answer as submitted by the tablet.
type Response struct {
	QuestionID string `json:"question_id"`
	Type       string `json:"type,omitempty"`
	Value      any    `json:"value"`
}

// ResponseRecord is persisted verbatim; raw items keep any extra client fields.
type ResponseRecord struct {
	SessionID      string            `json:"session_id"`
	SubmittedAt    string            `json:"submitted_at"`
	ResponsesCount int               `json:"responses_count"`
	Responses      []json.RawMessage `json:"responses"`
}

// Decoded returns the responses as typed values, skipping unreadable items.
func (r *ResponseRecord) Decoded() []Response {
	out := make([]Response, 0, len(r.Responses))
	for _, raw := range r.Responses {
		var resp Response
		if err := json.Unmarshal(raw, &resp); err != nil {
			continue
		}
		out = append(out, resp)
	}
	return out
}
