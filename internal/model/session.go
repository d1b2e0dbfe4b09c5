package model

import (
	"fmt"
	"strings"
	"time"
)

// LocalTimeLayout is the on-disk timestamp format: local clock, second precision.
// Parsing also accepts a fractional second after the seconds field.
const LocalTimeLayout = "2006-01-02T15:04:05"

// LocalTime serialises as a local timestamp without zone, matching the files the
// desktop application has always written.
type LocalTime struct {
	time.Time
}

func NewLocalTime(t time.Time) LocalTime {
	return LocalTime{t.Local().Truncate(time.Second)}
}

func (t LocalTime) String() string {
	return t.Format(LocalTimeLayout)
}

func (t LocalTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.Format(LocalTimeLayout) + `"`), nil
}

func (t *LocalTime) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.ParseInLocation(LocalTimeLayout, raw, time.Local)
	if err != nil {
		parsed, err = time.Parse(time.RFC3339, raw)
		if err != nil {
			return fmt.Errorf("parse timestamp %q: %w", raw, err)
		}
	}
	t.Time = parsed
	return nil
}

type Session struct {
	SessionID string          `json:"session_id"`
	AgeRange  AgeRange        `json:"age_range"`
	Sex       Sex             `json:"sex,omitempty"`
	CreatedAt LocalTime       `json:"created_at"`
	Status    SessionStatus   `json:"status"`
	Metadata  SessionMetadata `json:"metadata"`
}

func (s *Session) IsActive() bool {
	return s.Status == SessionStatusActive
}

// HasValidSex is false for records written before sex was collected.
func (s *Session) HasValidSex() bool {
	return s.Sex == SexMale || s.Sex == SexFemale
}

type SessionMetadata struct {
	Pharmacie PharmacySnapshot `json:"pharmacie"`
}

// PharmacySnapshot is copied into the session at creation time so later edits of
// the settings never alter an existing interview.
type PharmacySnapshot struct {
	NomPharmacie string `json:"nom_pharmacie"`
	Adresse      string `json:"adresse"`
	CodePostal   string `json:"code_postal"`
	Ville        string `json:"ville"`
}
