package model

type AgeRange string

const (
	AgeRange18to25 AgeRange = "18-25"
	AgeRange45to50 AgeRange = "45-50"
	AgeRange60to65 AgeRange = "60-65"
	AgeRange70to75 AgeRange = "70-75"
)

// AgeRanges is the canonical order used everywhere a list is displayed.
var AgeRanges = []AgeRange{AgeRange18to25, AgeRange45to50, AgeRange60to65, AgeRange70to75}

type Sex string

const (
	SexMale   Sex = "H"
	SexFemale Sex = "F"
)

var Sexes = []Sex{SexMale, SexFemale}

type SexTarget string

const (
	SexTargetMale   SexTarget = "H"
	SexTargetFemale SexTarget = "F"
	SexTargetMixed  SexTarget = "M"
)

var SexTargets = []SexTarget{SexTargetMale, SexTargetFemale, SexTargetMixed}

type QuestionType string

const (
	QuestionTypeBoolean        QuestionType = "boolean"
	QuestionTypeSingleChoice   QuestionType = "single_choice"
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeShortText      QuestionType = "short_text"
	QuestionTypeScale          QuestionType = "scale"
)

var QuestionTypes = []QuestionType{
	QuestionTypeBoolean,
	QuestionTypeSingleChoice,
	QuestionTypeMultipleChoice,
	QuestionTypeShortText,
	QuestionTypeScale,
}

type SessionStatus string

const (
	SessionStatusActive SessionStatus = "active"
	SessionStatusClosed SessionStatus = "closed"
)

// QuestionnaireStatus is the desktop-side progress of the tablet interview.
type QuestionnaireStatus string

const (
	QuestionnaireStatusDisponible QuestionnaireStatus = "disponible"
	QuestionnaireStatusEnCours    QuestionnaireStatus = "en_cours"
	QuestionnaireStatusTermine    QuestionnaireStatus = "termine"
)

func (s QuestionnaireStatus) rank() int {
	switch s {
	case QuestionnaireStatusEnCours:
		return 1
	case QuestionnaireStatusTermine:
		return 2
	default:
		return 0
	}
}

// Advances reports whether moving from s to next goes strictly forward.
func (s QuestionnaireStatus) Advances(next QuestionnaireStatus) bool {
	return next.rank() > s.rank()
}

func (s QuestionnaireStatus) IsTerminal() bool {
	return s == QuestionnaireStatusTermine
}
