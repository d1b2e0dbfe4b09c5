package audit

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventAccessDenied        EventType = "access_denied"
	EventQuestionnaireServed EventType = "questionnaire_served"
	EventResponsesSubmitted  EventType = "responses_submitted"
	EventSubmitRejected      EventType = "submit_rejected"
	EventRateLimitExceed     EventType = "rate_limit_exceeded"
	EventSessionCreate       EventType = "session_create"
	EventSessionClose        EventType = "session_close"
	EventQRIssue             EventType = "qr_issue"
)

type Event struct {
	Type      EventType
	SessionID string
	IP        string
	UserAgent string
	Details   map[string]any
}

func Log(ctx context.Context, event Event) {
	logger := log.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = &log.Logger
	}

	fields := logger.With().
		Str("audit", "security").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now())

	if event.SessionID != "" {
		fields = fields.Str("session_id", event.SessionID)
	}
	if event.IP != "" {
		fields = fields.Str("ip", event.IP)
	}
	if event.UserAgent != "" {
		fields = fields.Str("user_agent", event.UserAgent)
	}
	eventLogger := fields.Logger()

	logEvent := eventLogger.Info()
	if event.Type == EventAccessDenied || event.Type == EventRateLimitExceed {
		logEvent = eventLogger.Warn()
	}
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("security audit event")
}

func addField(e *zerolog.Event, key string, value any) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}

// LogFromRequest fills in the caller address from the connection itself.
func LogFromRequest(r *http.Request, event Event) {
	event.IP = r.RemoteAddr
	event.UserAgent = r.UserAgent()
	Log(r.Context(), event)
}
