package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/officine/bilan/internal/config"
	"github.com/officine/bilan/internal/model"
)

// LoadedChecker reports whether the tablet has fetched a session's page.
type LoadedChecker interface {
	IsLoaded(sessionID string) bool
}

// ResponseChecker reports whether a session's responses file exists.
type ResponseChecker interface {
	HasResponses(ctx context.Context, sessionID string) bool
}

type TrackerOption func(*Tracker)

// WithStatusChange is called after every forward transition.
func WithStatusChange(fn func(model.QuestionnaireStatus)) TrackerOption {
	return func(t *Tracker) { t.onChange = fn }
}

// WithCompletion is called once, the first time the status reaches termine.
func WithCompletion(fn func(sessionID string)) TrackerOption {
	return func(t *Tracker) { t.onComplete = fn }
}

// Tracker polls one session's progress on the tablet. Its status only moves
// forward: disponible, en_cours, termine.
type Tracker struct {
	sessionID  string
	loaded     LoadedChecker
	responses  ResponseChecker
	interval   time.Duration
	onChange   func(model.QuestionnaireStatus)
	onComplete func(sessionID string)

	mu        sync.Mutex
	status    model.QuestionnaireStatus
	completed bool

	startOnce sync.Once
	stopOnce  sync.Once
	done      chan struct{}
	finished  chan struct{}
}

func NewTracker(
	sessionID string,
	loaded LoadedChecker,
	responses ResponseChecker,
	interval time.Duration,
	opts ...TrackerOption,
) *Tracker {
	if interval <= 0 {
		interval = config.DefaultPollInterval
	}
	t := &Tracker{
		sessionID: sessionID,
		loaded:    loaded,
		responses: responses,
		interval:  interval,
		status:    model.QuestionnaireStatusDisponible,
		done:      make(chan struct{}),
		finished:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Tracker) Status() model.QuestionnaireStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Poll performs one check: a set lookup and a file stat.
func (t *Tracker) Poll(ctx context.Context) model.QuestionnaireStatus {
	t.mu.Lock()
	current := t.status
	if current.IsTerminal() {
		t.mu.Unlock()
		return current
	}

	next := current
	switch {
	case t.responses.HasResponses(ctx, t.sessionID):
		next = model.QuestionnaireStatusTermine
	case t.loaded.IsLoaded(t.sessionID):
		next = model.QuestionnaireStatusEnCours
	}

	changed := current.Advances(next)
	if changed {
		t.status = next
	}
	complete := next.IsTerminal() && !t.completed
	if complete {
		t.completed = true
	}
	t.mu.Unlock()

	if changed {
		log.Info().
			Str("sessionId", t.sessionID).
			Str("from", string(current)).
			Str("to", string(next)).
			Msg("questionnaire status changed")
		if t.onChange != nil {
			t.onChange(next)
		}
	}
	if complete && t.onComplete != nil {
		t.onComplete(t.sessionID)
	}
	return t.Status()
}

func (t *Tracker) Start() {
	t.startOnce.Do(func() {
		go t.run()
		log.Debug().Str("sessionId", t.sessionID).Dur("interval", t.interval).Msg("status tracker started")
	})
}

// Stop is idempotent and may be called after the tracker finished on its own.
func (t *Tracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.done)
	})
}

// Finished is closed when the polling goroutine has exited.
func (t *Tracker) Finished() <-chan struct{} {
	return t.finished
}

func (t *Tracker) run() {
	defer close(t.finished)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	ctx := context.Background()
	for {
		select {
		case <-t.done:
			log.Debug().Str("sessionId", t.sessionID).Msg("status tracker stopped")
			return
		default:
		}

		if t.Poll(ctx).IsTerminal() {
			log.Debug().Str("sessionId", t.sessionID).Msg("status tracker reached terminal state")
			return
		}

		select {
		case <-t.done:
			log.Debug().Str("sessionId", t.sessionID).Msg("status tracker stopped")
			return
		case <-ticker.C:
		}
	}
}
