// Package bootstrap wires repositories, services and the tablet router for
// both binaries.
package bootstrap

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/officine/bilan/internal/config"
	"github.com/officine/bilan/internal/handler"
	"github.com/officine/bilan/internal/jobs"
	"github.com/officine/bilan/internal/middleware"
	"github.com/officine/bilan/internal/repository"
	"github.com/officine/bilan/internal/service"
)

type App struct {
	Config *config.Config
	Paths  config.Paths

	Context   *service.ContextService
	Sessions  *service.SessionService
	Catalog   *service.CatalogService
	QR        *service.QRService
	Capture   *service.CaptureService
	Summary   *service.SummaryService
	Vigilance *service.VigilanceService

	// Loaded is shared by the gateway, which marks sessions, and by trackers,
	// which read it.
	Loaded *handler.LoadedSet
}

func New(cfg *config.Config) *App {
	paths := cfg.Paths()

	settingsRepo := repository.NewSettingsRepository(paths.SettingsFile, paths.LogoFile)
	questionnaireRepo := repository.NewQuestionnaireRepository(paths.QuestionnaireDir)
	sessionRepo := repository.NewSessionRepository(paths.SessionsDir)
	responseRepo := repository.NewResponseRepository(paths.SessionsDir)
	secretRepo := repository.NewSecretRepository(paths.SecretFile)
	documentRepo := repository.NewDocumentRepository(paths.SessionsDir)
	promptRepo := repository.NewPromptRepository(paths.PromptFile)

	contextService := service.NewContextService(settingsRepo, questionnaireRepo)
	sessionService := service.NewSessionService(sessionRepo, settingsRepo, contextService)
	catalogService := service.NewCatalogService(questionnaireRepo, sessionService)
	captureService := service.NewCaptureService(responseRepo, sessionService)

	return &App{
		Config:    cfg,
		Paths:     paths,
		Context:   contextService,
		Sessions:  sessionService,
		Catalog:   catalogService,
		QR:        service.NewQRService(secretRepo, sessionService, cfg.QuestionnaireBaseURL, cfg.Port),
		Capture:   captureService,
		Summary:   service.NewSummaryService(sessionService, catalogService, captureService, documentRepo),
		Vigilance: service.NewVigilanceService(settingsRepo, promptRepo, documentRepo, cfg.AITimeout()),
		Loaded:    handler.NewLoadedSet(),
	}
}

// Router serves /health and the tablet routes under config.QuestionnairePath.
func (a *App) Router() http.Handler {
	tabletHandler := handler.NewTabletHandler(a.QR, a.Catalog, a.Capture, a.Loaded)
	healthHandler := handler.NewHealthHandler(a.Loaded)

	bodyLimitMiddleware := middleware.NewBodyLimitMiddleware(config.MaxSubmitBodySize)
	securityHeadersMiddleware := middleware.NewSecurityHeadersMiddleware()
	ipRateLimitMiddleware := middleware.NewIPRateLimitMiddleware(
		middleware.NewRateLimiter(config.RateLimitWindow), a.Config.RateLimitPerMin,
		middleware.WithPageRejection(handler.WriteDeniedPage),
	)

	r := chi.NewRouter()

	// Tablets connect directly over the LAN: forwarding headers are client
	// controlled and RemoteAddr is the only trusted address.
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))
	r.Use(bodyLimitMiddleware.Handler)

	r.Get("/health", healthHandler.ServeHTTP)

	r.Route(config.QuestionnairePath, func(r chi.Router) {
		r.Use(securityHeadersMiddleware.Handler)
		r.Use(ipRateLimitMiddleware.Handler)
		r.Mount("/", tabletHandler.Routes())
	})

	return r
}

func (a *App) NewServer() *http.Server {
	return &http.Server{
		Addr:         a.Config.Addr(),
		Handler:      a.Router(),
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}
}

// NewTracker follows one session using this app's loaded-set and response
// files.
func (a *App) NewTracker(sessionID string, opts ...jobs.TrackerOption) *jobs.Tracker {
	return jobs.NewTracker(sessionID, a.Loaded, a.Capture, a.Config.PollInterval(), opts...)
}

// TrackInterview follows sessionID and builds its summary once, from the
// tracker goroutine, when the answers arrive. done receives the result before
// Finished is closed.
func (a *App) TrackInterview(
	ctx context.Context,
	sessionID string,
	done func(*service.Summary, error),
	opts ...jobs.TrackerOption,
) *jobs.Tracker {
	opts = append(opts, jobs.WithCompletion(func(id string) {
		done(a.Summary.BuildSummary(ctx, id))
	}))
	return a.NewTracker(sessionID, opts...)
}

// Prepare creates the QR secret when it does not exist yet.
func (a *App) Prepare(ctx context.Context) error {
	_, err := a.QR.LoadOrCreateSecret(ctx)
	return err
}
