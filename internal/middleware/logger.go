package middleware

import (
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestLogger logs one line per request and puts a request scoped logger in
// the context for log.Ctx.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logger := log.With().
			Str("requestId", chimiddleware.GetReqID(r.Context())).
			Logger()
		r = r.WithContext(logger.WithContext(r.Context()))

		defer func() {
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			var event *zerolog.Event
			switch {
			case status >= 500:
				event = logger.Error()
			case status >= 400:
				event = logger.Warn()
			default:
				event = logger.Info()
			}

			// The query string carries the capability token and is never logged.
			event.
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Str("remoteAddr", r.RemoteAddr).
				Dur("duration", time.Since(start)).
				Msg("http request")
		}()

		next.ServeHTTP(ww, r)
	})
}
