package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/officine/bilan/internal/bootstrap"
	"github.com/officine/bilan/internal/config"
	"github.com/officine/bilan/internal/jobs"
	"github.com/officine/bilan/internal/model"
	"github.com/officine/bilan/internal/service"
)

type interviewOptions struct {
	ageRange  string
	sex       string
	sessionID string
	baseURL   string
	pngPath   string
	keepOpen  bool
}

func newInterviewCmd(baseDir *string) *cobra.Command {
	var opts interviewOptions

	cmd := &cobra.Command{
		Use:   "interview",
		Short: "Serve the questionnaire to the tablet and follow it until it is submitted",
		Long: "Creates a session (or reuses --session-id), prints its QR link, serves the tablet " +
			"questionnaire and builds the summary once the answers arrive.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.sessionID == "" && (opts.ageRange == "" || opts.sex == "") {
				return fmt.Errorf("--age-range and --sex are required without --session-id")
			}
			app, err := loadApp(*baseDir)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runInterview(ctx, app, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.ageRange, "age-range", "", "18-25|45-50|60-65|70-75")
	cmd.Flags().StringVar(&opts.sex, "sex", "", "H|F")
	cmd.Flags().StringVar(&opts.sessionID, "session-id", "", "resume an existing session")
	cmd.Flags().StringVar(&opts.baseURL, "base-url", "", "questionnaire URL encoded in the QR code")
	cmd.Flags().StringVar(&opts.pngPath, "png", "", "write the QR code image to this file")
	cmd.Flags().BoolVar(&opts.keepOpen, "keep-open", false, "leave the session active after the summary")
	return cmd
}

func runInterview(ctx context.Context, app *bootstrap.App, opts interviewOptions, out io.Writer) error {
	if err := app.Prepare(ctx); err != nil {
		return err
	}

	var session *model.Session
	var err error
	if opts.sessionID != "" {
		session, err = app.Sessions.LoadSession(ctx, opts.sessionID)
	} else {
		session, err = app.Sessions.CreateSession(ctx, model.AgeRange(opts.ageRange), model.Sex(opts.sex))
	}
	if err != nil {
		return err
	}

	qr, err := app.QR.Issue(ctx, session, opts.baseURL)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, titleStyle.Render("Session "+session.SessionID))
	_, _ = fmt.Fprintln(out, qr.Payload)
	if opts.pngPath != "" {
		if err := writeQRCode(qr, opts.pngPath, 0); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "%s %s\n", mutedStyle.Render("qr code:"), opts.pngPath)
	}

	server := app.NewServer()
	listener, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", server.Addr, err)
	}
	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("serving tablet questionnaire")
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server forced to shutdown")
		}
	}()

	_, _ = fmt.Fprintln(out, renderStatus(model.QuestionnaireStatusDisponible))
	var summary *service.Summary
	var summaryErr error
	tracker := app.TrackInterview(ctx, session.SessionID,
		func(s *service.Summary, err error) { summary, summaryErr = s, err },
		jobs.WithStatusChange(func(status model.QuestionnaireStatus) {
			_, _ = fmt.Fprintln(out, renderStatus(status))
		}),
	)
	tracker.Start()
	defer tracker.Stop()

	select {
	case <-tracker.Finished():
	case err := <-serverErr:
		return fmt.Errorf("tablet server: %w", err)
	case <-ctx.Done():
		_, _ = fmt.Fprintln(out, mutedStyle.Render("interrompu, session "+session.SessionID+" toujours active"))
		return nil
	}

	if summaryErr != nil {
		return summaryErr
	}
	if summary == nil {
		return fmt.Errorf("session %s: tracker stopped before the answers arrived", session.SessionID)
	}
	_, _ = fmt.Fprintf(out, "%s %s\n%s %s\n",
		mutedStyle.Render("resume:"), summary.MarkdownPath,
		mutedStyle.Render("IMC:"), summary.Metrics.IMCDisplay)

	if opts.keepOpen {
		return nil
	}
	if _, err := app.Sessions.CloseSession(ctx, session.SessionID); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, okStyle.Render("session fermee"))
	return nil
}
