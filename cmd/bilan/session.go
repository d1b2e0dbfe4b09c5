package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/officine/bilan/internal/model"
	"github.com/officine/bilan/internal/service"
)

func newSessionCmd(baseDir *string) *cobra.Command {
	session := &cobra.Command{Use: "session", Short: "Interview sessions"}

	var ageRange, sex string
	create := &cobra.Command{
		Use:   "create",
		Short: "Open a session for one patient",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*baseDir)
			if err != nil {
				return err
			}
			s, err := app.Sessions.CreateSession(context.Background(), model.AgeRange(ageRange), model.Sex(sex))
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session %s (%s, %s) created\n", s.SessionID, s.AgeRange, s.Sex)
			return nil
		},
	}
	addPatientFlags(create, &ageRange, &sex)

	show := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*baseDir)
			if err != nil {
				return err
			}
			ctx := context.Background()
			s, err := app.Sessions.LoadSession(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, titleStyle.Render("Session "+s.SessionID))
			_, _ = fmt.Fprintf(out, "tranche d'age: %s\nsexe: %s\ncreee le: %s\nstatut: %s\n",
				s.AgeRange, orDash(string(s.Sex)), s.CreatedAt, s.Status)
			_, _ = fmt.Fprintf(out, "reponses: %t\n", app.Capture.HasResponses(ctx, s.SessionID))
			return nil
		},
	}

	closeCmd := &cobra.Command{
		Use:   "close <session-id>",
		Short: "Close a session so its QR codes stop working",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*baseDir)
			if err != nil {
				return err
			}
			s, err := app.Sessions.CloseSession(context.Background(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "session %s closed\n", s.SessionID)
			return nil
		},
	}

	session.AddCommand(create, show, closeCmd)
	return session
}

func addPatientFlags(cmd *cobra.Command, ageRange, sex *string) {
	cmd.Flags().StringVar(ageRange, "age-range", "", "18-25|45-50|60-65|70-75")
	cmd.Flags().StringVar(sex, "sex", "", "H|F")
	_ = cmd.MarkFlagRequired("age-range")
	_ = cmd.MarkFlagRequired("sex")
}

func newQRCmd(baseDir *string) *cobra.Command {
	var baseURL, pngPath string
	var size int

	cmd := &cobra.Command{
		Use:   "qr <session-id>",
		Short: "Issue a signed questionnaire link for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*baseDir)
			if err != nil {
				return err
			}
			qr, err := app.QR.IssueForSession(context.Background(), args[0], baseURL)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), qr.Payload)
			if pngPath != "" {
				if err := writeQRCode(qr, pngPath, size); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "qr code written to %s\n", pngPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "base-url", "", "questionnaire URL (default $QUESTIONNAIRE_BASE_URL or the LAN address)")
	cmd.Flags().StringVar(&pngPath, "png", "", "also write the QR code image to this file")
	cmd.Flags().IntVar(&size, "size", 0, "QR code size in pixels")
	return cmd
}

func writeQRCode(qr *service.QRData, path string, size int) error {
	png, err := service.RenderQRCodePNG(qr.Payload, size)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return fmt.Errorf("write qr code: %w", err)
	}
	return nil
}
