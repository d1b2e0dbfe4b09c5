package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/officine/bilan/internal/service"
)

func newSummaryCmd(baseDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "summary <session-id>",
		Short: "Write the summary document of a completed questionnaire",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*baseDir)
			if err != nil {
				return err
			}
			summary, err := app.Summary.BuildSummary(context.Background(), args[0])
			if err != nil {
				return err
			}
			printSummary(cmd, summary)
			return nil
		},
	}
}

func printSummary(cmd *cobra.Command, summary *service.Summary) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Bilan %s (%s)", summary.ShortID, summary.AgeRange)))
	for _, item := range summary.Items {
		_, _ = fmt.Fprintf(out, "%s %s\n", mutedStyle.Render(item.Label+":"), item.ResponseDisplay)
	}
	_, _ = fmt.Fprintf(out, "%s %s\n", mutedStyle.Render("IMC:"), summary.Metrics.IMCDisplay)
	_, _ = fmt.Fprintf(out, "%s %s\n", mutedStyle.Render("document:"), summary.MarkdownPath)
}

func newNotesCmd(baseDir *string) *cobra.Command {
	var notes []string
	var bloodPressure, report string

	cmd := &cobra.Command{
		Use:   "notes <session-id>",
		Short: "Add the pharmacist's notes, blood pressure and report to the summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			byQuestion, err := parseNotes(notes)
			if err != nil {
				return err
			}
			app, err := loadApp(*baseDir)
			if err != nil {
				return err
			}
			summary, err := app.Summary.CaptureInterviewNotes(context.Background(), args[0], service.InterviewNotes{
				Notes:         byQuestion,
				BloodPressure: bloodPressure,
				Report:        report,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "notes saved to %s\n", summary.MarkdownPath)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&notes, "note", nil, "note on one question, as <question-id>=<text> (repeatable)")
	cmd.Flags().StringVar(&bloodPressure, "tension", "", "blood pressure measured at the counter")
	cmd.Flags().StringVar(&report, "report", "", "free text report")
	return cmd
}

// parseNotes splits each "<question-id>=<text>" on its first '='. A later
// note on the same question replaces the earlier one.
func parseNotes(raw []string) (map[string]string, error) {
	out := make(map[string]string, len(raw))
	for _, entry := range raw {
		id, text, ok := strings.Cut(entry, "=")
		id = strings.TrimSpace(id)
		if !ok || id == "" {
			return nil, fmt.Errorf("invalid --note %q: expected <question-id>=<text>", entry)
		}
		out[id] = strings.TrimSpace(text)
	}
	return out, nil
}

func newVigilanceCmd(baseDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "vigilance <session-id>",
		Short: "Ask the configured AI provider for vigilance points on the summary",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*baseDir)
			if err != nil {
				return err
			}
			result, err := app.Vigilance.IdentifyVigilancePoints(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), panel.Render(strings.TrimSpace(result.Text)))
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", mutedStyle.Render("document:"), result.Path)
			return nil
		},
	}
}

func newActionPointsCmd(baseDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "action-points <session-id> <point-1> <point-2> <point-3>",
		Short: "Save the pharmacist's three point action plan",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*baseDir)
			if err != nil {
				return err
			}
			result, err := app.Vigilance.SaveActionPoints(context.Background(), args[0], args[1:])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "action plan saved to %s\n", result.Path)
			return nil
		},
	}
}
