package main

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/officine/bilan/internal/bootstrap"
	"github.com/officine/bilan/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, renderError(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var baseDir string
	var verbose bool

	root := &cobra.Command{
		Use:           "bilan",
		Short:         "Prevention interviews at the pharmacy counter",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogging(cmd, verbose)
		},
	}
	root.PersistentFlags().StringVar(&baseDir, "base", "", "base directory (default $BILAN_BASE_DIR or .)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(newPreconditionsCmd(&baseDir))
	root.AddCommand(newAgeRangesCmd(&baseDir))
	root.AddCommand(newSettingsCmd(&baseDir))
	root.AddCommand(newQuestionnaireCmd(&baseDir))
	root.AddCommand(newSessionCmd(&baseDir))
	root.AddCommand(newQRCmd(&baseDir))
	root.AddCommand(newInterviewCmd(&baseDir))
	root.AddCommand(newSummaryCmd(&baseDir))
	root.AddCommand(newNotesCmd(&baseDir))
	root.AddCommand(newVigilanceCmd(&baseDir))
	root.AddCommand(newActionPointsCmd(&baseDir))
	return root
}

func setupLogging(cmd *cobra.Command, verbose bool) {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()})
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.WarnLevel)
}

func loadApp(baseDir string) (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if baseDir != "" {
		cfg.BaseDir = baseDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return bootstrap.New(cfg), nil
}

func newPreconditionsCmd(baseDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "preconditions",
		Short: "Check that settings, logo and questionnaires are in place",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*baseDir)
			if err != nil {
				return err
			}
			problems := app.Context.CheckPreconditions(context.Background())
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderPreconditions(problems))
			if len(problems) > 0 {
				return fmt.Errorf("%d precondition(s) not met", len(problems))
			}
			return nil
		},
	}
}

func newAgeRangesCmd(baseDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "age-ranges",
		Short: "List age ranges with a populated questionnaire",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*baseDir)
			if err != nil {
				return err
			}
			ranges := app.Context.ListAvailableAgeRanges(context.Background())
			if len(ranges) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no questionnaire available")
				return nil
			}
			for _, r := range ranges {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), r)
			}
			return nil
		},
	}
}
