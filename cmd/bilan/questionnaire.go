package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/officine/bilan/internal/model"
	"github.com/officine/bilan/internal/service"
)

func newQuestionnaireCmd(baseDir *string) *cobra.Command {
	questionnaire := &cobra.Command{
		Use:     "questionnaire",
		Aliases: []string{"q"},
		Short:   "Author the questionnaire of each age range",
	}

	questionnaire.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List questionnaire files",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*baseDir)
			if err != nil {
				return err
			}
			ctx := context.Background()
			ranges := app.Catalog.List(ctx)
			if len(ranges) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no questionnaires")
				return nil
			}
			for _, r := range ranges {
				q, err := app.Catalog.Load(ctx, r)
				if err != nil {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", r, failStyle.Render("illisible"))
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\tv%d\t%d question(s)\t%s\n",
					r, q.Version, len(q.Questions), mutedStyle.Render(q.UpdatedAt))
			}
			return nil
		},
	})

	questionnaire.AddCommand(&cobra.Command{
		Use:   "show <age-range>",
		Short: "Print a questionnaire as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*baseDir)
			if err != nil {
				return err
			}
			q, err := app.Catalog.Load(context.Background(), model.AgeRange(args[0]))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(q)
		},
	})

	questionnaire.AddCommand(&cobra.Command{
		Use:   "import <age-range> <file.json>",
		Short: "Validate a questionnaire file and store it for an age range",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*baseDir)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("read questionnaire: %w", err)
			}
			var q model.Questionnaire
			if err := json.Unmarshal(raw, &q); err != nil {
				return fmt.Errorf("parse questionnaire: %w", err)
			}
			ageRange := model.AgeRange(args[0])
			if q.AgeRange != "" && q.AgeRange != ageRange {
				return fmt.Errorf("file is for age range %s, not %s", q.AgeRange, ageRange)
			}
			q.AgeRange = ageRange
			if err := app.Catalog.Save(context.Background(), &q); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "imported %d question(s) for %s\n", len(q.Questions), q.AgeRange)
			return nil
		},
	})

	var qtype, label, sexTarget string
	var options []string
	var optional bool
	var scale model.ScaleConfig
	addQuestion := &cobra.Command{
		Use:   "add-question <age-range>",
		Short: "Append a question to a questionnaire",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if label == "" {
				return fmt.Errorf("--label is required")
			}
			app, err := loadApp(*baseDir)
			if err != nil {
				return err
			}
			ctx := context.Background()
			q, err := app.Catalog.Load(ctx, model.AgeRange(args[0]))
			if err != nil {
				return err
			}

			question := service.NewQuestion(q.Questions, model.QuestionType(qtype))
			question.Label = label
			question.Required = !optional
			if sexTarget != "" {
				question.SexTarget = model.SexTarget(sexTarget)
			}
			if len(options) > 0 {
				question.Options = options
			}
			if question.ScaleConfig != nil {
				sc := scale
				question.ScaleConfig = &sc
			}
			q.Questions = append(q.Questions, question)

			if err := app.Catalog.Save(ctx, q); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "added %s to %s\n", question.ID, q.AgeRange)
			return nil
		},
	}
	addQuestion.Flags().StringVar(&qtype, "type", string(model.QuestionTypeBoolean),
		"boolean|single_choice|multiple_choice|short_text|scale")
	addQuestion.Flags().StringVar(&label, "label", "", "question text")
	addQuestion.Flags().StringVar(&sexTarget, "sex-target", "", "H|F|M (default M)")
	addQuestion.Flags().StringSliceVar(&options, "options", nil, "choices for choice questions")
	addQuestion.Flags().BoolVar(&optional, "optional", false, "answer not required")
	addQuestion.Flags().Float64Var(&scale.Min, "scale-min", model.DefaultScaleConfig.Min, "scale minimum")
	addQuestion.Flags().Float64Var(&scale.Max, "scale-max", model.DefaultScaleConfig.Max, "scale maximum")
	addQuestion.Flags().Float64Var(&scale.Step, "scale-step", model.DefaultScaleConfig.Step, "scale step")

	questionnaire.AddCommand(addQuestion)

	questionnaire.AddCommand(&cobra.Command{
		Use:   "delete <age-range>",
		Short: "Remove the questionnaire of an age range",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*baseDir)
			if err != nil {
				return err
			}
			deleted, err := app.Catalog.Delete(context.Background(), model.AgeRange(args[0]))
			if err != nil {
				return err
			}
			if !deleted {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "no questionnaire for %s\n", args[0])
				return nil
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "deleted questionnaire %s\n", args[0])
			return nil
		},
	})

	return questionnaire
}
