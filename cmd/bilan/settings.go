package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/officine/bilan/internal/model"
)

func newSettingsCmd(baseDir *string) *cobra.Command {
	settings := &cobra.Command{Use: "settings", Short: "Pharmacy identity and AI provider"}

	settings.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the pharmacy identity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*baseDir)
			if err != nil {
				return err
			}
			pc := app.Context.LoadPharmacyContext(context.Background())
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, titleStyle.Render(orDash(pc.NomPharmacie)))
			_, _ = fmt.Fprintf(out, "%s\n%s %s\n", orDash(pc.Adresse), pc.CodePostal, pc.Ville)
			for _, link := range []struct{ name, value string }{
				{"site", pc.SiteWeb},
				{"instagram", pc.Instagram},
				{"facebook", pc.Facebook},
				{"x", pc.X},
				{"linkedin", pc.LinkedIn},
			} {
				if link.value != "" {
					_, _ = fmt.Fprintf(out, "%s %s\n", mutedStyle.Render(link.name+":"), link.value)
				}
			}
			_, _ = fmt.Fprintf(out, "%s %s\n", mutedStyle.Render("logo:"), orDash(pc.LogoPath))
			return nil
		},
	})

	var logo string
	save := &cobra.Command{
		Use:   "save <settings.json>",
		Short: "Validate and store settings, with an optional PNG or JPEG logo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := loadApp(*baseDir)
			if err != nil {
				return err
			}
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read settings: %w", err)
			}
			var s model.Settings
			if err := json.Unmarshal(raw, &s); err != nil {
				return fmt.Errorf("parse settings: %w", err)
			}
			if err := app.Context.SaveSettings(context.Background(), &s, logo); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "settings saved to %s\n", app.Paths.SettingsFile)
			return nil
		},
	}
	save.Flags().StringVar(&logo, "logo", "", "logo image to install (keeps the current logo when empty)")

	settings.AddCommand(save)
	return settings
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
