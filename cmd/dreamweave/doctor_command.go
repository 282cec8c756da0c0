package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"dreamweave/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			statuses := preflight.CheckSystemDeps(cmd.Context(), cfg)
			results := preflight.RunAll(cmd.Context(), cfg)
			failed := preflight.Failed(results)

			if ctx.JSONMode() {
				depRows := make([]map[string]any, 0, len(statuses))
				for _, s := range statuses {
					depRows = append(depRows, map[string]any{
						"name":      s.Name,
						"command":   s.Command,
						"available": s.Available,
						"optional":  s.Optional,
						"version":   s.Version,
						"detail":    s.Detail,
					})
				}
				checkRows := make([]map[string]any, 0, len(results))
				for _, r := range results {
					checkRows = append(checkRows, map[string]any{
						"name":   r.Name,
						"passed": r.Passed,
						"detail": r.Detail,
					})
				}
				if err := writeJSON(cmd, map[string]any{
					"config_path":  ctx.configPath,
					"dependencies": depRows,
					"checks":       checkRows,
					"healthy":      len(failed) == 0,
				}); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				lines := renderSectionHeader("Dependencies", colorize)
				for _, s := range statuses {
					kind := statusOK
					message := s.Command
					if s.Version != "" {
						message = s.Version
					}
					if !s.Available {
						kind = statusError
						if s.Optional {
							kind = statusWarn
						}
						message = s.Detail
					}
					lines = append(lines, renderStatusLine(s.Name, kind, message, colorize))
				}
				lines = append(lines, "")
				lines = append(lines, renderSectionHeader("Preflight", colorize)...)
				for _, r := range results {
					kind := statusOK
					if !r.Passed {
						kind = statusError
					}
					lines = append(lines, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
				fmt.Fprintln(out, strings.Join(lines, "\n"))
			}

			if len(failed) > 0 {
				return fmt.Errorf("%d preflight checks failed", len(failed))
			}
			return nil
		},
	}
}
