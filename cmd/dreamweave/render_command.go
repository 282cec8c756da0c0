package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"dreamweave/internal/pipeline"
	"dreamweave/internal/preflight"
	"dreamweave/internal/services"
	"dreamweave/internal/session"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var sessionPath string
	var keep bool
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a session into its final video",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if keep {
				copied := *cfg
				copied.Render.KeepIntermediates = true
				cfg = &copied
			}

			sess, err := session.Load(sessionPath)
			if err != nil {
				return err
			}

			if !skipPreflight {
				if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
					names := make([]string, 0, len(failed))
					for _, f := range failed {
						names = append(names, fmt.Sprintf("%s (%s)", f.Name, f.Detail))
					}
					return services.Wrap(services.ErrConfiguration, "preflight", "render", "preflight failed: "+strings.Join(names, "; "), nil)
				}
			}

			logger, err := ctx.logger(cfg)
			if err != nil {
				return err
			}

			result, err := pipeline.Run(cmd.Context(), cfg, sess, pipelineDeps(cfg, logger))
			if err != nil {
				if result.WorkDir != "" && !ctx.JSONMode() {
					fmt.Fprintf(cmd.ErrOrStderr(), "Intermediates kept in %s\n", result.WorkDir)
				}
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, renderResultJSON(result))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Rendered %s\n", result.Artifact.Path)
			fmt.Fprintf(out, "  Duration:     %s\n", formatClock(result.Artifact.Duration))
			fmt.Fprintf(out, "  Frames:       %d\n", result.Frames)
			fmt.Fprintf(out, "  Run:          %s\n", result.RunID)
			fmt.Fprintf(out, "  Elapsed:      %s\n", result.Elapsed.Round(time.Millisecond))
			if result.Mix.ClippedSamples > 0 {
				fmt.Fprintf(out, "  Clipped:      %d samples\n", result.Mix.ClippedSamples)
			}
			if result.Mix.NormalizeGainDB != 0 {
				fmt.Fprintf(out, "  Normalized:   %s\n", formatDB(result.Mix.NormalizeGainDB))
			}
			if result.Distribution != "" {
				fmt.Fprintf(out, "  Distribution: %s\n", result.Distribution)
			}
			if result.WorkDir != "" {
				fmt.Fprintf(out, "  Work dir:     %s\n", result.WorkDir)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionPath, "session", "s", "", "Session description file (TOML)")
	cmd.Flags().BoolVar(&keep, "keep", false, "Keep intermediate files in the staging directory")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Skip directory and tool checks before rendering")
	_ = cmd.MarkFlagRequired("session")

	return cmd
}

func renderResultJSON(result pipeline.Result) map[string]any {
	return map[string]any{
		"run_id":            result.RunID,
		"artifact":          result.Artifact.Path,
		"duration_seconds":  result.Artifact.Duration,
		"frames":            result.Frames,
		"clipped_samples":   result.Mix.ClippedSamples,
		"normalize_gain_db": result.Mix.NormalizeGainDB,
		"distribution":      result.Distribution,
		"work_dir":          result.WorkDir,
		"elapsed_seconds":   result.Elapsed.Seconds(),
	}
}
