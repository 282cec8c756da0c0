package preflight

import (
	"context"

	"dreamweave/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))

	if cfg.Distribution.Enabled {
		results = append(results, CheckDirectoryAccess("Distribution directory", cfg.Distribution.OutputDir))
	}

	if status := CheckSystemDeps(ctx, cfg); len(status) > 0 {
		for _, s := range status {
			if s.Optional {
				continue
			}
			results = append(results, Result{Name: s.Name, Passed: s.Available, Detail: binaryDetail(s.Command, s.Detail)})
		}
	}

	if cfg.Assemble.TitleFont != "" {
		results = append(results, CheckFontFile(cfg.Assemble.TitleFont))
	}
	results = append(results, CheckFFmpegFilter(ctx, cfg.FFmpegBinary(), "drawtext"))
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func binaryDetail(command, detail string) string {
	if detail == "" {
		return command
	}
	return detail
}
