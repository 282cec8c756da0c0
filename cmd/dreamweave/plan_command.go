package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"dreamweave/internal/pipeline"
	"dreamweave/internal/session"
	"dreamweave/internal/textutil"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var sessionPath string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the computed render plan without producing media",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sess, err := session.Load(sessionPath)
			if err != nil {
				return err
			}
			plan, err := pipeline.Plan(cfg, sess)
			if err != nil {
				return err
			}

			if ctx.JSONMode() {
				return writeJSON(cmd, planJSON(sess, plan, pipeline.OutputPath(cfg, sess)))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Session: %s\n", sess.Title())
			fmt.Fprintf(out, "Output:  %s\n", pipeline.OutputPath(cfg, sess))
			fmt.Fprintf(out, "Length:  %s (%d frames at %d fps)\n\n", formatClock(plan.Total), plan.Clock.FrameCount(), plan.Clock.FPS)

			phaseRows := make([][]string, 0, len(plan.Phases))
			for _, kf := range plan.Keyframes.Frames() {
				phaseRows = append(phaseRows, []string{
					textutil.DisplayName(kf.Phase.Name),
					formatClock(kf.Phase.Start),
					formatClock(kf.Phase.End),
					kf.From.Hex() + " > " + kf.To.Hex(),
				})
			}
			fmt.Fprint(out, renderTable(tableSpec{
				Title:   "Phases",
				Headers: []string{"Phase", "Start", "End", "Color"},
				Aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
				Rows:    phaseRows,
			}))

			toneRows := make([][]string, 0, len(plan.Segments))
			for _, seg := range plan.Segments {
				beat := formatHz(seg.BeatStart)
				if seg.BeatEnd != seg.BeatStart {
					beat += " > " + formatHz(seg.BeatEnd)
				}
				toneRows = append(toneRows, []string{
					formatClock(seg.Start),
					formatClock(seg.End),
					formatHz(seg.Carrier),
					beat,
				})
			}
			fmt.Fprint(out, renderTable(tableSpec{
				Title:   "Binaural tone",
				Headers: []string{"Start", "End", "Carrier", "Beat"},
				Aligns:  []columnAlignment{alignRight, alignRight, alignRight, alignLeft},
				Rows:    toneRows,
			}))

			if len(plan.Placements) > 0 {
				overlayRows := make([][]string, 0, len(plan.Placements))
				for _, p := range plan.Placements {
					overlayRows = append(overlayRows, []string{
						filepath.Base(p.Image),
						formatClock(p.Start),
						formatClock(p.End),
						fmt.Sprintf("%.2fs", p.Fade),
					})
				}
				fmt.Fprint(out, renderTable(tableSpec{
					Title:   "Overlays",
					Headers: []string{"Image", "Start", "End", "Fade"},
					Aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignRight},
					Rows:    overlayRows,
				}))
			}

			stemRows := [][]string{{"tone", "(generated)", formatDB(plan.ToneGainDB)}}
			for _, stem := range plan.Stems {
				stemRows = append(stemRows, []string{stem.Name, filepath.Base(stem.Source), formatDB(stem.GainDB)})
			}
			fmt.Fprint(out, renderTable(tableSpec{
				Title:   "Stems",
				Headers: []string{"Stem", "Source", "Gain"},
				Aligns:  []columnAlignment{alignLeft, alignLeft, alignRight},
				Rows:    stemRows,
			}))
			return nil
		},
	}

	cmd.Flags().StringVarP(&sessionPath, "session", "s", "", "Session description file (TOML)")
	_ = cmd.MarkFlagRequired("session")
	return cmd
}

func planJSON(sess *session.Session, plan pipeline.RenderPlan, output string) map[string]any {
	phases := make([]map[string]any, 0, len(plan.Phases))
	for _, kf := range plan.Keyframes.Frames() {
		phases = append(phases, map[string]any{
			"name":       kf.Phase.Name,
			"start":      kf.Phase.Start,
			"end":        kf.Phase.End,
			"color_from": kf.From.Hex(),
			"color_to":   kf.To.Hex(),
		})
	}
	segments := make([]map[string]any, 0, len(plan.Segments))
	for _, seg := range plan.Segments {
		segments = append(segments, map[string]any{
			"start":      seg.Start,
			"end":        seg.End,
			"carrier":    seg.Carrier,
			"beat_start": seg.BeatStart,
			"beat_end":   seg.BeatEnd,
		})
	}
	placements := make([]map[string]any, 0, len(plan.Placements))
	for _, p := range plan.Placements {
		placements = append(placements, map[string]any{
			"image": p.Image,
			"start": p.Start,
			"end":   p.End,
			"fade":  p.Fade,
		})
	}
	stems := []map[string]any{{"name": "tone", "gain_db": plan.ToneGainDB}}
	for _, stem := range plan.Stems {
		stems = append(stems, map[string]any{"name": stem.Name, "source": stem.Source, "gain_db": stem.GainDB})
	}
	return map[string]any{
		"title":            sess.Title(),
		"output":           output,
		"duration_seconds": plan.Total,
		"fps":              plan.Clock.FPS,
		"frames":           plan.Clock.FrameCount(),
		"phases":           phases,
		"tone_segments":    segments,
		"placements":       placements,
		"stems":            stems,
	}
}
