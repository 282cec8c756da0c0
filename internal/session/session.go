package session

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"dreamweave/internal/background"
	"dreamweave/internal/overlay"
	"dreamweave/internal/services"
	"dreamweave/internal/textutil"
	"dreamweave/internal/timeline"
	"dreamweave/internal/tone"
)

// File is the on-disk session layout.
type File struct {
	Title                   string       `toml:"title"`
	OutputName              string       `toml:"output_name"`
	Narration               string       `toml:"narration"`
	FadeSeconds             float64      `toml:"fade_seconds"`
	TransitionPolicy        string       `toml:"transition_policy"`
	TransitionWindowSeconds *float64     `toml:"transition_window_seconds"`
	TitleWindow             *TitleWindow `toml:"title_window"`
	Phases                  []PhaseFile  `toml:"phases"`
	Ambience                []StemFile   `toml:"ambience"`
}

// PhaseFile is one [[phases]] entry.
type PhaseFile struct {
	Name    string   `toml:"name"`
	Start   float64  `toml:"start"`
	End     float64  `toml:"end"`
	Color   string   `toml:"color"`
	Carrier float64  `toml:"carrier"`
	Beat    float64  `toml:"beat"`
	BeatTo  *float64 `toml:"beat_to"`
	Image   string   `toml:"image"`
}

// StemFile is one [[ambience]] entry. A nil GainDB takes the configured
// ambience level.
type StemFile struct {
	Name   string   `toml:"name"`
	Path   string   `toml:"path"`
	GainDB *float64 `toml:"gain_db"`
}

// TitleWindow bounds the title overlay on the master timeline.
type TitleWindow struct {
	Start float64 `toml:"start"`
	End   float64 `toml:"end"`
}

// Ambience is a resolved auxiliary stem.
type Ambience struct {
	Name   string
	Path   string
	GainDB *float64
}

// Session is a validated render description. It is never mutated after Load.
type Session struct {
	path        string
	title       string
	outputName  string
	narration   string
	fade        float64
	policy      tone.TransitionPolicy
	window      *float64
	titleWindow *TitleWindow
	timeline    timeline.Timeline
	palette     background.Palette
	tones       []tone.PhaseTone
	assignments []overlay.Assignment
	ambience    []Ambience
}

// Load reads, resolves, and validates the session file at path.
func Load(path string) (*Session, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "session", "resolve path", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "session", "read", abs, err)
	}
	sess, err := Parse(data, filepath.Dir(abs))
	if err != nil {
		return nil, err
	}
	sess.path = abs
	return sess, nil
}

// Parse decodes session TOML, resolving relative paths against baseDir.
func Parse(data []byte, baseDir string) (*Session, error) {
	var file File
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&file); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, services.Wrap(services.ErrValidation, "session", "decode", "unknown session keys", errors.New(strict.String()))
		}
		return nil, services.Wrap(services.ErrValidation, "session", "decode", "invalid session TOML", err)
	}
	return New(file, baseDir)
}

// New validates a decoded session.
func New(file File, baseDir string) (*Session, error) {
	title := textutil.NormalizeTitle(file.Title)
	if title == "" {
		return nil, invalid("title is required")
	}
	outputName := textutil.SanitizeFileName(file.OutputName)
	if outputName == "" {
		outputName = textutil.Slug(title)
	}

	phases := make([]timeline.Phase, 0, len(file.Phases))
	for _, p := range file.Phases {
		phases = append(phases, timeline.Phase{Name: p.Name, Start: p.Start, End: p.End})
	}
	tl, err := timeline.New(phases)
	if err != nil {
		return nil, err
	}

	colors := make(map[string]string, len(file.Phases))
	for _, p := range file.Phases {
		colors[p.Name] = p.Color
	}
	palette, err := background.ParsePalette(colors)
	if err != nil {
		return nil, err
	}
	tones := make([]tone.PhaseTone, 0, len(file.Phases))
	var assignments []overlay.Assignment
	for _, p := range file.Phases {
		name := strings.TrimSpace(p.Name)
		tones = append(tones, tone.PhaseTone{Phase: name, Carrier: p.Carrier, Beat: p.Beat, BeatTo: p.BeatTo})
		if strings.TrimSpace(p.Image) != "" {
			assignments = append(assignments, overlay.Assignment{Phase: name, Image: resolve(baseDir, p.Image)})
		}
	}
	if len(assignments) == 0 {
		return nil, invalid("no phase has an image; a gradient-only render is not supported")
	}

	policy := tone.TransitionPolicy(strings.ToLower(strings.TrimSpace(file.TransitionPolicy)))
	if policy != "" && policy != tone.TransitionSmooth && policy != tone.TransitionAbrupt {
		return nil, invalid(fmt.Sprintf("transition_policy must be smooth or abrupt (got %q)", file.TransitionPolicy))
	}
	if w := file.TransitionWindowSeconds; w != nil && *w < 0 {
		return nil, invalid("transition_window_seconds must not be negative")
	}
	// Abrupt planning checks every declared frequency without depending on
	// the configured smoothing window.
	if _, err := tone.Plan(tl, tones, tone.PlanOptions{Policy: tone.TransitionAbrupt}); err != nil {
		return nil, err
	}

	if file.FadeSeconds < 0 {
		return nil, services.Wrap(services.ErrInvalidFadeWindow, "session", "validate", "fade_seconds must not be negative", nil)
	}
	if _, err := overlay.FromPhases(tl, assignments, file.FadeSeconds); err != nil {
		return nil, err
	}

	if tw := file.TitleWindow; tw != nil {
		if tw.Start < 0 || tw.End <= tw.Start || tw.End > tl.Total() {
			return nil, services.Wrap(services.ErrInvalidDuration, "session", "validate",
				fmt.Sprintf("title window %.3f..%.3f must lie inside 0..%.3f", tw.Start, tw.End, tl.Total()), nil)
		}
	}

	narration := strings.TrimSpace(file.Narration)
	if narration == "" {
		return nil, invalid("narration is required")
	}
	narration = resolve(baseDir, narration)

	ambience := make([]Ambience, 0, len(file.Ambience))
	seen := map[string]struct{}{"narration": {}, "tone": {}}
	for i, stem := range file.Ambience {
		name := strings.TrimSpace(stem.Name)
		if name == "" {
			name = fmt.Sprintf("ambience_%d", i+1)
		}
		if _, dup := seen[name]; dup {
			return nil, invalid(fmt.Sprintf("duplicate stem name %q", name))
		}
		seen[name] = struct{}{}
		if strings.TrimSpace(stem.Path) == "" {
			return nil, invalid(fmt.Sprintf("ambience %q has no path", name))
		}
		if stem.GainDB != nil && *stem.GainDB > 0 {
			return nil, invalid(fmt.Sprintf("ambience %q gain %.1f dB would exceed the narration reference", name, *stem.GainDB))
		}
		ambience = append(ambience, Ambience{Name: name, Path: resolve(baseDir, stem.Path), GainDB: stem.GainDB})
	}

	sess := &Session{
		title:       title,
		outputName:  outputName,
		narration:   narration,
		fade:        file.FadeSeconds,
		policy:      policy,
		window:      file.TransitionWindowSeconds,
		titleWindow: file.TitleWindow,
		timeline:    tl,
		palette:     palette,
		tones:       tones,
		assignments: assignments,
		ambience:    ambience,
	}
	if err := sess.checkFiles(); err != nil {
		return nil, err
	}
	return sess, nil
}

func (s *Session) checkFiles() error {
	paths := []string{s.narration}
	for _, a := range s.assignments {
		paths = append(paths, a.Image)
	}
	for _, a := range s.ambience {
		paths = append(paths, a.Path)
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return services.Wrap(services.ErrValidation, "session", "check inputs", p, err)
		}
		if info.IsDir() {
			return invalid(fmt.Sprintf("%s is a directory", p))
		}
	}
	return nil
}

func resolve(baseDir, p string) string {
	p = strings.TrimSpace(p)
	if filepath.IsAbs(p) || baseDir == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(baseDir, p)
}

func invalid(msg string) error {
	return services.Wrap(services.ErrValidation, "session", "validate", msg, nil)
}
