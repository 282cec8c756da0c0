package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateTone(); err != nil {
		return err
	}
	if err := c.validateAssemble(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("render.width and render.height must be positive (got %dx%d)", c.Render.Width, c.Render.Height)
	}
	if c.Render.Width%2 != 0 || c.Render.Height%2 != 0 {
		return fmt.Errorf("render.width and render.height must be even for yuv420p output (got %dx%d)", c.Render.Width, c.Render.Height)
	}
	if c.Render.FPS <= 0 || c.Render.FPS > 120 {
		return fmt.Errorf("render.fps must be between 1 and 120 (got %d)", c.Render.FPS)
	}
	return nil
}

func (c *Config) validateAudio() error {
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("audio.sample_rate must be between 8000 and 192000 (got %d)", c.Audio.SampleRate)
	}
	if c.Audio.ToneAmplitude <= 0 || c.Audio.ToneAmplitude > 1 {
		return errors.New("audio.tone_amplitude must be in (0, 1]")
	}
	if c.Audio.NarrationGainDB != 0 {
		return errors.New("audio.narration_gain_db must be 0; narration is the loudness reference")
	}
	if c.Audio.ToneGainDB > 0 {
		return errors.New("audio.tone_gain_db must not exceed 0 dB")
	}
	if c.Audio.AmbienceGainDB > 0 {
		return errors.New("audio.ambience_gain_db must not exceed 0 dB")
	}
	switch c.Audio.DurationPolicy {
	case "longest", "shortest":
	default:
		return fmt.Errorf("audio.duration_policy must be longest or shortest (got %q)", c.Audio.DurationPolicy)
	}
	return nil
}

func (c *Config) validateTone() error {
	switch c.Tone.TransitionPolicy {
	case "smooth", "abrupt":
	default:
		return fmt.Errorf("tone.transition_policy must be smooth or abrupt (got %q)", c.Tone.TransitionPolicy)
	}
	if c.Tone.TransitionWindowSeconds < 0 {
		return errors.New("tone.transition_window_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateAssemble() error {
	if c.Assemble.DurationToleranceSeconds < 0 {
		return errors.New("assemble.duration_tolerance_seconds must not be negative")
	}
	if c.Assemble.CRF < 0 || c.Assemble.CRF > 51 {
		return fmt.Errorf("assemble.crf must be between 0 and 51 (got %d)", c.Assemble.CRF)
	}
	if c.Assemble.TitleFadeSeconds < 0 {
		return errors.New("assemble.title_fade_seconds must not be negative")
	}
	return nil
}
