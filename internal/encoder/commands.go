package encoder

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"dreamweave/internal/media/frame"
)

var baseArgs = []string{"-y", "-hide_banner", "-nostdin", "-loglevel", "error"}

func ffmpegArgs(args ...string) []string {
	return append(append([]string(nil), baseArgs...), args...)
}

// VideoSpec configures FramesToVideo.
type VideoSpec struct {
	FrameDir string
	FPS      int
	Frames   int
	Codec    string
	CRF      int
	Output   string
}

// FramesToVideo encodes numbered PNG frames into a silent video.
func FramesToVideo(spec VideoSpec) Command {
	fps := strconv.Itoa(spec.FPS)
	args := ffmpegArgs(
		"-framerate", fps,
		"-start_number", "0",
		"-i", filepath.Join(spec.FrameDir, frame.Pattern),
	)
	if spec.Frames > 0 {
		args = append(args, "-frames:v", strconv.Itoa(spec.Frames))
	}
	args = append(args,
		"-c:v", spec.Codec,
		"-crf", strconv.Itoa(spec.CRF),
		"-pix_fmt", "yuv420p",
		"-r", fps,
		"-an",
		spec.Output,
	)
	return Command{Tool: ToolFFmpeg, Args: args, Output: spec.Output}
}

// PrepareNarration converts arbitrary narration audio to 16-bit stereo PCM
// WAV at sampleRate.
func PrepareNarration(input, output string, sampleRate int) Command {
	args := ffmpegArgs(
		"-i", input,
		"-vn",
		"-ac", "2",
		"-ar", strconv.Itoa(sampleRate),
		"-c:a", "pcm_s16le",
		"-f", "wav",
		output,
	)
	return Command{Tool: ToolFFmpeg, Args: args, Output: output}
}

// TitleSpec describes a timed title overlay.
type TitleSpec struct {
	// TextFile holds the already normalized title text.
	TextFile string
	Font     string
	FontSize int
	Start    float64
	End      float64
	Fade     float64
}

// MuxSpec configures TitleAndMux.
type MuxSpec struct {
	Video        string
	Audio        string
	Output       string
	VideoCodec   string
	AudioCodec   string
	AudioBitrate string
	CRF          int
	// Shortest trims to the shorter input; only set for in-tolerance drift.
	Shortest bool
	Title    *TitleSpec
	// Format forces the container muxer (the output may carry a staging suffix).
	Format string
}

// TitleAndMux muxes video and audio, burning in the optional title. Without
// a title the video stream is copied untouched.
func TitleAndMux(spec MuxSpec) Command {
	args := ffmpegArgs(
		"-i", spec.Video,
		"-i", spec.Audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
	)
	if spec.Title != nil {
		args = append(args,
			"-vf", DrawText(*spec.Title),
			"-c:v", spec.VideoCodec,
			"-crf", strconv.Itoa(spec.CRF),
			"-pix_fmt", "yuv420p",
		)
	} else {
		args = append(args, "-c:v", "copy")
	}
	args = append(args, "-c:a", spec.AudioCodec)
	if spec.AudioBitrate != "" {
		args = append(args, "-b:a", spec.AudioBitrate)
	}
	if spec.Shortest {
		args = append(args, "-shortest")
	}
	if spec.Format != "" {
		args = append(args, "-f", spec.Format)
	}
	if spec.Format == "mp4" || spec.Format == "mov" {
		args = append(args, "-movflags", "+faststart")
	}
	args = append(args, spec.Output)
	return Command{Tool: ToolFFmpeg, Args: args, Output: spec.Output}
}

// DrawText builds the drawtext filter for a title. Visibility and fade are
// expressed on the output timeline t.
func DrawText(title TitleSpec) string {
	start := formatSeconds(title.Start)
	end := formatSeconds(title.End)
	// Titles are drawn literally; "%" must not start a text expansion.
	opts := []string{"textfile=" + EscapeFilterValue(title.TextFile), "expansion=none"}
	if title.Font != "" {
		opts = append(opts, "fontfile="+EscapeFilterValue(title.Font))
	}
	opts = append(opts,
		"fontsize="+strconv.Itoa(title.FontSize),
		"fontcolor=white",
		"x=(w-text_w)/2",
		"y=(h-text_h)/2",
		"enable='between(t,"+start+","+end+")'",
		"alpha='"+titleAlpha(title)+"'",
	)
	return "drawtext=" + strings.Join(opts, ":")
}

func titleAlpha(title TitleSpec) string {
	if title.Fade <= 0 {
		return "1"
	}
	s := formatSeconds(title.Start)
	e := formatSeconds(title.End)
	f := formatSeconds(title.Fade)
	return fmt.Sprintf("if(lt(t,%[1]s),0,if(lt(t,%[1]s+%[3]s),(t-%[1]s)/%[3]s,if(lt(t,%[2]s-%[3]s),1,if(lt(t,%[2]s),(%[2]s-t)/%[3]s,0))))", s, e, f)
}

// EscapeFilterValue escapes a bare option value for an ffmpeg filter graph.
func EscapeFilterValue(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `:`, `\:`, `'`, `\'`, `,`, `\,`, `;`, `\;`, `[`, `\[`, `]`, `\]`)
	return r.Replace(v)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
