// Package encoder is the narrow boundary between the render pipeline and the
// external media tools.
//
// Every ffmpeg and ffprobe invocation goes through the MediaEncoder
// interface. FFmpeg executes the binaries with a bounded timeout and turns
// non-zero exits into *ToolError values that match services.ErrExternalTool.
// The command builders (FramesToVideo, PrepareNarration, TitleAndMux) are
// pure, so tests can assert on exact argument lists with a fake encoder.
package encoder
