// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual audio/video stream properties
//   - Format: container-level metadata (duration, size, bitrate)
//
// The package does not execute ffprobe itself. Args builds the inspection
// arguments and Parse decodes the JSON, so callers route the invocation
// through whatever runner they own (the media encoder adapter in practice).
package ffprobe
