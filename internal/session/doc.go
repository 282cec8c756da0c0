// Package session loads the immutable description of one render.
//
// A session file is TOML. It names the title, the ordered phases (each with
// its palette color, binaural tone, and optional image), the narration file,
// and any ambience stems. Relative paths resolve against the session file's
// directory. Load validates everything a render depends on, including that
// every referenced media file exists, so a bad session fails before any
// stage starts.
//
// Example:
//
//	title = "Deep Rest"
//	narration = "narration.mp3"
//	fade_seconds = 2.0
//
//	[title_window]
//	start = 0.0
//	end = 8.0
//
//	[[phases]]
//	name = "induction"
//	start = 0.0
//	end = 300.0
//	color = "#28147a"
//	carrier = 200.0
//	beat = 10.0
//	beat_to = 6.0
//	image = "images/induction.png"
package session
