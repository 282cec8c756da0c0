// Package assemble joins the composited video and the mixed audio into the
// deliverable.
//
// The assembler inspects both inputs and refuses to mux when their durations
// drift beyond the configured tolerance. Drift inside the tolerance is
// logged and trimmed with -shortest. The optional title is burned in with
// drawtext on its window of the output timeline. Output is staged next to
// the destination and only moved into place after the staged file's reported
// duration matches the session length.
package assemble
