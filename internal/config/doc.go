// Package config loads, normalizes, and validates dreamweave configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DREAMWEAVE_FFMPEG. The Config type centralizes every render-wide knob
// (canvas size, frame rate, stem levels, tool binaries) so that each pipeline
// stage receives one explicit, immutable settings value instead of reading
// ambient global state.
package config
