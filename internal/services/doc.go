// Package services defines shared utilities consumed by the render pipeline
// stages and their external tool adapters.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, stage names, and session titles for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper so every stage failure
//     carries one classifiable marker (invalid duration, frequency, fade
//     window, stem format, duration mismatch, external tool).
//
// Use these helpers when wiring new stage logic so failures surface with the
// same shape across the pipeline.
package services
