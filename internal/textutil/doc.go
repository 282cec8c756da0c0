// Package textutil normalizes user-facing text for titles, file names, and
// table output.
//
// The primary use cases are:
//   - Normalizing session titles before they are burned into video
//   - Deriving ASCII slugs for output artifact names
//   - Sanitizing operator-supplied file names
//   - Rendering phase names for display
package textutil
