// Package background renders the moving color-gradient backdrop.
//
// Each phase drifts from its own palette color toward the next phase's
// color across its duration; the final phase holds its color. Every frame
// is a vertical gradient from the interpolated color down to a darker
// variant of it. Frame content is a pure function of master-timeline time,
// so frames render independently and in parallel.
package background
