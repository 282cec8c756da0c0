// Package drapto integrates the Drapto Go library so a finished session video
// can be re-encoded to AV1 for distribution.
//
// Library calls Drapto in-process and routes its Reporter callbacks into the
// render logger. Tests replace the package-level encode hook to avoid running
// the real encoder.
package drapto
