// Package overlay fades phase images in and out over the background frames.
//
// A Placement's opacity is a pure function of absolute master-timeline time,
// never of a per-image frame counter, so every image in a chain sees the same
// clock. Images are letterboxed onto a transparent canvas of the output size
// and blended with the over operator using image alpha scaled by the
// placement's opacity at the frame's timestamp.
package overlay
