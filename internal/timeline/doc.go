// Package timeline models the master timeline of a render: the ordered,
// contiguous session phases and the Clock every time-dependent stage queries.
//
// All stages express time as absolute elapsed seconds on the master timeline.
// Frame-indexed stages obtain frame times exclusively from Clock.FrameTime so
// no stage ever recomputes a local zero.
package timeline
