// Package preflight provides readiness checks for the external tools and
// filesystem paths a render depends on.
//
// The render command calls RunAll before any stage runs so a missing binary or
// unwritable directory fails in seconds rather than after frame rendering. The
// doctor command prints the same results alongside binary availability.
package preflight
