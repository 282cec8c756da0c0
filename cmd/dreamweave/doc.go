// Package main hosts the dreamweave CLI entrypoint and command graph.
//
// The Cobra command tree loads the operator config and a session file, then
// hands both to internal/pipeline. It also exposes read-only inspection
// (plan), environment checks (doctor), config scaffolding, and staging
// maintenance. Rendering semantics live in the internal packages; commands
// here only resolve inputs and present results.
package main
