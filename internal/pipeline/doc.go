// Package pipeline renders a session into its final artifact.
//
// Run drives the stages in order: validate, tone, narration, mix, background,
// composite, video, assemble, and the optional distribution encode. Every stage
// runs through stageexec so logs carry the run id and stage name, and a failed
// stage aborts the run with its name attached to the error. Renders into one
// output directory are serialized with an flock on .dreamweave.lock.
//
// Intermediates live under <staging_dir>/<run-id>. They are removed after a
// successful run unless render.keep_intermediates is set and always kept after
// a failure.
package pipeline
