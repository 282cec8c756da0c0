// Package mixer sums leveled audio stems into one track.
//
// Gains are fixed per stem in dB and applied as linear amplitude before a
// straight per-sample sum. The mixer never resamples, never rebalances
// loudness on its own, and never mutates its inputs. Output length follows
// the configured DurationPolicy.
package mixer
