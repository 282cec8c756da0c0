// Package tone renders the binaural tone stem.
//
// A session declares one PhaseTone per timeline phase. Plan expands those
// declarations into contiguous Segments, inserting linear transition ramps
// at phase boundaries when the smooth policy is selected. Generator turns
// segments into stereo audio: the left channel carries the carrier frequency
// and the right channel carries carrier plus the instantaneous beat. Both
// oscillators accumulate phase sample by sample so frequency changes never
// produce waveform discontinuities.
package tone
