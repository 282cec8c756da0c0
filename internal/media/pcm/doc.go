// Package pcm holds interleaved floating-point audio buffers and streaming
// 16-bit WAV readers and writers built on go-audio.
//
// Buffers are the in-memory currency of the tone generator and stem mixer.
// Reader and Writer move the same samples through files in fixed-size chunks
// so a full-length session never has to fit in memory. Writer output is
// staged next to its destination and only renamed into place by Commit.
package pcm
