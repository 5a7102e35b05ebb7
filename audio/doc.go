// Package audio provides the streaming audio pipeline engine.
//
// Audio flows as Chunks grouped into Blocks, where each Block is one
// continuous span of audio. A Source produces Blocks for the lifetime
// of an acquisition, and processors (RateConverter, Squelch) are
// Sources that wrap another Source and transform its output.
//
// A consumer enters a scoped acquisition with Listen, iterates Blocks
// with NextBlock and Chunks with NextChunk. Both iterations terminate
// with the sentinel errors ErrNoMoreBlocks and ErrNoMoreChunks, which
// signal normal exhaustion rather than failure.
package audio
