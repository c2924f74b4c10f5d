// Package evtx reads Windows event log (EVTX) files.
//
// A file is a header block followed by 64 KiB chunks. Each chunk holds event
// records whose bodies are Binary XML: a token stream with chunk-relative
// string and template references. Records are rendered back to XML text; use
// pkg/event to decode that text into typed events.
//
// Iteration is lazy and tolerant. A record whose body cannot be decoded is
// reported as one error and iteration moves on to the next record. When a
// record header is unusable the rest of its chunk is skipped.
package evtx
