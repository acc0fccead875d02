// Package preview turns segments into things the canvas can paint.
//
// Audio segments get a waveform: a Generator submits a peak request to the
// background worker and, when the completion for its latest token comes back,
// renders the peaks into fixed-width image tiles. Notation segments get
// "dashes", one rectangle per note, computed right away.
//
// The Cache owns one Entry per visible segment and is the only thing the
// renderer reads:
//
//	edit/scroll ─▶ Cache.Invalidate ─▶ Generator.GenerateAsync ─▶ peaks.Manager
//	                                                                  │
//	canvas tick ─▶ Cache.Pump ◀── Completions() ◀─────────────────────┘
//	                  │
//	                  └─▶ Generator.HandleCompletion ─▶ Cache.OnReady ─▶ RedrawSink
//
// Everything here runs on the UI goroutine. The only cross-goroutine handoff
// is the completion channel, which Pump drains without blocking.
//
// A completion is accepted only if its token is the generator's latest one.
// Older results are taken out of the worker's result map and dropped; the
// queue order never matters for correctness.
package preview
