// Package peaks computes audio waveform peaks off the UI goroutine.
//
// # Overview
//
// Every audio segment on the canvas needs a small array of min/max peak
// values to draw its waveform. Decoding is slow (disk I/O, resampling), so it
// runs on a single background worker. The UI submits requests and never
// waits for them.
//
// # Architecture
//
//   - Request / Token / Result: what is asked, the receipt, and the answer.
//   - Queue: requests ordered by target width (narrow first, ties by
//     submission order) plus the map of finished results. One mutex guards
//     both; the worker parks on a condition variable when it runs dry.
//   - Worker: pops the narrowest request, decodes outside the lock, stores the
//     result under its token, then posts a Completion on a channel.
//   - Manager: owns the queue and worker. It starts the worker on the first
//     submission and stops it with Shutdown.
//
// # Cancellation
//
// Cancel only removes requests the worker has not picked up yet. A request
// that already started always runs to completion and its result is stored
// and announced like any other. Callers decide whether a result is current by
// comparing tokens; they should always TakeResult after a Completion so the
// stored value is freed.
//
// # Example
//
//	mgr := peaks.NewManager(library, peaks.WithLogger(logger))
//	defer mgr.Shutdown(context.Background())
//
//	token, err := mgr.Submit(peaks.Request{Segment: id, File: file, End: 10 * time.Second, Width: 300})
//	...
//	for c := range mgr.Completions() {
//		res, ok := mgr.TakeResult(c.Token)
//		...
//	}
package peaks
