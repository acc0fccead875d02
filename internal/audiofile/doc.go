// Package audiofile is the audio-file subsystem the preview pipeline reads from.
//
// A Library maps opaque FileIDs to paths on disk. It answers two kinds of
// questions, possibly from different goroutines at the same time:
//
//   - Info: cheap header metadata (channels, sample rate, duration), read by
//     the UI when it lays out segments.
//   - DecodePeaks: the slow part. Decodes a sample range and reduces it to a
//     fixed number of min/max peak values, one group per pixel column. Only
//     the peak worker calls this.
//
// WAV is the only container understood here. A file that is missing or
// cannot be parsed decodes to zero channels; callers treat that as "no
// preview available" rather than as an error.
package audiofile
