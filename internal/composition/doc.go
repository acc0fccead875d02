// Package composition holds the segments the canvas shows.
//
// Segments live in an arena indexed by SegmentID. IDs are handed out once and
// never reused; deleting a segment clears its slot and tombstones the ID in a
// roaring bitmap, so a late message about a deleted segment can be checked
// with Live in constant time without touching anything that was freed.
//
// Composition is not safe for concurrent use. It belongs to the UI goroutine,
// which is the only place edits and preview bookkeeping happen. Every edit is
// reported to the registered Observers synchronously.
package composition
