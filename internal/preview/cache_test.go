package preview

import (
	"image"
	"testing"
	"time"

	"github.com/billie-coop/segcanvas/internal/composition"
	"github.com/billie-coop/segcanvas/internal/peaks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cacheFixture struct {
	comp    *composition.Composition
	svc     *fakeService
	damage  *damage
	metrics *discardCounter
	cache   *Cache
}

func newCacheFixture(opts ...CacheOption) *cacheFixture {
	f := &cacheFixture{
		comp:    composition.New(),
		svc:     newFakeService(),
		damage:  &damage{},
		metrics: &discardCounter{},
	}
	opts = append([]CacheOption{
		WithViewport(image.Rect(0, 0, 4000, 480)),
		WithCompletions(f.svc.out),
		WithRedrawSink(f.damage),
		WithCacheMetrics(f.metrics),
	}, opts...)
	f.cache = NewCache(f.comp, f.svc, opts...)
	f.comp.AddObserver(f.cache)
	return f
}

func (f *cacheFixture) addAudio(track int, start, end time.Duration) composition.SegmentID {
	return f.comp.Add(composition.Segment{
		Track:     track,
		Kind:      composition.KindAudio,
		Start:     start,
		End:       end,
		AudioFile: 1,
		Color:     "#33cc66",
	})
}

func (f *cacheFixture) entry(t *testing.T, id composition.SegmentID) Entry {
	t.Helper()
	e, ok := f.cache.Get(id)
	require.True(t, ok, "no entry for segment %d", id)
	return e
}

func TestCache_NotationIsReadyImmediately(t *testing.T) {
	f := newCacheFixture()
	id := f.comp.Add(composition.Segment{
		Kind:  composition.KindNotation,
		Start: 0,
		End:   2 * time.Second,
		Notes: []composition.Note{
			{Pitch: 60, Start: 0, Duration: 500 * time.Millisecond},
			{Pitch: 64, Start: time.Second, Duration: 500 * time.Millisecond},
		},
	})

	e := f.entry(t, id)
	assert.Equal(t, Ready, e.State)
	assert.Len(t, e.Notation, 2)
	assert.Empty(t, f.svc.queued, "notation never reaches the worker")
}

func TestCache_AudioPendingThenReady(t *testing.T) {
	f := newCacheFixture()
	id := f.addAudio(1, time.Second, 6*time.Second)

	e := f.entry(t, id)
	require.Equal(t, Pending, e.State)
	assert.Equal(t, image.Rect(30, 48, 180, 96), e.Rect)

	f.svc.finish(e.Token, 2, 0.7)
	assert.Equal(t, 1, f.cache.Pump())

	e = f.entry(t, id)
	assert.Equal(t, Ready, e.State)
	assert.Zero(t, e.Token)
	assert.Equal(t, 2, e.Channels)
	assert.Equal(t, e.Rect.Dx(), Extent(e.Tiles))
	assert.Equal(t, e.Rect, f.damage.rects[len(f.damage.rects)-1])
}

func TestCache_GetNeverStartsWork(t *testing.T) {
	f := newCacheFixture()
	_, ok := f.cache.Get(42)
	assert.False(t, ok)
	assert.Empty(t, f.svc.queued)
}

func TestCache_InvalidateTwiceLeavesOneRequest(t *testing.T) {
	f := newCacheFixture()
	id := f.addAudio(0, 0, time.Second)

	f.cache.Invalidate(id)
	f.cache.Invalidate(id)

	require.Len(t, f.svc.queued, 1)
	e := f.entry(t, id)
	assert.Contains(t, f.svc.queued, e.Token)
}

func TestCache_EditResetsEntry(t *testing.T) {
	f := newCacheFixture()
	id := f.addAudio(0, 0, time.Second)
	first := f.entry(t, id)
	f.svc.finish(first.Token, 1, 1)
	f.cache.Pump()
	require.Equal(t, Ready, f.entry(t, id).State)

	require.NoError(t, f.comp.Move(id, 2, 3*time.Second))

	e := f.entry(t, id)
	assert.Equal(t, Pending, e.State)
	assert.Nil(t, e.Tiles, "old tiles are discarded")
	assert.Equal(t, image.Rect(90, 96, 120, 144), e.Rect)
	assert.Greater(t, e.Token, first.Token)

	// Both the old and new position need repainting.
	u := f.damage.union()
	assert.True(t, first.Rect.In(u))
	assert.True(t, e.Rect.In(u))
}

func TestCache_StaleCompletionAfterEdit(t *testing.T) {
	f := newCacheFixture()
	id := f.addAudio(0, 0, time.Second)
	old := f.entry(t, id).Token
	f.svc.start(old)

	require.NoError(t, f.comp.Recolor(id, "#000000"))
	current := f.entry(t, id).Token

	f.svc.finish(old, 1, 1)
	f.cache.Pump()

	e := f.entry(t, id)
	assert.Equal(t, Pending, e.State)
	assert.Equal(t, current, e.Token)
	assert.Equal(t, 1, f.metrics.stale)

	f.svc.finish(current, 1, 1)
	f.cache.Pump()
	assert.Equal(t, Ready, f.entry(t, id).State)
	assert.Empty(t, f.svc.results)
}

func TestCache_DeletionWhileInFlight(t *testing.T) {
	f := newCacheFixture()
	id := f.addAudio(0, 0, time.Second)
	token := f.entry(t, id).Token
	f.svc.start(token)

	require.NoError(t, f.comp.Delete(id))
	_, ok := f.cache.Get(id)
	assert.False(t, ok)

	f.svc.finish(token, 1, 1)
	assert.NotPanics(t, func() { f.cache.Pump() })

	_, ok = f.cache.Get(id)
	assert.False(t, ok)
	assert.Empty(t, f.svc.results, "late result is drained")
	assert.Zero(t, f.cache.Stats().Total())
}

func TestCache_DeletionWhileQueued(t *testing.T) {
	f := newCacheFixture()
	id := f.addAudio(0, 0, time.Second)

	require.NoError(t, f.comp.Delete(id))

	assert.Empty(t, f.svc.queued)
	assert.Zero(t, f.cache.Pump())
}

func TestCache_InvalidateDeletedSegmentRemoves(t *testing.T) {
	f := newCacheFixture()
	id := f.addAudio(0, 0, time.Second)
	require.NoError(t, f.comp.Delete(id))

	f.cache.Invalidate(id)
	_, ok := f.cache.Get(id)
	assert.False(t, ok)
}

func TestCache_FailureIsUnavailable(t *testing.T) {
	f := newCacheFixture()
	id := f.addAudio(0, 0, time.Second)
	f.svc.finish(f.entry(t, id).Token, 0, 0)
	f.cache.Pump()

	e := f.entry(t, id)
	assert.Equal(t, Unavailable, e.State)
	assert.Empty(t, e.Tiles)
	assert.Equal(t, Stats{Unavailable: 1}, f.cache.Stats())
	assert.Equal(t, 1, f.metrics.unavailable)
}

func TestCache_ViewportCreatesAndCancels(t *testing.T) {
	f := newCacheFixture(WithViewport(image.Rect(0, 0, 300, 480)))
	left := f.addAudio(0, 0, 5*time.Second)                 // x 0..150
	right := f.addAudio(0, 20*time.Second, 25*time.Second) // x 600..750

	assert.Equal(t, Pending, f.entry(t, left).State)
	_, ok := f.cache.Get(right)
	assert.False(t, ok, "off-screen segments get no entry")
	require.Len(t, f.svc.queued, 1)

	f.cache.SetViewport(image.Rect(500, 0, 800, 480))

	assert.Equal(t, Empty, f.entry(t, left).State)
	assert.Equal(t, Pending, f.entry(t, right).State)
	require.Len(t, f.svc.queued, 1)
	assert.Contains(t, f.svc.queued, f.entry(t, right).Token)

	f.cache.SetViewport(image.Rect(0, 0, 800, 480))
	assert.Equal(t, Pending, f.entry(t, left).State)
	assert.Len(t, f.svc.queued, 2)
}

func TestCache_ZoomInvalidatesEverything(t *testing.T) {
	f := newCacheFixture()
	a := f.addAudio(0, 0, time.Second)
	b := f.comp.Add(composition.Segment{
		Kind:  composition.KindNotation,
		End:   time.Second,
		Track: 1,
		Notes: []composition.Note{{Pitch: 60, Duration: time.Second}},
	})
	f.svc.finish(f.entry(t, a).Token, 1, 1)
	f.cache.Pump()

	f.cache.SetLayout(f.cache.Layout().Zoom(2))

	ea := f.entry(t, a)
	assert.Equal(t, Pending, ea.State)
	assert.Equal(t, 60, ea.Rect.Dx())
	assert.Equal(t, 60, f.svc.queued[ea.Token].Width)

	eb := f.entry(t, b)
	assert.Equal(t, Ready, eb.State)
	assert.Equal(t, 60, eb.Notation[0].Dx())
}

func TestCache_RejectedSubmitStaysEmpty(t *testing.T) {
	f := newCacheFixture()
	f.svc.err = errRejected
	id := f.addAudio(0, 0, time.Second)

	assert.Equal(t, Empty, f.entry(t, id).State)

	f.svc.err = nil
	f.cache.Sync()
	assert.Equal(t, Pending, f.entry(t, id).State)
}

func TestCache_UnknownCompletionIsDrained(t *testing.T) {
	f := newCacheFixture()
	f.svc.next = 99
	token, _ := f.svc.Submit(peaks.Request{Segment: 77, Width: 10})
	f.svc.finish(token, 1, 1)

	assert.Equal(t, 1, f.cache.Pump())
	assert.Empty(t, f.svc.results)
	assert.Equal(t, 1, f.metrics.stale)
}

func TestCache_NothingVisibleBeforeViewport(t *testing.T) {
	f := newCacheFixture(WithViewport(image.Rectangle{}))
	near := f.addAudio(0, 0, time.Second)
	far := f.addAudio(0, 20*time.Second, 21*time.Second)
	f.cache.Sync()

	_, ok := f.cache.Get(near)
	assert.False(t, ok)
	assert.Empty(t, f.svc.queued)

	f.cache.SetViewport(image.Rect(0, 0, 300, 480))

	assert.Equal(t, Pending, f.entry(t, near).State)
	_, ok = f.cache.Get(far)
	assert.False(t, ok, "still off screen")
	assert.Len(t, f.svc.queued, 1)
}

func TestCache_SetViewRequestsOnlyNewGeometry(t *testing.T) {
	f := newCacheFixture(WithViewport(image.Rect(0, 0, 300, 480)))
	a := f.addAudio(0, 0, 4*time.Second)             // x 0..120
	b := f.addAudio(1, 6*time.Second, 9*time.Second) // x 180..270
	require.Len(t, f.svc.queued, 2)
	submitted := f.svc.next

	f.cache.SetView(f.cache.Layout().Zoom(2), image.Rect(0, 0, 300, 480))

	ea := f.entry(t, a)
	assert.Equal(t, Pending, ea.State)
	assert.Equal(t, image.Rect(0, 0, 240, 48), ea.Rect)
	assert.Equal(t, Empty, f.entry(t, b).State, "zoomed out of view")

	require.Len(t, f.svc.queued, 1)
	assert.Equal(t, 240, f.svc.queued[ea.Token].Width)
	assert.Equal(t, submitted+1, f.svc.next, "one request for the new geometry")
}
