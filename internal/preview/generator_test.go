package preview

import (
	"image"
	"testing"
	"time"

	"github.com/billie-coop/segcanvas/internal/composition"
	"github.com/billie-coop/segcanvas/internal/peaks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var audioSeg = composition.Segment{
	ID:         1,
	Kind:       composition.KindAudio,
	Start:      0,
	End:        5 * time.Second,
	AudioFile:  3,
	AudioStart: time.Second,
	AudioEnd:   6 * time.Second,
	Color:      "#ff8800",
}

var audioRect = image.Rect(0, 0, 150, 48)

func TestGenerator_BuildsRequestFromSegment(t *testing.T) {
	svc := newFakeService()
	gen := NewGenerator(1, svc, &recordingSink{}, true, nil, nil)

	token, err := gen.GenerateAsync(audioSeg, audioRect)
	require.NoError(t, err)

	assert.Equal(t, token, gen.Latest())
	assert.True(t, gen.Pending())
	assert.Equal(t, peaks.Request{
		Segment:    1,
		File:       3,
		Start:      time.Second,
		End:        6 * time.Second,
		Width:      150,
		WantMinima: true,
	}, svc.queued[token])
}

func TestGenerator_OnlyLatestIsRendered(t *testing.T) {
	orders := [][]int{
		{0, 1, 2}, {0, 2, 1}, {1, 0, 2},
		{1, 2, 0}, {2, 0, 1}, {2, 1, 0},
	}

	for _, order := range orders {
		svc := newFakeService()
		sink := &recordingSink{}
		metrics := &discardCounter{}
		gen := NewGenerator(1, svc, sink, true, nil, metrics)

		// Every request is started before the next is issued, so none of
		// them can be withdrawn from the queue.
		var tokens []peaks.Token
		for i := 0; i < 3; i++ {
			token, err := gen.GenerateAsync(audioSeg, audioRect)
			require.NoError(t, err)
			svc.start(token)
			tokens = append(tokens, token)
		}
		assert.Equal(t, tokens[2], gen.Latest())

		for i, token := range tokens {
			svc.finish(token, i+1, 0.5)
		}
		for _, i := range order {
			gen.HandleCompletion(tokens[i])
		}

		assert.Equal(t, []composition.SegmentID{1}, sink.ready, "order %v", order)
		assert.Equal(t, 3, gen.Channels(), "order %v rendered an old result", order)
		assert.Equal(t, 2, metrics.stale)
		assert.Empty(t, svc.results, "every result is taken")
	}
}

func TestGenerator_CancelThenReissue(t *testing.T) {
	svc := newFakeService()
	sink := &recordingSink{}
	gen := NewGenerator(1, svc, sink, false, nil, nil)

	a, _ := gen.GenerateAsync(audioSeg, audioRect)
	svc.finish(a, 2, 0.9) // done before the cancel is processed
	gen.Cancel()
	assert.False(t, gen.Pending())

	b, _ := gen.GenerateAsync(audioSeg, audioRect)

	gen.HandleCompletion(a)
	assert.Empty(t, sink.ready)
	assert.Nil(t, gen.Tiles())

	svc.finish(b, 1, 0.2)
	gen.HandleCompletion(b)
	assert.Equal(t, []composition.SegmentID{1}, sink.ready)
	assert.Equal(t, 1, gen.Channels())
}

func TestGenerator_QueuedRequestIsWithdrawn(t *testing.T) {
	svc := newFakeService()
	gen := NewGenerator(1, svc, &recordingSink{}, true, nil, nil)

	a, _ := gen.GenerateAsync(audioSeg, audioRect)
	b, _ := gen.GenerateAsync(audioSeg, audioRect)

	assert.NotContains(t, svc.queued, a)
	assert.Contains(t, svc.queued, b)
	assert.Len(t, svc.queued, 1)
}

func TestGenerator_ZeroChannelsFails(t *testing.T) {
	svc := newFakeService()
	sink := &recordingSink{}
	gen := NewGenerator(1, svc, sink, true, nil, nil)

	token, _ := gen.GenerateAsync(audioSeg, audioRect)
	svc.finish(token, 0, 0)
	gen.HandleCompletion(token)

	assert.Equal(t, []composition.SegmentID{1}, sink.failed)
	assert.Empty(t, sink.ready)
	assert.False(t, gen.Pending())
	assert.Nil(t, gen.Tiles())
}

func TestGenerator_ReleaseDropsLateCompletion(t *testing.T) {
	svc := newFakeService()
	sink := &recordingSink{}
	gen := NewGenerator(1, svc, sink, true, nil, nil)

	token, _ := gen.GenerateAsync(audioSeg, audioRect)
	svc.start(token)
	gen.Release()

	svc.finish(token, 1, 1)
	gen.HandleCompletion(token)

	assert.Empty(t, sink.ready)
	assert.Empty(t, sink.failed)
	assert.Empty(t, svc.results)
}

func TestGenerator_SubmitRejected(t *testing.T) {
	svc := newFakeService()
	svc.err = errRejected
	gen := NewGenerator(1, svc, &recordingSink{}, true, nil, nil)

	_, err := gen.GenerateAsync(audioSeg, audioRect)
	assert.ErrorIs(t, err, errRejected)
	assert.False(t, gen.Pending())
}

func TestGenerator_StaleDiscardIsDebugOnly(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	svc := newFakeService()
	gen := NewGenerator(1, svc, &recordingSink{}, true, zap.New(core), nil)

	a, _ := gen.GenerateAsync(audioSeg, audioRect)
	svc.start(a)
	b, _ := gen.GenerateAsync(audioSeg, audioRect)
	svc.finish(a, 1, 1)
	gen.HandleCompletion(a)

	stale := logs.FilterMessage("stale peaks discarded").All()
	require.Len(t, stale, 1)
	assert.Equal(t, zapcore.DebugLevel, stale[0].Level)
	assert.EqualValues(t, b, stale[0].ContextMap()["latest"])
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}
