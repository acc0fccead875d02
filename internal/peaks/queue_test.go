package peaks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// popReady pops without parking when the queue is empty.
func popReady(q *Queue) (Token, Request, bool) {
	if q.Len() == 0 {
		return 0, Request{}, false
	}
	return q.Pop()
}

func popWidths(t *testing.T, q *Queue) []int {
	t.Helper()
	var widths []int
	for {
		_, req, ok := popReady(q)
		if !ok {
			return widths
		}
		widths = append(widths, req.Width)
	}
}

func TestQueue_NarrowestFirst(t *testing.T) {
	q := NewQueue()
	for _, w := range []int{500, 50, 200} {
		_, err := q.Push(Request{Width: w})
		require.NoError(t, err)
	}

	assert.Equal(t, []int{50, 200, 500}, popWidths(t, q))
}

func TestQueue_EqualWidthsKeepSubmissionOrder(t *testing.T) {
	q := NewQueue()
	first, _ := q.Push(Request{Width: 100, Segment: 1})
	second, _ := q.Push(Request{Width: 100, Segment: 2})
	third, _ := q.Push(Request{Width: 100, Segment: 3})

	assert.Less(t, first, second)
	assert.Less(t, second, third)

	var order []Token
	for {
		token, _, ok := popReady(q)
		if !ok {
			break
		}
		order = append(order, token)
	}
	assert.Equal(t, []Token{first, second, third}, order)
}

func TestQueue_Remove(t *testing.T) {
	q := NewQueue()
	a, _ := q.Push(Request{Width: 10})
	b, _ := q.Push(Request{Width: 20})
	c, _ := q.Push(Request{Width: 30})

	assert.True(t, q.Remove(b))
	assert.False(t, q.Remove(b), "already removed")

	token, _, ok := popReady(q)
	require.True(t, ok)
	assert.Equal(t, a, token)
	assert.False(t, q.Remove(a), "already started")

	assert.Equal(t, 1, q.Len())
	token, _, _ = popReady(q)
	assert.Equal(t, c, token)
}

func TestQueue_StoreAndTakeOnce(t *testing.T) {
	q := NewQueue()
	q.Store(&Result{Token: 7, Channels: 2, Values: []float32{1, 2}})
	assert.Equal(t, 1, q.Stored())

	res, ok := q.Take(7)
	require.True(t, ok)
	assert.Equal(t, 2, res.Channels)

	_, ok = q.Take(7)
	assert.False(t, ok)
	assert.Zero(t, q.Stored())
}

func TestQueue_PopParksUntilPush(t *testing.T) {
	q := NewQueue()
	got := make(chan int, 1)

	go func() {
		_, req, ok := q.Pop()
		if ok {
			got <- req.Width
		}
	}()

	select {
	case <-got:
		t.Fatal("Pop returned from an empty queue")
	case <-time.After(20 * time.Millisecond):
	}

	_, err := q.Push(Request{Width: 42})
	require.NoError(t, err)

	select {
	case w := <-got:
		assert.Equal(t, 42, w)
	case <-time.After(2 * time.Second):
		t.Fatal("Pop was not woken by Push")
	}
}

func TestQueue_CloseDrainsThenStops(t *testing.T) {
	q := NewQueue()
	_, _ = q.Push(Request{Width: 1})
	q.Close()

	_, err := q.Push(Request{Width: 2})
	assert.ErrorIs(t, err, ErrShutdown)

	_, req, ok := q.Pop()
	require.True(t, ok, "queued work survives Close")
	assert.Equal(t, 1, req.Width)

	_, _, ok = q.Pop()
	assert.False(t, ok)
}

func TestQueue_Clear(t *testing.T) {
	q := NewQueue()
	a, _ := q.Push(Request{Width: 1})
	_, _ = q.Push(Request{Width: 2})

	assert.Equal(t, 2, q.Clear())
	assert.Zero(t, q.Len())
	assert.False(t, q.Remove(a))
}
