package peaks

import (
	"container/heap"
	"sync"
)

// Queue is the thread-safe request queue shared by the UI and the worker.
// Narrower requests are dequeued first; equal widths go in submission order.
// Finished results wait in the same structure until taken.
//
// Used by: Manager (Push/Remove/Take), Worker (Pop/Store)
// Thread-safe: Yes (one mutex for queue and results; no decoding under it)
type Queue struct {
	mutex   sync.Mutex
	cond    *sync.Cond
	items   widthQueue
	byToken map[Token]*entry
	results map[Token]*Result
	last    Token
	closed  bool
}

type entry struct {
	token Token
	req   Request
	index int
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	q := &Queue{
		items:   make(widthQueue, 0),
		byToken: make(map[Token]*entry),
		results: make(map[Token]*Result),
	}
	q.cond = sync.NewCond(&q.mutex)
	heap.Init(&q.items)
	return q
}

// Push assigns the next token to req and enqueues it.
// Returns ErrShutdown once the queue is closed.
func (q *Queue) Push(req Request) (Token, error) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if q.closed {
		return 0, ErrShutdown
	}

	q.last++
	e := &entry{token: q.last, req: req}
	heap.Push(&q.items, e)
	q.byToken[e.token] = e
	q.cond.Signal() // Wake up a parked worker
	return e.token, nil
}

// Remove drops a request that has not been popped yet.
// Returns false if the token is unknown, already started or finished.
func (q *Queue) Remove(token Token) bool {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	e, ok := q.byToken[token]
	if !ok {
		return false
	}
	heap.Remove(&q.items, e.index)
	delete(q.byToken, token)
	return true
}

// Pop removes and returns the narrowest request.
// Blocks while the queue is empty. Returns false once the queue is closed
// and has nothing left.
func (q *Queue) Pop() (Token, Request, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	for q.items.Len() == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.items.Len() == 0 {
		return 0, Request{}, false
	}

	e := heap.Pop(&q.items).(*entry)
	delete(q.byToken, e.token)
	return e.token, e.req, true
}

// Store keeps res until Take is called with its token.
func (q *Queue) Store(res *Result) {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.results[res.Token] = res
}

// Take returns and forgets the stored result for token.
func (q *Queue) Take(token Token) (*Result, bool) {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	res, ok := q.results[token]
	if ok {
		delete(q.results, token)
	}
	return res, ok
}

// Len returns the number of requests waiting to start.
func (q *Queue) Len() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return q.items.Len()
}

// Stored returns the number of results waiting to be taken.
func (q *Queue) Stored() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	return len(q.results)
}

// Close stops accepting requests and wakes the worker.
// Requests already queued can still be popped.
func (q *Queue) Close() {
	q.mutex.Lock()
	defer q.mutex.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// Clear drops every request that has not started and returns how many.
func (q *Queue) Clear() int {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	n := q.items.Len()
	q.items = q.items[:0]
	q.byToken = make(map[Token]*entry)
	q.cond.Broadcast()
	return n
}

// widthQueue implements heap.Interface.
// Narrower requests come first. Within the same width, older tokens come first.
type widthQueue []*entry

func (wq widthQueue) Len() int { return len(wq) }

func (wq widthQueue) Less(i, j int) bool {
	if wq[i].req.Width != wq[j].req.Width {
		return wq[i].req.Width < wq[j].req.Width
	}
	return wq[i].token < wq[j].token
}

func (wq widthQueue) Swap(i, j int) {
	wq[i], wq[j] = wq[j], wq[i]
	wq[i].index = i
	wq[j].index = j
}

func (wq *widthQueue) Push(x interface{}) {
	e := x.(*entry)
	e.index = len(*wq)
	*wq = append(*wq, e)
}

func (wq *widthQueue) Pop() interface{} {
	old := *wq
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*wq = old[0 : n-1]
	return e
}
