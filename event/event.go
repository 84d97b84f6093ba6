// Package event implements the discrete-event scheduler used by the
// system bus to drive device completions. A single schedule/advance
// entry point is invoked by devices through their host. It is backed
// by a binary min-heap so absolute fire times can be queried directly
// (needed for the disk and flash rotational-latency computations,
// which read TOD_LO against the schedule time).
package event

import "container/heap"

// Callback is invoked when a scheduled event fires. Its return value is
// the register index the device mutated, surfaced for debuggers/tests.
type Callback func() uint32

// entry is one scheduled event. Ties in fireTime are broken by seq,
// which records insertion order.
type entry struct {
	fireTime uint64
	seq      uint64
	cb       Callback
}

type entryHeap []*entry

func (h entryHeap) Len() int { return len(h) }
func (h entryHeap) Less(i, j int) bool {
	if h[i].fireTime != h[j].fireTime {
		return h[i].fireTime < h[j].fireTime
	}
	return h[i].seq < h[j].seq
}
func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)   { *h = append(*h, x.(*entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Queue is a min-heap of pending events ordered by fire time, ties
// broken by insertion order.
type Queue struct {
	h       entryHeap
	nextSeq uint64
}

// NewQueue returns an empty event queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Schedule inserts a callback to fire at now+delay and returns that
// absolute fire time. A delay of 0 still queues the event rather than
// invoking it inline, so that ordering relative to other events
// scheduled for "now" is preserved by insertion order.
func (q *Queue) Schedule(now, delay uint64, cb Callback) uint64 {
	fireTime := now + delay
	e := &entry{fireTime: fireTime, seq: q.nextSeq, cb: cb}
	q.nextSeq++
	heap.Push(&q.h, e)
	return fireTime
}

// NextFireTime reports the fire time of the earliest pending event, if
// any.
func (q *Queue) NextFireTime() (uint64, bool) {
	if len(q.h) == 0 {
		return 0, false
	}
	return q.h[0].fireTime, true
}

// Len reports the number of pending events.
func (q *Queue) Len() int { return len(q.h) }

// RunDue pops and dispatches the earliest event if its fire time is
// <= now, returning the value its callback produced. It does nothing
// and returns ok=false if the queue is empty or the earliest event is
// not yet due.
func (q *Queue) RunDue(now uint64) (result uint32, ok bool) {
	if len(q.h) == 0 || q.h[0].fireTime > now {
		return 0, false
	}
	e := heap.Pop(&q.h).(*entry)
	return e.cb(), true
}

// Reset discards every pending event.
func (q *Queue) Reset() {
	q.h = nil
}
