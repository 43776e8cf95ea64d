package seq

import (
	"container/heap"
	"time"

	"github.com/dangyogi/music-player/timebase"
)

// Queue is a tick-scheduled event queue with its own tempo and ppq, standing
// in for a kernel sequencer queue. Its position advances with wall time while
// running; tempo changes fold the elapsed ticks into the base so they never
// move ticks that have already passed.
//
// Queues are mutated only from event dispatch under the single-threaded
// model, so there is no locking here. A multi-threaded port must serialize
// all queue and registry mutation behind one lock.
type Queue struct {
	name    string
	ppq     int
	bpm     float64
	running bool

	base float64 // fractional ticks accumulated up to ref
	ref  time.Time

	pending eventHeap
	ord     int64

	now func() time.Time
}

const DefaultBPM = 120

// NewQueue creates a stopped queue at the default tempo.
func NewQueue(name string, ppq int) *Queue {
	return &Queue{name: name, ppq: ppq, bpm: DefaultBPM, now: time.Now}
}

func (q *Queue) Name() string  { return q.name }
func (q *Queue) PPQ() int      { return q.ppq }
func (q *Queue) BPM() float64  { return q.bpm }
func (q *Queue) Running() bool { return q.running }

// SetClock replaces the time source. Tests drive queues with a fake clock.
func (q *Queue) SetClock(now func() time.Time) { q.now = now }

// fold banks the ticks elapsed since ref so the current tempo only applies
// from now on.
func (q *Queue) fold() {
	if q.running {
		elapsed := q.now().Sub(q.ref).Seconds()
		q.base += elapsed / timebase.SecsPerTick(q.bpm, q.ppq)
	}
	q.ref = q.now()
}

// SetTempo changes the queue tempo, effective from the current position.
func (q *Queue) SetTempo(bpm float64) {
	q.fold()
	q.bpm = bpm
}

// Start resets the position to zero and discards anything still pending.
// Pending work from a cancelled run must not survive into the next one.
func (q *Queue) Start() {
	q.base = 0
	q.ref = q.now()
	q.running = true
	q.pending = q.pending[:0]
}

// Continue resumes from the frozen position. No-op if already running.
func (q *Queue) Continue() {
	if q.running {
		return
	}
	q.ref = q.now()
	q.running = true
}

// Stop freezes the position. No-op if already stopped.
func (q *Queue) Stop() {
	if !q.running {
		return
	}
	q.fold()
	q.running = false
}

// Position is the current queue tick. Frozen while stopped.
func (q *Queue) Position() int64 {
	if !q.running {
		return int64(q.base)
	}
	elapsed := q.now().Sub(q.ref).Seconds()
	return int64(q.base + elapsed/timebase.SecsPerTick(q.bpm, q.ppq))
}

// Schedule enqueues an event for delivery at ev.Tick.
func (q *Queue) Schedule(ev Event) {
	ev.Scheduled = true
	q.ord++
	heap.Push(&q.pending, pendingEvent{ev: ev, ord: q.ord})
}

// PopDue removes and returns every pending event whose tick has arrived, in
// tick order (FIFO among equal ticks).
func (q *Queue) PopDue() []Event {
	pos := q.Position()
	var due []Event
	for len(q.pending) > 0 && q.pending[0].ev.Tick <= pos {
		due = append(due, heap.Pop(&q.pending).(pendingEvent).ev)
	}
	return due
}

// Pending reports how many scheduled events have not been delivered yet.
func (q *Queue) Pending() int { return len(q.pending) }

// NextDue returns the tick of the earliest pending event.
func (q *Queue) NextDue() (int64, bool) {
	if len(q.pending) == 0 {
		return 0, false
	}
	return q.pending[0].ev.Tick, true
}

// UntilNext is the wall time until the earliest pending event comes due at
// the current tempo. False when stopped or empty.
func (q *Queue) UntilNext() (time.Duration, bool) {
	if !q.running {
		return 0, false
	}
	tick, ok := q.NextDue()
	if !ok {
		return 0, false
	}
	remaining := float64(tick-q.Position()) * timebase.SecsPerTick(q.bpm, q.ppq)
	if remaining < 0 {
		remaining = 0
	}
	return time.Duration(remaining * float64(time.Second)), true
}

type pendingEvent struct {
	ev  Event
	ord int64
}

type eventHeap []pendingEvent

func (h eventHeap) Len() int { return len(h) }

func (h eventHeap) Less(i, j int) bool {
	if h[i].ev.Tick != h[j].ev.Tick {
		return h[i].ev.Tick < h[j].ev.Tick
	}
	return h[i].ord < h[j].ord
}

func (h eventHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) { *h = append(*h, x.(pendingEvent)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
