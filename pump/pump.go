// Package pump implements the engine's single blocking point. Every "delay
// until time T" in the system is expressed as a bounded wait here and
// re-evaluated on each wake, because tempo (and so real time per tick) can
// change between wakes.
package pump

import (
	"errors"
	"time"

	"github.com/dangyogi/music-player/debug"
	"github.com/dangyogi/music-player/seq"
	"github.com/dangyogi/music-player/timebase"
)

var (
	// ErrSourceLost is fatal: the underlying I/O source is gone.
	ErrSourceLost = errors.New("pump: event source lost")
	// ErrNested means Wait was called from inside a dispatched handler.
	// Handlers must use Defer instead.
	ErrNested = errors.New("pump: nested wait")
)

// Forever makes Wait block until the next event batch arrives.
const Forever = time.Duration(-1)

// Pump waits for input readiness or a deadline, dispatches each arrival
// batch in order, keeps queue-scheduled events flowing to the connection,
// and drains the post-wake command queue once per wake.
type Pump struct {
	conn    seq.Conn
	reg     *seq.Registry
	handler func(seq.Event)
	post    []func()
	emit    func() (time.Duration, bool)
	waiting bool
}

func New(conn seq.Conn, reg *seq.Registry) *Pump {
	return &Pump{conn: conn, reg: reg}
}

// SetHandler registers the event dispatch function.
func (p *Pump) SetHandler(fn func(seq.Event)) { p.handler = fn }

// SetPulseHook registers the clock generator's pulse emitter. It runs at the
// top of every wake while the master queue is running and returns the wall
// time until it must run again, which caps the wait.
func (p *Pump) SetPulseHook(fn func() (time.Duration, bool)) { p.emit = fn }

// Defer queues a command to run after the current event batch is fully
// dispatched and flushed. This is how handlers decouple "decide to act" from
// the low-level order of operations (and how they request follow-up waits
// without re-entering the pump).
func (p *Pump) Defer(fn func()) { p.post = append(p.post, fn) }

// Wait blocks for at most maxWait, processing events as they arrive.
// maxWait == Forever waits for the next batch; 0 polls; a positive duration
// is waited out in full.
func (p *Pump) Wait(maxWait time.Duration) error {
	if p.waiting {
		return ErrNested
	}
	p.waiting = true
	defer func() { p.waiting = false }()

	if maxWait < 0 {
		return p.waitOnce(0, true)
	}
	if maxWait == 0 {
		return p.waitOnce(0, false)
	}
	end := time.Now().Add(maxWait)
	for {
		remaining := time.Until(end)
		if remaining <= 0 {
			return nil
		}
		if err := p.waitOnce(remaining, false); err != nil {
			return err
		}
	}
}

// WaitTick blocks until the master queue reaches the given tick, recomputing
// the remaining time from the current position and tempo on every wake. If
// the queue is not running, it waits up to fallback for it to start
// (fallback == Forever waits indefinitely); once running, fallback is
// ignored. A non-nil cancel predicate is checked after every wake so a
// transport preemption can unwind the wait without reaching the deadline.
func (p *Pump) WaitTick(deadline int64, fallback time.Duration, cancel func() bool) error {
	if p.waiting {
		return ErrNested
	}
	p.waiting = true
	defer func() { p.waiting = false }()

	master := p.reg.Master()
	var end time.Time
	if fallback >= 0 {
		end = time.Now().Add(fallback)
	}
	for {
		if cancel != nil && cancel() {
			return nil
		}
		if !master.Running() {
			if fallback < 0 {
				if err := p.waitOnce(0, true); err != nil {
					return err
				}
				continue
			}
			remaining := time.Until(end)
			if remaining <= 0 {
				return nil
			}
			if err := p.waitOnce(remaining, false); err != nil {
				return err
			}
			continue
		}
		pos := master.Position()
		if pos >= deadline {
			return nil
		}
		secs := float64(deadline-pos) * timebase.SecsPerTick(master.BPM(), master.PPQ())
		if err := p.waitOnce(time.Duration(secs*float64(time.Second)), false); err != nil {
			return err
		}
	}
}

// waitOnce is one wake: emit pulses, flush, block, drain the whole arrival
// batch in order, flush, run post-wake commands.
func (p *Pump) waitOnce(wait time.Duration, infinite bool) error {
	if p.emit != nil {
		if d, ok := p.emit(); ok && (infinite || d < wait) {
			wait, infinite = d, false
		}
	}
	if d, ok := p.untilNextScheduled(); ok && (infinite || d < wait) {
		wait, infinite = d, false
	}

	p.deliverDue()
	if err := p.conn.Flush(); err != nil {
		return err
	}

	gotBatch, err := p.block(wait, infinite)
	if err != nil {
		return err
	}
	if gotBatch {
		if err := p.drainBatch(); err != nil {
			return err
		}
	}

	p.deliverDue()
	if err := p.conn.Flush(); err != nil {
		return err
	}

	for len(p.post) > 0 {
		fns := p.post
		p.post = nil
		for _, fn := range fns {
			fn()
		}
		p.deliverDue()
		if err := p.conn.Flush(); err != nil {
			return err
		}
	}
	return nil
}

// block waits for the first event and dispatches it. Reports whether more of
// the batch may be pending.
func (p *Pump) block(wait time.Duration, infinite bool) (bool, error) {
	var (
		ev    seq.Event
		open  bool
		fired bool
	)
	switch {
	case infinite:
		ev, open = <-p.conn.Events()
		fired = true
	case wait <= 0:
		select {
		case ev, open = <-p.conn.Events():
			fired = true
		default:
		}
	default:
		timer := time.NewTimer(wait)
		select {
		case ev, open = <-p.conn.Events():
			fired = true
		case <-timer.C:
		}
		timer.Stop()
	}
	if !fired {
		return false, nil
	}
	if !open {
		return false, ErrSourceLost
	}
	p.dispatch(ev)
	return true, nil
}

// drainBatch dispatches everything already pending so that logically
// simultaneous protocol messages (a Stop immediately followed by an SPP) are
// applied in arrival order before any new timing decision.
func (p *Pump) drainBatch() error {
	for {
		select {
		case ev, open := <-p.conn.Events():
			if !open {
				return ErrSourceLost
			}
			p.dispatch(ev)
		default:
			return nil
		}
	}
}

func (p *Pump) dispatch(ev seq.Event) {
	if p.handler == nil {
		debug.Log("pump", "no handler registered, dropped %s", ev.Type)
		return
	}
	p.handler(ev)
}

// deliverDue moves queue events whose tick has arrived onto the connection.
func (p *Pump) deliverDue() {
	if p.reg == nil {
		return
	}
	for _, ev := range p.reg.PopDue() {
		p.conn.Send(ev)
	}
}

func (p *Pump) untilNextScheduled() (time.Duration, bool) {
	if p.reg == nil {
		return 0, false
	}
	var (
		min   time.Duration
		found bool
	)
	p.reg.Each(func(q *seq.Queue) {
		if d, ok := q.UntilNext(); ok && (!found || d < min) {
			min, found = d, true
		}
	})
	return min, found
}
