// Package clockmaster generates the MIDI beat clock and relays transport
// control to downstream consumers. It owns the authoritative queue plus one
// tempo-locked secondary queue per downstream tag, regenerating the pulse
// train ahead of real time by a configurable latency margin so tempo changes
// take effect with bounded delay instead of stalling or bursting.
package clockmaster

import (
	"fmt"
	"time"

	"github.com/dangyogi/music-player/debug"
	"github.com/dangyogi/music-player/pump"
	"github.com/dangyogi/music-player/seq"
	"github.com/dangyogi/music-player/timebase"
)

// Config sizes the clock master. Zero values take the defaults.
type Config struct {
	PPQ          int           // authoritative queue resolution, default 480
	Latency      time.Duration // pulse look-ahead margin, default 5ms
	ClockAdvance int           // pulses enqueued per refill, default 4
}

const (
	DefaultPPQ          = 480
	DefaultLatency      = 5 * time.Millisecond
	DefaultClockAdvance = 4
)

func (c *Config) fill() {
	if c.PPQ == 0 {
		c.PPQ = DefaultPPQ
	}
	if c.Latency == 0 {
		c.Latency = DefaultLatency
	}
	if c.ClockAdvance == 0 {
		c.ClockAdvance = DefaultClockAdvance
	}
}

// Master is the clock generator / relay.
type Master struct {
	conn seq.Conn
	reg  *seq.Registry
	pump *pump.Pump
	cfg  Config

	bpm           float64
	ticksPerClock int64
	latencyTicks  int64

	running   bool
	nextPulse int64
	havePulse bool
}

func New(conn seq.Conn, cfg Config) (*Master, error) {
	cfg.fill()
	tpc, err := timebase.TicksPerClock(cfg.PPQ)
	if err != nil {
		return nil, err
	}
	m := &Master{
		conn:          conn,
		reg:           seq.NewRegistry(seq.NewQueue("Clock", cfg.PPQ)),
		cfg:           cfg,
		bpm:           seq.DefaultBPM,
		ticksPerClock: tpc,
	}
	m.latencyTicks = timebase.LatencyTicks(cfg.Latency, m.bpm, cfg.PPQ)
	m.pump = pump.New(conn, m.reg)
	m.pump.SetHandler(m.Handle)
	m.pump.SetPulseHook(m.EmitPulses)
	return m, nil
}

func (m *Master) Registry() *seq.Registry { return m.reg }
func (m *Master) Pump() *pump.Pump        { return m.pump }
func (m *Master) BPM() float64            { return m.bpm }
func (m *Master) Running() bool           { return m.running }
func (m *Master) LatencyTicks() int64     { return m.latencyTicks }

// Run pumps until the event source is lost, then stops everything in an
// orderly fashion before propagating the error.
func (m *Master) Run() error {
	for {
		if err := m.pump.Wait(pump.Forever); err != nil {
			m.stop()
			m.conn.Flush()
			return err
		}
	}
}

// SetTempo retunes the authoritative queue and every secondary queue in the
// same step, keeping all consumers phase-locked, and rescales the pulse
// look-ahead to the new tick rate.
func (m *Master) SetTempo(bpm float64) {
	m.bpm = bpm
	m.reg.SetTempoAll(bpm)
	m.latencyTicks = timebase.LatencyTicks(m.cfg.Latency, bpm, m.cfg.PPQ)
}

// CreateRoute makes (or remakes) the secondary queue for a tag, tempo-locked
// to the master.
func (m *Master) CreateRoute(tag seq.Tag, ppq int) {
	if _, err := timebase.TicksPerClock(ppq); err != nil {
		debug.Log("clock", "create route tag=%d: %v", tag, err)
		return
	}
	q := seq.NewQueue(fmt.Sprintf("Q-%d", tag), ppq)
	q.SetTempo(m.bpm)
	m.reg.SetRoute(tag, q)
	debug.Log("clock", "route tag=%d ppq=%d created", tag, ppq)
}

// CloseRoute drops a tag's queue. Closing an unknown tag is a logged no-op.
func (m *Master) CloseRoute(tag seq.Tag) {
	if _, ok := m.reg.RemoveRoute(tag); !ok {
		debug.Log("clock", "close route tag=%d: unknown, ignored", tag)
		return
	}
	debug.Log("clock", "route tag=%d closed", tag)
}

func (m *Master) start() {
	m.reg.StartAll()
	m.running = true
	m.havePulse = false // pulse train restarts at tick 0
}

func (m *Master) resume() {
	m.reg.ContinueAll()
	m.running = true
}

func (m *Master) stop() {
	if !m.running {
		return
	}
	m.reg.StopAll()
	m.running = false
	for ch := uint8(0); ch < 16; ch++ {
		m.conn.Send(seq.AllNotesOff(ch))
	}
}

// Handle is the relay dispatch: transport and tempo/time-signature control
// is applied to the local queues first, then forwarded unchanged to the
// output side, so downstream consumers observe the same transport events as
// the master. (The source never settled on queue-op-first vs forward-first;
// this implementation fixes queue-op-first.)
func (m *Master) Handle(ev seq.Event) {
	switch ev.Type {
	case seq.EventStart:
		m.start()
		m.conn.Send(ev)
	case seq.EventContinue:
		m.resume()
		m.conn.Send(ev)
	case seq.EventStop:
		m.stop()
		m.conn.Send(ev)
	case seq.EventSongPos, seq.EventSongSelect, seq.EventTimeSig:
		m.conn.Send(ev)
	case seq.EventTempo:
		m.SetTempo(timebase.DataToBPM(ev.Data))
		m.conn.Send(ev)
	case seq.EventControlChange:
		if ev.Channel == seq.ClockMasterChannel {
			switch ev.Param {
			case seq.PPQParam:
				m.CreateRoute(ev.Tag, timebase.DataToPPQ(ev.Value))
				return
			case seq.CloseQueueParam:
				m.CloseRoute(ev.Tag)
				return
			}
		}
		m.relay(ev) // this is for somebody else
	default:
		m.relay(ev)
	}
}

// relay passes a non-control event downstream, through the tag's queue when
// it asks for scheduled delivery.
func (m *Master) relay(ev seq.Event) {
	if ev.Tag != 0 && ev.Scheduled {
		if q, ok := m.reg.Route(ev.Tag); ok {
			q.Schedule(ev)
			return
		}
		debug.Log("clock", "tag=%d not routed, forwarding %s direct (tick=%d)", ev.Tag, ev.Type, ev.Tick)
	}
	m.conn.Send(ev)
}

// EmitPulses is the pump's pulse hook. While running it keeps at least
// latencyTicks of future pulses on the authoritative queue, topping up by a
// fixed batch per call so neither jitter nor memory can grow unboundedly,
// and reports the wall time until the next top-up is due.
func (m *Master) EmitPulses() (time.Duration, bool) {
	if !m.running {
		return 0, false
	}
	master := m.reg.Master()
	now := master.Position()
	if !m.havePulse {
		m.nextPulse = 0
		m.havePulse = true
	}
	if m.nextPulse < now {
		debug.Log("clock", "pulse train behind by %d ticks", now-m.nextPulse)
	}
	if m.nextPulse-now <= m.latencyTicks {
		for i := 0; i < m.cfg.ClockAdvance; i++ {
			master.Schedule(seq.Clock().At(m.nextPulse, 0))
			m.nextPulse += m.ticksPerClock
		}
	}
	wake := m.nextPulse - m.latencyTicks - now
	if wake < 1 {
		wake = 1
	}
	secs := float64(wake) * timebase.SecsPerTick(m.bpm, m.cfg.PPQ)
	return time.Duration(secs * float64(time.Second)), true
}
