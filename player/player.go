// Package player is the playback engine: it resolves transport commands
// (start/stop/continue/song-position/song-select) into a resume point and
// triggers the score's notes against the shared beat clock, applying live
// expression adjustments at the last safe moment.
package player

import (
	"sync"
	"time"

	"github.com/dangyogi/music-player/debug"
	"github.com/dangyogi/music-player/expression"
	"github.com/dangyogi/music-player/pump"
	"github.com/dangyogi/music-player/score"
	"github.com/dangyogi/music-player/seq"
	"github.com/dangyogi/music-player/timebase"
)

// Config sizes the player. Zero values take the defaults; Provider and Hook
// default to the JSON score reader and the standard expression table.
type Config struct {
	PPQ        int           // local queue resolution, default 960
	Tag        seq.Tag       // route tag for our scheduled events, default 17
	Latency    time.Duration // minimum trigger look-ahead, default 5ms
	MaxAdvance int64         // initial look-ahead in clocks, default 24
	Velocity   uint8         // default note-on velocity, default 43
	Songs      []string      // selectable by Song Select, in order
	Provider   score.Provider
	Hook       expression.Hook
}

const (
	DefaultPPQ        = 960
	DefaultTag        = seq.Tag(17)
	DefaultLatency    = 5 * time.Millisecond
	DefaultMaxAdvance = 24 // one quarter note
	DefaultVelocity   = 43
)

func (c *Config) fill() {
	if c.PPQ == 0 {
		c.PPQ = DefaultPPQ
	}
	if c.Tag == 0 {
		c.Tag = DefaultTag
	}
	if c.Latency == 0 {
		c.Latency = DefaultLatency
	}
	if c.MaxAdvance == 0 {
		c.MaxAdvance = DefaultMaxAdvance
	}
	if c.Velocity == 0 {
		c.Velocity = DefaultVelocity
	}
	if c.Provider == nil {
		c.Provider = score.JSONProvider{}
	}
	if c.Hook == nil {
		c.Hook = expression.NewTable()
	}
}

// Status is a snapshot of the player for display.
type Status struct {
	State State
	Song  int
	BPM   float64
	Tick  int64
	SPP   uint16
}

// Player owns the transport state machine and the note trigger scheduler.
// All fields are mutated only from the pump's dispatch or from Run's loop;
// the mutex guards the display snapshot read by other goroutines.
type Player struct {
	conn seq.Conn
	reg  *seq.Registry
	pump *pump.Pump
	cfg  Config

	ticksPerClock int64
	bpm           float64
	latencyTicks  int64
	tickOffset    int64 // queue tick = score tick - tickOffset
	finalTick     int64 // latest scheduled note-off of the current run

	state   State
	score   *score.Score
	song    int
	resume  *Resume
	pending *run
	active  *run

	channel   uint8
	transpose int
	table     *expression.Table // nil if the hook is not the standard table

	mu     sync.RWMutex
	status Status

	// Updates gets a token whenever the visible status changes.
	Updates chan struct{}
}

func New(conn seq.Conn, cfg Config) (*Player, error) {
	cfg.fill()
	tpc, err := timebase.TicksPerClock(cfg.PPQ)
	if err != nil {
		return nil, err
	}
	master := seq.NewQueue("Player", cfg.PPQ)
	reg := seq.NewRegistry(master)
	p := &Player{
		conn:          conn,
		reg:           reg,
		pump:          pump.New(conn, reg),
		cfg:           cfg,
		ticksPerClock: tpc,
		bpm:           seq.DefaultBPM,
		latencyTicks:  timebase.LatencyTicks(cfg.Latency, seq.DefaultBPM, cfg.PPQ),
		song:          -1,
		Updates:       make(chan struct{}, 1),
	}
	p.table, _ = cfg.Hook.(*expression.Table)
	p.pump.SetHandler(p.handle)

	// claim our route on the clock generator
	data, err := timebase.PPQToData(cfg.PPQ)
	if err != nil {
		return nil, err
	}
	ev := seq.ControlChange(seq.ClockMasterChannel, seq.PPQParam, data)
	ev.Tag = cfg.Tag
	conn.Send(ev)
	if err := conn.Flush(); err != nil {
		return nil, err
	}
	return p, nil
}

// Run pumps events until the input side is lost, interleaving playback runs
// as the state machine requests them. On a fatal error it stops the queues
// and silences the output before propagating.
func (p *Player) Run() error {
	for {
		if r := p.pending; r != nil {
			p.pending = nil
			if err := p.playRun(r); err != nil {
				p.shutdown()
				return err
			}
			continue
		}
		if err := p.pump.Wait(pump.Forever); err != nil {
			p.shutdown()
			return err
		}
	}
}

// Close releases our route on the clock generator and closes the transport.
func (p *Player) Close() error {
	ev := seq.ControlChange(seq.ClockMasterChannel, seq.CloseQueueParam, 0)
	ev.Tag = p.cfg.Tag
	p.conn.Send(ev)
	if err := p.conn.Flush(); err != nil {
		debug.Log("player", "flush on close: %v", err)
	}
	return p.conn.Close()
}

func (p *Player) shutdown() {
	p.reg.StopAll()
	p.conn.Send(seq.AllNotesOff(p.channel))
	if err := p.conn.Flush(); err != nil {
		debug.Log("player", "flush on shutdown: %v", err)
	}
}

// Status returns the current display snapshot.
func (p *Player) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

func (p *Player) handle(ev seq.Event) {
	switch ev.Type {
	case seq.EventStart, seq.EventContinue, seq.EventStop,
		seq.EventSongPos, seq.EventSongSelect:
		p.handleTransport(ev)
	case seq.EventTempo:
		p.setTempo(timebase.DataToBPM(ev.Data))
	case seq.EventTimeSig:
		beats, beatType := timebase.DataToTimeSig(ev.Data)
		debug.Log("player", "time signature %d/%d", beats, beatType)
	case seq.EventClock:
		// position comes from our queue, not from counting pulses
	case seq.EventControlChange:
		p.handleControl(ev)
	default:
		debug.Log("player", "unhandled %s event ignored", ev.Type)
	}
}

// Control channels: channel 0 carries the transport conversation, channel 1
// live note-expression values, channel 2 global playback settings.
const (
	noteExprChannel = 1
	globalChannel   = 2
)

const (
	paramChannel   = 0x55
	paramTranspose = 0x56
	paramVolumeMSB = 0x07
	paramVolumeLSB = 0x27
	paramSustain   = 0x40
	paramSostenuto = 0x42
	paramSoft      = 0x43
)

// Note-expression CCs pack (modifier, value-offset) as param>>2 and param&3.
var exprNames = map[uint8]string{
	0x04: "accent",  // params 0x10-0x13
	0x05: "rubato",  // params 0x14-0x17
	0x06: "fermata", // params 0x18-0x1b
}

func (p *Player) handleControl(ev seq.Event) {
	switch ev.Channel {
	case noteExprChannel:
		name, ok := exprNames[ev.Param>>2]
		if !ok || p.table == nil {
			debug.Log("player", "expression cc 0x%02x=%d ignored", ev.Param, ev.Value)
			return
		}
		e, ok := p.table.Get(name)
		if !ok {
			debug.Log("player", "expression %s has no modifier entry", name)
			return
		}
		e.Set(int(ev.Param&3), ev.Value)
		debug.Log("player", "expression %s[%d] = %d", name, ev.Param&3, ev.Value)
	case globalChannel:
		switch ev.Param {
		case paramChannel:
			p.channel = ev.Value & 0x0f
			p.notify()
		case paramTranspose:
			p.transpose = int(ev.Value) - 12
		case paramVolumeMSB, paramVolumeLSB:
			// backlog: synth volume is noted but not yet driven
			debug.Log("player", "synth volume cc 0x%02x=%d not wired", ev.Param, ev.Value)
		case paramSustain, paramSostenuto, paramSoft:
			p.conn.Send(seq.ControlChange(p.channel, ev.Param, ev.Value))
		default:
			debug.Log("player", "global cc 0x%02x=%d ignored", ev.Param, ev.Value)
		}
	default:
		debug.Log("player", "cc 0x%02x=%d on channel %d ignored",
			ev.Param, ev.Value, ev.Channel)
	}
}

func (p *Player) setTempo(bpm float64) {
	p.bpm = bpm
	p.reg.SetTempoAll(bpm)
	p.latencyTicks = timebase.LatencyTicks(p.cfg.Latency, bpm, p.cfg.PPQ)
	debug.Log("player", "tempo %.2f bpm, latency %d ticks", bpm, p.latencyTicks)
	p.notify()
}

// sendTempo applies a score-declared tempo locally and announces it to the
// clock generator so every route stays phase-locked.
func (p *Player) sendTempo(bpm float64) {
	p.setTempo(bpm)
	p.conn.Send(seq.Tempo(timebase.BPMToData(bpm)))
}

func (p *Player) position() int64 {
	return p.reg.Master().Position()
}

func (p *Player) setState(s State) {
	if p.state != s {
		debug.Log("player", "state %s -> %s", p.state, s)
	}
	p.state = s
	p.notify()
}

func (p *Player) notify() {
	st := Status{State: p.state, Song: p.song, BPM: p.bpm, Tick: p.position()}
	if p.resume != nil {
		st.SPP = p.resume.SPP
	}
	p.mu.Lock()
	p.status = st
	p.mu.Unlock()
	select {
	case p.Updates <- struct{}{}:
	default:
	}
}
