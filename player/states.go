package player

import (
	"github.com/dangyogi/music-player/debug"
	"github.com/dangyogi/music-player/score"
	"github.com/dangyogi/music-player/seq"
	"github.com/dangyogi/music-player/timebase"
)

// State is the transport state. Exactly one holds at any time; the score is
// loaded in every state but NoSong, and resume is non-nil in every state but
// NoSong.
type State uint8

const (
	NoSong State = iota
	NewSong
	Ready
	Paused
	Running
)

var stateNames = [...]string{"no-song", "new-song", "ready", "paused", "running"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "invalid"
}

// handleTransport applies one transport command to the state machine.
// Commands that make no sense in the current state are logged and dropped;
// they never corrupt the loaded score or the resume point.
func (p *Player) handleTransport(ev seq.Event) {
	switch ev.Type {
	case seq.EventSongSelect:
		p.songSelect(int(ev.Pos))
	case seq.EventSongPos:
		p.songPosition(ev.Pos)
	case seq.EventStart:
		p.startCmd()
	case seq.EventContinue:
		p.continueCmd()
	case seq.EventStop:
		p.stopCmd()
	}
}

func (p *Player) songSelect(n int) {
	if p.state == Running {
		debug.Log("player", "song select %d while running ignored", n)
		return
	}
	if n < 0 || n >= len(p.cfg.Songs) {
		debug.Log("player", "song select %d out of range (%d songs)", n, len(p.cfg.Songs))
		return
	}
	s, err := score.Load(p.cfg.Provider, p.cfg.Songs[n])
	if err != nil {
		debug.Log("player", "song %d (%s) failed to load: %v", n, p.cfg.Songs[n], err)
		return
	}
	for _, issue := range s.Check() {
		debug.Log("score", "%s", issue)
	}
	r, ok := Search(s, 0)
	if !ok {
		debug.Log("player", "song %d (%s) has no measures", n, p.cfg.Songs[n])
		return
	}
	p.song = n
	p.score = s
	p.resume = &r
	p.setState(NewSong)
}

func (p *Player) songPosition(pos uint16) {
	switch p.state {
	case Running:
		// protocol violation: SPP must not be sent while running
		debug.Log("player", "song position %d while running ignored", pos)
		return
	case NoSong:
		debug.Log("player", "song position %d with no song loaded ignored", pos)
		return
	}
	r, ok := Search(p.score, pos)
	if !ok {
		debug.Log("player", "song position %d (clock %s) past end of song",
			pos, timebase.SPPToClocks(int(pos)).RatString())
		return
	}
	p.resume = &r
	p.setState(Ready)
}

// startCmd resets the transport to position zero and begins a fresh run,
// preempting any run already in flight.
func (p *Player) startCmd() {
	if p.state == NoSong {
		debug.Log("player", "start with no song loaded ignored")
		return
	}
	r, ok := Search(p.score, 0)
	if !ok {
		debug.Log("player", "start: loaded song has no measures")
		return
	}
	p.preempt()
	p.resume = &r
	p.pending = &run{resume: r}
	p.pump.Defer(func() {
		p.tickOffset = 0
		p.finalTick = 0
		p.reg.StartAll()
	})
	p.setState(Running)
}

func (p *Player) continueCmd() {
	switch p.state {
	case Ready:
		// a seek preceded this: restart the queue at zero and bias every
		// scheduled tick by the seek position
		r := *p.resume
		sync := timebase.ToTicks(timebase.SPPToClocks(int(r.SPP)), p.ticksPerClock)
		p.preempt()
		p.pending = &run{resume: r}
		p.pump.Defer(func() {
			p.tickOffset = sync
			p.finalTick = 0
			p.reg.StartAll()
		})
		p.setState(Running)
	case Paused:
		// the suspended run picks up from its wait, nothing is repositioned
		p.pump.Defer(p.reg.ContinueAll)
		p.setState(Running)
	default:
		debug.Log("player", "continue in state %s ignored", p.state)
	}
}

func (p *Player) stopCmd() {
	if p.state != Running {
		debug.Log("player", "stop in state %s ignored", p.state)
		return
	}
	p.pump.Defer(func() {
		p.reg.StopAll()
		p.conn.Send(seq.AllNotesOff(p.channel))
	})
	p.setState(Paused)
}

// preempt cancels the run in flight, if any. The cancelled run unwinds at
// its next wait or send point without emitting anything further.
func (p *Player) preempt() {
	if p.active == nil {
		return
	}
	debug.Log("player", "preempting playback run at tick %d", p.position())
	p.active.cancelled = true
	p.active = nil
}
