package player

import (
	"math/big"

	"github.com/dangyogi/music-player/debug"
	"github.com/dangyogi/music-player/pump"
	"github.com/dangyogi/music-player/score"
	"github.com/dangyogi/music-player/seq"
	"github.com/dangyogi/music-player/timebase"
)

// run is one playback run. Preemption flips cancelled; the scheduler checks
// it at every wait and send point and unwinds without emitting anything for
// the dead run.
type run struct {
	resume    Resume
	cancelled bool
}

// playRun triggers notes from the resume point to the end of the score,
// then waits for the last scheduled note-off to clear and re-enters
// NewSong. Returns only transport errors; cancellation is a clean return.
func (p *Player) playRun(r *run) error {
	p.active = r
	defer func() {
		if p.active == r {
			p.active = nil
		}
	}()

	parts := p.score.Parts
	mi, ni := r.resume.Measure, r.resume.Note
	for pi := r.resume.Part; pi < len(parts); pi++ {
		part := &parts[pi]
		for ; mi < len(part.Measures); mi++ {
			m := &part.Measures[mi]
			if m.Tempo != 0 {
				p.sendTempo(m.Tempo)
			}
			if m.Time != nil {
				p.conn.Send(seq.TimeSig(timebase.TimeSigToData(m.Time.Beats, m.Time.BeatType)))
			}
			for ; ni < len(m.Notes); ni++ {
				if r.cancelled {
					return nil
				}
				n := &m.Notes[ni]
				if n.Ignore {
					continue
				}
				if n.Grace {
					// backlog: grace notes are not sounded yet
					debug.Log("trigger", "grace note pitch %d at clock %s skipped",
						n.Pitch, new(big.Rat).Add(m.Start, n.Start).RatString())
					continue
				}
				if err := p.playNote(r, n, m.Start); err != nil {
					return err
				}
			}
			if r.cancelled {
				return nil
			}
			ni = 0
		}
		mi = 0
	}
	return p.endOfSong(r)
}

// playNote waits until just before the note is due, narrowing the
// look-ahead by halves so late expression changes can still move the
// target, then emits the note-on/note-off pair at their scheduled ticks.
func (p *Player) playNote(r *run, n *score.Note, measureStart *big.Rat) error {
	advance := p.cfg.MaxAdvance * p.ticksPerClock
	for {
		target := timebase.ToTicks(p.cfg.Hook.TargetStart(n, measureStart), p.ticksPerClock) - p.tickOffset
		if advance < p.latencyTicks || p.position() >= target {
			break
		}
		err := p.pump.WaitTick(target-advance, pump.Forever, func() bool { return r.cancelled })
		if err != nil {
			return err
		}
		if r.cancelled {
			return nil
		}
		advance /= 2
	}
	if r.cancelled {
		return nil
	}

	res, ok := p.cfg.Hook.Modify(n, measureStart, p.channel, p.cfg.Velocity)
	if !ok {
		return nil // rest
	}
	start := timebase.ToTicks(res.Start, p.ticksPerClock) - p.tickOffset
	end := timebase.ToTicks(res.End, p.ticksPerClock) - p.tickOffset
	if pos := p.position(); start < pos {
		// late, but never dropped
		debug.Log("trigger", "missed deadline: start tick %d behind position %d, pitch %d",
			start, pos, n.Pitch)
	}
	key := int(n.Pitch) + p.transpose
	if key < 0 {
		key = 0
	} else if key > 127 {
		key = 127
	}
	p.conn.Send(seq.NoteOn(res.Channel, uint8(key), res.Velocity).At(start, p.cfg.Tag))
	p.conn.Send(seq.NoteOff(res.Channel, uint8(key)).At(end, p.cfg.Tag))
	if end > p.finalTick {
		p.finalTick = end
	}
	return nil
}

// endOfSong drains the queue past the last scheduled note-off, stops, and
// re-arms the transport at the top of the song.
func (p *Player) endOfSong(r *run) error {
	debug.Log("player", "end of song, draining to tick %d", p.finalTick)
	err := p.pump.WaitTick(p.finalTick+2, pump.Forever, func() bool { return r.cancelled })
	if err != nil {
		return err
	}
	if r.cancelled {
		return nil
	}
	p.reg.StopAll()
	p.conn.Send(seq.AllNotesOff(p.channel))
	if err := p.conn.Flush(); err != nil {
		return err
	}
	nr, ok := Search(p.score, 0)
	if !ok {
		p.setState(NoSong)
		return nil
	}
	p.resume = &nr
	p.setState(NewSong)
	return nil
}
