package expression

import (
	"math/big"

	"github.com/dangyogi/music-player/debug"
	"github.com/dangyogi/music-player/score"
)

// Offsets into an expression's value set.
const (
	OffsetChannel  = 0 // replacement channel
	OffsetNoteOn   = 1 // start += value * duration
	OffsetNoteOff  = 2 // end += value * duration
	OffsetVelocity = 3 // velocity += value
)

// Expression is one named modifier: four live-settable values, each fed
// through its own scale function from the raw controller byte.
type Expression struct {
	values  [4]float64
	scales  [4]func(uint8) float64
	fermata bool // note-off value is an absolute hold clock, not an offset
}

// NewExpression builds a modifier with the standard scales: channel raw,
// start/end nudged by [-0.75, +0.76] of the note duration, velocity by
// [-40, +41].
func NewExpression() *Expression {
	return &Expression{
		scales: [4]func(uint8) float64{
			func(x uint8) float64 { return float64(x) },
			Linear(0.0119, -0.75),
			Linear(0.0119, -0.75),
			Linear(0.635, -40),
		},
	}
}

// NewFermata holds the note-off at the set clock instead of offsetting it.
func NewFermata() *Expression {
	e := NewExpression()
	e.fermata = true
	return e
}

// Set updates one value from a controller byte.
func (e *Expression) Set(offset int, value uint8) {
	if offset < 0 || offset >= len(e.values) {
		debug.Log("expr", "set: bad offset %d, ignored", offset)
		return
	}
	e.values[offset] = e.scales[offset](value)
}

// Table is the default Hook: modifiers keyed by name, values updated live
// from the note-expression control channel.
type Table struct {
	exprs map[string]*Expression
}

func NewTable() *Table {
	return &Table{
		exprs: map[string]*Expression{
			"accent":  NewExpression(),
			"rubato":  NewExpression(),
			"fermata": NewFermata(),
		},
	}
}

// Get returns a named modifier so controls can be wired to it.
func (t *Table) Get(name string) (*Expression, bool) {
	e, ok := t.exprs[name]
	return e, ok
}

// TargetStart is the note's current target start clock, absolute within the
// part, under the live modifier values.
func (t *Table) TargetStart(n *score.Note, measureStart *big.Rat) *big.Rat {
	start := new(big.Rat).Add(measureStart, n.Start)
	for _, name := range n.Mods {
		e, ok := t.exprs[name]
		if !ok {
			continue
		}
		start = addScaled(start, e.values[OffsetNoteOn], n.Duration)
	}
	return start
}

// Modify computes the final trigger for a note. A "rest" modifier silences
// the note entirely.
func (t *Table) Modify(n *score.Note, measureStart *big.Rat, channel, velocity uint8) (Result, bool) {
	start := new(big.Rat).Add(measureStart, n.Start)
	end := new(big.Rat).Add(start, n.Duration)
	vel := float64(velocity)
	ch := channel

	for _, name := range n.Mods {
		if name == "rest" {
			return Result{}, false
		}
		e, ok := t.exprs[name]
		if !ok {
			debug.Log("expr", "unknown modifier %q on pitch %d, ignored", name, n.Pitch)
			continue
		}
		start = addScaled(start, e.values[OffsetNoteOn], n.Duration)
		if e.fermata {
			if e.values[OffsetNoteOff] != 0 {
				if hold := new(big.Rat).SetFloat64(e.values[OffsetNoteOff]); hold != nil {
					end = hold
				}
			}
		} else {
			end = addScaled(end, e.values[OffsetNoteOff], n.Duration)
		}
		vel += e.values[OffsetVelocity]
		if e.values[OffsetChannel] != 0 {
			ch = uint8(e.values[OffsetChannel])
			if ch > 15 {
				ch = 15
			}
		}
	}

	if vel < 0 {
		vel = 0
	}
	if vel > 127 {
		vel = 127
	}
	return Result{Channel: ch, Start: start, End: end, Velocity: uint8(vel)}, true
}

// addScaled returns base + factor*duration without touching base.
func addScaled(base *big.Rat, factor float64, duration *big.Rat) *big.Rat {
	if factor == 0 {
		return base
	}
	f := new(big.Rat).SetFloat64(factor)
	if f == nil {
		return base
	}
	return new(big.Rat).Add(base, f.Mul(f, duration))
}
