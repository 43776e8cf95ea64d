// Package score holds the read-only musical data the player consumes.
// Times are fractional clocks (24 per quarter note) carried as *big.Rat;
// the scheduler rounds to queue ticks only when an event is handed to the
// transport.
package score

import (
	"fmt"
	"math/big"
)

type TimeSig struct {
	Beats    uint8
	BeatType uint8
}

// Note is one sounding (or ignored) note. Start and Duration are clocks
// relative to the containing measure. The engine never mutates musical
// content; it only reads these fields and consults the expression hook.
type Note struct {
	Start    *big.Rat
	Duration *big.Rat
	Pitch    uint8
	Ignore   bool
	Grace    bool
	Mods     []string // expression modifier names, applied by the hook
}

// Measure is one measure of one part. Notes are sorted by ascending Start;
// ties among equal starts keep the provider's order.
type Measure struct {
	Number   string
	Index    int
	Start    *big.Rat // clocks from the start of the part
	Duration *big.Rat // clocks
	Time     *TimeSig // set only where the score declares one
	Tempo    float64  // nonzero where the score declares one
	Notes    []Note
}

// End is the measure's exclusive end in clocks.
func (m *Measure) End() *big.Rat {
	return new(big.Rat).Add(m.Start, m.Duration)
}

type Part struct {
	ID       string
	Measures []Measure
}

// Duration is the part's total length in clocks.
func (p *Part) Duration() *big.Rat {
	if len(p.Measures) == 0 {
		return new(big.Rat)
	}
	return p.Measures[len(p.Measures)-1].End()
}

type Score struct {
	Parts []Part
}

// Check reports structural defects: measures whose start does not follow
// from the previous measure's extent. Defects are collaborator bugs; the
// player logs them and proceeds best-effort rather than crash the transport.
func (s *Score) Check() []string {
	var issues []string
	for pi := range s.Parts {
		part := &s.Parts[pi]
		for mi := 1; mi < len(part.Measures); mi++ {
			prev, cur := &part.Measures[mi-1], &part.Measures[mi]
			if prev.End().Cmp(cur.Start) != 0 {
				issues = append(issues, fmt.Sprintf(
					"part %s measure %s: start %s != previous end %s",
					part.ID, cur.Number, cur.Start.RatString(), prev.End().RatString()))
			}
		}
	}
	return issues
}
