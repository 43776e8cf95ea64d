package player

import (
	"math/big"
	"sort"

	"github.com/dangyogi/music-player/score"
	"github.com/dangyogi/music-player/timebase"
)

// Resume locates where a playback run begins: the first note at or after
// the requested song position. It is computed once per seek and consumed
// once when a run starts.
type Resume struct {
	Part    int
	Measure int
	Note    int
	SPP     uint16 // the song position that produced this point
}

// Search resolves a song position (sixteenth-note units) against the score.
// Reports ok=false when the position lies at or past the end of the last
// part.
func Search(s *score.Score, pos uint16) (Resume, bool) {
	target := timebase.SPPToClocks(int(pos))

	// pick the part containing the target
	pi := -1
	base := new(big.Rat)
	for i := range s.Parts {
		dur := s.Parts[i].Duration()
		end := new(big.Rat).Add(base, dur)
		if target.Cmp(end) < 0 {
			pi = i
			break
		}
		base = end
	}
	if pi < 0 {
		return Resume{}, false
	}
	part := &s.Parts[pi]
	local := new(big.Rat).Sub(target, base) // clocks within the part

	mi := findMeasure(part, local)
	m := &part.Measures[mi]

	// first note whose start (measure-relative) reaches the target
	rel := new(big.Rat).Sub(local, m.Start)
	ni := sort.Search(len(m.Notes), func(i int) bool {
		return m.Notes[i].Start.Cmp(rel) >= 0
	})
	return Resume{Part: pi, Measure: mi, Note: ni, SPP: pos}, true
}

// findMeasure locates the measure whose [start, start+duration) contains
// local. It estimates an index from the first measure's length, then walks
// in whichever direction the estimate missed; the walk is cheap because
// measure lengths rarely vary much.
func findMeasure(part *score.Part, local *big.Rat) int {
	measures := part.Measures
	mi := 0
	if first := measures[0].Duration; first.Sign() > 0 {
		est := new(big.Rat).Quo(local, first)
		mi = int(new(big.Int).Quo(est.Num(), est.Denom()).Int64())
		if mi >= len(measures) {
			mi = len(measures) - 1
		}
	}
	for mi > 0 && measures[mi].Start.Cmp(local) > 0 {
		mi--
	}
	for mi < len(measures)-1 && measures[mi].End().Cmp(local) <= 0 {
		mi++
	}
	return mi
}
