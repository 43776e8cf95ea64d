// Package expression adjusts the timing and dynamics of individual notes at
// trigger time. The player queries the hook twice per note: once (or more)
// while waiting, because live control changes can move the target start,
// and once just before sending, for the final channel/start/end/velocity.
package expression

import (
	"math"
	"math/big"

	"github.com/dangyogi/music-player/score"
)

// Result is the hook's final answer for one note. Start and End are
// absolute clocks within the part.
type Result struct {
	Channel  uint8
	Start    *big.Rat
	End      *big.Rat
	Velocity uint8
}

// Hook is the expression collaborator. TargetStart may change between calls
// while controls move; Modify returning ok=false marks the note a rest.
type Hook interface {
	TargetStart(n *score.Note, measureStart *big.Rat) *big.Rat
	Modify(n *score.Note, measureStart *big.Rat, channel, velocity uint8) (Result, bool)
}

// Scale functions map a 0-127 controller value onto an adjustment.

func Linear(m, min float64) func(uint8) float64 {
	return func(x uint8) float64 { return m*float64(x) + min }
}

func Exponential(m, min float64) func(uint8) float64 {
	return func(x uint8) float64 { return min * math.Pow(m, float64(x)) }
}
