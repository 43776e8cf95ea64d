// Package timebase holds the unit conversions shared by the whole engine.
//
// Units:
//
//	"clock" means standard MIDI CLOCK pulses, always 24 per quarter note.
//	"tick" means queue ticks; ppq/24 ticks per clock.
//	"ppq" means pulses (ticks) per quarter note, always a multiple of 24.
//	"spp" means song position pointer units; one per 16th note, so 6 clocks.
//	"division" means the score's native subdivision, which varies per score.
//
// Musical time is carried as fractional clocks (*big.Rat) end to end; it is
// rounded to an integer tick only at the point an event is handed to a queue.
package timebase

import (
	"fmt"
	"math/big"
	"time"
)

const (
	ClocksPerQuarter = 24
	ClocksPerSPP     = 6 // 16th note
)

// Clocks builds a fractional clock value n/d.
func Clocks(n, d int64) *big.Rat {
	return big.NewRat(n, d)
}

// TicksPerClock validates ppq and returns ppq/24.
func TicksPerClock(ppq int) (int64, error) {
	if ppq <= 0 || ppq%ClocksPerQuarter != 0 {
		return 0, fmt.Errorf("timebase: ppq %d must be a positive multiple of %d", ppq, ClocksPerQuarter)
	}
	return int64(ppq / ClocksPerQuarter), nil
}

// ToTicks converts fractional clocks to an integer tick count, rounding to
// the nearest tick with halves away from zero. This is the only place
// musical time loses precision.
func ToTicks(clocks *big.Rat, ticksPerClock int64) int64 {
	r := new(big.Rat).Mul(clocks, new(big.Rat).SetInt64(ticksPerClock))
	num := new(big.Int).Set(r.Num())
	den := r.Denom() // always > 0

	quo := new(big.Int)
	rem := new(big.Int)
	quo.QuoRem(num, den, rem) // truncates toward zero, rem has num's sign

	rem.Abs(rem)
	rem.Lsh(rem, 1) // 2*|rem|
	if rem.Cmp(den) >= 0 {
		if num.Sign() < 0 {
			quo.Sub(quo, big.NewInt(1))
		} else {
			quo.Add(quo, big.NewInt(1))
		}
	}
	return quo.Int64()
}

// SPPToClocks converts a song position (16th notes) to clocks.
func SPPToClocks(spp int) *big.Rat {
	return big.NewRat(int64(spp)*ClocksPerSPP, 1)
}

// ClocksToSPP converts fractional clocks to song position units (may be
// fractional; positions between 16ths do not round here).
func ClocksToSPP(clocks *big.Rat) *big.Rat {
	return new(big.Rat).Quo(clocks, big.NewRat(ClocksPerSPP, 1))
}

// SecsPerTick is the wall-clock period of one queue tick at the given tempo.
func SecsPerTick(bpm float64, ppq int) float64 {
	return 60.0 / (bpm * float64(ppq))
}

// LatencyTicks is the number of ticks covering the latency period at the
// given tempo, rounded up. Recompute on every tempo change.
func LatencyTicks(latency time.Duration, bpm float64, ppq int) int64 {
	ticks := latency.Seconds() * bpm * float64(ppq) / 60.0
	n := int64(ticks)
	if float64(n) < ticks {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}
