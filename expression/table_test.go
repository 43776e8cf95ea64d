package expression

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dangyogi/music-player/score"
)

func testNote(mods ...string) *score.Note {
	return &score.Note{
		Start:    big.NewRat(6, 1),
		Duration: big.NewRat(12, 1),
		Pitch:    60,
		Mods:     mods,
	}
}

func ratFloat(r *big.Rat) float64 {
	f, _ := r.Float64()
	return f
}

func TestModifyWithoutModsPassesThrough(t *testing.T) {
	assert := assert.New(t)
	table := NewTable()

	res, ok := table.Modify(testNote(), big.NewRat(24, 1), 2, 43)
	require.True(t, ok)
	assert.Equal(uint8(2), res.Channel)
	assert.Equal(uint8(43), res.Velocity)
	assert.Equal(0, res.Start.Cmp(big.NewRat(30, 1)))
	assert.Equal(0, res.End.Cmp(big.NewRat(42, 1)))
}

func TestRestSilencesTheNote(t *testing.T) {
	table := NewTable()
	_, ok := table.Modify(testNote("rest"), new(big.Rat), 0, 43)
	assert.False(t, ok)
}

func TestUnknownModifierIgnored(t *testing.T) {
	table := NewTable()
	res, ok := table.Modify(testNote("sforzandissimo"), new(big.Rat), 0, 43)
	require.True(t, ok)
	assert.Equal(t, uint8(43), res.Velocity)
}

func TestAccentMovesStartAndVelocity(t *testing.T) {
	assert := assert.New(t)
	table := NewTable()
	accent, ok := table.Get("accent")
	require.True(t, ok)

	accent.Set(OffsetNoteOn, 127)   // +0.7613 of the duration
	accent.Set(OffsetVelocity, 127) // +40.645

	n := testNote("accent")
	res, ok := table.Modify(n, new(big.Rat), 0, 43)
	require.True(t, ok)

	wantShift := (0.0119*127 - 0.75) * 12
	assert.InDelta(6+wantShift, ratFloat(res.Start), 1e-6)
	assert.Equal(uint8(83), res.Velocity)

	// TargetStart tracks the live value the same way
	assert.InDelta(6+wantShift, ratFloat(table.TargetStart(n, new(big.Rat))), 1e-6)
}

func TestVelocityClamped(t *testing.T) {
	assert := assert.New(t)
	table := NewTable()
	accent, _ := table.Get("accent")

	accent.Set(OffsetVelocity, 127)
	res, ok := table.Modify(testNote("accent"), new(big.Rat), 0, 120)
	require.True(t, ok)
	assert.Equal(uint8(127), res.Velocity)

	accent.Set(OffsetVelocity, 0) // -40
	res, ok = table.Modify(testNote("accent"), new(big.Rat), 0, 20)
	require.True(t, ok)
	assert.Equal(uint8(0), res.Velocity)
}

func TestChannelOverride(t *testing.T) {
	table := NewTable()
	accent, _ := table.Get("accent")
	accent.Set(OffsetChannel, 5)

	res, ok := table.Modify(testNote("accent"), new(big.Rat), 0, 43)
	require.True(t, ok)
	assert.Equal(t, uint8(5), res.Channel)
}

func TestFermataHoldsTheEndAbsolutely(t *testing.T) {
	assert := assert.New(t)
	table := NewTable()
	fermata, _ := table.Get("fermata")

	// without a hold value the end is untouched
	res, ok := table.Modify(testNote("fermata"), new(big.Rat), 0, 43)
	require.True(t, ok)
	assert.Equal(0, res.End.Cmp(big.NewRat(18, 1)))

	fermata.Set(OffsetNoteOff, 127)
	res, ok = table.Modify(testNote("fermata"), new(big.Rat), 0, 43)
	require.True(t, ok)
	// the hold value replaces the end rather than offsetting it
	assert.InDelta(0.0119*127-0.75, ratFloat(res.End), 1e-6)
}

func TestScaleFunctions(t *testing.T) {
	assert := assert.New(t)

	lin := Linear(2, -10)
	assert.InDelta(-10.0, lin(0), 1e-9)
	assert.InDelta(244.0, lin(127), 1e-9)

	exp := Exponential(1.01506, 30)
	assert.InDelta(30.0, exp(0), 1e-9)
	assert.Greater(exp(127), exp(0))
}
