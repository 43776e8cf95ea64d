package timebase

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestTempoCodecRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("every data byte round-trips through bpm", prop.ForAll(
		func(data int) bool {
			return BPMToData(DataToBPM(uint8(data))) == uint8(data)
		},
		gen.IntRange(0, 127),
	))

	properties.Property("decoded tempo stays in [30, 200]", prop.ForAll(
		func(data int) bool {
			bpm := DataToBPM(uint8(data))
			return bpm >= 30 && bpm <= 200
		},
		gen.IntRange(0, 127),
	))

	properties.Property("encoding is monotonic in bpm", prop.ForAll(
		func(a, b int) bool {
			x, y := DataToBPM(uint8(a)), DataToBPM(uint8(b))
			if a <= b {
				return BPMToData(x) <= BPMToData(y)
			}
			return BPMToData(x) >= BPMToData(y)
		},
		gen.IntRange(0, 127),
		gen.IntRange(0, 127),
	))

	properties.TestingRun(t)
}

func TestPPQCodecRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("every multiple of 24 up to 127*24 round-trips", prop.ForAll(
		func(n int) bool {
			ppq := n * ClocksPerQuarter
			data, err := PPQToData(ppq)
			if err != nil {
				return false
			}
			return DataToPPQ(data) == ppq
		},
		gen.IntRange(1, 127),
	))

	properties.Property("non-multiples of 24 are rejected", prop.ForAll(
		func(n int) bool {
			if n%ClocksPerQuarter == 0 {
				n++
			}
			_, err := PPQToData(n)
			return err != nil
		},
		gen.IntRange(1, 3000),
	))

	properties.TestingRun(t)
}

func TestTimeSigCodecRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("beats and beat type survive the data byte", prop.ForAll(
		func(beats int, beatTypeExp int) bool {
			beatType := uint8(1) << uint(beatTypeExp) // 2, 4, 8, 16
			b, bt := DataToTimeSig(TimeSigToData(uint8(beats), beatType))
			return b == uint8(beats) && bt == beatType
		},
		gen.IntRange(1, 15),
		gen.IntRange(1, 4),
	))

	properties.TestingRun(t)
}
