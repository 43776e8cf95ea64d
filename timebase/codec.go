package timebase

import "fmt"

// Wire codecs for the custom System Common messages and the clock-master
// control channel.
//
//	0xF4 - Tempo; one data byte, bpm = 30 + (170/127)*data
//	0xF5 - Time signature; one data byte, (beats<<4) | (beat_type>>1)
//	ppq rides in a Control Change value byte; ppq = data * 24

// DataToBPM decodes a tempo data byte. Linear over [30, 200].
func DataToBPM(data uint8) float64 {
	return 30.0 + 170.0*float64(data)/127.0
}

// BPMToData encodes a tempo between 30 and 200 inclusive, rounding to the
// nearest representable step. Round-trips exactly with DataToBPM for every
// data byte in [0, 127].
func BPMToData(bpm float64) uint8 {
	if bpm < 30 {
		bpm = 30
	}
	if bpm > 200 {
		bpm = 200
	}
	data := (bpm - 30.0) * 127.0 / 170.0
	return uint8(data + 0.5)
}

// PPQToData encodes ppq for the set-ppq route control message.
func PPQToData(ppq int) (uint8, error) {
	if ppq <= 0 || ppq%ClocksPerQuarter != 0 {
		return 0, fmt.Errorf("timebase: ppq %d must be a positive multiple of %d", ppq, ClocksPerQuarter)
	}
	data := ppq / ClocksPerQuarter
	if data > 127 {
		return 0, fmt.Errorf("timebase: ppq %d does not fit in a data byte", ppq)
	}
	return uint8(data), nil
}

// DataToPPQ decodes a set-ppq data byte.
func DataToPPQ(data uint8) int {
	return int(data) * ClocksPerQuarter
}

// TimeSigToData packs a time signature into one data byte. beats must fit
// in 4 bits and beatType must be a power of two <= 16.
func TimeSigToData(beats, beatType uint8) uint8 {
	return (beats << 4) | (beatType >> 1)
}

// DataToTimeSig unpacks a time signature data byte, e.g. (6, 8).
func DataToTimeSig(data uint8) (beats, beatType uint8) {
	return data >> 4, (data & 0xF) << 1
}
