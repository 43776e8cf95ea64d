package seq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomidi "gitlab.com/gomidi/midi/v2"
)

func TestCustomSystemCommonWireFormat(t *testing.T) {
	assert := assert.New(t)

	msg, ok := EncodeMessage(Tempo(85))
	require.True(t, ok)
	assert.Equal([]byte{0xF4, 85}, []byte(msg))

	msg, ok = EncodeMessage(TimeSig(0x64)) // 6/8
	require.True(t, ok)
	assert.Equal([]byte{0xF5, 0x64}, []byte(msg))

	ev, ok := DecodeMessage(gomidi.Message([]byte{0xF4, 85}), 0)
	require.True(t, ok)
	assert.Equal(EventTempo, ev.Type)
	assert.Equal(uint8(85), ev.Data)

	ev, ok = DecodeMessage(gomidi.Message([]byte{0xF5, 0x64}), 0)
	require.True(t, ok)
	assert.Equal(EventTimeSig, ev.Type)
	assert.Equal(uint8(0x64), ev.Data)
}

func TestDecodeStampsChannelVoiceWithTag(t *testing.T) {
	assert := assert.New(t)

	ev, ok := DecodeMessage(gomidi.NoteOn(2, 60, 100), 7)
	require.True(t, ok)
	assert.Equal(EventNoteOn, ev.Type)
	assert.Equal(Tag(7), ev.Tag)
	assert.False(ev.Scheduled) // raw MIDI carries no tick

	ev, ok = DecodeMessage(gomidi.Start(), 7)
	require.True(t, ok)
	assert.Equal(EventStart, ev.Type)
	assert.Equal(Tag(0), ev.Tag) // transport is never tagged
}

func TestTransportRoundTripsThroughTheWire(t *testing.T) {
	for _, ev := range []Event{
		Clock(), Start(), Continue(), Stop(),
		SongPos(16383), SongSelect(5),
		NoteOn(3, 64, 90), NoteOff(3, 64),
		ControlChange(15, PPQParam, 40),
	} {
		msg, ok := EncodeMessage(ev)
		require.True(t, ok, "%s", ev.Type)
		back, ok := DecodeMessage(msg, 0)
		require.True(t, ok, "%s", ev.Type)
		assert.Equal(t, ev.Type, back.Type)
	}
}
