// Package seq provides the sequencer primitives the engine is built on: a
// flat event type covering the transport protocol, tick-scheduled queues
// with per-queue tempo, and connections that carry events to and from MIDI
// ports.
package seq

// EventType enumerates every message kind the engine handles. Handlers
// switch over this exhaustively; there are no dynamic dispatch tables.
type EventType uint8

const (
	EventClock EventType = iota
	EventStart
	EventContinue
	EventStop
	EventSongPos
	EventSongSelect
	EventTempo    // System Common 0xF4, one data byte
	EventTimeSig  // System Common 0xF5, one data byte
	EventNoteOn
	EventNoteOff
	EventControlChange
)

var eventTypeNames = [...]string{
	"Clock", "Start", "Continue", "Stop", "SongPos", "SongSelect",
	"Tempo", "TimeSig", "NoteOn", "NoteOff", "ControlChange",
}

func (t EventType) String() string {
	if int(t) < len(eventTypeNames) {
		return eventTypeNames[t]
	}
	return "Unknown"
}

// Tag identifies a downstream consumer and its dedicated queue. 0 = untagged.
type Tag uint8

// Route control rides on a reserved Control Change channel so it can share
// the wire with ordinary musical traffic.
const (
	ClockMasterChannel = 15   // reserved channel for route control
	PPQParam           = 0x66 // CC param: set ppq for the sender's tag, ppq = value*24
	CloseQueueParam    = 0x67 // CC param: close the sender's tag's queue
)

// Event is one MIDI-ish event. Which fields are meaningful depends on Type;
// Tick/Scheduled and Tag apply to any type that travels through a queue.
type Event struct {
	Type      EventType
	Tick      int64 // absolute queue tick the event is due at
	Scheduled bool  // Tick is meaningful
	Tag       Tag

	Channel  uint8
	Key      uint8
	Velocity uint8

	Param uint8 // ControlChange
	Value uint8

	Data uint8  // Tempo / TimeSig data byte
	Pos  uint16 // 14-bit song position, or song number for SongSelect
}

// At returns a copy of the event scheduled at the given absolute tick.
func (e Event) At(tick int64, tag Tag) Event {
	e.Tick = tick
	e.Scheduled = true
	e.Tag = tag
	return e
}

func Clock() Event                 { return Event{Type: EventClock} }
func Start() Event                 { return Event{Type: EventStart} }
func Continue() Event              { return Event{Type: EventContinue} }
func Stop() Event                  { return Event{Type: EventStop} }
func SongPos(pos uint16) Event     { return Event{Type: EventSongPos, Pos: pos} }
func SongSelect(song uint16) Event { return Event{Type: EventSongSelect, Pos: song} }
func Tempo(data uint8) Event       { return Event{Type: EventTempo, Data: data} }

func TimeSig(data uint8) Event { return Event{Type: EventTimeSig, Data: data} }

func NoteOn(channel, key, velocity uint8) Event {
	return Event{Type: EventNoteOn, Channel: channel, Key: key, Velocity: velocity}
}

func NoteOff(channel, key uint8) Event {
	return Event{Type: EventNoteOff, Channel: channel, Key: key}
}

func ControlChange(channel, param, value uint8) Event {
	return Event{Type: EventControlChange, Channel: channel, Param: param, Value: value}
}

// AllNotesOff is CC 123 on the given channel.
func AllNotesOff(channel uint8) Event {
	return ControlChange(channel, 123, 0)
}
