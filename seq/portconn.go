package seq

import (
	"fmt"
	"strings"

	gomidi "gitlab.com/gomidi/midi/v2"

	"github.com/dangyogi/music-player/debug"
)

// PortConn is a Conn over a pair of MIDI ports via gomidi. Incoming channel
// voice messages are stamped with the connection's tag so the clock master
// can route them; raw MIDI has no tick field, so wire events always arrive
// unscheduled.
type PortConn struct {
	tag        Tag
	in         chan Event
	stopListen func()
	sender     func(gomidi.Message) error
	buf        []gomidi.Message
}

// OpenPort connects to the first in/out ports whose names contain the given
// substrings.
func OpenPort(inName, outName string, tag Tag) (*PortConn, error) {
	p := &PortConn{tag: tag, in: make(chan Event, 64)}

	var outErr error
	for _, port := range gomidi.GetOutPorts() {
		if strings.Contains(port.String(), outName) {
			p.sender, outErr = gomidi.SendTo(port)
			break
		}
	}
	if outErr != nil {
		return nil, fmt.Errorf("seq: open out port %q: %w", outName, outErr)
	}
	if p.sender == nil {
		return nil, fmt.Errorf("seq: out port %q not found", outName)
	}

	for _, port := range gomidi.GetInPorts() {
		if strings.Contains(port.String(), inName) {
			stop, err := gomidi.ListenTo(port, func(msg gomidi.Message, timestampms int32) {
				ev, ok := DecodeMessage(msg, tag)
				if !ok {
					debug.Log("conn", "unsupported message %v, ignored", msg)
					return
				}
				select {
				case p.in <- ev:
				default:
					debug.Log("conn", "input overrun, dropped %s", ev.Type)
				}
			})
			if err != nil {
				return nil, fmt.Errorf("seq: listen on %q: %w", inName, err)
			}
			p.stopListen = stop
			break
		}
	}
	if p.stopListen == nil {
		return nil, fmt.Errorf("seq: in port %q not found", inName)
	}
	return p, nil
}

func (p *PortConn) Events() <-chan Event { return p.in }

// Inject feeds a locally-generated event into the input stream as if it had
// arrived on the wire. Safe to call from other goroutines.
func (p *PortConn) Inject(ev Event) {
	select {
	case p.in <- ev:
	default:
		debug.Log("conn", "input overrun, dropped injected %s", ev.Type)
	}
}

func (p *PortConn) Send(ev Event) {
	msg, ok := EncodeMessage(ev)
	if !ok {
		debug.Log("conn", "cannot encode %s for the wire, dropped", ev.Type)
		return
	}
	p.buf = append(p.buf, msg)
}

func (p *PortConn) Flush() error {
	for _, msg := range p.buf {
		if err := p.sender(msg); err != nil {
			return fmt.Errorf("seq: send: %w", err)
		}
	}
	p.buf = p.buf[:0]
	return nil
}

func (p *PortConn) Close() error {
	if p.stopListen != nil {
		p.stopListen()
		p.stopListen = nil
	}
	close(p.in)
	return nil
}

// Custom System Common status bytes (the two the MIDI spec leaves undefined).
const (
	tempoStatus   = 0xF4
	timeSigStatus = 0xF5
)

// EncodeMessage maps an Event onto wire bytes. Clock pulses and transport
// are System Real Time; tempo and time signature use the custom System
// Common codes.
func EncodeMessage(ev Event) (gomidi.Message, bool) {
	switch ev.Type {
	case EventClock:
		return gomidi.TimingClock(), true
	case EventStart:
		return gomidi.Start(), true
	case EventContinue:
		return gomidi.Continue(), true
	case EventStop:
		return gomidi.Stop(), true
	case EventSongPos:
		return gomidi.SPP(ev.Pos), true
	case EventSongSelect:
		return gomidi.SongSelect(uint8(ev.Pos)), true
	case EventTempo:
		return gomidi.Message([]byte{tempoStatus, ev.Data}), true
	case EventTimeSig:
		return gomidi.Message([]byte{timeSigStatus, ev.Data}), true
	case EventNoteOn:
		return gomidi.NoteOn(ev.Channel, ev.Key, ev.Velocity), true
	case EventNoteOff:
		return gomidi.NoteOff(ev.Channel, ev.Key), true
	case EventControlChange:
		return gomidi.ControlChange(ev.Channel, ev.Param, ev.Value), true
	}
	return nil, false
}

// DecodeMessage maps wire bytes onto an Event, stamping channel voice
// messages with the connection tag.
func DecodeMessage(msg gomidi.Message, tag Tag) (Event, bool) {
	raw := []byte(msg)
	if len(raw) == 2 && raw[0] == tempoStatus {
		return Tempo(raw[1]), true
	}
	if len(raw) == 2 && raw[0] == timeSigStatus {
		return TimeSig(raw[1]), true
	}

	var (
		channel, key, velocity uint8
		param, value           uint8
		song                   uint8
		pos                    uint16
	)
	switch {
	case msg.Is(gomidi.TimingClockMsg):
		return Clock(), true
	case msg.Is(gomidi.StartMsg):
		return Start(), true
	case msg.Is(gomidi.ContinueMsg):
		return Continue(), true
	case msg.Is(gomidi.StopMsg):
		return Stop(), true
	case msg.GetSPP(&pos):
		return SongPos(pos), true
	case msg.GetSongSelect(&song):
		return SongSelect(uint16(song)), true
	case msg.GetNoteOn(&channel, &key, &velocity):
		ev := NoteOn(channel, key, velocity)
		ev.Tag = tag
		return ev, true
	case msg.GetNoteOff(&channel, &key, &velocity):
		ev := NoteOff(channel, key)
		ev.Tag = tag
		return ev, true
	case msg.GetControlChange(&channel, &param, &value):
		ev := ControlChange(channel, param, value)
		ev.Tag = tag
		return ev, true
	}
	return Event{}, false
}
