package clockmaster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dangyogi/music-player/seq"
	"github.com/dangyogi/music-player/timebase"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1000, 0)}
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestMaster(t *testing.T) (*Master, *seq.PipeConn, *fakeClock) {
	t.Helper()
	conn := seq.NewPipe()
	m, err := New(conn, Config{PPQ: 48, Latency: 5 * time.Millisecond})
	require.NoError(t, err)
	clk := newFakeClock()
	m.Registry().Master().SetClock(clk.now)
	return m, conn, clk
}

// drainPulses pops everything due on the authoritative queue and returns the
// pulse ticks.
func drainPulses(m *Master) []int64 {
	var ticks []int64
	for _, ev := range m.Registry().Master().PopDue() {
		if ev.Type == seq.EventClock {
			ticks = append(ticks, ev.Tick)
		}
	}
	return ticks
}

func TestPulsesEvenlySpacedAcrossTempoChanges(t *testing.T) {
	assert := assert.New(t)
	m, _, clk := newTestMaster(t)

	m.Handle(seq.Start())

	var ticks []int64
	for i := 0; i < 6; i++ {
		m.EmitPulses()
		clk.advance(200 * time.Millisecond)
		ticks = append(ticks, drainPulses(m)...)
		if i == 2 {
			m.SetTempo(64.3)
		}
	}

	require.NotEmpty(t, ticks)
	assert.Equal(int64(0), ticks[0])
	for i := 1; i < len(ticks); i++ {
		// strictly increasing, spaced by exactly ticksPerClock
		assert.Equal(ticks[i-1]+2, ticks[i])
	}
}

func TestPulseLookAheadBounded(t *testing.T) {
	assert := assert.New(t)
	m, _, _ := newTestMaster(t)

	m.Handle(seq.Start())
	m.EmitPulses()

	queue := m.Registry().Master()
	pending := queue.Pending()
	assert.Equal(DefaultClockAdvance, pending)

	// nothing more is enqueued while enough look-ahead remains
	m.EmitPulses()
	assert.Equal(pending, queue.Pending())
}

func TestRouteLifecycle(t *testing.T) {
	assert := assert.New(t)
	m, conn, _ := newTestMaster(t)

	data, err := timebase.PPQToData(96)
	require.NoError(t, err)
	cc := seq.ControlChange(seq.ClockMasterChannel, seq.PPQParam, data)
	cc.Tag = 5
	m.Handle(cc)

	q, ok := m.Registry().Route(5)
	require.True(t, ok)
	assert.Equal(96, q.PPQ())

	// route control is consumed, never forwarded downstream
	conn.Flush()
	assert.Empty(conn.TakeFlushed())

	closeCC := seq.ControlChange(seq.ClockMasterChannel, seq.CloseQueueParam, 0)
	closeCC.Tag = 5
	m.Handle(closeCC)
	_, ok = m.Registry().Route(5)
	assert.False(ok)

	// closing an unknown tag is a no-op
	m.Handle(closeCC)
}

func TestTempoChangeFansOutToEveryRoute(t *testing.T) {
	assert := assert.New(t)
	m, conn, _ := newTestMaster(t)
	m.CreateRoute(5, 24)

	m.Handle(seq.Tempo(127))

	want := timebase.DataToBPM(127)
	assert.InDelta(want, m.BPM(), 1e-9)
	q, _ := m.Registry().Route(5)
	assert.InDelta(want, q.BPM(), 1e-9)

	// tempo is forwarded so downstream stays in step
	conn.Flush()
	flushed := conn.TakeFlushed()
	require.Len(t, flushed, 1)
	assert.Equal(seq.EventTempo, flushed[0].Type)
	assert.Equal(uint8(127), flushed[0].Data)
}

func TestTransportAppliedThenForwarded(t *testing.T) {
	assert := assert.New(t)
	m, conn, clk := newTestMaster(t)
	m.CreateRoute(5, 24)

	m.Handle(seq.Start())
	assert.True(m.Running())
	q, _ := m.Registry().Route(5)
	assert.True(q.Running())

	clk.advance(time.Second)
	m.Handle(seq.Stop())
	assert.False(m.Running())
	assert.False(q.Running())

	conn.Flush()
	flushed := conn.TakeFlushed()
	// Start, then all-notes-off on all 16 channels, then the forwarded Stop
	require.Len(t, flushed, 18)
	assert.Equal(seq.EventStart, flushed[0].Type)
	for i := 1; i <= 16; i++ {
		assert.Equal(seq.EventControlChange, flushed[i].Type)
		assert.Equal(uint8(123), flushed[i].Param)
	}
	assert.Equal(seq.EventStop, flushed[17].Type)
}

func TestRelaySchedulesTaggedEvents(t *testing.T) {
	assert := assert.New(t)
	m, conn, _ := newTestMaster(t)
	m.CreateRoute(5, 24)

	// tagged and ticked: held on the route queue until due
	m.Handle(seq.NoteOn(0, 60, 100).At(10, 5))
	q, _ := m.Registry().Route(5)
	assert.Equal(1, q.Pending())
	conn.Flush()
	assert.Empty(conn.TakeFlushed())

	// unrouted tag: forwarded directly rather than dropped
	m.Handle(seq.NoteOn(0, 62, 100).At(10, 9))
	conn.Flush()
	flushed := conn.TakeFlushed()
	require.Len(t, flushed, 1)
	assert.Equal(uint8(62), flushed[0].Key)

	// untagged events pass straight through
	m.Handle(seq.NoteOn(1, 64, 100))
	conn.Flush()
	flushed = conn.TakeFlushed()
	require.Len(t, flushed, 1)
	assert.Equal(uint8(64), flushed[0].Key)
}
