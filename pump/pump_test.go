package pump

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dangyogi/music-player/seq"
)

func newTestPump() (*Pump, *seq.PipeConn, *seq.Registry) {
	conn := seq.NewPipe()
	reg := seq.NewRegistry(seq.NewQueue("master", 24))
	return New(conn, reg), conn, reg
}

func TestBatchDispatchedInArrivalOrder(t *testing.T) {
	p, conn, _ := newTestPump()

	var got []seq.EventType
	p.SetHandler(func(ev seq.Event) { got = append(got, ev.Type) })

	// a Stop immediately followed by an SPP must be applied in order
	conn.Inject(seq.Stop())
	conn.Inject(seq.SongPos(32))
	conn.Inject(seq.Continue())

	require.NoError(t, p.Wait(0))
	assert.Equal(t, []seq.EventType{seq.EventStop, seq.EventSongPos, seq.EventContinue}, got)
}

func TestDeferRunsAfterBatch(t *testing.T) {
	p, conn, _ := newTestPump()

	var order []string
	p.SetHandler(func(ev seq.Event) {
		order = append(order, "event")
		p.Defer(func() { order = append(order, "post") })
	})

	conn.Inject(seq.Start())
	conn.Inject(seq.Stop())

	require.NoError(t, p.Wait(0))
	assert.Equal(t, []string{"event", "event", "post", "post"}, order)
}

func TestNestedWaitRejected(t *testing.T) {
	p, conn, _ := newTestPump()

	var nested error
	p.SetHandler(func(ev seq.Event) { nested = p.Wait(0) })

	conn.Inject(seq.Start())
	require.NoError(t, p.Wait(0))
	assert.ErrorIs(t, nested, ErrNested)
}

func TestSourceLostIsFatal(t *testing.T) {
	p, conn, _ := newTestPump()
	p.SetHandler(func(seq.Event) {})

	conn.CloseInput()
	assert.ErrorIs(t, p.Wait(0), ErrSourceLost)
}

func TestDueEventsDeliveredToConn(t *testing.T) {
	p, conn, reg := newTestPump()
	p.SetHandler(func(seq.Event) {})

	master := reg.Master()
	master.Start()
	master.Schedule(seq.NoteOn(0, 60, 100).At(0, 1))
	master.Schedule(seq.NoteOn(0, 62, 100).At(1<<40, 1)) // far future

	require.NoError(t, p.Wait(0))
	flushed := conn.TakeFlushed()
	if assert.Len(t, flushed, 1) {
		assert.Equal(t, uint8(60), flushed[0].Key)
	}
	assert.Equal(t, 1, master.Pending())
}

func TestWaitTickReachesDeadline(t *testing.T) {
	p, _, reg := newTestPump()
	p.SetHandler(func(seq.Event) {})

	master := reg.Master()
	master.SetTempo(600) // 240 ticks per second, keeps the test short
	master.Start()

	require.NoError(t, p.WaitTick(24, Forever, nil))
	assert.GreaterOrEqual(t, master.Position(), int64(24))
}

func TestWaitTickCancelUnwindsEarly(t *testing.T) {
	p, _, reg := newTestPump()
	p.SetHandler(func(seq.Event) {})
	reg.Master().Start()

	done := make(chan error, 1)
	go func() {
		// deadline is hours away; only the cancel can end this promptly
		done <- p.WaitTick(1<<40, Forever, func() bool { return true })
	}()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("cancelled WaitTick did not return")
	}
}

func TestWaitTickFallbackWhileStopped(t *testing.T) {
	p, _, _ := newTestPump()
	p.SetHandler(func(seq.Event) {})

	// queue never starts: the wall-clock fallback bounds the wait
	start := time.Now()
	require.NoError(t, p.WaitTick(100, 20*time.Millisecond, nil))
	assert.Less(t, time.Since(start), time.Second)
}

func TestPulseHookCapsTheWait(t *testing.T) {
	p, _, reg := newTestPump()
	p.SetHandler(func(seq.Event) {})
	reg.Master().Start()

	calls := 0
	p.SetPulseHook(func() (time.Duration, bool) {
		calls++
		return time.Millisecond, true
	})

	require.NoError(t, p.Wait(30*time.Millisecond))
	// the hook's 1ms ceiling forces many wakes inside one 30ms Wait
	assert.Greater(t, calls, 2)
}
