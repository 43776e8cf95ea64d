package seq

import "sync"

// Conn carries events between the engine and the outside world. Events() is
// the single I/O readiness source the pump blocks on; a closed channel means
// the source is gone, which is fatal. Send buffers; Flush pushes the buffer
// out.
type Conn interface {
	Events() <-chan Event
	Send(Event)
	Flush() error
	Close() error
}

// PipeConn is an in-memory Conn. Tests inject incoming events and inspect
// what was flushed; it also serves as a loopback when two engine halves run
// in one process.
type PipeConn struct {
	in chan Event

	mu       sync.Mutex
	buffered []Event
	flushed  []Event
	closed   bool
}

func NewPipe() *PipeConn {
	return &PipeConn{in: make(chan Event, 64)}
}

func (p *PipeConn) Events() <-chan Event { return p.in }

// Inject delivers an event as if it arrived from the wire.
func (p *PipeConn) Inject(ev Event) { p.in <- ev }

// CloseInput simulates losing the I/O source.
func (p *PipeConn) CloseInput() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.in)
	}
}

func (p *PipeConn) Send(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buffered = append(p.buffered, ev)
}

func (p *PipeConn) Flush() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushed = append(p.flushed, p.buffered...)
	p.buffered = p.buffered[:0]
	return nil
}

// Flushed returns a snapshot of everything flushed so far.
func (p *PipeConn) Flushed() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.flushed))
	copy(out, p.flushed)
	return out
}

// TakeFlushed returns and clears the flushed output.
func (p *PipeConn) TakeFlushed() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.flushed
	p.flushed = nil
	return out
}

func (p *PipeConn) Close() error {
	p.CloseInput()
	return nil
}
