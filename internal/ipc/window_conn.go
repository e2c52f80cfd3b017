package ipc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/1broseidon/starry/internal/compositor"
)

// DialOptions tunes the client end of a window session.
type DialOptions struct {
	Timeout         time.Duration
	MaxMessageBytes int
}

func (o DialOptions) withDefaults() DialOptions {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = DefaultMaxMessageBytes
	}
	return o
}

// WindowConn is the client end of a window session.
//
// A background reader collects EVENTS into a local queue, keeps the
// latest GEOMETRY and watches for CLOSED or ERROR. Events that arrive
// after a poll timed out stay queued for the next poll, so each event is
// returned exactly once.
type WindowConn struct {
	conn   net.Conn
	reader *LineReader
	opts   DialOptions

	writeMu sync.Mutex

	mu       sync.Mutex
	pending  []compositor.Event
	seenSeq  uint64
	pollSeq  uint64
	geometry *GeometryPayload
	// configSeq is the Seq of the last CONFIGURE sent.
	configSeq uint64
	err       error

	eventSignal chan struct{}
	closed      chan struct{}
	closeOnce   sync.Once
	readerDone  chan struct{}
}

// DialWindow connects to the server and performs the CONNECT handshake.
// Failures to reach the server, or a refused handshake, wrap
// ErrResourceUnavailable.
func DialWindow(ctx context.Context, socketPath string, req ConnectPayload, opts DialOptions) (*WindowConn, *ConnectedPayload, error) {
	opts = opts.withDefaults()

	d := net.Dialer{Timeout: opts.Timeout}
	conn, err := d.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to %s: %v: %w", socketPath, err, ErrResourceUnavailable)
	}

	connected, reader, err := handshake(conn, req, opts)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}

	wc := &WindowConn{
		conn:        conn,
		reader:      reader,
		opts:        opts,
		eventSignal: make(chan struct{}, 1),
		closed:      make(chan struct{}),
		readerDone:  make(chan struct{}),
	}
	go wc.readLoop()
	return wc, connected, nil
}

func handshake(conn net.Conn, req ConnectPayload, opts DialOptions) (*ConnectedPayload, *LineReader, error) {
	msg, err := NewRequest(CommandConnect, req)
	if err != nil {
		return nil, nil, err
	}

	conn.SetDeadline(time.Now().Add(opts.Timeout))
	defer conn.SetDeadline(time.Time{})

	if err := WriteLine(conn, msg); err != nil {
		return nil, nil, fmt.Errorf("failed to send CONNECT: %v: %w", err, ErrResourceUnavailable)
	}

	reader := NewLineReader(conn, opts.MaxMessageBytes)
	n, err := reader.NextNotice()
	if err != nil {
		return nil, nil, fmt.Errorf("no reply to CONNECT: %v: %w", err, ErrResourceUnavailable)
	}

	switch n.Type {
	case NoticeConnected:
		var connected ConnectedPayload
		if err := n.Decode(&connected); err != nil {
			return nil, nil, err
		}
		return &connected, reader, nil
	case NoticeError:
		var e ErrorPayload
		n.Decode(&e)
		return nil, nil, fmt.Errorf("server refused window: %s: %w", e.Message, ErrResourceUnavailable)
	default:
		return nil, nil, fmt.Errorf("unexpected %s notice during handshake: %w", n.Type, ErrMalformedMessage)
	}
}

func (c *WindowConn) readLoop() {
	defer close(c.readerDone)
	for {
		n, err := c.reader.NextNotice()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
				c.markClosed(fmt.Errorf("server went away: %w", ErrChannelBroken))
			} else {
				c.markClosed(fmt.Errorf("read failed: %v: %w", err, ErrChannelBroken))
			}
			return
		}

		switch n.Type {
		case NoticeEvents:
			var p EventsPayload
			if err := n.Decode(&p); err != nil {
				c.markClosed(fmt.Errorf("%v: %w", err, ErrChannelBroken))
				return
			}
			c.mu.Lock()
			c.pending = append(c.pending, p.Events...)
			c.seenSeq = max(c.seenSeq, p.Seq)
			c.mu.Unlock()
			select {
			case c.eventSignal <- struct{}{}:
			default:
			}
		case NoticeGeometry:
			var p GeometryPayload
			if err := n.Decode(&p); err != nil {
				c.markClosed(fmt.Errorf("%v: %w", err, ErrChannelBroken))
				return
			}
			c.mu.Lock()
			// A notice sent before our last CONFIGURE was applied is stale.
			if p.Configure >= c.configSeq && (c.geometry == nil || p.Serial >= c.geometry.Serial) {
				c.geometry = &p
			}
			c.mu.Unlock()
		case NoticeClosed:
			var p ClosedPayload
			n.Decode(&p)
			c.markClosed(fmt.Errorf("closed by server (%s): %w", p.Reason, ErrChannelBroken))
			return
		case NoticeError:
			var p ErrorPayload
			n.Decode(&p)
			c.markClosed(fmt.Errorf("server error: %s: %w", p.Message, ErrChannelBroken))
			return
		}
	}
}

func (c *WindowConn) markClosed(err error) {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.closed)
		c.conn.Close()
	})
}

// Closed is closed once the session has ended for any reason.
func (c *WindowConn) Closed() <-chan struct{} {
	return c.closed
}

// Err reports why the session ended; nil while it is open.
func (c *WindowConn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *WindowConn) send(cmd CommandType, payload any) error {
	select {
	case <-c.closed:
		return c.Err()
	default:
	}

	req, err := NewRequest(cmd, payload)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.opts.Timeout))
	if err := WriteLine(c.conn, req); err != nil {
		c.markClosed(fmt.Errorf("write failed: %v: %w", err, ErrChannelBroken))
		return c.Err()
	}
	return nil
}

// Update sends window-local pixels.
func (c *WindowConn) Update(p UpdatePayload) error {
	return c.send(CommandUpdate, p)
}

// Configure moves and resizes the server window. Geometry pushed by the
// server before it applies this request is discarded.
func (c *WindowConn) Configure(p ConfigurePayload) error {
	c.mu.Lock()
	c.configSeq++
	p.Seq = c.configSeq
	c.geometry = nil
	c.mu.Unlock()
	return c.send(CommandConfigure, p)
}

func (c *WindowConn) SetTitle(title string) error {
	return c.send(CommandSetTitle, TitlePayload{Title: title})
}

// PollEvents asks for queued events and waits up to timeout for the reply.
// Events from earlier polls that arrived late are included.
func (c *WindowConn) PollEvents(timeout time.Duration) ([]compositor.Event, error) {
	c.mu.Lock()
	c.pollSeq++
	seq := c.pollSeq
	c.mu.Unlock()

	if err := c.send(CommandPollEvents, PollPayload{Seq: seq}); err != nil {
		return c.takeEvents(), err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		c.mu.Lock()
		answered := c.seenSeq >= seq
		c.mu.Unlock()
		if answered {
			return c.takeEvents(), nil
		}

		select {
		case <-c.eventSignal:
		case <-c.closed:
			return c.takeEvents(), c.Err()
		case <-timer.C:
			return c.takeEvents(), nil
		}
	}
}

func (c *WindowConn) takeEvents() []compositor.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	events := c.pending
	c.pending = nil
	return events
}

// TakeGeometry returns the newest geometry pushed by the server since the
// last call.
func (c *WindowConn) TakeGeometry() (GeometryPayload, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.geometry == nil {
		return GeometryPayload{}, false
	}
	g := *c.geometry
	c.geometry = nil
	return g, true
}

// Close sends CLOSE and tears the connection down.
func (c *WindowConn) Close() error {
	select {
	case <-c.closed:
	default:
		c.send(CommandClose, nil)
		c.markClosed(fmt.Errorf("closed locally: %w", ErrChannelBroken))
	}
	<-c.readerDone
	return nil
}
