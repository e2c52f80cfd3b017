package ipc

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"
)

// SessionOptions bounds a window session's queues.
type SessionOptions struct {
	InboxCapacity   int
	OutboxCapacity  int
	WriteTimeout    time.Duration
	MaxMessageBytes int
}

func (o SessionOptions) withDefaults() SessionOptions {
	if o.InboxCapacity <= 0 {
		o.InboxCapacity = 64
	}
	if o.OutboxCapacity <= 0 {
		o.OutboxCapacity = 64
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 2 * time.Second
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = DefaultMaxMessageBytes
	}
	return o
}

// Session is the server end of one window connection.
//
// A reader goroutine decodes requests into a bounded inbox and closes it
// when the peer stops sending (EOF, read error or a malformed line). The
// consumer drains the inbox and treats the close as the end of the
// session. A writer goroutine drains a bounded outbox; Send never blocks.
type Session struct {
	conn   net.Conn
	reader *LineReader
	opts   SessionOptions
	logger *slog.Logger

	inbox  chan *Request
	outbox chan []byte
	done   chan struct{}

	mu      sync.Mutex
	wake    chan<- struct{}
	readErr error

	closeOnce sync.Once
	writerWG  sync.WaitGroup
}

func newSession(conn net.Conn, reader *LineReader, opts SessionOptions, logger *slog.Logger) *Session {
	opts = opts.withDefaults()
	return &Session{
		conn:   conn,
		reader: reader,
		opts:   opts,
		logger: logger,
		inbox:  make(chan *Request, opts.InboxCapacity),
		outbox: make(chan []byte, opts.OutboxCapacity),
		done:   make(chan struct{}),
	}
}

// Bind sets the channel poked (without blocking) whenever a request is
// queued or the inbox closes. It must be called before the session starts.
func (s *Session) Bind(wake chan<- struct{}) {
	s.mu.Lock()
	s.wake = wake
	s.mu.Unlock()
}

func (s *Session) notify() {
	s.mu.Lock()
	wake := s.wake
	s.mu.Unlock()
	if wake == nil {
		return
	}
	select {
	case wake <- struct{}{}:
	default:
	}
}

// Inbox yields decoded requests in arrival order. It is closed after the
// last request the peer sent.
func (s *Session) Inbox() <-chan *Request {
	return s.inbox
}

// Err reports why the inbox closed. It is nil for a clean disconnect and
// wraps ErrMalformedMessage when the peer sent garbage. Only meaningful
// after the inbox is closed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readErr
}

// Done is closed once the session is shut down from the server side.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// RemoteAddr describes the peer for logs.
func (s *Session) RemoteAddr() string {
	if addr := s.conn.RemoteAddr(); addr != nil && addr.String() != "" {
		return addr.String()
	}
	return "unix"
}

// Send queues a notice. It returns false when the outbox is full or the
// session is closed; callers treat that as an unresponsive client.
func (s *Session) Send(t NoticeType, payload any) bool {
	n, err := NewNotice(t, payload)
	if err != nil {
		s.logger.Warn("failed to encode notice", "notice", t, "error", err)
		return false
	}
	line, err := EncodeLine(n)
	if err != nil {
		s.logger.Warn("failed to encode notice", "notice", t, "error", err)
		return false
	}

	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.outbox <- line:
		return true
	default:
		return false
	}
}

// Close shuts the session down. Queued notices are written (each under the
// write deadline) before the connection closes. Safe to call repeatedly.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
	})
}

// Wait blocks until the writer has flushed and the connection is closed.
func (s *Session) Wait() {
	s.writerWG.Wait()
}

func (s *Session) start() {
	s.writerWG.Add(1)
	go s.writeLoop()
	s.readLoop()
}

func (s *Session) readLoop() {
	defer func() {
		close(s.inbox)
		s.notify()
	}()

	for {
		req, err := s.reader.NextRequest()
		if err != nil {
			s.setReadErr(err)
			return
		}
		if req.Command == CommandConnect {
			s.setReadErr(fmt.Errorf("CONNECT on an established session: %w", ErrMalformedMessage))
			return
		}
		select {
		case s.inbox <- req:
			s.notify()
		case <-s.done:
			return
		}
		if req.Command == CommandClose {
			return
		}
	}
}

func (s *Session) setReadErr(err error) {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		err = nil
	}
	select {
	case <-s.done:
		// Server-side close; the read error is just the socket going away.
		err = nil
	default:
	}
	s.mu.Lock()
	s.readErr = err
	s.mu.Unlock()
}

func (s *Session) writeLoop() {
	defer s.writerWG.Done()
	defer s.conn.Close()

	for {
		select {
		case line := <-s.outbox:
			if !s.write(line) {
				s.Close()
				return
			}
		case <-s.done:
			for {
				select {
				case line := <-s.outbox:
					if !s.write(line) {
						return
					}
				default:
					return
				}
			}
		}
	}
}

func (s *Session) write(line []byte) bool {
	s.conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
	if _, err := s.conn.Write(line); err != nil {
		s.logger.Debug("session write failed", "peer", s.RemoteAddr(), "error", err)
		return false
	}
	return true
}
