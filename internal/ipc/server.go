package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"
)

// Handler is the compositor side of the server. Both methods may block
// until the compositor loop has processed the request.
type Handler interface {
	// Attach registers a new window session. On success the handler has
	// queued CONNECTED on sess and will own it from then on.
	Attach(ctx context.Context, sess *Session, req ConnectPayload) error
	// Control answers a one-shot control request.
	Control(ctx context.Context, req *Request) *Response
}

type ServerOptions struct {
	SocketPath       string
	Session          SessionOptions
	HandshakeTimeout time.Duration
	Logger           *slog.Logger
}

// Server accepts window sessions and control requests on a unix socket.
type Server struct {
	socketPath string
	listener   net.Listener
	handler    Handler
	opts       ServerOptions
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	sessionsMu sync.Mutex
	sessions   map[*Session]struct{}
	wg         sync.WaitGroup

	shuttingDown bool
	shutdownMu   sync.Mutex
}

// NewServer creates a server; nothing is bound until Start.
func NewServer(handler Handler, opts ServerOptions) (*Server, error) {
	if opts.SocketPath == "" {
		return nil, fmt.Errorf("socket path is required")
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	opts.Session = opts.Session.withDefaults()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		socketPath: opts.SocketPath,
		handler:    handler,
		opts:       opts,
		logger:     logger,
		ctx:        ctx,
		cancel:     cancel,
		sessions:   make(map[*Session]struct{}),
	}, nil
}

// SocketPath returns the bound path.
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Start begins listening for connections. A socket still answered by
// another server is an error; a stale one is replaced.
func (s *Server) Start() error {
	if conn, err := net.DialTimeout("unix", s.socketPath, 200*time.Millisecond); err == nil {
		conn.Close()
		return fmt.Errorf("another server is listening on %s: %w", s.socketPath, ErrResourceUnavailable)
	}
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to create IPC socket: %w", err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		listener.Close()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	s.logger.Info("ipc server listening", "socket", s.socketPath)

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Serve runs the server until ctx is done.
func (s *Server) Serve(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Start(); err != nil {
			return err
		}
	}
	<-ctx.Done()
	s.Stop()
	return ctx.Err()
}

func (s *Server) isShuttingDown() bool {
	s.shutdownMu.Lock()
	defer s.shutdownMu.Unlock()
	return s.shuttingDown
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if s.isShuttingDown() || errors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.Warn("ipc accept error", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConnection(conn)
		}()
	}
}

// handleConnection reads the first line and dispatches on it.
func (s *Server) handleConnection(conn net.Conn) {
	reader := NewLineReader(conn, s.opts.Session.MaxMessageBytes)

	conn.SetReadDeadline(time.Now().Add(s.opts.HandshakeTimeout))
	req, err := reader.NextRequest()
	if err != nil {
		if errors.Is(err, ErrMalformedMessage) {
			s.reply(conn, NewErrorResponse(fmt.Sprintf("Invalid request: %v", err)))
		}
		conn.Close()
		return
	}
	conn.SetReadDeadline(time.Time{})

	if req.Command != CommandConnect {
		defer conn.Close()
		s.reply(conn, s.handler.Control(s.ctx, req))
		return
	}

	var payload ConnectPayload
	if err := req.Decode(&payload); err != nil {
		s.rejectSession(conn, err)
		return
	}

	sess := newSession(conn, reader, s.opts.Session, s.logger)
	if err := s.handler.Attach(s.ctx, sess, payload); err != nil {
		s.rejectSession(conn, err)
		return
	}

	s.track(sess, true)
	defer s.track(sess, false)
	sess.start()
	sess.Wait()
}

func (s *Server) track(sess *Session, add bool) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	if add {
		s.sessions[sess] = struct{}{}
	} else {
		delete(s.sessions, sess)
	}
}

func (s *Server) rejectSession(conn net.Conn, err error) {
	defer conn.Close()
	s.logger.Info("rejected window session", "error", err)
	n, _ := NewNotice(NoticeError, ErrorPayload{Message: err.Error()})
	conn.SetWriteDeadline(time.Now().Add(s.opts.Session.WriteTimeout))
	WriteLine(conn, n)
}

func (s *Server) reply(conn net.Conn, resp *Response) {
	if resp == nil {
		resp = NewErrorResponse("no response")
	}
	conn.SetWriteDeadline(time.Now().Add(s.opts.Session.WriteTimeout))
	if err := WriteLine(conn, resp); err != nil {
		s.logger.Warn("failed to send response", "error", err)
	}
}

// Stop closes the listener, shuts down any sessions still open and waits
// for connection goroutines to finish.
func (s *Server) Stop() {
	s.shutdownMu.Lock()
	if s.shuttingDown {
		s.shutdownMu.Unlock()
		return
	}
	s.shuttingDown = true
	s.shutdownMu.Unlock()

	s.cancel()
	if s.listener != nil {
		s.listener.Close()
	}

	s.sessionsMu.Lock()
	for sess := range s.sessions {
		sess.Close()
	}
	s.sessionsMu.Unlock()

	s.wg.Wait()
	os.Remove(s.socketPath)
}
