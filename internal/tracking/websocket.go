package tracking

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/cookify/internal/log"
)

// WebSocketSource reads frames from the Leap Motion tracking service.
// A reader goroutine decodes messages into a bounded queue. Poll hands out
// the newest queued frame and discards older ones. When the connection
// drops, the next Poll dials again.
type WebSocketSource struct {
	config Config
	dialer *websocket.Dialer
	logger *slog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	frames chan *Frame
	errs   chan connError

	closed    chan struct{}
	closeOnce sync.Once
}

// connError is a read failure on a specific connection.
type connError struct {
	conn *websocket.Conn
	err  error
}

// NewWebSocketSource creates a source for the given configuration.
// No connection is made until the first Poll.
func NewWebSocketSource(cfg Config) *WebSocketSource {
	def := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = def.URL
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = def.PollTimeout
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = def.Buffer
	}

	return &WebSocketSource{
		config: cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
		logger: log.With("component", "tracking", "url", cfg.URL),
		frames: make(chan *Frame, cfg.Buffer),
		errs:   make(chan connError, 1),
		closed: make(chan struct{}),
	}
}

// Poll returns the next frame, or nil if none arrived within timeout.
// A non-positive timeout uses the configured PollTimeout.
func (s *WebSocketSource) Poll(ctx context.Context, timeout time.Duration) (*Frame, error) {
	select {
	case <-s.closed:
		return nil, ErrClosed
	default:
	}

	if timeout <= 0 {
		timeout = s.config.PollTimeout
	}

	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case f := <-s.frames:
			return s.newest(f), nil
		case ce := <-s.errs:
			if !s.isCurrent(ce.conn) {
				continue
			}
			return nil, ce.err
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.closed:
			return nil, ErrClosed
		case <-timer.C:
			return nil, nil
		}
	}
}

// newest returns the last queued frame, or f when the queue is empty.
func (s *WebSocketSource) newest(f *Frame) *Frame {
	for {
		select {
		case next := <-s.frames:
			f = next
		default:
			return f
		}
	}
}

// isCurrent reports whether conn is the live connection, or whether it was
// the last one and no redial has happened since.
func (s *WebSocketSource) isCurrent(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn == nil || s.conn == conn
}

// ensureConnected dials the service if there is no live connection.
func (s *WebSocketSource) ensureConnected(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		return nil
	}

	conn, _, err := s.dialer.DialContext(ctx, s.config.URL, nil)
	if err != nil {
		return fmt.Errorf("connect to tracking service: %w", err)
	}

	// Keep receiving frames when the app is not focused, and skip the
	// service's built-in gesture events.
	for _, msg := range []map[string]bool{
		{"background": true},
		{"enableGestures": false},
	} {
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			return fmt.Errorf("configure tracking service: %w", err)
		}
	}

	// Failures of the previous connection no longer apply.
	select {
	case <-s.errs:
	default:
	}

	s.conn = conn
	s.logger.Info("connected to tracking service")
	go s.readLoop(conn)
	return nil
}

// readLoop decodes messages until the connection fails.
func (s *WebSocketSource) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			s.dropConn(conn)
			select {
			case <-s.closed:
			default:
				s.logger.Warn("tracking connection lost", "error", err)
				select {
				case s.errs <- connError{conn: conn, err: fmt.Errorf("read tracking frame: %w", err)}:
				default:
				}
			}
			return
		}

		frame, err := DecodeFrame(data)
		if err != nil {
			s.logger.Debug("skipping undecodable message", "error", err)
			continue
		}
		if frame == nil {
			continue
		}

		s.enqueue(frame)
	}
}

// enqueue adds a frame, evicting the oldest one when the queue is full.
func (s *WebSocketSource) enqueue(f *Frame) {
	for {
		select {
		case s.frames <- f:
			return
		default:
		}
		select {
		case <-s.frames:
		default:
		}
	}
}

func (s *WebSocketSource) dropConn(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == conn {
		s.conn.Close()
		s.conn = nil
	}
}

// Close disconnects from the tracking service.
func (s *WebSocketSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.conn != nil {
			err = s.conn.Close()
			s.conn = nil
		}
	})
	return err
}
