package lxi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/arloliu/go-scopegrab/logger"
)

const (
	initialRetryDelay = 200 * time.Millisecond
	maxRetryDelay     = 2 * time.Second
)

// Session is a command/reply session with one instrument over one TCP connection.
type Session struct {
	cfg     *ConnectionConfig
	logger  logger.Logger
	conn    net.Conn
	opState AtomicOpState
	metrics *SessionMetrics

	// chunk is the socket read buffer; pending aliases the part of chunk
	// that was read past the last returned newline.
	chunk   []byte
	pending []byte
}

// Dial connects to the instrument described by cfg and returns an open Session.
//
// A failed dial is retried with exponential backoff up to the configured number of
// retries. Each attempt is bounded by the connect timeout, and ctx cancels the
// whole sequence.
func Dial(ctx context.Context, cfg *ConnectionConfig) (*Session, error) {
	if cfg == nil {
		return nil, ErrConnConfigNil
	}

	address := net.JoinHostPort(cfg.host, strconv.Itoa(cfg.port))
	dialer := &net.Dialer{KeepAlive: 30 * time.Second}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialRetryDelay
	policy.MaxInterval = maxRetryDelay
	policy.MaxElapsedTime = 0

	var conn net.Conn
	attempt := 0
	op := func() error {
		attempt++
		dialCtx, cancel := context.WithTimeout(ctx, cfg.connectTimeout)
		defer cancel()

		c, err := dialer.DialContext(dialCtx, "tcp", address)
		if err != nil {
			return err
		}
		conn = c

		return nil
	}
	notify := func(err error, delay time.Duration) {
		cfg.logger.Warn("failed to connect to instrument, retrying",
			"address", address, "attempt", attempt, "delay", delay, "error", err)
	}

	// WithMaxRetries treats 0 as unlimited
	var retry backoff.BackOff = &backoff.StopBackOff{}
	if cfg.connectRetries > 0 {
		retry = backoff.WithMaxRetries(policy, uint64(cfg.connectRetries)) //nolint:gosec
	}

	b := backoff.WithContext(retry, ctx)
	if err := backoff.RetryNotify(op, b, notify); err != nil {
		return nil, fmt.Errorf("dial %s: %w", address, err)
	}

	cfg.logger.Debug("connected to instrument",
		"address", address,
		"local_addr", conn.LocalAddr().String(),
		"attempts", attempt,
		"method", "Dial",
	)

	return NewSession(conn, cfg)
}

// NewSession wraps an already established connection, such as a tunnelled or
// in-memory one, in an open Session.
func NewSession(conn net.Conn, cfg *ConnectionConfig) (*Session, error) {
	if cfg == nil {
		return nil, ErrConnConfigNil
	}

	if conn == nil {
		return nil, errors.New("connection is nil")
	}

	s := &Session{
		cfg:     cfg,
		logger:  cfg.logger,
		conn:    conn,
		metrics: newSessionMetrics(),
		chunk:   make([]byte, cfg.readChunkSize),
	}
	s.opState.ToOpening()
	s.opState.ToOpened()

	return s, nil
}

// Config returns the session's configuration.
func (s *Session) Config() *ConnectionConfig {
	return s.cfg
}

// GetMetrics returns the metrics associated with the session.
func (s *Session) GetMetrics() *SessionMetrics {
	return s.metrics
}

// State returns the session's lifecycle state.
func (s *Session) State() OpState {
	return s.opState.Get()
}

// Close closes the TCP connection. It is safe to call more than once.
func (s *Session) Close() error {
	if !s.opState.ToClosing() {
		return nil
	}
	defer s.opState.ToClosed()

	s.logger.Debug("close session",
		"method", "Close",
		"commands", s.metrics.CommandSendCount.Load(),
		"bytes_read", s.metrics.BytesReadCount.Load(),
		"resumed_reads", s.metrics.ResumedReadCount.Load(),
	)

	s.pending = nil
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("close connection: %w", err)
	}

	return nil
}

// Send writes cmd followed by a newline.
func (s *Session) Send(cmd string) error {
	if !s.opState.IsOpened() {
		return ErrSessionClosed
	}

	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.writeTimeout)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}

	line := make([]byte, 0, len(cmd)+1)
	line = append(line, cmd...)
	line = append(line, '\n')

	if _, err := s.conn.Write(line); err != nil {
		return fmt.Errorf("send %q: %w", cmd, err)
	}
	s.metrics.incCommand(cmd)

	return nil
}

// ReadLine reads until a newline byte is seen or the read timeout elapses with no
// new bytes, and returns everything accumulated.
//
// On timeout the result may be empty or lack the trailing newline; neither is an
// error. Bytes that arrived after the newline are kept for the next call.
func (s *Session) ReadLine() ([]byte, error) {
	if !s.opState.IsOpened() {
		return nil, ErrSessionClosed
	}

	var line []byte
	for {
		if len(s.pending) > 0 {
			if i := bytes.IndexByte(s.pending, '\n'); i >= 0 {
				line = append(line, s.pending[:i+1]...)
				s.pending = s.pending[i+1:]

				return line, nil
			}
			line = append(line, s.pending...)
			s.pending = s.pending[:0]
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.readTimeout)); err != nil {
			return line, fmt.Errorf("set read deadline: %w", err)
		}

		n, err := s.conn.Read(s.chunk)
		s.metrics.addBytesRead(n)
		s.pending = s.chunk[:n]

		switch {
		case err == nil:
			continue
		case isTimeout(err):
			if n > 0 {
				// bytes arrived, so the line is not idle yet
				continue
			}
			s.metrics.incIdleTimeout()

			return line, nil
		default:
			line = append(line, s.pending...)
			s.pending = s.pending[:0]

			return line, fmt.Errorf("read reply: %w", err)
		}
	}
}

// Command sends cmd and returns the raw reply read by ReadLine.
//
// The instrument's "command error" reply is returned as data; use IsCommandError
// to detect it.
func (s *Session) Command(cmd string) ([]byte, error) {
	if err := s.waitOPC(); err != nil {
		return nil, err
	}

	if err := s.Send(cmd); err != nil {
		return nil, err
	}

	reply, err := s.ReadLine()
	if err != nil {
		return reply, err
	}

	if s.logger.Level() == logger.DebugLevel {
		s.logger.Debug("command reply received", "method", "Command", "cmd", cmd, "bytes", len(reply))
	}

	return reply, nil
}

// Exec sends a command that produces no reply.
func (s *Session) Exec(cmd string) error {
	if err := s.waitOPC(); err != nil {
		return err
	}

	if s.logger.Level() == logger.DebugLevel {
		s.logger.Debug("exec command", "method", "Exec", "cmd", cmd)
	}

	return s.Send(cmd)
}

// waitOPC polls *OPC? until the instrument reports that all pending operations
// are complete. It returns immediately when OPC synchronisation is disabled.
func (s *Session) waitOPC() error {
	if s.cfg.opcAttempts <= 0 {
		return nil
	}

	for attempt := 1; attempt <= s.cfg.opcAttempts; attempt++ {
		if err := s.Send("*OPC?"); err != nil {
			return err
		}

		reply, err := s.ReadLine()
		if err != nil {
			return err
		}

		if string(bytes.TrimSpace(reply)) == "1" {
			return nil
		}

		s.logger.Debug("instrument busy", "method", "waitOPC", "attempt", attempt, "reply", string(reply))
	}

	return fmt.Errorf("%w: no completion after %d polls", ErrOPCTimeout, s.cfg.opcAttempts)
}

// unread pushes b back in front of the pending bytes.
func (s *Session) unread(b []byte) {
	if len(b) == 0 {
		return
	}

	merged := make([]byte, 0, len(b)+len(s.pending))
	merged = append(merged, b...)
	merged = append(merged, s.pending...)
	s.pending = merged
}

// IsCommandError reports whether reply is the instrument's generic error reply.
func IsCommandError(reply []byte) bool {
	return string(bytes.TrimSpace(reply)) == CommandErrorReply
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
