package lxi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-scopegrab/internal/pool"
	"github.com/arloliu/go-scopegrab/internal/util"
	"github.com/arloliu/go-scopegrab/tmc"
)

// QueryBlock sends cmd and reads its block-header reply through ReadBlock.
func (s *Session) QueryBlock(ctx context.Context, cmd string) ([]byte, error) {
	reply, err := s.Command(cmd)
	if err != nil {
		return nil, err
	}

	payload, err := s.ReadBlock(ctx, reply)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd, err)
	}

	return payload, nil
}

// ReadBlock completes a block-header reply whose first bytes are in initial and
// returns exactly the payload the header declares.
//
// It keeps calling ReadLine and appending until the buffer holds the header plus
// the declared payload. The transfer fails with ErrTransferIncomplete when a
// read returns no bytes (more than the configured number of idle reads in a row),
// when the transfer window elapses, or when the connection fails. A reply that
// does not start with a block header fails with tmc.ErrMalformedHeader.
//
// The working buffer comes from a pool; the returned slice is a copy owned by the
// caller. Bytes past the payload, such as the line terminator, are discarded.
func (s *Session) ReadBlock(ctx context.Context, initial []byte) ([]byte, error) {
	bp := pool.GetBuffer(max(len(initial), tmc.MaxHeaderSize))
	t := &blockTransfer{
		session:  s,
		deadline: time.Now().Add(s.cfg.transferWindow),
		buf:      append(*bp, initial...),
	}
	defer func() {
		*bp = t.buf
		pool.PutBuffer(bp)
	}()

	var hdr tmc.Header
	for {
		var err error
		hdr, err = tmc.DecodeHeader(t.buf)
		if err == nil {
			break
		}

		if !errors.Is(err, tmc.ErrHeaderTruncated) {
			return nil, err
		}

		if err := t.resume(ctx, tmc.MaxHeaderSize); err != nil {
			return nil, err
		}
	}

	// +1 leaves room for the line terminator
	if want := hdr.Len() + 1; cap(t.buf) < want {
		grown := make([]byte, len(t.buf), want)
		copy(grown, t.buf)
		t.buf = grown
	}

	for len(t.buf) < hdr.Len() {
		if err := t.resume(ctx, hdr.Len()); err != nil {
			return nil, err
		}
	}

	if len(t.buf) == hdr.Len() {
		s.consumeTerminator()
	}

	s.metrics.incBlockTransfer()
	s.logger.Debug("block transfer complete",
		"method", "ReadBlock",
		"payload", hdr.PayloadLen,
		"received", len(t.buf),
		"resumed_reads", t.reads,
	)

	return util.CloneSlice(t.buf[hdr.HeaderLen:hdr.Len()], 0), nil
}

// blockTransfer is the state of one ReadBlock call.
type blockTransfer struct {
	session   *Session
	deadline  time.Time
	buf       []byte
	reads     int
	idleReads int
}

// resume issues one follow-up read and appends its bytes to the buffer.
// expected is the total buffer length the caller is waiting for.
func (t *blockTransfer) resume(ctx context.Context, expected int) error {
	s := t.session

	for {
		if err := ctx.Err(); err != nil {
			return t.fail(expected, err)
		}

		if time.Now().After(t.deadline) {
			return t.fail(expected, fmt.Errorf("transfer window %s elapsed", s.cfg.transferWindow))
		}

		chunk, err := s.ReadLine()
		t.buf = append(t.buf, chunk...)
		t.reads++
		s.metrics.incResumedRead()

		if err != nil {
			return t.fail(expected, err)
		}

		if len(chunk) > 0 {
			t.idleReads = 0
			s.logger.Debug("leftover bytes added to block",
				"method", "ReadBlock",
				"bytes", len(chunk),
				"received", len(t.buf),
				"expected", expected,
			)

			return nil
		}

		t.idleReads++
		if t.idleReads > s.cfg.maxIdleReads {
			return t.fail(expected, fmt.Errorf("no data within read timeout %s", s.cfg.readTimeout))
		}

		s.logger.Warn("block transfer idle, waiting for more data",
			"method", "ReadBlock",
			"received", len(t.buf),
			"expected", expected,
			"idle_reads", t.idleReads,
		)
	}
}

func (t *blockTransfer) fail(expected int, cause error) error {
	s := t.session
	s.metrics.incIncompleteTransfer()
	s.logger.Error("block transfer incomplete",
		"method", "ReadBlock",
		"received", len(t.buf),
		"expected", expected,
		"error", cause,
	)

	return fmt.Errorf("%w: received %d of %d bytes: %w", ErrTransferIncomplete, len(t.buf), expected, cause)
}

// consumeTerminator reads the newline that follows a block when the payload
// ended exactly on a read boundary, so that it does not prefix the next reply.
// Anything other than a bare terminator is pushed back.
func (s *Session) consumeTerminator() {
	line, err := s.ReadLine()
	if err != nil {
		s.logger.Debug("no block terminator", "method", "consumeTerminator", "error", err)
		return
	}

	if len(bytes.TrimRight(line, "\r\n")) > 0 {
		s.unread(line)
	}
}
