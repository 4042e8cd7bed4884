package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/arloliu/go-scopegrab/internal/naming"
	"github.com/arloliu/go-scopegrab/logger"
	"github.com/arloliu/go-scopegrab/lxi"
	"github.com/arloliu/go-scopegrab/scope"
)

// Result describes a finished capture.
type Result struct {
	Identity scope.Identity
	Path     string
	Bytes    int
	// Channels lists the merged channels of a CSV capture.
	Channels []string
}

// Run connects to the instrument, identifies it, captures the screen or the
// waveforms and writes the output file.
//
// The session is closed on every return path. No file is written when the
// capture fails.
func Run(ctx context.Context, opts Options) (*Result, error) {
	l := opts.logger()

	session, dso, err := open(ctx, &opts)
	if err != nil {
		return nil, err
	}
	defer closeSession(session, l)

	id, err := identify(dso, &opts)
	if err != nil {
		return nil, err
	}

	captureTime := opts.now()
	path := opts.Path
	if path == "" {
		path = naming.Build(opts.Dir, id.Model, captureTime, opts.Extension(), opts.Note, nil)
	}

	res := &Result{Identity: id, Path: path}

	var data []byte
	switch opts.Mode {
	case ModeCSV:
		table, err := dso.CaptureWaveforms(ctx)
		if err != nil {
			return nil, err
		}

		if table.Empty() {
			return nil, ErrNoActiveChannels
		}
		res.Channels = table.Header()
		data = table.Bytes()
	default:
		data, err = dso.CaptureScreen(ctx, opts.ImageFormat)
		if err != nil {
			return nil, err
		}
	}

	if err := writeFile(path, data); err != nil {
		return nil, err
	}
	res.Bytes = len(data)

	m := session.GetMetrics()
	l.Info("capture saved",
		"path", path,
		"mode", opts.Mode,
		"bytes", len(data),
		"block_transfers", m.BlockTransferCount.Load(),
		"resumed_reads", m.ResumedReadCount.Load(),
	)

	return res, nil
}

// Report is the instrument state printed by Inspect.
type Report struct {
	Identity    scope.Identity
	Channels    []string
	MemoryDepth int
}

// Inspect connects to the instrument and reports its identity, displayed
// channels and memory depth.
func Inspect(ctx context.Context, opts Options) (*Report, error) {
	l := opts.logger()

	session, dso, err := open(ctx, &opts)
	if err != nil {
		return nil, err
	}
	defer closeSession(session, l)

	id, err := identify(dso, &opts)
	if err != nil {
		return nil, err
	}

	channels, err := dso.ActiveChannels()
	if err != nil {
		return nil, err
	}

	depth, err := dso.MemoryDepth()
	if err != nil {
		return nil, err
	}

	return &Report{Identity: id, Channels: channels, MemoryDepth: depth}, nil
}

func open(ctx context.Context, opts *Options) (*lxi.Session, *scope.Scope, error) {
	if opts.Host == "" {
		return nil, nil, ErrHostRequired
	}

	l := opts.logger()
	connOpts := append([]lxi.ConnOption{lxi.WithLogger(l)}, opts.SessionOptions...)
	cfg, err := lxi.NewConnectionConfig(opts.Host, opts.Port, connOpts...)
	if err != nil {
		return nil, nil, err
	}

	session, err := lxi.Dial(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	scopeOpts := append([]scope.Option{scope.WithLogger(l)}, opts.ScopeOptions...)
	dso, err := scope.New(session, scopeOpts...)
	if err != nil {
		closeSession(session, l)
		return nil, nil, err
	}

	return session, dso, nil
}

func identify(dso *scope.Scope, opts *Options) (scope.Identity, error) {
	id, err := dso.Identify()
	if err == nil {
		return id, nil
	}

	if !errors.Is(err, scope.ErrUnrecognizedInstrument) {
		return id, err
	}

	if opts.Confirm == nil || !opts.Confirm(id) {
		return id, fmt.Errorf("%w: %w", ErrAborted, err)
	}

	opts.logger().Warn("continuing with unrecognized instrument", "model", id.Model, "manufacturer", id.Manufacturer)

	return id, nil
}

func closeSession(session *lxi.Session, l logger.Logger) {
	if err := session.Close(); err != nil {
		l.Warn("failed to close session", "error", err)
	}
}

// writeFile writes data to a temporary file next to path and renames it into
// place, so path only ever holds a complete capture.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return fmt.Errorf("write output file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write output file: %w", err)
	}

	if err := os.Chmod(tmpName, 0o644); err != nil { //nolint:gosec
		_ = os.Remove(tmpName)
		return fmt.Errorf("write output file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write output file: %w", err)
	}

	return nil
}
