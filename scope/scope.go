package scope

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/arloliu/go-scopegrab/logger"
	"github.com/arloliu/go-scopegrab/lxi"
	"github.com/arloliu/go-scopegrab/waveform"
)

// horizontalDivisions is the number of horizontal grid divisions of the DS1000Z screen.
const horizontalDivisions = 12

// Transport sends SCPI commands and reads their replies. *lxi.Session implements it.
type Transport interface {
	// Command sends cmd and returns the raw reply line.
	Command(cmd string) ([]byte, error)
	// Exec sends cmd without reading a reply.
	Exec(cmd string) error
	// QueryBlock sends cmd and returns the payload of its block-header reply.
	QueryBlock(ctx context.Context, cmd string) ([]byte, error)
}

// Scope is a DS1000Z oscilloscope reachable through a Transport.
//
// A Scope issues one command at a time and is not safe for concurrent use.
type Scope struct {
	t      Transport
	logger logger.Logger
	start  int
	stop   int
}

// New creates a Scope on top of t.
func New(t Transport, opts ...Option) (*Scope, error) {
	if t == nil {
		return nil, errors.New("transport is nil")
	}

	s := &Scope{
		t:      t,
		logger: logger.GetLogger(),
		start:  DefaultWindowStart,
		stop:   DefaultWindowStop,
	}

	for _, opt := range opts {
		if err := opt.apply(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Window returns the configured waveform window.
func (s *Scope) Window() (start, stop int) {
	return s.start, s.stop
}

// Identify queries *IDN? and checks that the instrument is a DS1000Z.
//
// A "command error" reply returns ErrInstrumentRejected. An identity of another
// instrument is returned together with an error wrapping
// ErrUnrecognizedInstrument, so the caller may still decide to go on.
func (s *Scope) Identify() (Identity, error) {
	reply, err := s.query("*IDN?")
	if err != nil {
		return Identity{}, err
	}

	if lxi.IsCommandError([]byte(reply)) {
		return Identity{Raw: reply}, ErrInstrumentRejected
	}

	id := ParseIdentity(reply)
	if !id.IsDS1000Z() {
		s.logger.Warn("instrument is not a DS1000Z series oscilloscope",
			"manufacturer", id.Manufacturer, "model", id.Model)

		return id, fmt.Errorf("%w: model %q from %q", ErrUnrecognizedInstrument, id.Model, id.Manufacturer)
	}

	s.logger.Info("instrument identified", "model", id.Model, "serial", id.Serial, "firmware", id.Firmware)

	return id, nil
}

// ChannelDisplayed reports whether ch is shown on screen.
func (s *Scope) ChannelDisplayed(ch string) (bool, error) {
	if !waveform.IsChannel(ch) {
		return false, fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}

	reply, err := s.t.Command(":" + ch + ":DISP?")
	if err != nil {
		return false, fmt.Errorf("query %s display state: %w", ch, err)
	}

	return string(reply) == "1\n", nil
}

// ActiveChannels returns the displayed channels in waveform.ChannelOrder.
func (s *Scope) ActiveChannels() ([]string, error) {
	active := make([]string, 0, len(waveform.ChannelOrder))
	for _, ch := range waveform.ChannelOrder {
		on, err := s.ChannelDisplayed(ch)
		if err != nil {
			return nil, err
		}

		if on {
			active = append(active, ch)
		}
	}

	s.logger.Debug("active channels scanned", "method", "ActiveChannels", "channels", active)

	return active, nil
}

// CaptureScreen downloads the screen image in the given format. An empty format
// means PNG.
func (s *Scope) CaptureScreen(ctx context.Context, format ImageFormat) ([]byte, error) {
	if format == "" {
		format = PNG
	}

	if !format.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	s.logger.Info("receiving screen capture", "format", format)

	image, err := s.t.QueryBlock(ctx, ":DISP:DATA? ON,OFF,"+string(format))
	if err != nil {
		return nil, fmt.Errorf("capture screen: %w", err)
	}

	s.logger.Info("screen capture received", "format", format, "bytes", len(image))

	return image, nil
}

// CaptureChannel reads the ASCII samples of one channel.
//
// The waveform source, format and window are set before ":WAV:DATA?" is sent.
// MATH rejects ":WAV:STAR" and ":WAV:STOP", so its fixed window is used.
func (s *Scope) CaptureChannel(ctx context.Context, ch string) (*waveform.ChannelTrace, error) {
	if !waveform.IsChannel(ch) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, ch)
	}

	cmds := []string{":WAV:SOUR " + ch, ":WAV:FORM ASC"}
	if ch != waveform.Math {
		cmds = append(cmds,
			":WAV:STAR "+strconv.Itoa(s.start),
			":WAV:STOP "+strconv.Itoa(s.stop),
		)
	}

	for _, cmd := range cmds {
		if err := s.t.Exec(cmd); err != nil {
			return nil, fmt.Errorf("%s: %w", cmd, err)
		}
	}

	start, stop := s.start, s.stop
	if ch == waveform.Math {
		start, stop = DefaultWindowStart, DefaultWindowStop
	}
	s.logger.Info("receiving channel data", "channel", ch, "start", start, "stop", stop)

	payload, err := s.t.QueryBlock(ctx, ":WAV:DATA?")
	if err != nil {
		return nil, fmt.Errorf("capture %s: %w", ch, err)
	}

	trace := waveform.NewChannelTrace(ch, waveform.ParseSamples(payload))
	s.logger.Debug("channel data received", "method", "CaptureChannel", "channel", ch, "samples", trace.Len())

	return trace, nil
}

// CaptureWaveforms reads every displayed channel and merges them into a table.
// The table is empty when no channel is displayed.
func (s *Scope) CaptureWaveforms(ctx context.Context) (*waveform.Table, error) {
	channels, err := s.ActiveChannels()
	if err != nil {
		return nil, err
	}

	table := waveform.NewTable()
	if len(channels) == 0 {
		s.logger.Warn("no channel is displayed")
		return table, nil
	}

	if err := s.t.Exec(":WAV:MODE NORM"); err != nil {
		return nil, fmt.Errorf(":WAV:MODE NORM: %w", err)
	}

	for _, ch := range channels {
		trace, err := s.CaptureChannel(ctx, ch)
		if err != nil {
			return nil, err
		}
		table.AddChannel(trace)

		sum := waveform.Summarize(trace)
		s.logger.Info("channel summary",
			"channel", ch,
			"samples", sum.Count,
			"invalid", sum.Invalid,
			"min", sum.Min,
			"max", sum.Max,
			"mean", sum.Mean,
			"stddev", sum.StdDev,
		)
	}

	return table, nil
}

// MemoryDepth returns the acquisition memory depth in points. When the
// instrument reports AUTO, the depth is derived from the time base and the
// sample rate over the 12 horizontal divisions.
func (s *Scope) MemoryDepth() (int, error) {
	mdep, err := s.query(":ACQ:MDEP?")
	if err != nil {
		return 0, err
	}

	if mdep != "AUTO" {
		depth, err := strconv.Atoi(mdep)
		if err != nil {
			return 0, fmt.Errorf("%w: memory depth %q", ErrUnexpectedReply, mdep)
		}

		return depth, nil
	}

	srate, err := s.queryFloat(":ACQ:SRAT?")
	if err != nil {
		return 0, err
	}

	scale, err := s.queryFloat(":TIM:SCAL?")
	if err != nil {
		return 0, err
	}

	return int(math.Round(horizontalDivisions * scale * srate)), nil
}

// query sends cmd and returns its reply without the line terminator.
func (s *Scope) query(cmd string) (string, error) {
	reply, err := s.t.Command(cmd)
	if err != nil {
		return "", fmt.Errorf("%s: %w", cmd, err)
	}

	text := strings.TrimSpace(string(reply))
	if text == "" {
		return "", fmt.Errorf("%s: %w", cmd, ErrNoReply)
	}

	return text, nil
}

func (s *Scope) queryFloat(cmd string) (float64, error) {
	text, err := s.query(cmd)
	if err != nil {
		return 0, err
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s returned %q", ErrUnexpectedReply, cmd, text)
	}

	return v, nil
}
