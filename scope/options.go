package scope

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-scopegrab/logger"
)

// Waveform window limits in NORM mode, 1-based and inclusive.
const (
	DefaultWindowStart = 1
	DefaultWindowStop  = 1200
	MaxNormPoints      = 1200
)

// Option configures a Scope.
type Option interface {
	apply(s *Scope) error
}

type optFunc func(s *Scope) error

func (f optFunc) apply(s *Scope) error {
	if s == nil {
		return errors.New("scope is nil")
	}

	return f(s)
}

// WithWindow sets the 1-based inclusive range of points read from each channel
// through ":WAV:STAR" and ":WAV:STOP". The MATH channel always uses its fixed
// 1-1200 window.
//
// Default: 1 to 1200.
func WithWindow(start, stop int) Option {
	return optFunc(func(s *Scope) error {
		if start < 1 || stop < start || stop > MaxNormPoints {
			return fmt.Errorf("waveform window %d-%d out of range [1, %d]", start, stop, MaxNormPoints)
		}
		s.start = start
		s.stop = stop

		return nil
	})
}

// WithLogger sets the logger. The default is the package-level logger.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(s *Scope) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		s.logger = l

		return nil
	})
}
