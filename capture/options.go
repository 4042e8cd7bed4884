package capture

import (
	"fmt"
	"time"

	"github.com/arloliu/go-scopegrab/logger"
	"github.com/arloliu/go-scopegrab/lxi"
	"github.com/arloliu/go-scopegrab/scope"
)

// Mode selects what is captured.
type Mode int

const (
	// ModeScreen saves the screen image.
	ModeScreen Mode = iota
	// ModeCSV saves the displayed waveforms as CSV.
	ModeCSV
)

func (m Mode) String() string {
	switch m {
	case ModeScreen:
		return "screen"
	case ModeCSV:
		return "csv"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ConfirmFunc is asked whether to go on with an instrument that is not a
// DS1000Z. Returning false aborts the run.
type ConfirmFunc func(id scope.Identity) bool

// Options configures Run and Inspect.
type Options struct {
	// Host is the instrument host name or IP address.
	Host string
	// Port is the raw SCPI port; zero selects lxi.DefaultPort.
	Port int

	// Path is the output file. When empty, a name is derived in Dir from the
	// note or the instrument model and the capture time.
	Path string
	// Dir is the directory for derived names.
	Dir string
	// Note names the output file "<note>.<ext>".
	Note string

	Mode        Mode
	ImageFormat scope.ImageFormat

	// Confirm decides about unrecognized instruments. A nil Confirm aborts.
	Confirm ConfirmFunc

	SessionOptions []lxi.ConnOption
	ScopeOptions   []scope.Option

	// Logger defaults to the package-level logger.
	Logger logger.Logger
	// Now returns the capture time used in derived names. Defaults to time.Now.
	Now func() time.Time
}

// Extension returns the output file extension for the configured mode.
func (o *Options) Extension() string {
	if o.Mode == ModeCSV {
		return "csv"
	}

	return o.ImageFormat.Extension()
}

func (o *Options) logger() logger.Logger {
	if o.Logger == nil {
		return logger.GetLogger()
	}

	return o.Logger
}

func (o *Options) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}

	return o.Now()
}
