package lxi

import (
	"errors"
	"strings"
	"time"

	"github.com/arloliu/go-scopegrab/logger"
)

// Default values for a ConnectionConfig.
const (
	DefaultPort           = 5555
	DefaultConnectTimeout = 3 * time.Second
	DefaultConnectRetries = 3
	DefaultReadTimeout    = 1 * time.Second
	DefaultWriteTimeout   = 3 * time.Second
	DefaultTransferWindow = 30 * time.Second
	DefaultReadChunkSize  = 4096
)

// Range limits for the ConnectionConfig options.
const (
	MinReadTimeout = 10 * time.Millisecond
	MaxReadTimeout = 60 * time.Second

	MinTransferWindow = 100 * time.Millisecond
	MaxTransferWindow = 10 * time.Minute

	MaxConnectRetries = 10
	MaxOPCAttempts    = 100
	MaxIdleReads      = 100

	MinReadChunkSize = 64
	MaxReadChunkSize = 1 << 20
)

// ConnectionConfig represents the configuration parameters of an LXI socket session.
type ConnectionConfig struct {
	// host specifies the host name or IP address of the instrument.
	host string

	// port specifies the TCP port of the raw SCPI socket.
	// Defaults to 5555.
	port int

	// connectTimeout bounds each dial attempt.
	// Defaults to 3 seconds.
	connectTimeout time.Duration

	// connectRetries is the number of additional dial attempts made with
	// exponential backoff after the first one fails.
	// Defaults to 3.
	connectRetries int

	// readTimeout is the idle timeout of ReadLine. It is re-armed whenever bytes arrive.
	// Defaults to 1 second.
	readTimeout time.Duration

	// writeTimeout bounds each command write.
	// Defaults to 3 seconds.
	writeTimeout time.Duration

	// transferWindow is the wall-clock bound of one ReadBlock call.
	// Defaults to 30 seconds.
	transferWindow time.Duration

	// maxIdleReads is the number of consecutive empty reads ReadBlock tolerates
	// before it declares the transfer incomplete.
	// Defaults to 0: the first empty read ends the transfer.
	maxIdleReads int

	// opcAttempts enables *OPC? synchronisation before every command when positive,
	// and bounds the number of polls.
	// Defaults to 0 (disabled).
	opcAttempts int

	// readChunkSize is the size of the socket read buffer.
	// Defaults to 4096 bytes.
	readChunkSize int

	// logger provides a logger instance for session events.
	logger logger.Logger
}

// NewConnectionConfig creates a new session configuration with the given host, port number, and optional functional options.
//
// Returns a pointer to the initialized ConnectionConfig and an error if any option is invalid.
func NewConnectionConfig(host string, port int, opts ...ConnOption) (*ConnectionConfig, error) {
	cfg := &ConnectionConfig{
		port:           DefaultPort,
		connectTimeout: DefaultConnectTimeout,
		connectRetries: DefaultConnectRetries,
		readTimeout:    DefaultReadTimeout,
		writeTimeout:   DefaultWriteTimeout,
		transferWindow: DefaultTransferWindow,
		readChunkSize:  DefaultReadChunkSize,
		logger:         logger.GetLogger(),
	}

	if err := withHost(host).apply(cfg); err != nil {
		return cfg, err
	}

	if err := withPort(port).apply(cfg); err != nil {
		return cfg, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.transferWindow < cfg.readTimeout {
		return cfg, errors.New("transfer window must not be shorter than read timeout")
	}

	return cfg, nil
}

func (cfg *ConnectionConfig) Host() string                  { return cfg.host }
func (cfg *ConnectionConfig) Port() int                     { return cfg.port }
func (cfg *ConnectionConfig) ReadTimeout() time.Duration    { return cfg.readTimeout }
func (cfg *ConnectionConfig) TransferWindow() time.Duration { return cfg.transferWindow }
func (cfg *ConnectionConfig) Logger() logger.Logger         { return cfg.logger }

// ConnOption represents a functional option for configuring a ConnectionConfig.
type ConnOption interface {
	apply(*ConnectionConfig) error
}

type connOptFunc func(*ConnectionConfig) error

func (f connOptFunc) apply(cfg *ConnectionConfig) error {
	if cfg == nil {
		return ErrConnConfigNil
	}

	return f(cfg)
}

// withHost sets the instrument host. It only checks the value is a plausible
// host; resolution happens when dialing.
func withHost(host string) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		host = strings.TrimSpace(host)
		if host == "" {
			return errors.New("host is empty")
		}

		if strings.ContainsAny(host, " \t/") {
			return errors.New("invalid host")
		}
		cfg.host = host

		return nil
	})
}

// withPort sets the TCP port number. A zero port selects DefaultPort.
func withPort(port int) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if port == 0 {
			cfg.port = DefaultPort
			return nil
		}

		if port < 1 || port > 65535 {
			return errors.New("port is out of range [1, 65535]")
		}
		cfg.port = port

		return nil
	})
}

// WithConnectTimeout sets the timeout of each dial attempt.
// It should be between 100 milliseconds and 30 seconds.
//
// The default value is 3 seconds.
func WithConnectTimeout(val time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if val < 100*time.Millisecond || val > 30*time.Second {
			return errors.New("connect timeout out of range [0.1, 30]")
		}
		cfg.connectTimeout = val

		return nil
	})
}

// WithConnectRetries sets how many times a failed dial is retried with exponential backoff.
// Zero disables retrying: the dial is attempted once.
//
// The default value is 3.
func WithConnectRetries(val int) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if val < 0 || val > MaxConnectRetries {
			return errors.New("connect retries out of range [0, 10]")
		}
		cfg.connectRetries = val

		return nil
	})
}

// WithReadTimeout sets the idle timeout of a single reply read.
// It should be between 10 milliseconds and 60 seconds.
//
// The default value is 1 second.
func WithReadTimeout(val time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if val < MinReadTimeout || val > MaxReadTimeout {
			return errors.New("read timeout out of range [0.01, 60]")
		}
		cfg.readTimeout = val

		return nil
	})
}

// WithWriteTimeout sets the timeout of a command write.
//
// The default value is 3 seconds.
func WithWriteTimeout(val time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if val < MinReadTimeout || val > MaxReadTimeout {
			return errors.New("write timeout out of range [0.01, 60]")
		}
		cfg.writeTimeout = val

		return nil
	})
}

// WithTransferWindow sets the wall-clock bound of one block transfer, covering the
// initial reply and every follow-up read. It must not be shorter than the read timeout.
//
// The default value is 30 seconds.
func WithTransferWindow(val time.Duration) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if val < MinTransferWindow || val > MaxTransferWindow {
			return errors.New("transfer window out of range [0.1, 600]")
		}
		cfg.transferWindow = val

		return nil
	})
}

// WithMaxIdleReads sets how many consecutive empty follow-up reads a block transfer
// tolerates before it is declared incomplete. The transfer window still applies.
//
// The default value is 0.
func WithMaxIdleReads(val int) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if val < 0 || val > MaxIdleReads {
			return errors.New("max idle reads out of range [0, 100]")
		}
		cfg.maxIdleReads = val

		return nil
	})
}

// WithOPCSync enables polling *OPC? before each command until the instrument
// answers "1", giving up after attempts polls. Zero disables the synchronisation.
//
// The default value is 0.
func WithOPCSync(attempts int) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if attempts < 0 || attempts > MaxOPCAttempts {
			return errors.New("opc attempts out of range [0, 100]")
		}
		cfg.opcAttempts = attempts

		return nil
	})
}

// WithReadChunkSize sets the size of the socket read buffer.
//
// The default value is 4096 bytes.
func WithReadChunkSize(size int) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if size < MinReadChunkSize || size > MaxReadChunkSize {
			return errors.New("read chunk size out of range [64, 1048576]")
		}
		cfg.readChunkSize = size

		return nil
	})
}

// WithLogger sets the logger used by sessions created from this configuration.
func WithLogger(l logger.Logger) ConnOption {
	return connOptFunc(func(cfg *ConnectionConfig) error {
		if l == nil {
			return errors.New("logger is nil")
		}
		cfg.logger = l

		return nil
	})
}
