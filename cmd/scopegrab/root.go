package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-scopegrab/capture"
	"github.com/arloliu/go-scopegrab/config"
	"github.com/arloliu/go-scopegrab/logger"
	"github.com/arloliu/go-scopegrab/scope"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configFile  string
	port        int
	readTimeout time.Duration
	window      time.Duration
	idleReads   int
	opc         int
	debug       bool
	logFile     string
}

type captureFlags struct {
	fileType string
	csv      bool
	note     string
	yes      bool
}

// app carries the I/O streams and the settings resolved for one invocation.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	flags globalFlags
	cfg   *config.Config
	log   logger.Logger
	close func()
}

func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, close: func() {}}
	var cf captureFlags

	root := &cobra.Command{
		Use:   "scopegrab [hostname] [filename]",
		Short: "Save the screen or the waveforms of a Rigol DS1000Z oscilloscope",
		Long: `scopegrab connects to a Rigol DS1000Z oscilloscope over LAN (raw SCPI socket,
port 5555) and saves its screen image, or the displayed channels as CSV.

The hostname defaults to default_hostname from the configuration file. Without a
filename, the output is named after the note (--note) or after the instrument
model and the capture time, in default_save_path.

Remote commands over LAN must be enabled on the instrument:
Utility -> IO Setting -> RemoteIO -> LAN.`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runCapture(cmd, args, cf)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configFile, "config", config.DefaultFile, "configuration file (YAML or JSON)")
	pf.IntVar(&a.flags.port, "port", 0, "raw SCPI port (default from config, 5555)")
	pf.DurationVar(&a.flags.readTimeout, "timeout", 0, "idle timeout of each read (default from config, 1s)")
	pf.DurationVar(&a.flags.window, "window", 0, "maximum duration of one binary transfer (default from config, 30s)")
	pf.IntVar(&a.flags.idleReads, "idle-reads", -1, "empty reads tolerated during a binary transfer (default from config, 0)")
	pf.IntVar(&a.flags.opc, "opc", -1, "poll *OPC? before each command, at most this many times (0 disables)")
	pf.BoolVarP(&a.flags.debug, "debug", "d", false, "enable debug logging")
	pf.StringVar(&a.flags.logFile, "log-file", "", "write logs to this file instead of stderr")

	f := root.Flags()
	f.StringVarP(&cf.fileType, "type", "t", "png", "output type: png, bmp, bmp8, jpeg, tiff or csv")
	f.BoolVarP(&cf.csv, "csv", "c", false, "save the displayed waveforms as CSV (same as --type csv)")
	f.StringVarP(&cf.note, "note", "n", "", "name the output file after this note")
	f.BoolVarP(&cf.yes, "yes", "y", false, "continue without asking when the instrument is not a DS1000Z")

	root.AddCommand(newInfoCmd(a), newDiscoverCmd(a))

	return root
}

// setup loads the configuration, applies flag overrides and creates the logger.
func (a *app) setup() error {
	cfg, err := config.Load(a.flags.configFile)
	if err != nil {
		return err
	}

	if a.flags.port != 0 {
		cfg.Port = a.flags.port
	}
	if a.flags.readTimeout != 0 {
		cfg.ReadTimeout = a.flags.readTimeout
	}
	if a.flags.window != 0 {
		cfg.TransferWindow = a.flags.window
	}
	if a.flags.idleReads >= 0 {
		cfg.MaxIdleReads = a.flags.idleReads
	}
	if a.flags.opc >= 0 {
		cfg.OPCSync = a.flags.opc
	}
	if a.flags.debug {
		cfg.LogLevel = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	return a.setupLogger()
}

func (a *app) setupLogger() error {
	opts := logger.SlogOptions{Level: a.cfg.Level(), Output: a.stderr, Console: isTerminal(a.stderr)}

	if a.flags.logFile != "" {
		f, err := os.OpenFile(a.flags.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644) //nolint:gosec
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.close = func() { _ = f.Close() }
		opts.Output = f
		opts.Console = false
	}

	a.log = logger.NewSlogWithOptions(opts)
	logger.SetDefault(a.log)

	return nil
}

// hostname returns the instrument host from the arguments or the configuration.
func (a *app) hostname(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}

	if a.cfg.DefaultHostname != "" {
		return a.cfg.DefaultHostname, nil
	}

	return "", errors.New("no hostname given and default_hostname is not configured (try 'scopegrab discover')")
}

// options builds the capture options shared by the capture and info commands.
func (a *app) options(host string, assumeYes bool) capture.Options {
	return capture.Options{
		Host:           host,
		Port:           a.cfg.Port,
		SessionOptions: a.cfg.SessionOptions(),
		Logger:         a.log,
		Confirm:        a.confirmFunc(assumeYes),
	}
}

func (a *app) runCapture(cmd *cobra.Command, args []string, cf captureFlags) error {
	host, err := a.hostname(args)
	if err != nil {
		return err
	}

	opts := a.options(host, cf.yes)
	opts.Note = cf.note

	if cf.csv || cf.fileType == "csv" {
		opts.Mode = capture.ModeCSV
	} else {
		format, err := scope.ParseImageFormat(cf.fileType)
		if err != nil {
			return err
		}
		opts.ImageFormat = format
	}

	if len(args) > 1 {
		opts.Path = args[1]
	} else {
		dir, err := a.cfg.SavePath()
		if err != nil {
			return fmt.Errorf("resolve save path: %w", err)
		}
		opts.Dir = dir
	}

	res, err := capture.Run(cmd.Context(), opts)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Instrument ID: %q\n", res.Identity.Raw)
	if len(res.Channels) > 0 {
		fmt.Fprintf(a.stdout, "Channels: %v\n", res.Channels)
	}
	abs, err := filepath.Abs(res.Path)
	if err != nil {
		abs = res.Path
	}
	fmt.Fprintf(a.stdout, "Saved file: %q (%d bytes)\n", abs, res.Bytes)

	return nil
}
