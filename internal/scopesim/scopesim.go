// Package scopesim is a TCP simulator of a Rigol DS1000Z raw SCPI socket. It
// answers the subset of commands used by the scope package and can split its
// block replies into delayed fragments to reproduce slow instrument transfers.
package scopesim

import (
	"bufio"
	"errors"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-scopegrab/internal/pool"
	"github.com/arloliu/go-scopegrab/logger"
	"github.com/arloliu/go-scopegrab/tmc"
)

var errServerClosed = errors.New("simulator closed")

// DefaultIdentity is the *IDN? reply of the simulated instrument.
const DefaultIdentity = "RIGOL TECHNOLOGIES,DS1104Z,DS1ZA000000001,00.04.04.SP3"

// Config describes the simulated instrument.
type Config struct {
	// Identity is the *IDN? reply. Defaults to DefaultIdentity.
	Identity string
	// Reject makes every query answer "command error".
	Reject bool
	// Channels maps displayed channels to their full sample lists.
	Channels map[string][]string
	// Screen is the payload returned by ":DISP:DATA?".
	Screen []byte
	// MemoryDepth is the ":ACQ:MDEP?" reply. Defaults to "AUTO".
	MemoryDepth string
	// SampleRate is the ":ACQ:SRAT?" reply. Defaults to "1.000000e+09".
	SampleRate string
	// TimeScale is the ":TIM:SCAL?" reply. Defaults to "1.000000e-06".
	TimeScale string
	// BusyPolls is the number of "0" replies to *OPC? before "1".
	BusyPolls int

	// FragmentSize splits block replies into writes of at most this many bytes.
	// Zero writes each reply at once.
	FragmentSize int
	// FragmentDelay is the pause before every fragment after the first.
	FragmentDelay time.Duration
	// Withhold drops this many bytes from the end of every block payload.
	Withhold int
}

// Server is a running simulator.
type Server struct {
	cfg    Config
	logger logger.Logger
	ln     net.Listener

	done chan struct{}

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	commands []string

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New creates a simulator. It does not listen until Start is called.
func New(cfg Config, l logger.Logger) *Server {
	if cfg.Identity == "" {
		cfg.Identity = DefaultIdentity
	}
	if cfg.MemoryDepth == "" {
		cfg.MemoryDepth = "AUTO"
	}
	if cfg.SampleRate == "" {
		cfg.SampleRate = "1.000000e+09"
	}
	if cfg.TimeScale == "" {
		cfg.TimeScale = "1.000000e-06"
	}
	if l == nil {
		l = logger.GetLogger()
	}

	return &Server{
		cfg:    cfg,
		logger: l,
		conns:  make(map[net.Conn]struct{}),
		done:   make(chan struct{}),
	}
}

// Start listens on addr, e.g. "127.0.0.1:0", and serves connections in the background.
func (s *Server) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.ln = ln

	s.wg.Add(1)
	go s.acceptLoop()

	s.logger.Info("simulator listening", "address", ln.Addr().String())

	return nil
}

// Addr returns the listening address.
func (s *Server) Addr() string {
	return s.ln.Addr().String()
}

// Host returns the listening IP address.
func (s *Server) Host() string {
	host, _, _ := net.SplitHostPort(s.Addr())
	return host
}

// Port returns the listening port.
func (s *Server) Port() int {
	_, port, _ := net.SplitHostPort(s.Addr())
	n, _ := strconv.Atoi(port)

	return n
}

// Commands returns every command received so far, in order.
func (s *Server) Commands() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.commands...)
}

// Close stops listening, closes open connections and waits for the handlers.
func (s *Server) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	err := s.ln.Close()

	s.mu.Lock()
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()

	return err
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) {
				s.logger.Error("accept failed", "error", err)
			}

			return
		}

		// Close may have swept the connection set already
		s.mu.Lock()
		select {
		case <-s.done:
			s.mu.Unlock()
			_ = conn.Close()

			return
		default:
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.serve(conn)
	}
}

// waveState is the ":WAV" configuration of one connection.
type waveState struct {
	source string
	start  int
	stop   int
	busy   int
}

func (s *Server) serve(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	state := &waveState{source: "CHAN1", start: 1, stop: 1200, busy: s.cfg.BusyPolls}
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}

		cmd := strings.TrimSpace(line)
		if cmd == "" {
			continue
		}

		s.mu.Lock()
		s.commands = append(s.commands, cmd)
		s.mu.Unlock()

		if err := s.handle(conn, state, cmd); err != nil {
			s.logger.Debug("reply write failed", "cmd", cmd, "error", err)
			return
		}
	}
}

func (s *Server) handle(conn net.Conn, state *waveState, cmd string) error {
	verb, arg, _ := strings.Cut(cmd, " ")
	verb = strings.ToUpper(verb)

	if s.cfg.Reject && strings.HasSuffix(verb, "?") {
		return writeLine(conn, "command error")
	}

	switch verb {
	case "*IDN?":
		return writeLine(conn, s.cfg.Identity)
	case "*OPC?":
		if state.busy > 0 {
			state.busy--
			return writeLine(conn, "0")
		}

		return writeLine(conn, "1")
	case ":ACQ:MDEP?":
		return writeLine(conn, s.cfg.MemoryDepth)
	case ":ACQ:SRAT?":
		return writeLine(conn, s.cfg.SampleRate)
	case ":TIM:SCAL?":
		return writeLine(conn, s.cfg.TimeScale)
	case ":DISP:DATA?":
		return s.writeBlock(conn, s.cfg.Screen)
	case ":WAV:SOUR":
		state.source = strings.ToUpper(arg)
	case ":WAV:STAR":
		state.start, _ = strconv.Atoi(arg)
	case ":WAV:STOP":
		state.stop, _ = strconv.Atoi(arg)
	case ":WAV:MODE", ":WAV:FORM":
	case ":WAV:DATA?":
		return s.writeBlock(conn, []byte(s.samples(state)))
	default:
		if ch, ok := strings.CutSuffix(verb, ":DISP?"); ok {
			if _, on := s.cfg.Channels[strings.TrimPrefix(ch, ":")]; on {
				return writeLine(conn, "1")
			}

			return writeLine(conn, "0")
		}

		if strings.HasSuffix(verb, "?") {
			return writeLine(conn, "command error")
		}
	}

	return nil
}

// samples renders the selected window of the current source the way the
// instrument does in ASCII format: comma-separated with a trailing comma.
func (s *Server) samples(state *waveState) string {
	all := s.cfg.Channels[state.source]

	start, stop := state.start, state.stop
	if state.source == "MATH" {
		start, stop = 1, 1200
	}
	start = max(start, 1)
	stop = min(stop, len(all))
	if start > stop {
		return ""
	}

	var sb strings.Builder
	for _, v := range all[start-1 : stop] {
		sb.WriteString(v)
		sb.WriteByte(',')
	}

	return sb.String()
}

func writeLine(conn net.Conn, text string) error {
	_, err := conn.Write([]byte(text + "\n"))
	return err
}

func (s *Server) writeBlock(conn net.Conn, payload []byte) error {
	hdr, err := tmc.EncodeHeader(len(payload), tmc.MaxDigits)
	if err != nil {
		return err
	}

	reply := make([]byte, 0, len(hdr)+len(payload)+1)
	reply = append(reply, hdr...)
	if s.cfg.Withhold > 0 {
		reply = append(reply, payload[:max(len(payload)-s.cfg.Withhold, 0)]...)
	} else {
		reply = append(reply, payload...)
		reply = append(reply, '\n')
	}

	size := s.cfg.FragmentSize
	if size <= 0 {
		size = len(reply)
	}

	for pos := 0; pos < len(reply); pos += size {
		if pos > 0 && !pool.Pause(s.cfg.FragmentDelay, s.done) {
			return errServerClosed
		}

		end := min(pos+size, len(reply))
		if _, err := conn.Write(reply[pos:end]); err != nil {
			return err
		}
	}

	return nil
}
