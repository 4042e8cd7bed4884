package main

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-scopegrab/capture"
	"github.com/arloliu/go-scopegrab/discovery"
	"github.com/arloliu/go-scopegrab/internal/scopesim"
	"github.com/arloliu/go-scopegrab/logger"
)

type cliResult struct {
	stdout string
	stderr string
	err    error
}

func runCLI(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &stdout, &stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())

	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// simSetup starts a simulator and writes a config file pointing at it.
func simSetup(t *testing.T, cfg scopesim.Config) (configPath, saveDir string) {
	t.Helper()

	srv := scopesim.New(cfg, logger.NewNopMockLogger())
	require.NoError(t, srv.Start("127.0.0.1:0"))
	t.Cleanup(func() { _ = srv.Close() })

	dir := t.TempDir()
	saveDir = filepath.Join(dir, "captures")
	require.NoError(t, os.Mkdir(saveDir, 0o755))

	configPath = filepath.Join(dir, "scopegrab.yaml")
	content := fmt.Sprintf("default_hostname: %s\ndefault_save_path: %s\nport: %d\nread_timeout: 100ms\nconnect_retries: 0\n",
		srv.Host(), saveDir, srv.Port())
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o600))

	return configPath, saveDir
}

func savedFiles(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names
}

func TestCLI_Screen(t *testing.T) {
	require := require.New(t)

	configPath, saveDir := simSetup(t, scopesim.Config{Screen: []byte("png-bytes")})

	res := runCLI(t, "", "--config", configPath, "--note", "bench test")
	require.NoError(res.err)
	require.Contains(res.stdout, "Instrument ID:")
	require.Contains(res.stdout, "bench_test.png")
	require.Equal([]string{"bench_test.png"}, savedFiles(t, saveDir))

	data, err := os.ReadFile(filepath.Join(saveDir, "bench_test.png"))
	require.NoError(err)
	require.Equal("png-bytes", string(data))
}

func TestCLI_CSVWithExplicitHostAndFile(t *testing.T) {
	require := require.New(t)

	srv := scopesim.New(scopesim.Config{Channels: map[string][]string{"CHAN1": {"1", "2"}}}, logger.NewNopMockLogger())
	require.NoError(srv.Start("127.0.0.1:0"))
	t.Cleanup(func() { _ = srv.Close() })

	out := filepath.Join(t.TempDir(), "trace.csv")
	res := runCLI(t, "",
		"--config", filepath.Join(t.TempDir(), "absent.yaml"),
		"--port", strconv.Itoa(srv.Port()),
		"--timeout", "100ms",
		"--csv",
		srv.Host(), out,
	)
	require.NoError(res.err)
	require.Contains(res.stdout, "Channels: [CHAN1]")

	data, err := os.ReadFile(out)
	require.NoError(err)
	require.Equal("CHAN1\n1\n2\n", string(data))
}

func TestCLI_ImageType(t *testing.T) {
	configPath, saveDir := simSetup(t, scopesim.Config{Screen: []byte("jpeg")})

	res := runCLI(t, "", "--config", configPath, "-t", "jpeg", "-n", "shot")
	require.NoError(t, res.err)
	require.Equal(t, []string{"shot.jpg"}, savedFiles(t, saveDir))

	res = runCLI(t, "", "--config", configPath, "-t", "gif")
	require.Error(t, res.err)
}

func TestCLI_UnrecognizedInstrument(t *testing.T) {
	cfg := scopesim.Config{Identity: "ACME,X1,1,1", Screen: []byte("img")}

	t.Run("non-interactive aborts", func(t *testing.T) {
		configPath, saveDir := simSetup(t, cfg)

		res := runCLI(t, "Yes\n", "--config", configPath)
		require.ErrorIs(t, res.err, capture.ErrAborted)
		require.Contains(t, res.stderr, "use --yes")
		require.Empty(t, savedFiles(t, saveDir))
	})

	t.Run("yes flag continues", func(t *testing.T) {
		configPath, saveDir := simSetup(t, cfg)

		res := runCLI(t, "", "--config", configPath, "--yes")
		require.NoError(t, res.err)
		require.Len(t, savedFiles(t, saveDir), 1)
	})

	t.Run("operator answers", func(t *testing.T) {
		orig := isTerminal
		isTerminal = func(any) bool { return true }
		t.Cleanup(func() { isTerminal = orig })

		configPath, saveDir := simSetup(t, cfg)
		res := runCLI(t, "yes\n", "--config", configPath)
		require.ErrorIs(t, res.err, capture.ErrAborted)

		res = runCLI(t, "Yes\n", "--config", configPath)
		require.NoError(t, res.err)
		require.Len(t, savedFiles(t, saveDir), 1)
	})
}

func TestCLI_NoHostname(t *testing.T) {
	res := runCLI(t, "", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.ErrorContains(t, res.err, "no hostname given")
}

func TestCLI_InvalidConfig(t *testing.T) {
	res := runCLI(t, "", "--config", filepath.Join(t.TempDir(), "absent.yaml"), "--timeout", "5m", "host")
	require.ErrorContains(t, res.err, "read timeout out of range")
}

func TestCLI_LogFile(t *testing.T) {
	require := require.New(t)

	configPath, _ := simSetup(t, scopesim.Config{Screen: []byte("img")})
	logPath := filepath.Join(t.TempDir(), "scopegrab.log")

	res := runCLI(t, "", "--config", configPath, "--debug", "--log-file", logPath)
	require.NoError(res.err)

	data, err := os.ReadFile(logPath)
	require.NoError(err)
	require.Contains(string(data), `"msg":"capture saved"`)
	require.Contains(string(data), `"level":"DEBUG"`)
}

func TestCLI_Info(t *testing.T) {
	require := require.New(t)

	configPath, _ := simSetup(t, scopesim.Config{
		Channels:    map[string][]string{"CHAN4": {"1"}},
		MemoryDepth: "AUTO",
		SampleRate:  "5.000000e+08",
		TimeScale:   "2.000000e-06",
	})

	res := runCLI(t, "", "--config", configPath, "info")
	require.NoError(res.err)
	require.Contains(res.stdout, "Model:        DS1104Z")
	require.Contains(res.stdout, "Channels:     CHAN4")
	require.Contains(res.stdout, "Memory depth: 12000 points")
}

func TestCLI_Discover(t *testing.T) {
	require := require.New(t)

	orig := browse
	t.Cleanup(func() { browse = orig })

	var gotTimeout time.Duration
	browse = func(_ context.Context, timeout time.Duration, _ ...string) ([]discovery.Instrument, error) {
		gotTimeout = timeout
		return []discovery.Instrument{{
			Instance:  "RIGOL DS1104Z",
			Hostname:  "ds1104z.local.",
			Addresses: []net.IP{net.ParseIP("192.168.1.3")},
			Port:      5555,
			Service:   discovery.ServiceSCPIRaw,
		}}, nil
	}

	res := runCLI(t, "", "--config", filepath.Join(t.TempDir(), "absent.yaml"), "discover", "--timeout", "500ms")
	require.NoError(res.err)
	require.Equal(500*time.Millisecond, gotTimeout)
	require.Contains(res.stdout, "HOST")
	require.Contains(res.stdout, "192.168.1.3")
	require.Contains(res.stdout, "ds1104z.local")

	browse = func(context.Context, time.Duration, ...string) ([]discovery.Instrument, error) {
		return nil, nil
	}
	res = runCLI(t, "", "--config", filepath.Join(t.TempDir(), "absent.yaml"), "discover")
	require.NoError(res.err)
	require.Contains(res.stdout, "No instruments found.")
}

func TestAsk(t *testing.T) {
	var out bytes.Buffer
	require.True(t, ask(strings.NewReader("Yes\r\n"), &out, "? "))
	require.False(t, ask(strings.NewReader("y\n"), &out, "? "))
	require.False(t, ask(strings.NewReader(""), &out, "? "))
	require.True(t, ask(strings.NewReader("Yes"), &out, "? "))
}
