package capture

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-scopegrab/internal/scopesim"
	"github.com/arloliu/go-scopegrab/logger"
	"github.com/arloliu/go-scopegrab/lxi"
	"github.com/arloliu/go-scopegrab/scope"
)

var captureTime = time.Date(2024, 5, 1, 13, 14, 15, 0, time.Local)

func startSim(t *testing.T, cfg scopesim.Config) *scopesim.Server {
	t.Helper()

	srv := scopesim.New(cfg, logger.NewNopMockLogger())
	require.NoError(t, srv.Start("127.0.0.1:0"))
	t.Cleanup(func() { _ = srv.Close() })

	return srv
}

func simOptions(t *testing.T, srv *scopesim.Server) Options {
	t.Helper()

	return Options{
		Host: srv.Host(),
		Port: srv.Port(),
		Dir:  t.TempDir(),
		SessionOptions: []lxi.ConnOption{
			lxi.WithReadTimeout(100 * time.Millisecond),
			lxi.WithConnectRetries(0),
		},
		Logger: logger.NewNopMockLogger(),
		Now:    func() time.Time { return captureTime },
	}
}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names
}

func TestRun_Screen(t *testing.T) {
	require := require.New(t)

	screen := []byte("\x89PNG\r\n\x1a\n-image-bytes-\n")
	srv := startSim(t, scopesim.Config{Screen: screen})
	opts := simOptions(t, srv)

	res, err := Run(context.Background(), opts)
	require.NoError(err)
	require.Equal(filepath.Join(opts.Dir, "DS1104Z_2024-05-01_13.14.15.png"), res.Path)
	require.Equal(len(screen), res.Bytes)
	require.Equal("DS1104Z", res.Identity.Model)

	data, err := os.ReadFile(res.Path)
	require.NoError(err)
	require.Equal(screen, data)
	require.Equal([]string{"DS1104Z_2024-05-01_13.14.15.png"}, dirEntries(t, opts.Dir))
	require.Contains(srv.Commands(), ":DISP:DATA? ON,OFF,PNG")
}

func TestRun_ScreenFormatAndNote(t *testing.T) {
	require := require.New(t)

	srv := startSim(t, scopesim.Config{Screen: []byte("BM....")})
	opts := simOptions(t, srv)
	opts.ImageFormat = scope.BMP8
	opts.Note = "scl glitch"

	res, err := Run(context.Background(), opts)
	require.NoError(err)
	require.Equal(filepath.Join(opts.Dir, "scl_glitch.bmp"), res.Path)
	require.Contains(srv.Commands(), ":DISP:DATA? ON,OFF,BMP8")

	res, err = Run(context.Background(), opts)
	require.NoError(err)
	require.Equal(filepath.Join(opts.Dir, "scl_glitch_2.bmp"), res.Path)
}

func TestRun_ExplicitPath(t *testing.T) {
	srv := startSim(t, scopesim.Config{Screen: []byte("img")})
	opts := simOptions(t, srv)
	opts.Path = filepath.Join(opts.Dir, "shot.png")

	res, err := Run(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, opts.Path, res.Path)
}

func TestRun_CSV(t *testing.T) {
	require := require.New(t)

	srv := startSim(t, scopesim.Config{
		Channels: map[string][]string{
			"CHAN1": {"1", "2"},
			"CHAN3": {"3", "4", "5"},
		},
	})
	opts := simOptions(t, srv)
	opts.Mode = ModeCSV

	res, err := Run(context.Background(), opts)
	require.NoError(err)
	require.Equal(filepath.Join(opts.Dir, "DS1104Z_2024-05-01_13.14.15.csv"), res.Path)
	require.Equal([]string{"CHAN1", "CHAN3"}, res.Channels)

	data, err := os.ReadFile(res.Path)
	require.NoError(err)
	require.Equal("CHAN1,CHAN3\n1,3\n2,4\n,5\n", string(data))
}

func TestRun_CSVNoActiveChannels(t *testing.T) {
	srv := startSim(t, scopesim.Config{})
	opts := simOptions(t, srv)
	opts.Mode = ModeCSV

	_, err := Run(context.Background(), opts)
	require.ErrorIs(t, err, ErrNoActiveChannels)
	require.Empty(t, dirEntries(t, opts.Dir))
}

func TestRun_IncompleteWritesNothing(t *testing.T) {
	srv := startSim(t, scopesim.Config{Screen: make([]byte, 4096), Withhold: 100})
	opts := simOptions(t, srv)

	_, err := Run(context.Background(), opts)
	require.ErrorIs(t, err, lxi.ErrTransferIncomplete)
	require.Empty(t, dirEntries(t, opts.Dir))
}

func TestRun_Rejected(t *testing.T) {
	srv := startSim(t, scopesim.Config{Reject: true})
	opts := simOptions(t, srv)

	_, err := Run(context.Background(), opts)
	require.ErrorIs(t, err, scope.ErrInstrumentRejected)
}

func TestRun_UnrecognizedInstrument(t *testing.T) {
	cfg := scopesim.Config{
		Identity: "RIGOL TECHNOLOGIES,DS2072A,DS2A000001,00.03.06",
		Screen:   []byte("img"),
	}

	t.Run("declined", func(t *testing.T) {
		srv := startSim(t, cfg)
		opts := simOptions(t, srv)
		var asked scope.Identity
		opts.Confirm = func(id scope.Identity) bool {
			asked = id
			return false
		}

		_, err := Run(context.Background(), opts)
		require.ErrorIs(t, err, ErrAborted)
		require.ErrorIs(t, err, scope.ErrUnrecognizedInstrument)
		require.Equal(t, "DS2072A", asked.Model)
		require.Empty(t, dirEntries(t, opts.Dir))
	})

	t.Run("no confirm func", func(t *testing.T) {
		srv := startSim(t, cfg)

		_, err := Run(context.Background(), simOptions(t, srv))
		require.ErrorIs(t, err, ErrAborted)
	})

	t.Run("confirmed", func(t *testing.T) {
		srv := startSim(t, cfg)
		opts := simOptions(t, srv)
		opts.Confirm = func(scope.Identity) bool { return true }

		res, err := Run(context.Background(), opts)
		require.NoError(t, err)
		require.Equal(t, filepath.Join(opts.Dir, "DS2072A_2024-05-01_13.14.15.png"), res.Path)
	})
}

func TestRun_HostRequired(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	require.ErrorIs(t, err, ErrHostRequired)
}

func TestRun_DialFailure(t *testing.T) {
	srv := startSim(t, scopesim.Config{})
	opts := simOptions(t, srv)
	require.NoError(t, srv.Close())

	_, err := Run(context.Background(), opts)
	require.ErrorContains(t, err, "dial")
}

func TestInspect(t *testing.T) {
	require := require.New(t)

	srv := startSim(t, scopesim.Config{
		Channels:    map[string][]string{"CHAN2": {"1"}, "MATH": {"2"}},
		MemoryDepth: "24000",
	})

	report, err := Inspect(context.Background(), simOptions(t, srv))
	require.NoError(err)
	require.Equal("DS1104Z", report.Identity.Model)
	require.Equal([]string{"CHAN2", "MATH"}, report.Channels)
	require.Equal(24000, report.MemoryDepth)
}

func TestWriteFile(t *testing.T) {
	require := require.New(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "out.csv")
	require.NoError(writeFile(path, []byte("a")))
	require.NoError(writeFile(path, []byte("b")))

	data, err := os.ReadFile(path)
	require.NoError(err)
	require.Equal("b", string(data))
	require.Equal([]string{"out.csv"}, dirEntries(t, dir))

	require.Error(writeFile(filepath.Join(dir, "missing", "out.csv"), []byte("a")))
}

func TestMode_String(t *testing.T) {
	require.Equal(t, "screen", ModeScreen.String())
	require.Equal(t, "csv", ModeCSV.String())
	require.Equal(t, "Mode(7)", Mode(7).String())
}
