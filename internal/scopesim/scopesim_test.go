package scopesim

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-scopegrab/logger"
)

func startServer(t *testing.T, cfg Config) *Server {
	t.Helper()

	srv := New(cfg, logger.NewNopMockLogger())
	require.NoError(t, srv.Start("127.0.0.1:0"))
	t.Cleanup(func() { _ = srv.Close() })

	return srv
}

func dialRaw(t *testing.T, srv *Server) (net.Conn, *bufio.Reader) {
	t.Helper()

	conn, err := net.DialTimeout("tcp", srv.Addr(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, conn.SetDeadline(time.Now().Add(5*time.Second)))

	return conn, bufio.NewReader(conn)
}

func ask(t *testing.T, conn net.Conn, r *bufio.Reader, cmd string) string {
	t.Helper()

	_, err := conn.Write([]byte(cmd + "\n"))
	require.NoError(t, err)

	line, err := r.ReadString('\n')
	require.NoError(t, err)

	return line
}

func TestServer_Queries(t *testing.T) {
	require := require.New(t)

	srv := startServer(t, Config{
		Channels:  map[string][]string{"CHAN2": {"1", "2", "3"}},
		BusyPolls: 1,
	})
	require.Equal("127.0.0.1", srv.Host())
	require.Positive(srv.Port())

	conn, r := dialRaw(t, srv)
	require.Equal(DefaultIdentity+"\n", ask(t, conn, r, "*IDN?"))
	require.Equal("0\n", ask(t, conn, r, "*OPC?"))
	require.Equal("1\n", ask(t, conn, r, "*OPC?"))
	require.Equal("0\n", ask(t, conn, r, ":CHAN1:DISP?"))
	require.Equal("1\n", ask(t, conn, r, ":CHAN2:DISP?"))
	require.Equal("AUTO\n", ask(t, conn, r, ":ACQ:MDEP?"))
	require.Equal("command error\n", ask(t, conn, r, ":FOO:BAR?"))

	_, err := conn.Write([]byte(":WAV:SOUR CHAN2\n:WAV:STAR 2\n:WAV:STOP 3\n"))
	require.NoError(err)
	require.Equal("#9000000004" + "2,3,\n", ask(t, conn, r, ":WAV:DATA?"))

	require.Eventually(func() bool { return len(srv.Commands()) == 11 }, time.Second, 10*time.Millisecond)
	require.Equal(":WAV:SOUR CHAN2", srv.Commands()[7])
}

func TestServer_Reject(t *testing.T) {
	srv := startServer(t, Config{Reject: true})
	conn, r := dialRaw(t, srv)

	require.Equal(t, "command error\n", ask(t, conn, r, "*IDN?"))
}

func TestServer_WithheldBlock(t *testing.T) {
	require := require.New(t)

	srv := startServer(t, Config{Screen: []byte("abcdef"), Withhold: 2, FragmentSize: 4})
	conn, _ := dialRaw(t, srv)

	_, err := conn.Write([]byte(":DISP:DATA? ON,OFF,PNG\n"))
	require.NoError(err)

	buf := make([]byte, 64)
	var got []byte
	require.NoError(conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond)))
	for {
		n, err := conn.Read(buf)
		got = append(got, buf[:n]...)
		if err != nil {
			break
		}
	}
	require.Equal("#9000000006abcd", string(got))
}

func TestSignals(t *testing.T) {
	require := require.New(t)

	sine := Sine(8, 2, 1)
	require.Len(sine, 8)
	require.Equal("0.000000e+00", sine[0])
	require.Equal("2.000000e+00", sine[2])

	square := Square(4, 0, 5, 1)
	require.Equal([]string{"5.000000e+00", "5.000000e+00", "0.000000e+00", "0.000000e+00"}, square)
}

func TestServer_CloseWithConnectingClients(t *testing.T) {
	require := require.New(t)

	srv := New(Config{}, logger.NewNopMockLogger())
	require.NoError(srv.Start("127.0.0.1:0"))
	addr := srv.Addr()

	// clients keep connecting while the server shuts down
	stop := make(chan struct{})
	dialed := make(chan struct{})
	go func() {
		defer close(dialed)
		var conns []net.Conn
		defer func() {
			for _, c := range conns {
				_ = c.Close()
			}
		}()
		for {
			select {
			case <-stop:
				return
			default:
			}
			conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
			if err != nil {
				continue
			}
			conns = append(conns, conn)
		}
	}()

	time.Sleep(20 * time.Millisecond)

	closed := make(chan error, 1)
	go func() { closed <- srv.Close() }()

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		require.FailNow("Close did not return")
	}
	close(stop)
	<-dialed
}
