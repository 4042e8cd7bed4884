package lxi

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-scopegrab/logger"
)

const testReadTimeout = 50 * time.Millisecond

// fragment is a piece of a reply written by the fake instrument after delay.
type fragment struct {
	delay time.Duration
	data  []byte
}

func frag(delay time.Duration, data string) fragment {
	return fragment{delay: delay, data: []byte(data)}
}

// pipeSession returns a session on one end of an in-memory connection and the
// instrument end of it.
func pipeSession(t *testing.T, opts ...ConnOption) (*Session, net.Conn) {
	t.Helper()

	client, server := net.Pipe()
	t.Cleanup(func() {
		_ = client.Close()
		_ = server.Close()
	})

	base := []ConnOption{
		WithReadTimeout(testReadTimeout),
		WithTransferWindow(2 * time.Second),
		WithLogger(logger.NewNopMockLogger()),
	}
	cfg, err := NewConnectionConfig("127.0.0.1", DefaultPort, append(base, opts...)...)
	require.NoError(t, err)

	session, err := NewSession(client, cfg)
	require.NoError(t, err)

	return session, server
}

// readCommand reads one newline-terminated command on the instrument end.
func readCommand(conn net.Conn) (string, error) {
	var line []byte
	one := make([]byte, 1)
	for {
		if _, err := conn.Read(one); err != nil {
			return string(line), err
		}
		if one[0] == '\n' {
			return string(line), nil
		}
		line = append(line, one[0])
	}
}

// respond reads one command, reports it on cmds, then writes the fragments.
func respond(conn net.Conn, cmds chan<- string, fragments ...fragment) {
	cmd, err := readCommand(conn)
	if err != nil {
		return
	}
	cmds <- cmd

	for _, f := range fragments {
		time.Sleep(f.delay)
		if _, err := conn.Write(f.data); err != nil {
			return
		}
	}
}
