package lxi

import (
	"strings"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// SessionMetrics contains atomic metrics for a session.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type SessionMetrics struct {
	// CommandSendCount indicates the number of command lines written, *OPC? polls included.
	CommandSendCount atomic.Uint64
	// BytesReadCount indicates the number of reply bytes read from the socket.
	BytesReadCount atomic.Uint64
	// IdleTimeoutCount indicates the number of reads that ended on the idle timeout.
	IdleTimeoutCount atomic.Uint64
	// ResumedReadCount indicates the number of follow-up reads issued by block transfers.
	ResumedReadCount atomic.Uint64
	// BlockTransferCount indicates the number of completed block transfers.
	BlockTransferCount atomic.Uint64
	// IncompleteTransferCount indicates the number of block transfers declared incomplete.
	IncompleteTransferCount atomic.Uint64

	// commands counts sends per command header, e.g. ":WAV:STAR" for ":WAV:STAR 1".
	commands *xsync.MapOf[string, *atomic.Uint64]
}

func newSessionMetrics() *SessionMetrics {
	return &SessionMetrics{
		commands: xsync.NewMapOf[string, *atomic.Uint64](),
	}
}

// CommandCounts returns a snapshot of the per-command send counters.
func (m *SessionMetrics) CommandCounts() map[string]uint64 {
	out := make(map[string]uint64, m.commands.Size())
	m.commands.Range(func(key string, value *atomic.Uint64) bool {
		out[key] = value.Load()
		return true
	})

	return out
}

func (m *SessionMetrics) incCommand(cmd string) {
	m.CommandSendCount.Add(1)

	key := commandHeader(cmd)
	counter, _ := m.commands.LoadOrCompute(key, func() *atomic.Uint64 {
		return new(atomic.Uint64)
	})
	counter.Add(1)
}

func (m *SessionMetrics) addBytesRead(n int) {
	if n > 0 {
		m.BytesReadCount.Add(uint64(n))
	}
}

func (m *SessionMetrics) incIdleTimeout() {
	m.IdleTimeoutCount.Add(1)
}

func (m *SessionMetrics) incResumedRead() {
	m.ResumedReadCount.Add(1)
}

func (m *SessionMetrics) incBlockTransfer() {
	m.BlockTransferCount.Add(1)
}

func (m *SessionMetrics) incIncompleteTransfer() {
	m.IncompleteTransferCount.Add(1)
}

// commandHeader returns the SCPI program header of cmd, without parameters.
func commandHeader(cmd string) string {
	cmd = strings.TrimSpace(cmd)
	if i := strings.IndexByte(cmd, ' '); i >= 0 {
		return cmd[:i]
	}

	return cmd
}
