package waveform

import (
	"bytes"
	"strings"

	"github.com/arloliu/go-scopegrab/internal/util"
)

// Channel names understood by the DS1000Z.
const (
	Chan1 = "CHAN1"
	Chan2 = "CHAN2"
	Chan3 = "CHAN3"
	Chan4 = "CHAN4"
	Math  = "MATH"
)

// ChannelOrder is the order in which channels are scanned and merged.
var ChannelOrder = []string{Chan1, Chan2, Chan3, Chan4, Math}

// IsChannel reports whether name is one of the channels in ChannelOrder.
func IsChannel(name string) bool {
	for _, ch := range ChannelOrder {
		if ch == name {
			return true
		}
	}

	return false
}

// ChannelTrace is the sample sequence captured from one channel.
type ChannelTrace struct {
	name    string
	samples []string
}

// NewChannelTrace creates a trace. The samples slice is copied.
func NewChannelTrace(name string, samples []string) *ChannelTrace {
	return &ChannelTrace{name: name, samples: util.CloneSlice(samples, 0)}
}

// Name returns the channel name, e.g. "CHAN1".
func (t *ChannelTrace) Name() string {
	return t.name
}

// Len returns the number of samples.
func (t *ChannelTrace) Len() int {
	return len(t.samples)
}

// Samples returns a copy of the sample texts.
func (t *ChannelTrace) Samples() []string {
	return util.CloneSlice(t.samples, 0)
}

// Sample returns the i-th sample text.
func (t *ChannelTrace) Sample(i int) string {
	return t.samples[i]
}

// ParseSamples splits a ":WAV:FORM ASC" payload into sample texts.
//
// The payload is a comma-separated list of values in scientific notation,
// usually with a trailing comma and newline. Surrounding whitespace is removed
// from the payload and from every token, and a single trailing empty token is
// dropped. An empty payload yields no samples.
func ParseSamples(payload []byte) []string {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return []string{}
	}

	tokens := strings.Split(string(payload), ",")
	for i, tok := range tokens {
		tokens[i] = strings.TrimSpace(tok)
	}

	if n := len(tokens); tokens[n-1] == "" {
		tokens = tokens[:n-1]
	}

	return tokens
}
