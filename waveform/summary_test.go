package waveform

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	require := require.New(t)

	sum := Summarize(NewChannelTrace(Chan1, []string{"1.0e+00", "2.0e+00", "3.0e+00", "****"}))

	require.Equal(Chan1, sum.Channel)
	require.Equal(3, sum.Count)
	require.Equal(1, sum.Invalid)
	require.InDelta(1.0, sum.Min, 1e-12)
	require.InDelta(3.0, sum.Max, 1e-12)
	require.InDelta(2.0, sum.Mean, 1e-12)
	require.InDelta(1.0, sum.StdDev, 1e-12)
	require.InDelta(2.0, sum.Peak(), 1e-12)
	require.Contains(sum.String(), "CHAN1: n=3 invalid=1")
}

func TestSummarize_Degenerate(t *testing.T) {
	require := require.New(t)

	empty := Summarize(NewChannelTrace(Math, nil))
	require.Zero(empty.Count)
	require.Zero(empty.Mean)

	one := Summarize(NewChannelTrace(Math, []string{"-5e-3"}))
	require.Equal(1, one.Count)
	require.InDelta(-5e-3, one.Mean, 1e-12)
	require.False(math.IsNaN(one.StdDev))
	require.Zero(one.StdDev)
}
