package waveform

import (
	"fmt"
	"strconv"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds basic statistics over the numeric samples of a trace.
type Summary struct {
	Channel string
	Count   int
	Invalid int
	Min     float64
	Max     float64
	Mean    float64
	StdDev  float64
}

// Summarize computes statistics for trace. Samples that are not valid numbers
// are counted in Invalid and otherwise ignored.
func Summarize(trace *ChannelTrace) Summary {
	sum := Summary{Channel: trace.name}

	values := make([]float64, 0, len(trace.samples))
	for _, s := range trace.samples {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			sum.Invalid++
			continue
		}
		values = append(values, v)
	}

	sum.Count = len(values)
	if sum.Count == 0 {
		return sum
	}

	sum.Min = floats.Min(values)
	sum.Max = floats.Max(values)
	sum.Mean, sum.StdDev = stat.MeanStdDev(values, nil)
	if sum.Count == 1 {
		sum.StdDev = 0
	}

	return sum
}

// Peak returns the peak-to-peak amplitude.
func (s Summary) Peak() float64 {
	return s.Max - s.Min
}

func (s Summary) String() string {
	return fmt.Sprintf("%s: n=%d invalid=%d min=%g max=%g mean=%g stddev=%g",
		s.Channel, s.Count, s.Invalid, s.Min, s.Max, s.Mean, s.StdDev)
}
