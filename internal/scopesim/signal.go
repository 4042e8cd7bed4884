package scopesim

import (
	"math"
	"strconv"
)

// Sine returns n samples of a sine wave of the given amplitude completing
// periods full cycles, formatted like the instrument's ASCII waveform data.
func Sine(n int, amplitude, periods float64) []string {
	samples := make([]string, n)
	for i := range samples {
		v := amplitude * math.Sin(2*math.Pi*periods*float64(i)/float64(n))
		samples[i] = strconv.FormatFloat(v, 'e', 6, 64)
	}

	return samples
}

// Square returns n samples alternating between low and high every half period.
func Square(n int, low, high float64, periods float64) []string {
	samples := make([]string, n)
	half := float64(n) / (2 * periods)
	for i := range samples {
		v := low
		if int(float64(i)/half)%2 == 0 {
			v = high
		}
		samples[i] = strconv.FormatFloat(v, 'e', 6, 64)
	}

	return samples
}
