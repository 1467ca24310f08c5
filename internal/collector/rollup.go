package collector

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// ChannelRollup summarizes the smoothed activation of one channel over a
// window of frames, in raw ADC counts.
type ChannelRollup struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	P50   float64 `json:"p50"`
	P85   float64 `json:"p85"`
	P98   float64 `json:"p98"`
	Max   float64 `json:"max"`
}

// ActivationRollup pairs the per-channel summaries over the same window.
type ActivationRollup struct {
	Frames int           `json:"frames"`
	Ch0    ChannelRollup `json:"ch0"`
	Ch1    ChannelRollup `json:"ch1"`
}

// ComputeRollup summarizes the smoothed activation series of the given
// frames. An empty window yields zeroes.
func ComputeRollup(frames []*StoredFrame) ActivationRollup {
	var ch0, ch1 []float64
	for _, sf := range frames {
		for _, sample := range sf.Frame.Samples {
			ch0 = append(ch0, float64(sample.Ch0.EMA))
			ch1 = append(ch1, float64(sample.Ch1.EMA))
		}
	}
	return ActivationRollup{
		Frames: len(frames),
		Ch0:    rollupSeries(ch0),
		Ch1:    rollupSeries(ch1),
	}
}

func rollupSeries(xs []float64) ChannelRollup {
	if len(xs) == 0 {
		return ChannelRollup{}
	}
	sort.Float64s(xs)
	return ChannelRollup{
		Count: len(xs),
		Mean:  stat.Mean(xs, nil),
		P50:   stat.Quantile(0.50, stat.Empirical, xs, nil),
		P85:   stat.Quantile(0.85, stat.Empirical, xs, nil),
		P98:   stat.Quantile(0.98, stat.Empirical, xs, nil),
		Max:   xs[len(xs)-1],
	}
}
