package executor

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Summary holds per-timestep statistics of one series over the completed
// members of an ensemble.
type Summary struct {
	Mean   []float64
	StdDev []float64
	Min    []float64
	Max    []float64
	// Members is the number of completed members the statistics are over.
	Members int
}

// Summarize computes a Summary for every collected series. Failed members
// are skipped. The standard deviation is the unbiased sample estimate and is
// NaN for a single member.
func Summarize(members []Member, series int) []Summary {
	var done []Member
	for _, m := range members {
		if m.Err == nil && len(m.Series) == series {
			done = append(done, m)
		}
	}

	out := make([]Summary, series)
	for s := range out {
		if len(done) == 0 {
			continue
		}
		steps := len(done[0].Series[s])
		sum := Summary{
			Mean:    make([]float64, steps),
			StdDev:  make([]float64, steps),
			Min:     make([]float64, steps),
			Max:     make([]float64, steps),
			Members: len(done),
		}
		x := make([]float64, len(done))
		for t := 0; t < steps; t++ {
			lo, hi := math.Inf(1), math.Inf(-1)
			for i, m := range done {
				x[i] = m.Series[s][t]
				lo, hi = math.Min(lo, x[i]), math.Max(hi, x[i])
			}
			sum.Mean[t], sum.StdDev[t] = stat.MeanStdDev(x, nil)
			sum.Min[t], sum.Max[t] = lo, hi
		}
		out[s] = sum
	}
	return out
}
