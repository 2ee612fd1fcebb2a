package cache

import "math"

// #region hrv-stats

// HRVStats holds heart-rate-variability statistics over a list of RR
// intervals (ms). All formulas are the standard short-term HRV
// definitions: SDNN is the population standard deviation of RR values,
// RMSSD the root-mean-square of successive differences, and pNN50 the
// percentage of successive differences whose absolute value exceeds 50ms.
type HRVStats struct {
	MeanRR float64
	SDNN   float64
	RMSSD  float64
	PNN50  float64
	Count  int
}

// #endregion hrv-stats

// #region compute

// ComputeHRV derives HRVStats from rr. At least 2 intervals are required;
// with fewer there is no successive difference to measure and ok is false.
func ComputeHRV(rr []float64) (HRVStats, bool) {
	if len(rr) < 2 {
		return HRVStats{}, false
	}

	mean, std := meanStd(rr)

	var sumSq float64
	over50 := 0
	diffs := len(rr) - 1
	for i := 1; i < len(rr); i++ {
		d := rr[i] - rr[i-1]
		sumSq += d * d
		if math.Abs(d) > 50 {
			over50++
		}
	}

	return HRVStats{
		MeanRR: mean,
		SDNN:   std,
		RMSSD:  math.Sqrt(sumSq / float64(diffs)),
		PNN50:  100 * float64(over50) / float64(diffs),
		Count:  len(rr),
	}, true
}

// #endregion compute
