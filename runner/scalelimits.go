package runner

import (
	"regexp"
	"strconv"
)

// Queries may annotate fields with @scaleLimits(rate: N) to declare
// that processing cost grows with input size. The budget is scaled by
// the largest declared rate applied to the input size in kilobytes,
// clamped so a hostile query cannot lift the limits without bound.
var scaleLimitsPattern = regexp.MustCompile(`@scaleLimits\(\s*rate\s*:\s*([0-9]*\.?[0-9]+)\s*\)`)

const maxScaleFactor = 10.0

// ScaleFactor computes the budget multiplier for a query source and
// input size. It is always at least 1.
func ScaleFactor(source string, inputBytes int) float64 {
	maxRate := 0.0
	for _, m := range scaleLimitsPattern.FindAllStringSubmatch(source, -1) {
		rate, err := strconv.ParseFloat(m[1], 64)
		if err != nil || rate <= 0 {
			continue
		}
		if rate > maxRate {
			maxRate = rate
		}
	}
	if maxRate == 0 {
		return 1
	}
	factor := maxRate * float64(inputBytes) / 1024.0
	if factor < 1 {
		return 1
	}
	if factor > maxScaleFactor {
		return maxScaleFactor
	}
	return factor
}
