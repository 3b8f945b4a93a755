package core

import (
	"math"
	"sort"
	"strconv"

	"github.com/dkeye/Pointing/internal/domain"
)

// Estimate aggregates one round of raw card values. Numeric math runs over
// the parseable subset; the mode and consensus checks see every card,
// including the "?" and "∞" markers.
func Estimate(values []string) domain.EstimationResult {
	numeric := make([]float64, 0, len(values))
	for _, v := range values {
		if v == domain.CardUnknown || v == domain.CardInfinity {
			continue
		}
		// ParseFloat accepts "NaN" and "Inf"; neither survives
		// json.Marshal, so they never enter the numeric subset.
		if n, err := strconv.ParseFloat(v, 64); err == nil && !math.IsNaN(n) && !math.IsInf(n, 0) {
			numeric = append(numeric, n)
		}
	}
	sort.Float64s(numeric)

	return domain.EstimationResult{
		Average:      round2(mean(numeric)),
		Median:       median(numeric),
		Mode:         mode(values),
		HasConsensus: consensus(values, numeric),
	}
}

func mean(nums []float64) float64 {
	if len(nums) == 0 {
		return 0
	}
	var sum float64
	for _, n := range nums {
		sum += n
	}
	return sum / float64(len(nums))
}

// median expects nums sorted.
func median(nums []float64) float64 {
	n := len(nums)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return nums[n/2]
	}
	return (nums[n/2-1] + nums[n/2]) / 2
}

// mode returns every value hitting the highest frequency, sorted for a
// stable payload.
func mode(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}
	counts := make(map[string]int)
	best := 0
	for _, v := range values {
		counts[v]++
		if counts[v] > best {
			best = counts[v]
		}
	}
	out := make([]string, 0, 1)
	for v, c := range counts {
		if c == best {
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}

// consensus holds when more than one vote was cast and either every raw
// value is identical, or every value is numeric and the spread stays
// within one step of the card scale. A single "?" among numbers breaks
// consensus.
func consensus(values []string, numeric []float64) bool {
	if len(values) < 2 {
		return false
	}
	identical := true
	for _, v := range values[1:] {
		if v != values[0] {
			identical = false
			break
		}
	}
	if identical {
		return true
	}
	if len(numeric) != len(values) {
		return false
	}
	if lo, hi, onScale := scaleSpan(values); onScale {
		return hi-lo <= 1
	}
	// Off-deck numeric votes fall back to a raw spread of one.
	return numeric[len(numeric)-1]-numeric[0] <= 1
}

// scaleSpan maps values onto CardScale positions. onScale is false as
// soon as one value is not a deck card.
func scaleSpan(values []string) (lo, hi int, onScale bool) {
	lo, hi = len(domain.CardScale), -1
	for _, v := range values {
		idx := -1
		for i, card := range domain.CardScale {
			if card == v {
				idx = i
				break
			}
		}
		if idx < 0 {
			return 0, 0, false
		}
		if idx < lo {
			lo = idx
		}
		if idx > hi {
			hi = idx
		}
	}
	return lo, hi, true
}

func round2(n float64) float64 {
	return math.Round(n*100) / 100
}
