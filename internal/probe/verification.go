package probe

import (
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/okian/touchline/internal/domain/types"
)

// fingerprint reduces a result to the fields that must not vary between
// calls. Timing and score are excluded since the score depends on elapsed
// time.
func fingerprint(res types.Result) string {
	var b strings.Builder
	b.WriteString(strconv.FormatBool(res.Found))
	b.WriteByte('|')
	b.WriteString(string(res.Error))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(res.TotalSteps))
	for _, s := range res.Steps {
		b.WriteByte('|')
		b.WriteString(strconv.FormatInt(s.FromPersonID, 10))
		b.WriteByte('>')
		b.WriteString(strconv.FormatInt(s.ToPersonID, 10))
		b.WriteByte(':')
		b.WriteString(s.Kind)
		b.WriteByte('@')
		b.WriteString(s.VenueName)
		b.WriteByte(' ')
		b.WriteString(s.Period)
	}
	return b.String()
}

// transient reports whether a result reflects server conditions rather than
// an answer, so it is left out of agreement checks.
func transient(res types.Result) bool {
	return res.Error == types.ErrorTimeout || res.Error == types.ErrorUnavailable
}

// agree reports whether all non-transient results share one fingerprint.
func agree(results []types.Result) bool {
	want := ""
	for _, r := range results {
		if transient(r) {
			continue
		}
		fp := fingerprint(r)
		if want == "" {
			want = fp
			continue
		}
		if fp != want {
			return false
		}
	}
	return true
}

// summarize computes latency percentiles with the nearest-rank method.
func summarize(samples []time.Duration) Latency {
	if len(samples) == 0 {
		return Latency{}
	}
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	return Latency{
		P50Ms: ms(percentile(sorted, 50)),
		P95Ms: ms(percentile(sorted, 95)),
		P99Ms: ms(percentile(sorted, 99)),
		MaxMs: ms(sorted[len(sorted)-1]),
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	rank := int(math.Ceil(p * float64(len(sorted)) / 100))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1]
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
