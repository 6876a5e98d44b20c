package timeseries

import (
	"math"
	"time"
)

// Policy selects how samples inside a bucket collapse into one value.
type Policy string

const (
	// PolicyStarting labels buckets by their left edge; a bucket covers
	// [label, label+period).
	PolicyStarting Policy = "starting"
	// PolicyEnding labels buckets by their right edge; a bucket covers
	// (label-period, label]. A sample sitting exactly on an edge belongs
	// to the bucket that ends there.
	PolicyEnding Policy = "ending"
	// PolicyMidpoint centers each bucket on its label by shifting the
	// index forward half a period before starting-style bucketing.
	PolicyMidpoint Policy = "midpoint"
	// PolicyInstant keeps the first observed value of each bucket
	// instead of averaging.
	PolicyInstant Policy = "instant"
)

// ParsePolicy maps a policy name to its Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyStarting, PolicyEnding, PolicyMidpoint, PolicyInstant:
		return Policy(s), nil
	}
	return "", configErrorf("unknown rollup policy %q", s)
}

// upsampleLimit caps linear interpolation at one hour from each known
// sample. Gaps wider than two hours keep a NaN core.
const upsampleLimit = 60

// Upsample aligns the numeric columns of t onto a one-minute grid.
// Samples sharing a minute are averaged, then gaps are filled by linear
// interpolation up to upsampleLimit minutes away from the nearest known
// sample on each side. Leading and trailing gaps get constant fill from
// the nearest sample, under the same limit.
func Upsample(t Table) Table {
	t = t.SortByTime().Numeric()
	if t.Len() == 0 {
		return t
	}

	start := t.Index[0].Truncate(time.Minute)
	end := t.Index[t.Len()-1].Truncate(time.Minute)
	n := int(end.Sub(start)/time.Minute) + 1

	out := Table{Index: make([]time.Time, n)}
	for i := range out.Index {
		out.Index[i] = start.Add(time.Duration(i) * time.Minute)
	}

	for _, c := range t.Cols {
		sums := make([]float64, n)
		counts := make([]int, n)
		for i, ts := range t.Index {
			v := c.Floats[i]
			if math.IsNaN(v) {
				continue
			}
			slot := int(ts.Truncate(time.Minute).Sub(start) / time.Minute)
			sums[slot] += v
			counts[slot]++
		}

		vals := newFloats(n)
		for i, cnt := range counts {
			if cnt > 0 {
				vals[i] = sums[i] / float64(cnt)
			}
		}
		interpolate(vals, upsampleLimit)
		out.Cols = append(out.Cols, Column{Name: c.Name, Floats: vals})
	}
	return out
}

// interpolate fills NaN runs in place. Interior gaps get linear
// interpolation between their bounding samples, but only positions
// within limit steps of either bound are filled; wider gaps keep NaN in
// the middle. Runs before the first sample and after the last get
// constant fill from that sample, again within limit steps.
func interpolate(v []float64, limit int) {
	first, last := -1, -1
	for i, x := range v {
		if !math.IsNaN(x) {
			if first == -1 {
				first = i
			}
			last = i
		}
	}
	if first == -1 {
		return
	}

	for i := first - 1; i >= 0 && first-i <= limit; i-- {
		v[i] = v[first]
	}
	for i := last + 1; i < len(v) && i-last <= limit; i++ {
		v[i] = v[last]
	}

	prev := first
	for i := first + 1; i <= last; i++ {
		if math.IsNaN(v[i]) {
			continue
		}
		if i-prev > 1 {
			span := float64(i - prev)
			for k := prev + 1; k < i; k++ {
				if k-prev <= limit || i-k <= limit {
					v[k] = v[prev] + (v[i]-v[prev])*float64(k-prev)/span
				}
			}
		}
		prev = i
	}
}

type aggregate func(sum float64, count int, firstValue float64, hasFirst bool) float64

func aggMean(sum float64, count int, _ float64, _ bool) float64 {
	if count == 0 {
		return math.NaN()
	}
	return sum / float64(count)
}

func aggFirst(_ float64, _ int, firstValue float64, hasFirst bool) float64 {
	if !hasFirst {
		return math.NaN()
	}
	return firstValue
}

// resample collapses the numeric columns of t onto a contiguous bucket
// grid of the given width. closedRight selects which edge an on-boundary
// sample belongs to, labelRight which edge names the bucket. Buckets
// with no samples stay in the output as NaN rows.
func resample(t Table, period time.Duration, closedRight, labelRight bool, agg aggregate) Table {
	t = t.SortByTime().Numeric()
	if t.Len() == 0 {
		return t
	}

	bucketOf := func(ts time.Time) time.Time {
		s := ts.Truncate(period)
		if closedRight && s.Equal(ts) {
			s = s.Add(-period)
		}
		return s
	}

	firstBucket := bucketOf(t.Index[0])
	lastBucket := bucketOf(t.Index[t.Len()-1])
	n := int(lastBucket.Sub(firstBucket)/period) + 1

	out := Table{Index: make([]time.Time, n)}
	for i := range out.Index {
		label := firstBucket.Add(time.Duration(i) * period)
		if labelRight {
			label = label.Add(period)
		}
		out.Index[i] = label
	}

	for _, c := range t.Cols {
		sums := make([]float64, n)
		counts := make([]int, n)
		firsts := make([]float64, n)
		haveFirst := make([]bool, n)

		for i, ts := range t.Index {
			v := c.Floats[i]
			if math.IsNaN(v) {
				continue
			}
			slot := int(bucketOf(ts).Sub(firstBucket) / period)
			sums[slot] += v
			counts[slot]++
			if !haveFirst[slot] {
				firsts[slot] = v
				haveFirst[slot] = true
			}
		}

		vals := make([]float64, n)
		for i := range vals {
			vals[i] = agg(sums[i], counts[i], firsts[i], haveFirst[i])
		}
		out.Cols = append(out.Cols, Column{Name: c.Name, Floats: vals})
	}
	return out
}

// RollupStarting averages each bucket and labels it by its left edge.
func RollupStarting(t Table, period Period, upsampleFirst bool) Table {
	if upsampleFirst {
		t = Upsample(t)
	}
	return resample(t, period.Duration(), false, false, aggMean)
}

// RollupEnding averages each right-closed bucket and labels it by its
// right edge.
func RollupEnding(t Table, period Period, upsampleFirst bool) Table {
	if upsampleFirst {
		t = Upsample(t)
	}
	return resample(t, period.Duration(), true, true, aggMean)
}

// RollupMidpoint shifts the index forward half a period so each label
// lands at the center of the window it averages.
func RollupMidpoint(t Table, period Period, upsampleFirst bool) Table {
	if upsampleFirst {
		t = Upsample(t)
	}
	t = t.Numeric()
	shifted := Table{Index: make([]time.Time, t.Len()), Cols: t.Cols}
	half := period.Duration() / 2
	for i, ts := range t.Index {
		shifted.Index[i] = ts.Add(half)
	}
	return resample(shifted, period.Duration(), false, false, aggMean)
}

// RollupInstant keeps the first non-missing sample of each left-closed
// bucket instead of averaging.
func RollupInstant(t Table, period Period, upsampleFirst bool) Table {
	if upsampleFirst {
		t = Upsample(t)
	}
	return resample(t, period.Duration(), false, false, aggFirst)
}

// Rollup dispatches to the policy implementations.
func Rollup(t Table, period Period, policy Policy, upsampleFirst bool) (Table, error) {
	switch policy {
	case PolicyStarting:
		return RollupStarting(t, period, upsampleFirst), nil
	case PolicyEnding:
		return RollupEnding(t, period, upsampleFirst), nil
	case PolicyMidpoint:
		return RollupMidpoint(t, period, upsampleFirst), nil
	case PolicyInstant:
		return RollupInstant(t, period, upsampleFirst), nil
	}
	return Table{}, configErrorf("unknown rollup policy %q", string(policy))
}
