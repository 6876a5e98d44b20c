package timeseries_test

import (
	"math"
	"testing"
	"time"

	"github.com/couchcryptid/isd-ingest/internal/timeseries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2018, time.September, 22, hour, minute, 0, 0, time.UTC)
}

// sampleTable is three observations at roughly 32-minute spacing, the
// worked example used throughout the rollup tests.
func sampleTable() timeseries.Table {
	return timeseries.Table{
		Index: []time.Time{at(0, 1), at(0, 33), at(1, 5)},
		Cols: []timeseries.Column{
			{Name: "wind.speed_rate", Floats: []float64{1, 2, 10}},
		},
	}
}

func hour(t *testing.T) timeseries.Period {
	t.Helper()
	p, err := timeseries.ParsePeriod("h")
	require.NoError(t, err)
	return p
}

func column(t *testing.T, tab timeseries.Table, name string) []float64 {
	t.Helper()
	c, ok := tab.Column(name)
	require.True(t, ok, "column %s", name)
	return c.Floats
}

func TestUpsample(t *testing.T) {
	up := timeseries.Upsample(sampleTable())

	require.Equal(t, 65, up.Len())
	assert.Equal(t, at(0, 1), up.Index[0])
	assert.Equal(t, at(1, 5), up.Index[64])

	v := column(t, up, "wind.speed_rate")
	assert.InDelta(t, 1.0, v[0], 1e-9)
	// Halfway between 00:01 and 00:33.
	assert.InDelta(t, 1.5, v[16], 1e-9)
	assert.InDelta(t, 2.0, v[32], 1e-9)
	// 00:34 onward climbs at 0.25 per minute toward 10 at 01:05.
	assert.InDelta(t, 2.25, v[33], 1e-9)
	assert.InDelta(t, 8.75, v[59], 1e-9)
	assert.InDelta(t, 10.0, v[64], 1e-9)
}

func TestUpsample_AveragesSharedMinutes(t *testing.T) {
	tab := timeseries.Table{
		Index: []time.Time{at(0, 1), time.Date(2018, 9, 22, 0, 1, 30, 0, time.UTC)},
		Cols:  []timeseries.Column{{Name: "v", Floats: []float64{1, 3}}},
	}
	up := timeseries.Upsample(tab)
	require.Equal(t, 1, up.Len())
	assert.InDelta(t, 2.0, column(t, up, "v")[0], 1e-9)
}

func TestUpsample_CapsInterpolationAtOneHour(t *testing.T) {
	// Two samples 150 minutes apart: each side fills 60 minutes, the
	// central 29 minutes stay missing.
	tab := timeseries.Table{
		Index: []time.Time{at(0, 0), at(2, 30)},
		Cols:  []timeseries.Column{{Name: "v", Floats: []float64{0, 150}}},
	}
	up := timeseries.Upsample(tab)
	require.Equal(t, 151, up.Len())

	v := column(t, up, "v")
	assert.InDelta(t, 60.0, v[60], 1e-9)
	assert.True(t, math.IsNaN(v[61]))
	assert.True(t, math.IsNaN(v[89]))
	assert.InDelta(t, 90.0, v[90], 1e-9)
}

func TestUpsample_DropsStringColumns(t *testing.T) {
	tab := sampleTable()
	tab.Cols = append(tab.Cols, timeseries.Column{
		Name:    "wind.speed_quality_code",
		Strings: []string{"1", "1", "1"},
	})
	up := timeseries.Upsample(tab)
	assert.Equal(t, []string{"wind.speed_rate"}, up.ColumnNames())
}

func TestRollupStarting_Upsampled(t *testing.T) {
	got := timeseries.RollupStarting(sampleTable(), hour(t), true)

	require.Equal(t, []time.Time{at(0, 0), at(1, 0)}, got.Index)
	v := column(t, got, "wind.speed_rate")
	assert.InDelta(t, 189.25/59, v[0], 1e-9)
	assert.InDelta(t, 9.375, v[1], 1e-9)
}

func TestRollupStarting_Raw(t *testing.T) {
	got := timeseries.RollupStarting(sampleTable(), hour(t), false)

	require.Equal(t, []time.Time{at(0, 0), at(1, 0)}, got.Index)
	v := column(t, got, "wind.speed_rate")
	assert.InDelta(t, 1.5, v[0], 1e-9)
	assert.InDelta(t, 10.0, v[1], 1e-9)
}

func TestRollupEnding_Upsampled(t *testing.T) {
	got := timeseries.RollupEnding(sampleTable(), hour(t), true)

	// The 01:00 sample sits on a boundary and belongs to the bucket
	// ending at 01:00.
	require.Equal(t, []time.Time{at(1, 0), at(2, 0)}, got.Index)
	v := column(t, got, "wind.speed_rate")
	assert.InDelta(t, 3.3, v[0], 1e-9)
	assert.InDelta(t, 9.5, v[1], 1e-9)
}

func TestRollupMidpoint_Upsampled(t *testing.T) {
	got := timeseries.RollupMidpoint(sampleTable(), hour(t), true)

	require.Equal(t, []time.Time{at(0, 0), at(1, 0)}, got.Index)
	v := column(t, got, "wind.speed_rate")
	assert.InDelta(t, 41.6875/29, v[0], 1e-9)
	assert.InDelta(t, 203.8125/36, v[1], 1e-9)
}

func TestRollupInstant(t *testing.T) {
	t.Run("raw keeps the first sample per bucket", func(t *testing.T) {
		got := timeseries.RollupInstant(sampleTable(), hour(t), false)
		require.Equal(t, []time.Time{at(0, 0), at(1, 0)}, got.Index)
		v := column(t, got, "wind.speed_rate")
		assert.InDelta(t, 1.0, v[0], 1e-9)
		assert.InDelta(t, 10.0, v[1], 1e-9)
	})

	t.Run("upsampled takes the first minute of each bucket", func(t *testing.T) {
		got := timeseries.RollupInstant(sampleTable(), hour(t), true)
		v := column(t, got, "wind.speed_rate")
		assert.InDelta(t, 1.0, v[0], 1e-9)
		assert.InDelta(t, 8.75, v[1], 1e-9)
	})
}

func TestRollup_EmptyBucketsStayAsNaN(t *testing.T) {
	tab := timeseries.Table{
		Index: []time.Time{at(0, 5), at(3, 5)},
		Cols:  []timeseries.Column{{Name: "v", Floats: []float64{1, 4}}},
	}
	got := timeseries.RollupStarting(tab, hour(t), false)

	require.Equal(t, []time.Time{at(0, 0), at(1, 0), at(2, 0), at(3, 0)}, got.Index)
	v := column(t, got, "v")
	assert.InDelta(t, 1.0, v[0], 1e-9)
	assert.True(t, math.IsNaN(v[1]))
	assert.True(t, math.IsNaN(v[2]))
	assert.InDelta(t, 4.0, v[3], 1e-9)
}

func TestRollup_SortsUnorderedInput(t *testing.T) {
	tab := sampleTable()
	tab.Index[0], tab.Index[2] = tab.Index[2], tab.Index[0]
	c := tab.Cols[0].Floats
	c[0], c[2] = c[2], c[0]

	got := timeseries.RollupStarting(tab, hour(t), false)
	v := column(t, got, "wind.speed_rate")
	assert.InDelta(t, 1.5, v[0], 1e-9)
	assert.InDelta(t, 10.0, v[1], 1e-9)
}

func TestRollup_Dispatch(t *testing.T) {
	for _, policy := range []timeseries.Policy{
		timeseries.PolicyStarting,
		timeseries.PolicyEnding,
		timeseries.PolicyMidpoint,
		timeseries.PolicyInstant,
	} {
		got, err := timeseries.Rollup(sampleTable(), hour(t), policy, true)
		require.NoError(t, err, "policy %s", policy)
		assert.Equal(t, 2, got.Len())
	}

	_, err := timeseries.Rollup(sampleTable(), hour(t), "median", true)
	var cerr *timeseries.ConfigError
	assert.ErrorAs(t, err, &cerr)
}

func TestParsePolicy(t *testing.T) {
	p, err := timeseries.ParsePolicy("midpoint")
	require.NoError(t, err)
	assert.Equal(t, timeseries.PolicyMidpoint, p)

	_, err = timeseries.ParsePolicy("weighted")
	var cerr *timeseries.ConfigError
	assert.ErrorAs(t, err, &cerr)
}
