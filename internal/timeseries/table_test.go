package timeseries_test

import (
	"testing"
	"time"

	"github.com/couchcryptid/isd-ingest/internal/timeseries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_SortByTimeIsStable(t *testing.T) {
	tab := timeseries.Table{
		Index: []time.Time{at(1, 0), at(0, 0), at(1, 0)},
		Cols: []timeseries.Column{
			{Name: "v", Floats: []float64{2, 1, 3}},
			{Name: "q", Strings: []string{"b", "a", "c"}},
		},
	}

	got := tab.SortByTime()
	assert.Equal(t, []time.Time{at(0, 0), at(1, 0), at(1, 0)}, got.Index)
	assert.Equal(t, []float64{1, 2, 3}, got.Cols[0].Floats)
	assert.Equal(t, []string{"a", "b", "c"}, got.Cols[1].Strings)

	// The receiver is untouched.
	assert.Equal(t, at(1, 0), tab.Index[0])
}

func TestTable_Numeric(t *testing.T) {
	tab := timeseries.Table{
		Index: []time.Time{at(0, 0)},
		Cols: []timeseries.Column{
			{Name: "v", Floats: []float64{1}},
			{Name: "q", Strings: []string{"5"}},
		},
	}
	assert.Equal(t, []string{"v"}, tab.Numeric().ColumnNames())
}

func TestTable_InKeepsInstants(t *testing.T) {
	denver := time.FixedZone("MDT", -6*3600)
	tab := timeseries.Table{
		Index: []time.Time{at(6, 0)},
		Cols:  []timeseries.Column{{Name: "v", Floats: []float64{1}}},
	}

	got := tab.In(denver)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, 0, got.Index[0].Hour())
	assert.True(t, got.Index[0].Equal(at(6, 0)))
}

func TestTable_Column(t *testing.T) {
	tab := timeseries.Table{
		Index: []time.Time{at(0, 0)},
		Cols:  []timeseries.Column{{Name: "v", Floats: []float64{1}}},
	}

	c, ok := tab.Column("v")
	require.True(t, ok)
	assert.True(t, c.IsNumeric())

	_, ok = tab.Column("missing")
	assert.False(t, ok)
}
