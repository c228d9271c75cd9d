package sequence

import (
	"math"
	"testing"
	"time"

	"TrendLens/internal/services/features"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day0 = time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)

// labeledTable builds a small table shaped like the builder output.
func labeledTable(t *testing.T, n int) *features.Table {
	t.Helper()
	tbl := features.NewTable("X", "X_Close", "X_Volume", "X_Close_Future", features.Target)
	for i := 0; i < n; i++ {
		c := 100 + 5*math.Sin(float64(i)/3) + float64(i)
		v := 1000 + float64(i%7)*10
		target := 0.0
		if i%3 == 0 {
			target = 1
		}
		require.NoError(t, tbl.Append(day0.AddDate(0, 0, i), c, v, c*1.1, target))
	}
	return tbl
}

func TestEncoder_ScaleDropsOneRowPerColumn(t *testing.T) {
	tbl := labeledTable(t, 100)
	scaled := NewEncoder(10).Scale(tbl)

	assert.Equal(t, []string{"X_Close", "X_Volume", features.Target}, scaled.Columns)
	// Each feature column loses its first retained row to the percent change.
	require.Equal(t, 98, scaled.Len())
	assert.Equal(t, day0.AddDate(0, 0, 2), scaled.Rows[0].Date)

	// The input is left untouched.
	assert.Equal(t, 100, tbl.Len())
	assert.True(t, tbl.Has("X_Close_Future"))
}

func TestEncoder_ScaleStandardizes(t *testing.T) {
	scaled := NewEncoder(10).Scale(labeledTable(t, 200))
	moments := func(vals []float64) (float64, float64) {
		var sum, sq float64
		for _, v := range vals {
			sum += v
		}
		mean := sum / float64(len(vals))
		for _, v := range vals {
			sq += (v - mean) * (v - mean)
		}
		return mean, math.Sqrt(sq / float64(len(vals)))
	}

	// The last feature column is standardized over exactly the retained rows.
	mean, std := moments(scaled.Column("X_Volume"))
	assert.InDelta(t, 0, mean, 1e-9)
	assert.InDelta(t, 1, std, 1e-9)

	// Earlier columns were standardized before the next column dropped a row.
	mean, std = moments(scaled.Column("X_Close"))
	assert.InDelta(t, 0, mean, 0.05)
	assert.InDelta(t, 1, std, 0.05)

	// Labels pass through unscaled.
	for _, v := range scaled.Column(features.Target) {
		assert.True(t, v == 0 || v == 1)
	}
}

func TestEncoder_ConstantColumnOnlyCentered(t *testing.T) {
	tbl := features.NewTable("C", "C_Close", features.Target)
	for i := 0; i < 20; i++ {
		require.NoError(t, tbl.Append(day0.AddDate(0, 0, i), 50, 1))
	}
	scaled := NewEncoder(5).Scale(tbl)
	require.Equal(t, 19, scaled.Len())
	for _, v := range scaled.Column("C_Close") {
		assert.Equal(t, 0.0, v)
	}
}

func TestEncoder_ScaleDropsInfiniteChange(t *testing.T) {
	tbl := features.NewTable("Z", "Z_Close", features.Target)
	closes := []float64{1, 2, 0, 3, 4, 5, 6}
	for i, c := range closes {
		require.NoError(t, tbl.Append(day0.AddDate(0, 0, i), c, 0))
	}
	scaled := NewEncoder(2).Scale(tbl)
	// Row 0 has no predecessor and 0 -> 3 is infinite.
	require.Equal(t, 5, scaled.Len())
	for _, d := range scaled.Dates() {
		assert.False(t, d.Equal(day0.AddDate(0, 0, 3)))
	}
}

func TestEncoder_SequencesCountAndOrder(t *testing.T) {
	enc := NewEncoder(10)
	scaled := enc.Scale(labeledTable(t, 100))
	seqs := enc.Sequences(scaled)

	require.Len(t, seqs, scaled.Len()-(10-1))
	for i, s := range seqs {
		require.Len(t, s.Features, 10)
		assert.Len(t, s.Features[0], 2, "target is not a feature")
		assert.Equal(t, scaled.Rows[i+9].Date, s.Date)
		assert.Equal(t, int(scaled.Rows[i+9].Values[scaled.Col(features.Target)]), s.Label)
	}

	// Windows overlap by shifting one row.
	assert.Equal(t, seqs[0].Features[1], seqs[1].Features[0])
}

func TestEncoder_SequencesShortInput(t *testing.T) {
	enc := NewEncoder(60)
	scaled := enc.Scale(labeledTable(t, 30))
	assert.Empty(t, enc.Sequences(scaled))
}

func TestEncoder_DefaultLen(t *testing.T) {
	assert.Equal(t, DefaultLen, NewEncoder(0).Len())
}

func TestBatch(t *testing.T) {
	enc := NewEncoder(3)
	seqs := enc.Encode(labeledTable(t, 12))
	x, y := Batch(seqs)
	require.Len(t, x, len(seqs))
	require.Len(t, y, len(seqs))
	for i := range seqs {
		assert.Equal(t, seqs[i].Label, y[i])
		assert.Len(t, x[i], 3)
	}
}
