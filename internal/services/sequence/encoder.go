package sequence

import (
	"math"
	"time"

	"TrendLens/internal/services/features"
)

// DefaultLen is the window length the model was trained on.
const DefaultLen = 60

// Sequence is one model input window with the label of its last row.
type Sequence struct {
	Date     time.Time
	Features [][]float64
	Label    int
}

// Encoder turns a labeled feature table into scaled, fixed-length windows.
type Encoder struct {
	seqLen int
}

func NewEncoder(seqLen int) *Encoder {
	if seqLen <= 0 {
		seqLen = DefaultLen
	}
	return &Encoder{seqLen: seqLen}
}

// Len returns the window length.
func (e *Encoder) Len() int { return e.seqLen }

// Encode scales the table and slices it into windows.
func (e *Encoder) Encode(tbl *features.Table) []Sequence {
	return e.Sequences(e.Scale(tbl))
}

// Scale returns a copy of tbl without the future-close helper column where every
// feature column is replaced by its z-scored percent change.
//
// Columns are processed in order and each one drops the rows its percent change
// leaves undefined before the column is standardized, so a later column's change
// is taken against the previous surviving row. Mean and standard deviation are
// computed over the whole table, not per window.
func (e *Encoder) Scale(tbl *features.Table) *features.Table {
	out := tbl.Clone()
	out.DropColumn(features.FutureColumn(tbl.Ticker))

	for _, col := range append([]string(nil), out.Columns...) {
		if col == features.Target {
			continue
		}
		c := out.Col(col)
		prev := math.NaN()
		for i := range out.Rows {
			cur := out.Rows[i].Values[c]
			out.Rows[i].Values[c] = pctChange(prev, cur)
			prev = cur
		}
		out.DropNA()
		standardize(out, c)
	}
	out.DropNA()
	return out
}

// Sequences slides a window over scaled rows, oldest first. The first Len()-1 rows
// only serve as context for the first window.
func (e *Encoder) Sequences(scaled *features.Table) []Sequence {
	n := scaled.Len()
	if n < e.seqLen {
		return nil
	}
	ti := scaled.Col(features.Target)
	width := len(scaled.Columns)
	if ti >= 0 {
		width--
	}

	vectors := make([][]float64, n)
	for i, row := range scaled.Rows {
		v := make([]float64, 0, width)
		for c, x := range row.Values {
			if c != ti {
				v = append(v, x)
			}
		}
		vectors[i] = v
	}

	out := make([]Sequence, 0, n-e.seqLen+1)
	for end := e.seqLen - 1; end < n; end++ {
		label := 0
		if ti >= 0 && scaled.Rows[end].Values[ti] > 0 {
			label = 1
		}
		out = append(out, Sequence{
			Date:     scaled.Rows[end].Date,
			Features: vectors[end-e.seqLen+1 : end+1],
			Label:    label,
		})
	}
	return out
}

// Batch splits sequences into model inputs and labels.
func Batch(seqs []Sequence) ([][][]float64, []int) {
	x := make([][][]float64, len(seqs))
	y := make([]int, len(seqs))
	for i, s := range seqs {
		x[i] = s.Features
		y[i] = s.Label
	}
	return x, y
}

func pctChange(prev, cur float64) float64 {
	if math.IsNaN(prev) {
		return math.NaN()
	}
	return (cur - prev) / prev
}

// standardize z-scores column c in place using population statistics.
// A constant column is only centered.
func standardize(t *features.Table, c int) {
	n := float64(t.Len())
	if n == 0 {
		return
	}
	var sum float64
	for _, row := range t.Rows {
		sum += row.Values[c]
	}
	mean := sum / n
	var sq float64
	for _, row := range t.Rows {
		d := row.Values[c] - mean
		sq += d * d
	}
	std := math.Sqrt(sq / n)
	if std == 0 {
		std = 1
	}
	for i := range t.Rows {
		t.Rows[i].Values[c] = (t.Rows[i].Values[c] - mean) / std
	}
}
