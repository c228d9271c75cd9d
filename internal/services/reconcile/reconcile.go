package reconcile

import (
	"errors"
	"fmt"
	"time"

	"TrendLens/internal/domain/models"
	"TrendLens/internal/services/features"
	"TrendLens/internal/services/sequence"
	"TrendLens/pkg/util"
)

// Record is one history day with a genuine model prediction.
type Record struct {
	Date       time.Time
	Target     bool
	Prediction bool
	Change     float64 // realized close-to-close return, percent
	Implied    float64 // Change if the direction was called right, else -Change
}

// Result is the queryable prediction series of one ticker.
type Result struct {
	MinDate time.Time
	MaxDate time.Time
	records []Record
}

// aligned holds the model outputs for one history row; ok is false for rows no window ended on.
type aligned struct {
	target     int
	prediction int
	ok         bool
}

// Reconcile maps per-window labels and predicted classes back onto the labeled history by the
// date of each window's last row and derives realized and implied returns.
func Reconcile(history *features.Labeled, seqs []sequence.Sequence, predictions []int) (*Result, error) {
	if len(seqs) != len(predictions) {
		return nil, fmt.Errorf("reconcile: %d sequences but %d predictions", len(seqs), len(predictions))
	}
	tbl := history.Table
	ci := tbl.Col(features.CloseColumn(tbl.Ticker))
	if ci < 0 {
		return nil, errors.New("reconcile: history has no close column")
	}

	byDate := make(map[time.Time]int, len(seqs))
	for i, s := range seqs {
		byDate[s.Date] = i
	}

	marks := make([]aligned, tbl.Len())
	for r, row := range tbl.Rows {
		if i, ok := byDate[row.Date]; ok {
			marks[r] = aligned{target: seqs[i].Label, prediction: predictions[i], ok: true}
		}
	}

	out := &Result{MinDate: history.MinDate, MaxDate: history.MaxDate}
	for r := 1; r < tbl.Len(); r++ {
		m := marks[r]
		prev := tbl.Rows[r-1].Values[ci]
		if !m.ok || prev == 0 {
			continue
		}
		change := (tbl.Rows[r].Values[ci]/prev - 1) * 100
		rec := Record{
			Date:       tbl.Rows[r].Date,
			Target:     m.target == 1,
			Prediction: m.prediction == 1,
			Change:     change,
			Implied:    change,
		}
		if rec.Target != rec.Prediction {
			rec.Implied = -change
		}
		out.records = append(out.records, rec)
	}
	return out, nil
}

// Len returns the number of queryable records.
func (r *Result) Len() int { return len(r.records) }

// Records returns a copy of the full series.
func (r *Result) Records() []Record {
	return append([]Record(nil), r.records...)
}

// Predict returns the records dated within [start, end], both inclusive. Totals compound from the
// first returned record.
func (r *Result) Predict(start, end time.Time) ([]models.PredictionResult, error) {
	if start.Before(r.MinDate) || end.After(r.MaxDate) {
		return nil, fmt.Errorf("%w: [%s, %s] outside [%s, %s]", models.ErrInvalidRange,
			start.Format(time.DateOnly), end.Format(time.DateOnly),
			r.MinDate.Format(time.DateOnly), r.MaxDate.Format(time.DateOnly))
	}
	if start.After(end) {
		return nil, fmt.Errorf("%w: start %s after end %s", models.ErrInvalidRange,
			start.Format(time.DateOnly), end.Format(time.DateOnly))
	}

	out := make([]models.PredictionResult, 0)
	changeGrowth, impliedGrowth := 1.0, 1.0
	for _, rec := range r.records {
		if rec.Date.Before(start) || rec.Date.After(end) {
			continue
		}
		changeGrowth *= 1 + rec.Change/100
		impliedGrowth *= 1 + rec.Implied/100
		out = append(out, models.PredictionResult{
			Date:         util.FormatHTTPDate(rec.Date),
			Target:       rec.Target,
			Prediction:   rec.Prediction,
			Change:       rec.Change,
			Implied:      rec.Implied,
			ChangeTotal:  (changeGrowth - 1) * 100,
			ImpliedTotal: (impliedGrowth - 1) * 100,
		})
	}
	return out, nil
}
