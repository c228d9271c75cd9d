package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"TrendLens/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

type call struct {
	source, op string
	failed     bool
}

type recorder struct{ calls []call }

func (r *recorder) RecordBuild(string, float64, error) {}
func (r *recorder) RecordValidation(string)            {}
func (r *recorder) RecordCache(string, bool)           {}
func (r *recorder) RecordSequences(string, int)        {}
func (r *recorder) RecordProviderCall(source, op string, _ float64, err error) {
	r.calls = append(r.calls, call{source, op, err != nil})
}

type flaky struct{}

func (flaky) History(context.Context, string, time.Time, time.Time) ([]models.PriceBar, error) {
	return nil, errors.New("down")
}

func (flaky) Metadata(context.Context, string) (models.TickerMeta, error) {
	return models.TickerMeta{}, nil
}

func TestSource_RecordsCalls(t *testing.T) {
	rec := &recorder{}
	src := NewSource(flaky{}, "yahoo", rec)

	_, _ = src.Metadata(context.Background(), "AAPL")
	_, err := src.History(context.Background(), "AAPL", time.Time{}, time.Time{})
	assert.Error(t, err)

	assert.Equal(t, []call{{"yahoo", "metadata", false}, {"yahoo", "history", true}}, rec.calls)
}

func TestFail(t *testing.T) {
	before := testutil.ToFloat64(EndpointErrors.WithLabelValues("info", "invalid_ticker"))
	Fail("info", "invalid_ticker")
	assert.Equal(t, before+1, testutil.ToFloat64(EndpointErrors.WithLabelValues("info", "invalid_ticker")))
}
