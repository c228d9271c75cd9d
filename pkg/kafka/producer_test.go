package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestProducer_PublishEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	reg := prometheus.NewRegistry()
	p := NewProducerWithWriter(w, "gzip", reg)

	require.NoError(t, p.Publish(context.Background(), "events", []byte("AAPL"), map[string]int{"n": 1}))
	require.NoError(t, p.Publish(context.Background(), "events", nil, "raw"))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "events", w.msgs[0].Topic)
	assert.Equal(t, []byte("AAPL"), w.msgs[0].Key)
	assert.JSONEq(t, `{"n":1}`, string(w.msgs[0].Value))
	assert.Equal(t, "raw", string(w.msgs[1].Value))
	assert.Equal(t, 2.0, testutil.ToFloat64(p.metrics.messages.WithLabelValues("events", "gzip", "ok")))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducer_PublishErrorCounted(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	p := NewProducerWithWriter(w, "lz4", prometheus.NewRegistry())

	assert.Error(t, p.Publish(context.Background(), "events", nil, []byte("x")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.metrics.messages.WithLabelValues("events", "lz4", "error")))
}

func TestProducer_NoMetrics(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{}, "gzip", nil)
	assert.NoError(t, p.Publish(context.Background(), "events", nil, "x"))
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer(ProducerConfig{})
	assert.Error(t, err)
}

func TestProducerConfig_Defaults(t *testing.T) {
	cfg, err := ProducerConfig{Brokers: []string{"k1:9092"}, HashByKey: true, Registerer: prometheus.NewRegistry()}.withDefaults()
	require.NoError(t, err)

	w := cfg.writer()
	assert.Equal(t, kafka.RequireAll, w.RequiredAcks)
	assert.Equal(t, kafka.Gzip, w.Compression)
	assert.Equal(t, 3, w.MaxAttempts)
	assert.Equal(t, 100, w.BatchSize)
	assert.Equal(t, int64(1<<20), w.BatchBytes)
	assert.Equal(t, time.Second, w.BatchTimeout)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)

	cfg, err = ProducerConfig{Brokers: []string{"k1:9092"}, RequiredAcks: 1, Compression: "zstd"}.withDefaults()
	require.NoError(t, err)
	assert.Equal(t, kafka.RequireOne, cfg.writer().RequiredAcks)
	assert.Equal(t, prometheus.DefaultRegisterer, cfg.Registerer)
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Snappy, parseCompression("snappy"))
	assert.Equal(t, kafka.Zstd, parseCompression("zstd"))
	assert.Equal(t, kafka.Gzip, parseCompression("unknown"))
}
