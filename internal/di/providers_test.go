package di

import (
	"testing"

	"TrendLens/internal/repository"
	icache "TrendLens/internal/service/cache"
	"TrendLens/internal/service/ratelimit"
	pkgcache "TrendLens/pkg/cache"
	"TrendLens/pkg/config"
	applogger "TrendLens/pkg/logger"
	pkgmetrics "TrendLens/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("model:\n  backend: http\n  serving_url: http://localhost:8501\n"))
	require.NoError(t, err)
	return cfg
}

func TestProvideMarketSource_CachedChain(t *testing.T) {
	cfg := testConfig(t)
	c, err := ProvideCache(cfg)
	require.NoError(t, err)
	defer c.Close()
	assert.IsType(t, &pkgcache.MemoryCache{}, c)

	src, err := ProvideMarketSource(cfg, nil, c, pkgmetrics.NewWithRegistry(prometheus.NewRegistry()), applogger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &icache.Source{}, src)
}

func TestProvideMarketSource_NoCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Backend = "none"
	c, err := ProvideCache(cfg)
	require.NoError(t, err)
	assert.Nil(t, c)

	src, err := ProvideMarketSource(cfg, nil, nil, pkgmetrics.NewWithRegistry(prometheus.NewRegistry()), applogger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &ratelimit.Source{}, src)
}

func TestProvideEventPublisher_DisabledKafkaLogs(t *testing.T) {
	pub, err := ProvideEventPublisher(testConfig(t), applogger.Nop())
	require.NoError(t, err)
	assert.IsType(t, &repository.LogEventPublisher{}, pub)
}

func TestProvideClickHouseClient_OnlyForClickHouseSource(t *testing.T) {
	ch, err := ProvideClickHouseClient(testConfig(t))
	require.NoError(t, err)
	assert.Nil(t, ch)
}
