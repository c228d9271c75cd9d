package cache

import (
	"net"
	"strconv"
	"time"

	"github.com/creasty/defaults"
)

// RedisConfig holds Redis connection settings. Zero fields take the tag defaults.
type RedisConfig struct {
	Host         string        `default:"localhost"`
	Port         int           `default:"6379"`
	Password     string
	DB           int
	PoolSize     int           `default:"10"`
	MinIdleConns int           `default:"2"`
	PoolTimeout  time.Duration `default:"4s"`
	DialTimeout  time.Duration `default:"5s"`
	Prefix       string        `default:"trendlens"`
}

// Addr returns host:port.
func (c RedisConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// MemoryConfig sizes the in-process LRU.
type MemoryConfig struct {
	MaxSize int `default:"1024"`
	// DefaultTTL applies to entries stored without a TTL.
	DefaultTTL    time.Duration `default:"168h"`
	SweepInterval time.Duration `default:"5m"`
}

// LayeredConfig configures the L1 in front of a remote cache.
type LayeredConfig struct {
	Memory MemoryConfig
	// MemoryTTL caps how long L1 holds an entry.
	MemoryTTL time.Duration `default:"1h"`
}

func withDefaults[T any](cfg T) T {
	// Set only fails for non-struct pointers.
	_ = defaults.Set(&cfg)
	return cfg
}
