package providers

import "rankview/internal/structures"

// MetricsCacheProvider wraps a CacheProviderInterface and increments
// hit/miss counters on every Get call.
type MetricsCacheProvider struct {
	inner   CacheProviderInterface
	metrics MetricsProviderInterface
}

func (c *MetricsCacheProvider) Get(key string) ([]byte, bool) {
	val, ok := c.inner.Get(key)
	if ok {
		c.metrics.IncCacheHits()
	} else {
		c.metrics.IncCacheMisses()
	}
	return val, ok
}

func (c *MetricsCacheProvider) Set(key string, value []byte) {
	c.inner.Set(key, value)
}

// CompressedCacheProvider stores zstd-compressed values. An entry that fails
// to decompress is reported as a miss.
type CompressedCacheProvider struct {
	inner      CacheProviderInterface
	compressor CompressorInterface
	logger     Logger
}

func (c *CompressedCacheProvider) Get(key string) ([]byte, bool) {
	raw, ok := c.inner.Get(key)
	if !ok {
		return nil, false
	}
	val, err := c.compressor.Decompress(raw)
	if err != nil {
		c.logger.Warnf(TypeApp, "Dropping undecodable cache entry %s: %s", key, err)
		return nil, false
	}
	return val, true
}

func (c *CompressedCacheProvider) Set(key string, value []byte) {
	packed, err := c.compressor.Compress(value)
	if err != nil {
		c.logger.Warnf(TypeApp, "Skipping cache write for %s: %s", key, err)
		return
	}
	c.inner.Set(key, packed)
}

// NewInstrumentedCacheProvider creates a compressed cache wrapped with metrics instrumentation.
// When cache is disabled, returns the plain noopCache without metrics wrapping
// to avoid counting phantom cache misses.
func NewInstrumentedCacheProvider(conf *structures.Config, logger Logger, metrics MetricsProviderInterface, compressor CompressorInterface) CacheProviderInterface {
	inner := NewCacheProvider(conf, logger)
	if _, disabled := inner.(*noopCache); disabled {
		return inner
	}
	return &MetricsCacheProvider{
		inner: &CompressedCacheProvider{
			inner:      inner,
			compressor: compressor,
			logger:     logger,
		},
		metrics: metrics,
	}
}
