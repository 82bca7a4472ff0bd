package ml

import (
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Cache holds the process-wide model handle. The first Get loads the model;
// later calls return the same handle, or the same error if the load failed.
// Failed loads are not retried.
type Cache struct {
	mu      sync.Mutex
	dir     string
	load    Loader
	metrics MetricsInterface
	loaded  bool
	model   Model
	err     error
}

// NewCache creates a cache for the model stored in dir.
func NewCache(dir string, load Loader, metrics MetricsInterface) *Cache {
	return &Cache{
		dir:     dir,
		load:    load,
		metrics: metrics,
	}
}

// Dir returns the model directory served by the cache.
func (c *Cache) Dir() string {
	return c.dir
}

// Get returns the cached model, loading it on first use.
func (c *Cache) Get() (Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.model, c.err
	}

	start := time.Now()
	c.model, c.err = c.load(c.dir)
	c.loaded = true
	elapsed := time.Since(start)

	if c.metrics != nil {
		c.metrics.MLModelLoadObserve(elapsed.Seconds(), c.err == nil)
	}
	if c.err != nil {
		log.Error().Err(c.err).Str("model_dir", c.dir).Msg("model load failed")
	} else {
		log.Info().Str("model_dir", c.dir).Dur("elapsed", elapsed).Msg("model loaded")
	}

	return c.model, c.err
}

// Loaded reports whether a load has been attempted and succeeded.
func (c *Cache) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded && c.err == nil
}

// Reset releases the cached handle. It is called at shutdown.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if closer, ok := c.model.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to release model")
		}
	}
	c.model, c.err, c.loaded = nil, nil, false
}
