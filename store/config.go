package store

import "time"

// Config holds configuration for the Store.
type Config struct {
	// CacheTTL is how long a record fetched by id stays cached.
	// Records are immutable, so this only bounds memory use.
	// Default: 10 minutes. Negative disables the cache.
	CacheTTL time.Duration

	// CacheCleanupInterval is how often expired cache entries are purged.
	// Default: twice CacheTTL.
	CacheCleanupInterval time.Duration

	// MaxIDAttempts bounds how many fresh ids Create tries when the backend
	// reports a collision.
	// Default: 3
	MaxIDAttempts int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		CacheTTL:             10 * time.Minute,
		CacheCleanupInterval: 20 * time.Minute,
		MaxIDAttempts:        3,
	}
}

// validate ensures config values are within acceptable bounds.
func (c *Config) validate() {
	if c.CacheTTL == 0 {
		c.CacheTTL = 10 * time.Minute
	}
	if c.CacheTTL > 0 && c.CacheCleanupInterval <= 0 {
		c.CacheCleanupInterval = 2 * c.CacheTTL
	}
	if c.MaxIDAttempts < 1 {
		c.MaxIDAttempts = 3
	}
	if c.MaxIDAttempts > 10 {
		c.MaxIDAttempts = 10
	}
}

// cacheEnabled reports whether records fetched by id are cached.
func (c Config) cacheEnabled() bool {
	return c.CacheTTL > 0
}
