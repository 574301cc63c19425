package config

import "time"

// CacheConfig controls the redis response cache on the seat-status
// read endpoints.  Clients poll those endpoints every few seconds, so
// even a short TTL absorbs most of the read load.  The cache is a
// read replica only; booking writes always go to the ledger.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadCacheConfig reads the CACHE_* environment variables.
func LoadCacheConfig() CacheConfig {
	cfg := CacheConfig{
		Enabled: envBool("CACHE_ENABLED", true),
		TTL:     envDur("CACHE_TTL", 5*time.Second),
		Prefix:  envStr("CACHE_PREFIX", "seatcache"),
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Second
	}
	return cfg
}
