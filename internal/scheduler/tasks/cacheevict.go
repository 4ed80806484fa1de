package tasks

import (
	"context"
	"time"

	"github.com/sportarr/sportarr/internal/config"
	"github.com/sportarr/sportarr/internal/releasecache"
	"github.com/sportarr/sportarr/internal/scheduler"
)

// RegisterCacheEvictionTask registers the periodic removal of expired
// release cache entries.
func RegisterCacheEvictionTask(sched *scheduler.Scheduler, cache *releasecache.Cache, cfg *config.CacheConfig) error {
	interval := time.Duration(cfg.EvictionIntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          "cache-evict",
		Name:        "Release Cache Eviction",
		Description: "Removes expired entries from the release cache",
		Interval:    interval,
		RunOnStart:  true,
		Func: func(ctx context.Context) error {
			_, err := cache.Evict(ctx)
			return err
		},
	})
}
