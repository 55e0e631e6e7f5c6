// Package scheduler wires up the cron job that periodically re-primes the
// Redis stage cache from PostgreSQL, so read traffic stays on the cache
// across TTL expiry and writes made by other service instances.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"hireline/pipeline-service/internal/pipeline"
)

// Refresher wraps robfig/cron and manages the stage-cache refresh loop.
type Refresher struct {
	cron  *cron.Cron
	store pipeline.Store
	cache *pipeline.StageCache
	spec  string // cron spec, e.g. "@every 5m"
}

// New creates a Refresher that fires every intervalMinutes minutes.
func New(store pipeline.Store, cache *pipeline.StageCache, intervalMinutes int) *Refresher {
	return &Refresher{
		cron:  cron.New(cron.WithLogger(cron.DefaultLogger)),
		store: store,
		cache: cache,
		spec:  fmt.Sprintf("@every %dm", intervalMinutes),
	}
}

// Start registers the job and starts the scheduler. Also runs one refresh
// immediately so the cache is warm without waiting for the first tick.
func (r *Refresher) Start(ctx context.Context) error {
	_, err := r.cron.AddFunc(r.spec, func() {
		r.refresh(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	r.cron.Start()
	log.Printf("[scheduler] Cron started — spec: %s", r.spec)

	go r.refresh(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (r *Refresher) Stop() {
	r.cron.Stop()
	log.Println("[scheduler] Cron stopped")
}

// refresh loads the authoritative ordering and re-primes the cache. It also
// verifies the contiguity invariant so a corrupted ordering is noticed at
// the next tick rather than at the next transition.
func (r *Refresher) refresh(ctx context.Context) {
	stages, err := r.store.ListStages(ctx)
	if err != nil {
		log.Printf("[scheduler] ListStages error: %v", err)
		return
	}

	if err := pipeline.CheckContiguous(stages); err != nil {
		log.Printf("[scheduler] Stage ordering invariant violated: %v", err)
		return
	}

	r.cache.Prime(ctx, stages)
	log.Printf("[scheduler] Stage cache refreshed (%d stage(s))", len(stages))
}
