package session

import (
	"context"
	"log"
	"sync"
	"time"

	"dataanalyst/domain/dataset"
	"dataanalyst/internal/errors"
	"dataanalyst/ports"

	"github.com/robfig/cron/v3"
)

const sweepBatch = 100

// SweepResult counts what one janitor run removed
type SweepResult struct {
	Evicted  int
	Datasets int
	Blobs    int
}

// Janitor periodically evicts idle sessions and deletes expired datasets
// together with their uploads and exports
type Janitor struct {
	manager  *Manager
	datasets ports.DatasetRepository
	exports  ports.ExportRepository
	blobs    ports.BlobStore
	ttl      time.Duration
	schedule string

	cron    *cron.Cron
	running sync.Mutex
}

// NewJanitor creates a janitor that runs on a standard cron schedule or a
// descriptor such as "@every 15m"
func NewJanitor(manager *Manager, datasets ports.DatasetRepository, exports ports.ExportRepository, blobs ports.BlobStore, ttl time.Duration, schedule string) *Janitor {
	return &Janitor{
		manager:  manager,
		datasets: datasets,
		exports:  exports,
		blobs:    blobs,
		ttl:      ttl,
		schedule: schedule,
		cron:     cron.New(),
	}
}

// Start schedules the sweep and starts the cron runner
func (j *Janitor) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		if _, err := j.Sweep(context.Background()); err != nil {
			log.Printf("[Janitor] sweep failed: %v", err)
		}
	})
	if err != nil {
		return errors.ConfigInvalid("invalid janitor schedule " + j.schedule + ": " + err.Error())
	}
	j.cron.Start()
	log.Printf("[Janitor] started (schedule %s, ttl %s)", j.schedule, j.ttl)
	return nil
}

// Stop stops the cron runner and waits for a running sweep
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
	log.Printf("[Janitor] stopped")
}

// Sweep runs one cleanup pass. Overlapping calls are skipped.
func (j *Janitor) Sweep(ctx context.Context) (SweepResult, error) {
	var result SweepResult
	if !j.running.TryLock() {
		return result, nil
	}
	defer j.running.Unlock()

	startTime := time.Now()
	result.Evicted = j.manager.EvictIdle(j.ttl)

	cutoff := j.manager.now().Add(-j.ttl)
	for {
		expired, err := j.datasets.ListExpired(ctx, cutoff, sweepBatch)
		if err != nil {
			return result, err
		}

		removed := 0
		for _, ds := range expired {
			if j.manager.Active(ds.ID) {
				continue
			}
			blobs, err := j.remove(ctx, ds)
			if err != nil {
				return result, err
			}
			result.Blobs += blobs
			result.Datasets++
			removed++
		}
		if len(expired) < sweepBatch || removed == 0 {
			break
		}
	}

	if result.Evicted > 0 || result.Datasets > 0 {
		log.Printf("[Janitor] evicted %d sessions, deleted %d datasets and %d blobs in %.2fms",
			result.Evicted, result.Datasets, result.Blobs, float64(time.Since(startTime).Nanoseconds())/1e6)
	}
	return result, nil
}

func (j *Janitor) remove(ctx context.Context, ds *dataset.Dataset) (int, error) {
	exports, err := j.exports.ListByDataset(ctx, ds.ID)
	if err != nil {
		return 0, err
	}

	keys := make([]string, 0, len(exports)+1)
	for _, export := range exports {
		keys = append(keys, export.StorageKey)
	}
	keys = append(keys, ds.StorageKey)

	deleted := 0
	for _, key := range keys {
		if err := j.blobs.Delete(ctx, key); err != nil {
			log.Printf("[Janitor] failed to delete blob %s: %v", key, err)
			continue
		}
		deleted++
	}

	if err := j.exports.DeleteByDataset(ctx, ds.ID); err != nil {
		return deleted, err
	}
	if err := j.datasets.Delete(ctx, ds.ID); err != nil && errors.GetCode(err) != errors.CodeNotFound {
		return deleted, err
	}
	return deleted, nil
}
