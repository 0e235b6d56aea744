// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 The qlink Authors

package workers

import (
	"context"
	"sync"

	"qlink/internal/config"
	"qlink/internal/logger"
	"qlink/internal/quantum"
	"qlink/internal/store"
)

type Workers struct {
	workers []Worker
}

// NewWorkers wires the standard worker set: the mirror reconciler and the
// channel-retirement drainer.
func NewWorkers(relationships store.RelationshipRepository, provider quantum.Provider, cfg config.Workers, logger *logger.Logger) *Workers {
	return &Workers{
		workers: []Worker{
			NewMirrorReconciler(relationships, cfg, logger),
			NewRetirementWorker(relationships, provider, cfg, logger),
		},
	}
}

// Run starts every worker in its own goroutine and blocks until all of them
// have exited after ctx cancellation.
func (w *Workers) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, worker := range w.workers {
		wg.Add(1)
		go func(worker Worker) {
			defer wg.Done()
			worker.Run(ctx)
		}(worker)
	}
	wg.Wait()
}
