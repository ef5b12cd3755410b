package session

import (
	"context"
	"runtime"
	"sync"
)

// ParallelDispose disposes all instances concurrently.
// Uses a semaphore to limit concurrency to the number of CPUs.
func ParallelDispose(instances []*Instance) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, runtime.NumCPU())

	for _, instance := range instances {
		if instance == nil {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(inst *Instance) {
			defer wg.Done()
			defer func() { <-sem }()
			inst.Dispose()
		}(instance)
	}

	wg.Wait()
}

// RestartResult contains the result of restarting a single instance.
type RestartResult struct {
	Instance *Instance
	Error    error
}

// ParallelRestart restarts every running instance concurrently. Instances
// that are not running are skipped and reported with a nil error.
func ParallelRestart(ctx context.Context, instances []*Instance) []RestartResult {
	results := make([]RestartResult, len(instances))
	var wg sync.WaitGroup
	sem := make(chan struct{}, runtime.NumCPU())

	for i, instance := range instances {
		results[i].Instance = instance
		if instance == nil || instance.State() != StateRunning {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}

		go func(idx int, inst *Instance) {
			defer wg.Done()
			defer func() { <-sem }()
			results[idx].Error = inst.Restart(ctx)
		}(i, instance)
	}

	wg.Wait()
	return results
}
