package dynamo

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// Job is one independent integration run.
type Job struct {
	Name       string
	System     System
	Integrator Integrator
	Y0         State
	Span       Span
	Samples    int
}

type JobResult struct {
	Job        Job
	Trajectory *Trajectory
	Err        error
	Elapsed    time.Duration
}

// Ensemble runs independent jobs concurrently. Each job owns its initial
// state; systems and integrators may be shared as long as they keep no
// per-call state.
type Ensemble struct {
	workers int
}

func NewEnsemble(workers int) *Ensemble {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Ensemble{workers: workers}
}

func (e *Ensemble) Workers() int { return e.workers }

// Run executes every job and returns the results in job order. A failing
// job does not stop the others; cancellation of ctx is observed by each
// integrator.
func (e *Ensemble) Run(ctx context.Context, jobs []Job) []JobResult {
	results := make([]JobResult, len(jobs))

	workers := e.workers
	if workers > len(jobs) {
		workers = len(jobs)
	}

	idx := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range idx {
				job := jobs[i]
				start := time.Now()
				traj, err := job.Integrator.Integrate(ctx, job.System, job.Y0.Clone(), job.Span, job.Samples)
				results[i] = JobResult{Job: job, Trajectory: traj, Err: err, Elapsed: time.Since(start)}
			}
		}()
	}

	for i := range jobs {
		idx <- i
	}
	close(idx)
	wg.Wait()

	return results
}

// FirstError returns the first failed result's error in job order.
func FirstError(results []JobResult) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
