// Package parallel runs independent sub-problems (class pairs, folds) on a
// bounded set of goroutines.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// Parallelize divides items into contiguous ranges, one per worker, and calls
// fn for each range in parallel. Workers are capped at runtime.NumCPU().
func Parallelize(items int, fn func(start, end int)) {
	ParallelizeN(items, runtime.NumCPU(), fn)
}

// ParallelizeN is Parallelize with an explicit worker cap.
func ParallelizeN(items, workers int, fn func(start, end int)) {
	if items == 0 {
		return
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > items {
		workers = items // No need for more workers than items
	}

	// ceiling division
	chunkSize := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ParallelizeWithThreshold performs parallelization only when the number of items exceeds the threshold.
// If below threshold, normal sequential processing is performed.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// ForEach calls fn(i) for every i in [0, items) using at most workers
// goroutines (1 or less means sequential). It returns the error of the
// lowest index that failed, so the result does not depend on scheduling.
// Items not yet started when ctx is cancelled are skipped and report
// ctx.Err().
func ForEach(ctx context.Context, items, workers int, fn func(i int) error) error {
	if items == 0 {
		return nil
	}
	errs := make([]error, items)
	run := func(start, end int) {
		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				continue
			}
			errs[i] = fn(i)
		}
	}

	if workers <= 1 {
		run(0, items)
	} else {
		// one item per range keeps long and short sub-problems from
		// being bunched onto the same goroutine
		sem := make(chan struct{}, workers)
		var wg sync.WaitGroup
		for i := 0; i < items; i++ {
			wg.Add(1)
			sem <- struct{}{}
			go func(i int) {
				defer wg.Done()
				defer func() { <-sem }()
				run(i, i+1)
			}(i)
		}
		wg.Wait()
	}

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
