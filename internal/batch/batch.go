// Package batch runs a per-file worker function over many paths
// concurrently across a worker pool (parsers, and tree-sitter's C core
// beneath them, are not safe to share across goroutines).
package batch

import (
	"runtime"
	"sync"
)

// Result pairs a worker's output for one path with any error it hit. A
// failing path does not stop the rest of the batch.
type Result[T any] struct {
	Path  string
	Value T
	Err   error
}

// Run calls work(path) for every entry in paths, across a pool of
// runtime.GOMAXPROCS(0) goroutines (capped to len(paths)), and returns one
// Result per path in the same order paths was given, regardless of which
// goroutine finished first.
func Run[T any](paths []string, work func(path string) (T, error)) []Result[T] {
	numWorkers := runtime.GOMAXPROCS(0)
	if numWorkers > len(paths) {
		numWorkers = len(paths)
	}
	if numWorkers < 1 {
		return nil
	}

	type indexed struct {
		index int
		res   Result[T]
	}

	jobs := make(chan int, len(paths))
	out := make(chan indexed, len(paths))

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				path := paths[idx]
				value, err := work(path)
				out <- indexed{index: idx, res: Result[T]{Path: path, Value: value, Err: err}}
			}
		}()
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(out)
	}()

	results := make([]Result[T], len(paths))
	for ix := range out {
		results[ix.index] = ix.res
	}
	return results
}
