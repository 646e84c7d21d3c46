package engine

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Config holds the runtime configuration for a batch run.
type Config struct {
	Tool        string
	Concurrency int
}

// ProgressReporter is called by the engine to report progress.
type ProgressReporter interface {
	Stage(num, total int, msg string)
	Detail(msg string)
	Warn(msg string)
}

// CheckFunc inspects a single target.
type CheckFunc[T any] func(ctx context.Context, target string) (T, error)

// Run applies check to every target using a bounded worker pool. Items
// come back in target order. Targets not reached before ctx is cancelled
// carry the context error.
func Run[T any](ctx context.Context, cfg Config, targets []string, check CheckFunc[T], progress ProgressReporter) *Report[T] {
	report := &Report[T]{
		Tool:      cfg.Tool,
		StartedAt: time.Now(),
		Items:     make([]Item[T], len(targets)),
	}

	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	if concurrency > len(targets) {
		concurrency = len(targets)
	}

	progress.Stage(1, 1, fmt.Sprintf("Running %s against %d target(s)...", cfg.Tool, len(targets)))

	work := make(chan int, len(targets))
	for i := range targets {
		work <- i
	}
	close(work)

	var (
		mu       sync.Mutex
		finished int
		done     = make([]bool, len(targets))
	)

	var wg sync.WaitGroup
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				select {
				case <-ctx.Done():
					return
				default:
				}

				target := targets[i]
				result, err := check(ctx, target)

				mu.Lock()
				report.Items[i] = newItem(target, result, err)
				done[i] = true
				finished++
				n := finished
				mu.Unlock()

				if err != nil {
					progress.Warn(fmt.Sprintf("%s: %s", target, err))
				}
				progress.Detail(fmt.Sprintf("[%d/%d] %s", n, len(targets), target))
			}
		}()
	}
	wg.Wait()

	for i, ok := range done {
		if !ok {
			var zero T
			report.Items[i] = newItem(targets[i], zero, ctx.Err())
		}
	}

	report.CompletedAt = time.Now()
	report.DurationSecs = report.CompletedAt.Sub(report.StartedAt).Seconds()
	report.Summary = buildSummary(report.Items)
	return report
}

func newItem[T any](target string, result T, err error) Item[T] {
	item := Item[T]{Target: target, Result: result, err: err}
	if err != nil {
		item.Error = err.Error()
	}
	return item
}

func buildSummary[T any](items []Item[T]) Summary {
	s := Summary{Targets: len(items)}
	for _, it := range items {
		if it.err != nil {
			s.Failed++
		} else {
			s.Succeeded++
		}
	}
	return s
}
