package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/alchemy/internal/shared"
)

// Prober is the part of the registry a [Checker] needs.
type Prober interface {
	Names() []string
	Ping(ctx context.Context, name string) error
	Stats(name string) (sql.DBStats, bool)
}

// CheckOpts contains configuration for engine checks.
type CheckOpts struct {
	Workers   int           // Concurrent workers (default: 4)
	RateLimit float64       // Probes per second (default: 10)
	Attempts  uint          // Attempts per engine (default: 3)
	Delay     time.Duration // Delay between attempts (default: 500ms)
}

func (o CheckOpts) withDefaults() CheckOpts {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Workers > 16 {
		o.Workers = 16
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 10
	}
	if o.Attempts == 0 {
		o.Attempts = 3
	}
	if o.Delay <= 0 {
		o.Delay = 500 * time.Millisecond
	}
	return o
}

// CheckResult is the outcome of probing one engine.
type CheckResult struct {
	Engine   string
	OK       bool
	Latency  time.Duration // Duration of the successful ping, or of the whole check on failure
	Attempts uint
	Error    error
	Stats    sql.DBStats
}

// CheckReport contains the results of [Checker.CheckAll].
type CheckReport struct {
	Results []CheckResult
	Healthy int
	Failed  int
}

// Checker probes registered engines.
type Checker struct {
	prober Prober
	opts   CheckOpts
	logger *log.Logger
}

// NewChecker creates a [Checker] over the given registry.
func NewChecker(prober Prober, opts CheckOpts, logger *log.Logger) *Checker {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Checker{
		prober: prober,
		opts:   opts.withDefaults(),
		logger: shared.WithLogger(logger, "component", "checker"),
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Check probes a single engine, retrying transient failures.
func (c *Checker) Check(ctx context.Context, name string) CheckResult {
	result := CheckResult{Engine: name}
	start := time.Now()

	err := retry.Do(
		func() error {
			result.Attempts++
			pingStart := time.Now()
			if err := c.prober.Ping(ctx, name); err != nil {
				return err
			}
			result.Latency = time.Since(pingStart)
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.opts.Attempts),
		retry.Delay(c.opts.Delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(retryable),
		retry.OnRetry(func(attempt uint, err error) {
			c.logger.Debug("engine check failed, retrying", "engine", name, "attempt", attempt+1, "error", err)
		}),
	)

	if err != nil {
		result.Error = err
		result.Latency = time.Since(start)
		c.logger.Warn("engine check failed", "engine", name, "attempts", result.Attempts, "error", err)
		return result
	}

	result.OK = true
	if stats, ok := c.prober.Stats(name); ok {
		result.Stats = stats
	}
	return result
}

// retryable reports whether a failed probe may succeed later.
func retryable(err error) bool {
	switch {
	case errors.Is(err, shared.ErrEngineNotFound),
		errors.Is(err, shared.ErrInvalidDSN),
		errors.Is(err, shared.ErrUnsupportedDialect),
		errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

// CheckAll probes every registered engine concurrently with rate limiting and progress tracking.
func (c *Checker) CheckAll(ctx context.Context, progress chan<- ProgressUpdate) (*CheckReport, error) {
	names := c.prober.Names()
	total := len(names)
	report := &CheckReport{Results: make([]CheckResult, 0, total)}

	sendProgress(progress, checkStartUpdate(total))
	if total == 0 {
		return report, nil
	}

	limiter := rate.NewLimiter(rate.Limit(c.opts.RateLimit), 1)
	jobs := make(chan string, total)
	results := make(chan CheckResult, total)

	var wg sync.WaitGroup
	for i := 0; i < min(c.opts.Workers, total); i++ {
		wg.Add(1)
		go c.checkWorker(ctx, &wg, limiter, jobs, results)
	}

	for _, name := range names {
		jobs <- name
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		report.Results = append(report.Results, res)
		if res.OK {
			report.Healthy++
		} else {
			report.Failed++
		}
		sendProgress(progress, checkEngineUpdate(completed, total, res))
	}

	sort.Slice(report.Results, func(i, j int) bool {
		return report.Results[i].Engine < report.Results[j].Engine
	})

	sendProgress(progress, checkDoneUpdate(total, report))

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("engine checks interrupted: %w", err)
	}
	return report, nil
}

// checkWorker probes engines from the jobs channel.
func (c *Checker) checkWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan string,
	results chan<- CheckResult,
) {
	defer wg.Done()

	for name := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			results <- CheckResult{Engine: name, Error: err}
			continue
		}
		results <- c.Check(ctx, name)
	}
}
