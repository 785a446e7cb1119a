package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/touchline/internal/domain/types"
	"github.com/okian/touchline/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	reportPermission    = 0o600
)

// Run executes a probe against cfg.BaseURL. The report is returned even when
// answers disagree, together with an error wrapping ErrNondeterministic.
func Run(ctx context.Context, cfg Config) (Report, error) {
	cfg = cfg.withDefaults()
	log := logger.Get().Named("probe")
	rep := Report{StartTime: time.Now()}

	log.Info(ctx, "starting touchline probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("pairs", cfg.Pairs),
		logger.Int("repeats", cfg.Repeats),
		logger.Int("workers", cfg.Workers),
		logger.Int("batchSize", cfg.BatchSize),
		logger.String("timeout", cfg.Timeout.String()))

	c := newClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := checkHealth(ctx, c); err != nil {
		return rep, err
	}

	// Step 2: Size the id space
	people := cfg.People
	if people == 0 {
		n, err := c.peopleCount(ctx)
		if err != nil {
			return rep, fmt.Errorf("read people count: %w", err)
		}
		people = n
	}
	if people < 2 {
		return rep, ErrTooFewPeople
	}
	rep.People = people
	pairs := generatePairs(cfg.Seed, people, cfg.Pairs, cfg.MaxDepth)

	// Step 3: Ask every pair Repeats times concurrently
	answers, latencies := askAll(ctx, c, cfg, pairs)
	for i, rs := range answers {
		for _, r := range rs {
			rep.Requests++
			switch {
			case r.Found:
				rep.Found++
			case r.Error == "":
				rep.NotFound++
			default:
				rep.Failed++
			}
		}
		if !agree(rs) {
			rep.Mismatches++
			rep.Mismatched = append(rep.Mismatched, pairs[i])
			if cfg.Verbose {
				log.Warn(ctx, "repeated answers disagree",
					logger.Int64("source", pairs[i].Source),
					logger.Int64("target", pairs[i].Target))
			}
		}
	}
	rep.Latency = summarize(latencies)

	// Step 4: Batch answers must match single answers
	if cfg.BatchSize > 0 {
		n, err := checkBatch(ctx, c, pairs[:cfg.BatchSize], answers)
		if err != nil {
			return rep, fmt.Errorf("batch check: %w", err)
		}
		rep.BatchMismatches = n
	}

	rep.EndTime = time.Now()
	rep.Duration = rep.EndTime.Sub(rep.StartTime).String()
	logReport(ctx, log, rep)

	// Step 5: Save the report
	if cfg.OutputFile != "" {
		if err := saveReport(cfg.OutputFile, rep); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		} else {
			log.Info(ctx, "report saved", logger.String("file", cfg.OutputFile))
		}
	}

	if rep.Mismatches > 0 || rep.BatchMismatches > 0 {
		return rep, fmt.Errorf("%w: %d repeated, %d batched", ErrNondeterministic, rep.Mismatches, rep.BatchMismatches)
	}
	return rep, nil
}

// checkHealth verifies the service is running. The health route serves
// Prometheus metrics, so any 200 counts as healthy.
func checkHealth(ctx context.Context, c *client) error {
	status, err := c.get(ctx, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, status)
	}
	return nil
}

// askAll sends every pair cfg.Repeats times through a bounded group of
// workers. Transport errors become unavailable results.
func askAll(ctx context.Context, c *client, cfg Config, pairs []Pair) ([][]types.Result, []time.Duration) {
	answers := make([][]types.Result, len(pairs))
	for i := range answers {
		answers[i] = make([]types.Result, cfg.Repeats)
	}
	latencies := make([]time.Duration, len(pairs)*cfg.Repeats)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for r := range cfg.Repeats {
		for i, p := range pairs {
			g.Go(func() error {
				start := time.Now()
				res, err := c.findPath(gctx, p)
				latencies[r*len(pairs)+i] = time.Since(start)
				if err != nil {
					res = types.Failed(types.ErrorUnavailable, err.Error(), 0)
				}
				answers[i][r] = res
				return nil
			})
		}
	}
	_ = g.Wait()
	return answers, latencies
}

// checkBatch asks pairs through the batch route and counts answers that
// differ from the single answers for the same pair.
func checkBatch(ctx context.Context, c *client, pairs []Pair, answers [][]types.Result) (int, error) {
	results, err := c.batch(ctx, pairs)
	if err != nil {
		return 0, err
	}
	mismatches := 0
	for i, r := range results {
		if !agree(append([]types.Result{r}, answers[i]...)) {
			mismatches++
		}
	}
	return mismatches, nil
}

func saveReport(filename string, rep Report) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(filename, data, reportPermission); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func logReport(ctx context.Context, log logger.Logger, rep Report) {
	log.Info(ctx, "final statistics",
		logger.Int("people", rep.People),
		logger.Int("requests", rep.Requests),
		logger.Int("found", rep.Found),
		logger.Int("notFound", rep.NotFound),
		logger.Int("failed", rep.Failed),
		logger.Int("mismatches", rep.Mismatches),
		logger.Int("batchMismatches", rep.BatchMismatches),
		logger.Float64("p50Ms", rep.Latency.P50Ms),
		logger.Float64("p95Ms", rep.Latency.P95Ms),
		logger.Float64("p99Ms", rep.Latency.P99Ms),
		logger.String("duration", rep.Duration))
}
