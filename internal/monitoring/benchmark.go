package monitoring

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

const defaultIterations = 5

// BenchmarkScenario is one operation timed against one backend
type BenchmarkScenario struct {
	Name       string
	Backend    string
	Rows       int
	Iterations int
	Operation  func(ctx context.Context) error
}

// BenchmarkResult contains the results of running a benchmark scenario.
type BenchmarkResult struct {
	Scenario          BenchmarkScenario `json:"scenario"`
	Duration          time.Duration     `json:"duration"`
	AverageDuration   time.Duration     `json:"average_duration"`
	MinDuration       time.Duration     `json:"min_duration"`
	MaxDuration       time.Duration     `json:"max_duration"`
	MemoryAllocated   int64             `json:"memory_allocated"`
	MemoryAllocations int64             `json:"memory_allocations"`
	RowsPerSec        float64           `json:"rows_per_sec"`
	Success           bool              `json:"success"`
	ErrorMessage      string            `json:"error_message,omitempty"`
}

// BenchmarkSuite runs scenarios in the order they were added
type BenchmarkSuite struct {
	scenarios []BenchmarkScenario
	results   []BenchmarkResult
}

// NewBenchmarkSuite creates a new benchmark suite.
func NewBenchmarkSuite() *BenchmarkSuite {
	return &BenchmarkSuite{}
}

// AddScenario adds a benchmark scenario to the suite.
func (bs *BenchmarkSuite) AddScenario(scenario BenchmarkScenario) {
	if scenario.Iterations <= 0 {
		scenario.Iterations = defaultIterations
	}
	bs.scenarios = append(bs.scenarios, scenario)
}

// Run executes every scenario. A cancelled context stops the suite and
// marks the scenario in progress as failed.
func (bs *BenchmarkSuite) Run(ctx context.Context) []BenchmarkResult {
	bs.results = make([]BenchmarkResult, 0, len(bs.scenarios))
	for _, scenario := range bs.scenarios {
		result := bs.runScenario(ctx, scenario)
		bs.results = append(bs.results, result)
		if ctx.Err() != nil {
			break
		}
	}
	return bs.results
}

func (bs *BenchmarkSuite) runScenario(ctx context.Context, scenario BenchmarkScenario) BenchmarkResult {
	durations := make([]time.Duration, 0, scenario.Iterations)
	var totalDuration time.Duration
	var memBefore, memAfter runtime.MemStats
	success := true
	errorMessage := ""

	runtime.GC()
	runtime.ReadMemStats(&memBefore)

	for i := range scenario.Iterations {
		if err := ctx.Err(); err != nil {
			success = false
			errorMessage = fmt.Sprintf("iteration %d not started: %v", i+1, err)
			break
		}
		start := time.Now()
		if err := scenario.Operation(ctx); err != nil {
			success = false
			errorMessage = fmt.Sprintf("iteration %d failed: %v", i+1, err)
			break
		}
		d := time.Since(start)
		durations = append(durations, d)
		totalDuration += d
	}

	runtime.GC()
	runtime.ReadMemStats(&memAfter)

	var avgDuration, minDuration, maxDuration time.Duration
	if len(durations) > 0 {
		avgDuration = totalDuration / time.Duration(len(durations))
		minDuration = durations[0]
		maxDuration = durations[0]
		for _, d := range durations {
			minDuration = min(minDuration, d)
			maxDuration = max(maxDuration, d)
		}
	}

	rowsPerSec := 0.0
	if avgDuration > 0 {
		rowsPerSec = float64(scenario.Rows) / avgDuration.Seconds()
	}

	return BenchmarkResult{
		Scenario:          scenario,
		Duration:          totalDuration,
		AverageDuration:   avgDuration,
		MinDuration:       minDuration,
		MaxDuration:       maxDuration,
		MemoryAllocated:   int64(memAfter.TotalAlloc - memBefore.TotalAlloc), //nolint:gosec // bounded by process allocation
		MemoryAllocations: int64(memAfter.Mallocs - memBefore.Mallocs),       //nolint:gosec // bounded by process allocation
		RowsPerSec:        rowsPerSec,
		Success:           success,
		ErrorMessage:      errorMessage,
	}
}

// GetResults returns the results of the last run.
func (bs *BenchmarkSuite) GetResults() []BenchmarkResult {
	return bs.results
}

// Fastest returns the quickest successful result of a scenario name across backends
func (bs *BenchmarkSuite) Fastest(name string) (BenchmarkResult, bool) {
	var best BenchmarkResult
	found := false
	for _, r := range bs.results {
		if r.Scenario.Name != name || !r.Success {
			continue
		}
		if !found || r.AverageDuration < best.AverageDuration {
			best = r
			found = true
		}
	}
	return best, found
}

// Clear removes all scenarios and results.
func (bs *BenchmarkSuite) Clear() {
	bs.scenarios = nil
	bs.results = nil
}
