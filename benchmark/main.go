// Package main measures robustscore execution times on synthetic metric tables.
// Each dataset is scored several times without a cache and then several
// times against a fresh sqlite aggregate cache. The first cached run is
// reported as cold and the rest are averaged as warm.
//
// Prerequisites:
// - robustscore binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory where synthetic datasets are written
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// BenchmarkResult holds the timings of one dataset.
type BenchmarkResult struct {
	Dataset     string
	Rows        int
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// Dataset describes the shape of a synthetic metric table.
type Dataset struct {
	Name       string
	Models     int
	Transforms int
	Severities int
	Subjects   int
}

// Rows is the number of data lines the dataset produces.
func (d Dataset) Rows() int {
	return d.Models * d.Subjects * (1 + d.Transforms*d.Severities)
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir     string
	Timeout     time.Duration
	Workers     int
	NoCacheRuns int
	CacheRuns   int
	Datasets    []Dataset
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:     os.Args[1],
		Timeout:     5 * time.Minute,
		Workers:     14,
		NoCacheRuns: 3,
		CacheRuns:   4,
		Datasets: []Dataset{
			{Name: "small", Models: 2, Transforms: 4, Severities: 5, Subjects: 20},
			{Name: "medium", Models: 10, Transforms: 12, Severities: 5, Subjects: 100},
			{Name: "large", Models: 40, Transforms: 20, Severities: 5, Subjects: 250},
		},
	}

	if _, err := exec.LookPath("robustscore"); err != nil {
		fmt.Printf("Prerequisites check failed: robustscore binary not found in PATH\n")
		os.Exit(1)
	}
	if err := os.MkdirAll(config.WorkDir, 0o755); err != nil {
		fmt.Printf("Failed to create work dir: %v\n", err)
		os.Exit(1)
	}

	results, err := runBenchmarks(config)
	if err != nil {
		fmt.Printf("Benchmark failed: %v\n", err)
		os.Exit(1)
	}

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// runBenchmarks generates each dataset and times it.
func runBenchmarks(config BenchmarkConfig) ([]BenchmarkResult, error) {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: %d datasets, %v timeout, %d workers, no-cache: %d runs, cache: %d runs\n",
		len(config.Datasets), config.Timeout, config.Workers, config.NoCacheRuns, config.CacheRuns)

	for _, ds := range config.Datasets {
		path := filepath.Join(config.WorkDir, ds.Name+".csv")
		if err := generateDataset(path, ds); err != nil {
			return nil, fmt.Errorf("failed to generate %s: %w", ds.Name, err)
		}
		fmt.Printf("Benchmarking %s (%d rows)\n", ds.Name, ds.Rows())
		results = append(results, runBenchmarkSuite(config, ds, path))
	}
	return results, nil
}

// generateDataset writes a Model,Transform,Severity,Subject,DSC,HD95 table
// whose scores degrade linearly with severity.
func generateDataset(path string, ds Dataset) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	rng := rand.New(rand.NewPCG(uint64(ds.Rows()), 42))
	w := csv.NewWriter(file)
	if err := w.Write([]string{"Model", "Transform", "Severity", "Subject", "DSC", "HD95"}); err != nil {
		return err
	}

	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
	for m := range ds.Models {
		model := fmt.Sprintf("model%02d", m)
		for s := range ds.Subjects {
			subject := fmt.Sprintf("s%04d", s)
			if err := w.Write([]string{model, "Clean", "0", subject, f(0.9 + rng.NormFloat64()*0.01), f(3 + rng.NormFloat64()*0.2)}); err != nil {
				return err
			}
			for tr := range ds.Transforms {
				name := fmt.Sprintf("T%02d", tr)
				for sev := 1; sev <= ds.Severities; sev++ {
					drop := 0.02 * float64(sev) * (1 + float64(tr)/10)
					dsc := 0.9 - drop + rng.NormFloat64()*0.01*float64(sev)
					hd := 3 + 5*drop + rng.NormFloat64()*0.2
					if err := w.Write([]string{model, name, strconv.Itoa(sev), subject, f(dsc), f(hd)}); err != nil {
						return err
					}
				}
			}
		}
	}
	w.Flush()
	return w.Error()
}

// runBenchmarkSuite runs the no-cache and cache phases for one dataset.
func runBenchmarkSuite(config BenchmarkConfig, ds Dataset, path string) BenchmarkResult {
	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, path, cacheBackend, numRuns)
		if len(times) == 0 {
			return cold, "TIMEOUT"
		}
		var sum float64
		for _, t := range times {
			sum += t
		}
		return cold, fmt.Sprintf("%.3fs", sum/float64(len(times)))
	}

	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")

	clearCmd := exec.Command("robustscore", "cache", "clear")
	if output, err := clearCmd.CombinedOutput(); err != nil {
		fmt.Printf("Warning: failed to clear cache: %v\nOutput: %s\n", err, string(output))
	}
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}
	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Dataset:     ds.Name,
		Rows:        ds.Rows(),
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark scores path numRuns times and returns the first successful
// time separately from the rest.
func runBenchmark(config BenchmarkConfig, path, cacheBackend string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{
		"score", path,
		"--group", "Model",
		"--metrics", "DSC,HD95:lower",
		"--cache-backend", cacheBackend,
		"--workers", strconv.Itoa(config.Workers),
		"--color", "no",
	}

	var times []float64
	for range numRuns {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		start := time.Now()
		output, err := exec.CommandContext(ctx, "robustscore", args...).CombinedOutput()
		elapsed := time.Since(start).Seconds()
		timedOut := errors.Is(ctx.Err(), context.DeadlineExceeded)
		cancel()

		if err == nil && !timedOut && isSuccess(output) {
			times = append(times, elapsed)
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks the footer of a text-mode score run.
func isSuccess(output []byte) bool {
	s := string(output)
	return strings.Contains(s, "Analysis completed in") && strings.Contains(s, "workers")
}

// saveResults writes benchmark results to a timestamped CSV file.
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := filepath.Join(os.TempDir(), fmt.Sprintf("robustscore_benchmark_%s.csv", timestamp))

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"dataset", "rows", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, r := range results {
		if err := writer.Write([]string{r.Dataset, strconv.Itoa(r.Rows), r.NoCacheTime, r.ColdTime, r.WarmTime}); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, r := range results {
		fmt.Printf("  %-8s %9d rows: No-cache: %s, Cold: %s, Warm: %s\n", r.Dataset, r.Rows, r.NoCacheTime, r.ColdTime, r.WarmTime)
	}
}
