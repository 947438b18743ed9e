package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"maps"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
)

type latencySummary struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
	Avg float64 `json:"avg"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
}

type methodReport struct {
	Calls     int64            `json:"calls"`
	Success   int64            `json:"success"`
	Failed    int64            `json:"failed"`
	ErrorRate float64          `json:"error_rate"`
	Codes     map[string]int64 `json:"codes"`
	LatencyMs latencySummary   `json:"latency_ms"`
}

type report struct {
	StartedAt       time.Time               `json:"started_at"`
	DurationSeconds float64                 `json:"duration_seconds"`
	RPS             float64                 `json:"rps"`
	Stock           int                     `json:"stock"`
	UnitsSold       int64                   `json:"units_sold"`
	OrdersListed    int                     `json:"orders_listed"`
	Rejected        int64                   `json:"rejected"`
	Failed          int64                   `json:"failed"`
	Oversold        bool                    `json:"oversold"`
	Methods         map[string]methodReport `json:"methods"`
}

type callStats struct {
	success   int64
	failed    int64
	codes     map[codes.Code]int64
	latencies []time.Duration
}

func (s *callStats) report() methodReport {
	calls := s.success + s.failed
	byName := make(map[string]int64, len(s.codes))
	for code, n := range s.codes {
		byName[code.String()] = n
	}
	return methodReport{
		Calls:     calls,
		Success:   s.success,
		Failed:    s.failed,
		ErrorRate: errorRate(s.failed, calls),
		Codes:     byName,
		LatencyMs: summarize(s.latencies),
	}
}

// collector накапливает результаты вызовов по имени метода; безопасен для конкурентного использования.
type collector struct {
	mu    sync.Mutex
	calls map[string]*callStats
}

func newCollector() *collector {
	return &collector{calls: make(map[string]*callStats)}
}

// record учитывает вызов. ok отделяет ожидаемые исходы от сбоев: для сценария
// отказ по остатку считается нормальным результатом.
func (c *collector) record(method string, latency time.Duration, code codes.Code, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.calls[method]
	if stats == nil {
		stats = &callStats{codes: make(map[codes.Code]int64)}
		c.calls[method] = stats
	}
	if ok {
		stats.success++
	} else {
		stats.failed++
	}
	stats.codes[code]++
	stats.latencies = append(stats.latencies, latency)
}

func (c *collector) methodReports() map[string]methodReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	reports := make(map[string]methodReport, len(c.calls))
	for method, stats := range c.calls {
		reports[method] = stats.report()
	}
	return reports
}

// summarize считает задержки в миллисекундах; перцентили по nearest-rank.
func summarize(latencies []time.Duration) latencySummary {
	if len(latencies) == 0 {
		return latencySummary{}
	}

	sorted := slices.Clone(latencies)
	slices.Sort(sorted)

	var total time.Duration
	for _, l := range sorted {
		total += l
	}

	return latencySummary{
		Min: millis(sorted[0]),
		Max: millis(sorted[len(sorted)-1]),
		Avg: millis(total / time.Duration(len(sorted))),
		P50: millis(quantile(sorted, 0.50)),
		P95: millis(quantile(sorted, 0.95)),
		P99: millis(quantile(sorted, 0.99)),
	}
}

func quantile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(q * float64(len(sorted))))
	return sorted[min(max(rank, 1), len(sorted))-1]
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func errorRate(failed, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(failed) / float64(total)
}

// writeJSONReport пишет отчёт в файл внутри текущего каталога.
func writeJSONReport(path string, result report) error {
	clean := filepath.Clean(path)
	switch {
	case clean == "." || clean == string(filepath.Separator):
		return errors.New("output path must point to a file")
	case clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean):
		return fmt.Errorf("output path must be inside current directory: %s", path)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return os.WriteFile(clean, append(data, '\n'), 0o600)
}

func printReport(w io.Writer, result report) {
	_, _ = fmt.Fprintln(w, "Load test summary")
	_, _ = fmt.Fprintf(w, "stock=%d sold=%d listed=%d rejected=%d failed=%d oversold=%t\n",
		result.Stock, result.UnitsSold, result.OrdersListed, result.Rejected, result.Failed, result.Oversold)
	_, _ = fmt.Fprintf(w, "duration=%.2fs rps=%.2f\n", result.DurationSeconds, result.RPS)

	for _, name := range slices.Sorted(maps.Keys(result.Methods)) {
		m := result.Methods[name]
		_, _ = fmt.Fprintf(w, "%s: calls=%d success=%d failed=%d error_rate=%.4f p50=%.2fms p95=%.2fms p99=%.2fms\n",
			name, m.Calls, m.Success, m.Failed, m.ErrorRate, m.LatencyMs.P50, m.LatencyMs.P95, m.LatencyMs.P99)
	}
}
