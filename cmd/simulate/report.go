package main

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// result classifies one simulated request by how the API answered it.
type result int

const (
	resultSaved result = iota
	resultBlocked
	resultPrompt
	resultBusy
	resultError
)

type OperationMetrics struct {
	Total     int64
	Saved     int64
	Blocked   int64
	Prompted  int64
	Busy      int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, r result) {
	atomic.AddInt64(&om.Total, 1)
	switch r {
	case resultSaved:
		atomic.AddInt64(&om.Saved, 1)
	case resultBlocked:
		atomic.AddInt64(&om.Blocked, 1)
	case resultPrompt:
		atomic.AddInt64(&om.Prompted, 1)
	case resultBusy:
		atomic.AddInt64(&om.Busy, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

// Stats returns latency aggregates over everything recorded so far.
func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
	om.mu.Lock()
	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	om.mu.Unlock()

	if len(latencies) == 0 {
		return 0, 0, 0, 0
	}
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}
	return sum / time.Duration(len(latencies)),
		percentile(latencies, 50),
		percentile(latencies, 95),
		latencies[len(latencies)-1]
}

func percentile(sorted []time.Duration, p int) time.Duration {
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

type Metrics struct {
	Create     OperationMetrics
	Confirm    OperationMetrics
	Reschedule OperationMetrics
	Cancel     OperationMetrics
	Read       OperationMetrics
}

func (s *Simulator) PrintReport() {
	line := strings.Repeat("=", 80)
	fmt.Println("\n" + line)
	fmt.Println("SIMULATION REPORT")
	fmt.Println(line)
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Professionals: %d  Patients: %d\n\n", len(s.pool.Professionals), len(s.pool.Patients))

	printOperationReport("Create", &s.metrics.Create)
	printOperationReport("Confirm", &s.metrics.Confirm)
	printOperationReport("Reschedule", &s.metrics.Reschedule)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Read", &s.metrics.Read)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	pct := func(n int64) float64 { return float64(n) / float64(total) * 100 }
	rows := []struct {
		label string
		n     int64
	}{
		{"Saved", atomic.LoadInt64(&om.Saved)},
		{"Blocked (409)", atomic.LoadInt64(&om.Blocked)},
		{"Needs ack (428)", atomic.LoadInt64(&om.Prompted)},
		{"Booking in progress", atomic.LoadInt64(&om.Busy)},
		{"Errors", atomic.LoadInt64(&om.Error)},
	}

	avg, p50, p95, max := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	for _, row := range rows {
		if row.n > 0 {
			fmt.Printf("  %s: %d (%.1f%%)\n", row.label, row.n, pct(row.n))
		}
	}
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s max=%s\n\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond),
		p95.Round(time.Millisecond), max.Round(time.Millisecond))
}
