package main

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration, err error) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
	if err != nil {
		rs.failures++
	}
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	sorted := append([]time.Duration(nil), rs.durations...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	min = sorted[0]
	max = sorted[len(sorted)-1]

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}
	mean = sum / time.Duration(len(sorted))

	median = sorted[len(sorted)/2]

	p95idx := int(math.Ceil(float64(len(sorted))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(sorted))*0.99)) - 1
	p95 = sorted[p95idx]
	p99 = sorted[p99idx]

	return
}

// statsRecorder collects per-route timings from concurrent workers
type statsRecorder struct {
	mu    sync.Mutex
	names map[string]string
	stats map[string]*routeStats
}

func newStatsRecorder() *statsRecorder {
	return &statsRecorder{
		names: map[string]string{
			"auth":        "Authentication",
			"create_swap": "Create Swap",
			"status":      "Swap Status",
			"show_order":  "Show Order",
			"user_orders": "User Orders",
			"tokens":      "Supported Tokens",
		},
		stats: make(map[string]*routeStats),
	}
}

// observe matches client.Observer
func (sr *statsRecorder) observe(route string, d time.Duration, err error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	rs, ok := sr.stats[route]
	if !ok {
		name := sr.names[route]
		if name == "" {
			name = route
		}
		rs = &routeStats{name: name}
		sr.stats[route] = rs
	}
	rs.addDuration(d, err)
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sr *statsRecorder) printPerformanceStats() {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	routes := make([]string, 0, len(sr.stats))
	for route := range sr.stats {
		routes = append(routes, route)
	}
	sort.Strings(routes)

	fmt.Println("\n📊 API Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, route := range routes {
		stats := sr.stats[route]
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// printDistribution renders counts as a simple ASCII bar chart
func printDistribution(title string, counts map[string]int) {
	fmt.Println("\n" + title)
	fmt.Println(strings.Repeat("-", len(title)))

	keys := make([]string, 0, len(counts))
	maxCount := 0
	for k, count := range counts {
		keys = append(keys, k)
		if count > maxCount {
			maxCount = count
		}
	}
	sort.Strings(keys)

	for _, k := range keys {
		barLength := 0
		if maxCount > 0 {
			barLength = int(float64(counts[k]) / float64(maxCount) * 20)
		}
		fmt.Printf("%-10s: %s (%d)\n", k, strings.Repeat("█", barLength), counts[k])
	}
}
