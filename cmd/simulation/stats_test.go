package main

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteStats_Calculate(t *testing.T) {
	rs := &routeStats{name: "Create Swap"}
	min, max, mean, median, p95, p99 := rs.calculate()
	assert.Zero(t, min+max+mean+median+p95+p99)

	for i := 100; i >= 1; i-- {
		rs.addDuration(time.Duration(i)*time.Millisecond, nil)
	}
	rs.addDuration(time.Second, errors.New("boom"))

	min, max, mean, median, p95, p99 = rs.calculate()
	assert.Equal(t, time.Millisecond, min)
	assert.Equal(t, time.Second, max)
	assert.Equal(t, 51*time.Millisecond, median)
	assert.Equal(t, 96*time.Millisecond, p95)
	assert.Equal(t, 100*time.Millisecond, p99)
	assert.Equal(t, (5050*time.Millisecond+time.Second)/101, mean)
	assert.Equal(t, 101, rs.totalCalls)
	assert.Equal(t, 1, rs.failures)

	// calculate sorts a copy
	assert.Equal(t, 100*time.Millisecond, rs.durations[0])
}

func TestStatsRecorder_Observe(t *testing.T) {
	sr := newStatsRecorder()
	sr.observe("create_swap", time.Millisecond, nil)
	sr.observe("create_swap", 2*time.Millisecond, errors.New("rejected"))
	sr.observe("custom", time.Millisecond, nil)

	require.Contains(t, sr.stats, "create_swap")
	assert.Equal(t, "Create Swap", sr.stats["create_swap"].name)
	assert.Equal(t, 2, sr.stats["create_swap"].totalCalls)
	assert.Equal(t, 1, sr.stats["create_swap"].failures)
	assert.Equal(t, "custom", sr.stats["custom"].name)
}
