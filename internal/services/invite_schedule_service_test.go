package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeRunTimesWeekly(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.Local)
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	times, err := computeRunTimes(start, "week", 3, now)
	require.NoError(t, err)
	require.Len(t, times, 3)

	// 首次定在起始日当地时间09:00
	assert.Equal(t, time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local), times[0])
	assert.Equal(t, times[0].AddDate(0, 0, 7), times[1])
	assert.Equal(t, times[0].AddDate(0, 0, 14), times[2])
}

func TestComputeRunTimesPastStartBumpsToNow(t *testing.T) {
	now := time.Date(2026, 3, 10, 15, 30, 0, 0, time.Local)
	start := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	// 当天09:00已过，改为当前时间5分钟后
	times, err := computeRunTimes(start, "day", 2, now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(5*time.Minute), times[0])
	assert.Equal(t, times[0].AddDate(0, 0, 1), times[1])
}

func TestComputeRunTimesFrequencies(t *testing.T) {
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	cases := map[string]int{
		"day":          1,
		"week":         7,
		"fortnight":    14,
		"month":        30,
		"quarter":      90,
		"three-months": 90, // 历史别名
	}
	for frequency, days := range cases {
		times, err := computeRunTimes(start, frequency, 2, now)
		require.NoError(t, err, frequency)
		require.Len(t, times, 2, frequency)
		assert.Equal(t, times[0].AddDate(0, 0, days), times[1], frequency)
	}
}

func TestComputeRunTimesNoneForcesSingleRun(t *testing.T) {
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	times, err := computeRunTimes(start, "none", 10, now)
	require.NoError(t, err)
	assert.Len(t, times, 1)
}

func TestComputeRunTimesCyclesClamp(t *testing.T) {
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	// 0或负数回退到1
	times, err := computeRunTimes(start, "week", 0, now)
	require.NoError(t, err)
	assert.Len(t, times, 1)

	times, err = computeRunTimes(start, "week", -5, now)
	require.NoError(t, err)
	assert.Len(t, times, 1)

	// 上限99
	times, err = computeRunTimes(start, "week", 99, now)
	require.NoError(t, err)
	assert.Len(t, times, 99)

	_, err = computeRunTimes(start, "week", 100, now)
	assert.Error(t, err)
}

func TestComputeRunTimesInvalidFrequency(t *testing.T) {
	now := time.Now()
	_, err := computeRunTimes(now, "biweekly", 1, now)
	assert.Error(t, err)
}

func TestComputeRunTimesFrequencyCaseInsensitive(t *testing.T) {
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	start := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)

	times, err := computeRunTimes(start, "  Week ", 2, now)
	require.NoError(t, err)
	assert.Len(t, times, 2)
}

func TestNormalizeRunFilter(t *testing.T) {
	cases := map[string]string{
		"":          runFilterAll,
		"all":       runFilterAll,
		"sent":      runFilterSent,
		"pending":   runFilterFuture,
		"scheduled": runFilterFuture,
		"future":    runFilterFuture,
		" Sent ":    runFilterSent,
	}
	for input, want := range cases {
		got, err := normalizeRunFilter(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}
}

func TestNormalizeRunFilterInvalid(t *testing.T) {
	_, err := normalizeRunFilter("done")
	assert.Error(t, err)
}
