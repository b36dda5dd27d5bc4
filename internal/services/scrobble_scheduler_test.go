package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSchedulerNextIntervalStaysWithinTenPercent(t *testing.T) {
	s := NewScrobbleScheduler(nil, 10*time.Minute)

	low := time.Duration(float64(s.interval) * 0.9)
	high := time.Duration(float64(s.interval) * 1.1)

	seen := make(map[time.Duration]bool)
	for i := 0; i < 1000; i++ {
		next := s.nextInterval()
		assert.GreaterOrEqual(t, next, low)
		assert.LessOrEqual(t, next, high)
		seen[next] = true
	}
	assert.Greater(t, len(seen), 1, "intervals should vary between runs")
}
