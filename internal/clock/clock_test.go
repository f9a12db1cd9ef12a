package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFakeClockAdvance(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewFakeClock(start)

	assert.Equal(t, start.Unix(), Unix(c))
	c.Advance(30 * 24 * time.Hour)
	assert.Equal(t, start.Add(30*24*time.Hour), c.Now())

	c.Set(start)
	assert.Equal(t, start, c.Now())
}
