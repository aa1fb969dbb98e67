package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClock_NilUsesWallTime(t *testing.T) {
	var c Clock
	before := time.Now()
	got := c.Now()
	assert.False(t, got.Before(before))
}

func TestFixedClock(t *testing.T) {
	at := time.Date(2024, 1, 1, 14, 0, 0, 0, time.UTC)
	c := FixedClock(at)
	assert.Equal(t, at, c.Now())
	assert.Equal(t, at, c.Now())
}
