package service

import (
	"time"

	"github.com/oncovista-opd-server/internal/domain"
)

// SystemClock reads the wall clock
type SystemClock struct{}

// Now returns the current UTC time
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}

// FixedClock always returns the same instant
type FixedClock struct {
	At time.Time
}

// Now returns the fixed instant
func (c FixedClock) Now() time.Time {
	return c.At
}

var (
	_ domain.Clock = SystemClock{}
	_ domain.Clock = FixedClock{}
)
