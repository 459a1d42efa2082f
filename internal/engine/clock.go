package engine

import (
	"math/rand/v2"
	"time"
)

//go:generate mockgen -destination=mocks/mock_engine.go -package=mocks github.com/oggyb/muzz-match/internal/engine Clock,RandSource

// Clock supplies the current time. Premium checks, day keys and read stamps all go through it.
type Clock interface {
	Now() time.Time
}

// RandSource supplies the random tie-break term of the daily score.
type RandSource interface {
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock is the wall clock.
func SystemClock() Clock { return systemClock{} }

type globalRand struct{}

// math/rand/v2 top-level functions are safe for concurrent use.
func (globalRand) Float64() float64 { return rand.Float64() }

// DefaultRand is the process-wide random source.
func DefaultRand() RandSource { return globalRand{} }
