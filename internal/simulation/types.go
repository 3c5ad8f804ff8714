package simulation

import (
	"context"
	"math/rand"
	"time"
)

// Clock abstracts time for deterministic testing. Sleep returns early with
// ctx.Err() when the context is canceled so pending stage timers die with
// their session.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// Rand abstracts randomness for deterministic testing.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type RealRand struct{}

func (RealRand) Intn(n int) int   { return rand.Intn(n) }
func (RealRand) Float64() float64 { return rand.Float64() }
