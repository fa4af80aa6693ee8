package sensorhub

import (
	"context"
	"time"
)

// Sleeper waits for d or until ctx is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// TimerSleeper is the wall clock Sleeper.
var TimerSleeper Sleeper = SleeperFunc(func(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
})

// Poll runs fn against the shared sensor every interval until ctx is done or
// fn fails. The lock is held only while fn runs, never across the sleep, so
// several pollers on one sensor take turns.
func Poll(ctx context.Context, sh *Shared, interval time.Duration, sleeper Sleeper, fn func(s *Sensor) error) error {
	if sleeper == nil {
		sleeper = TimerSleeper
	}

	for {
		if err := sh.Do(ctx, fn); err != nil {
			return err
		}
		if err := sleeper.Sleep(ctx, interval); err != nil {
			return err
		}
	}
}

// Interval converts a rate in Hz to the time between samples.
func Interval(rate uint32) time.Duration {
	if rate == 0 {
		return 0
	}
	return time.Second / time.Duration(rate)
}
