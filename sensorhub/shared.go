package sensorhub

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Shared hands one Sensor to several tasks. Every access goes through a single
// lock held by the caller for the length of one operation. The context only
// bounds the wait for the lock: once acquired, the operation runs to
// completion so arbitration never stops half way.
type Shared struct {
	sensor *Sensor
	sem    *semaphore.Weighted
}

func NewShared(s *Sensor) *Shared {
	return &Shared{
		sensor: s,
		sem:    semaphore.NewWeighted(1),
	}
}

func (sh *Shared) Name() string {
	return sh.sensor.name
}

// Acquire waits for exclusive access. The returned release func must be
// called exactly once.
func (sh *Shared) Acquire(ctx context.Context) (s *Sensor, release func(), err error) {
	if err = sh.sem.Acquire(ctx, 1); err != nil {
		return nil, nil, err
	}
	return sh.sensor, func() { sh.sem.Release(1) }, nil
}

// Do runs fn while holding the lock.
func (sh *Shared) Do(ctx context.Context, fn func(s *Sensor) error) error {
	s, release, err := sh.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()

	return fn(s)
}

func (sh *Shared) Open(ctx context.Context, requested uint32) (resolved uint32, err error) {
	err = sh.Do(ctx, func(s *Sensor) (err error) {
		resolved, err = s.Open(requested)
		return
	})
	return
}

func (sh *Shared) Close(ctx context.Context, resolved uint32) error {
	return sh.Do(ctx, func(s *Sensor) error {
		return s.Close(resolved)
	})
}
