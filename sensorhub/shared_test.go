package sensorhub

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sherrors "github.com/CodedInternet/sensorhub/sensorhub/errors"
	. "github.com/smartystreets/goconvey/convey"
)

func newOpenableSensor(name string, hw Hardware) *Sensor {
	s, err := NewPhysicalSensor(Accelerometer, 0, name, "invensense").Hardware(hw).Build()
	So(err, ShouldBeNil)
	So(s.PublishDefaultAttributes(), ShouldBeNil)
	So(s.UpdateAttribute(KeyRates, Rates(imuRates)), ShouldBeNil)
	return s
}

func TestShared(t *testing.T) {
	Convey("Given a shared sensor", t, func() {
		hw := &fakeHardware{}
		sh := NewShared(newOpenableSensor("acc", hw))
		ctx := context.Background()

		Convey("open and close go through the lock", func() {
			resolved, err := sh.Open(ctx, 60)
			So(err, ShouldBeNil)
			So(resolved, ShouldEqual, 100)
			So(sh.Close(ctx, resolved), ShouldBeNil)
			So(hw.closes, ShouldEqual, 1)
		})

		Convey("a held lock makes other callers wait until their context ends", func() {
			_, release, err := sh.Acquire(ctx)
			So(err, ShouldBeNil)

			short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
			defer cancel()
			_, err = sh.Open(short, 60)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)

			release()
			_, err = sh.Open(ctx, 60)
			So(err, ShouldBeNil)
		})

		Convey("concurrent consumers keep the counts consistent", func() {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					r, err := sh.Open(ctx, 60)
					if err == nil {
						sh.Close(ctx, r)
					}
				}()
			}
			wg.Wait()

			err := sh.Do(ctx, func(s *Sensor) error {
				So(s.Listeners().Len(), ShouldEqual, 0)
				return nil
			})
			So(err, ShouldBeNil)
			So(len(hw.opens), ShouldEqual, 50)
		})
	})
}

type countingSleeper struct {
	lock   sync.Mutex
	sleeps int
	stop   int
	cancel context.CancelFunc
	last   time.Duration
}

func (c *countingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	c.lock.Lock()
	c.sleeps++
	c.last = d
	done := c.sleeps >= c.stop
	c.lock.Unlock()

	if done {
		c.cancel()
		return ctx.Err()
	}
	return nil
}

func TestPoll(t *testing.T) {
	Convey("Given a poller running against a shared sensor", t, func() {
		sh := NewShared(newOpenableSensor("acc", &fakeHardware{}))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		Convey("it runs until the context ends, sleeping between runs", func() {
			sleeper := &countingSleeper{stop: 3, cancel: cancel}
			runs := 0
			err := Poll(ctx, sh, Interval(100), sleeper, func(s *Sensor) error {
				runs++
				return nil
			})
			So(errors.Is(err, context.Canceled), ShouldBeTrue)
			So(runs, ShouldEqual, 3)
			So(sleeper.last, ShouldEqual, 10*time.Millisecond)
		})

		Convey("it stops on the first failure", func() {
			boom := errors.New("boom")
			err := Poll(ctx, sh, time.Millisecond, nil, func(s *Sensor) error {
				return boom
			})
			So(errors.Is(err, boom), ShouldBeTrue)
		})

		Convey("two pollers take turns on one sensor", func() {
			var lock sync.Mutex
			inside := 0
			overlap := false
			task := func(s *Sensor) error {
				lock.Lock()
				inside++
				if inside > 1 {
					overlap = true
				}
				lock.Unlock()

				_, err := s.Open(60)
				if err == nil {
					err = s.Close(100)
				}

				lock.Lock()
				inside--
				lock.Unlock()
				return err
			}

			short, stop := context.WithTimeout(ctx, 50*time.Millisecond)
			defer stop()

			var wg sync.WaitGroup
			for i := 0; i < 2; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					Poll(short, sh, time.Millisecond, TimerSleeper, task)
				}()
			}
			wg.Wait()

			lock.Lock()
			So(overlap, ShouldBeFalse)
			lock.Unlock()
		})
	})

	Convey("Interval converts Hz to a period", t, func() {
		So(Interval(1000), ShouldEqual, time.Millisecond)
		So(Interval(0), ShouldEqual, 0)
	})
}

func TestHub(t *testing.T) {
	Convey("Given a hub", t, func() {
		hub := NewHub()
		So(hub.Add(NewShared(newOpenableSensor("gyro", &fakeHardware{}))), ShouldBeNil)
		So(hub.Add(NewShared(newOpenableSensor("acc", &fakeHardware{}))), ShouldBeNil)

		Convey("names come back sorted", func() {
			So(hub.Names(), ShouldResemble, []string{"acc", "gyro"})
		})

		Convey("duplicate names are refused", func() {
			err := hub.Add(NewShared(newOpenableSensor("acc", &fakeHardware{})))
			So(err, ShouldHaveSameTypeAs, sherrors.DuplicateSensorError{})
		})

		Convey("unknown sensors are reported by name", func() {
			_, err := hub.Sensor("mag")
			So(err, ShouldHaveSameTypeAs, sherrors.SensorNameError{})
		})

		Convey("close runs cleanups last first", func() {
			var order []int
			hub.OnClose(func() error { order = append(order, 1); return nil })
			hub.OnClose(func() error { order = append(order, 2); return errors.New("second") })
			err := hub.Close()
			So(err, ShouldNotBeNil)
			So(order, ShouldResemble, []int{2, 1})
		})
	})
}
