package main

import (
	"context"
	"net/http"
	"time"

	"github.com/CodedInternet/sensorhub/sensorhub"
	"github.com/go-chi/chi"
	"github.com/go-chi/render"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const STREAM_WRITE_TIMEOUT = time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type SamplePayload struct {
	Sensor string     `json:"sensor"`
	Rate   uint32     `json:"rate"`
	Time   time.Time  `json:"time"`
	Value  mgl32.Vec3 `json:"value"`
}

// Stream makes the websocket client a listener of the sensor. The sensor is
// opened at the requested rate for as long as the connection lives and every
// sample is pushed as JSON at the resolved rate.
func (api *sensorAPI) Stream(w http.ResponseWriter, r *http.Request) {
	sh, err := api.hub.Sensor(chi.URLParam(r, "name"))
	if err != nil {
		render.Render(w, r, ErrSensor(err))
		return
	}
	requested, err := rateParam(r)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	resolved, err := sh.Open(r.Context(), requested)
	if err != nil {
		render.Render(w, r, ErrSensor(err))
		return
	}
	l := log.WithFields(log.Fields{"sensor": sh.Name(), "rate": resolved})
	defer func() {
		if err := sh.Close(context.Background(), resolved); err != nil {
			l.WithError(err).Warn("unable to release stream listener")
		}
	}()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.WithError(err).Warn("upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the client never sends anything useful, reading only detects the hang up
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	interval := sensorhub.Interval(resolved)
	if interval == 0 {
		interval = time.Second
	}

	l.Info("stream started")
	err = streamSamples(ctx, conn, sh, resolved, interval, api.sleeper)
	l.WithError(err).Info("stream stopped")
}

// streamSamples polls the sensor at interval. The lock is held only while
// sampling, writes happen on their own goroutine and a sample is dropped when
// the client has not taken the previous one yet, so a slow client never stalls
// other listeners.
func streamSamples(ctx context.Context, conn *websocket.Conn, sh *sensorhub.Shared, rate uint32, interval time.Duration, sleeper sensorhub.Sleeper) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	samples := make(chan SamplePayload, 1)
	written := make(chan error, 1)
	go func() {
		defer cancel()
		for p := range samples {
			conn.SetWriteDeadline(time.Now().Add(STREAM_WRITE_TIMEOUT))
			if err := conn.WriteJSON(p); err != nil {
				written <- err
				return
			}
		}
		written <- nil
	}()

	err := sensorhub.Poll(ctx, sh, interval, sleeper, func(s *sensorhub.Sensor) error {
		v, err := s.Sample()
		if err != nil {
			return err
		}
		select {
		case samples <- SamplePayload{Sensor: s.Name(), Rate: rate, Time: time.Now().UTC(), Value: v}:
		default:
		}
		return nil
	})
	close(samples)

	if werr := <-written; werr != nil {
		return werr
	}
	return err
}
