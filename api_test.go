package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/CodedInternet/sensorhub/sensorhub"
	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"
)

const testConfig = `
version: 1
sensors:
  acc:
    category: accelerometer
    vendor: invensense
    rates: [12, 25, 50, 100, 200]
    bias: [0, 0, 0]
  fused:
    variant: virtual
    category: accelerometer
    vendor: hub
    rates: [50, 100]
    sources: [acc]
`

func newTestServer() (*sensorhub.Hub, http.Handler) {
	cfg, err := sensorhub.ParseConfig([]byte(testConfig))
	So(err, ShouldBeNil)
	hub, err := sensorhub.BuildHub(cfg, simulatedChannels, nil)
	So(err, ShouldBeNil)

	r := chi.NewRouter()
	mountRoutes(r, hub)
	return hub, r
}

func listenerTotal(hub *sensorhub.Hub, name string) (total uint32) {
	sh, err := hub.Sensor(name)
	So(err, ShouldBeNil)
	sh.Do(context.Background(), func(s *sensorhub.Sensor) error {
		total = s.Listeners().Total()
		return nil
	})
	return
}

func TestSensorAPI(t *testing.T) {
	Convey("Given the sensor API", t, func() {
		hub, handler := newTestServer()
		defer hub.Close()

		do := func(method, target string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(method, target, nil))
			return w
		}

		Convey("sensors are listed by name", func() {
			w := do("GET", "/api/sensors")
			So(w.Code, ShouldEqual, http.StatusOK)

			var list []SensorPayload
			So(json.Unmarshal(w.Body.Bytes(), &list), ShouldBeNil)
			So(len(list), ShouldEqual, 2)
			So(list[0].Name, ShouldEqual, "acc")
			So(list[1].Variant, ShouldEqual, "virtual")
		})

		Convey("a single sensor shows its attributes", func() {
			w := do("GET", "/api/sensors/acc")
			So(w.Code, ShouldEqual, http.StatusOK)

			var p SensorPayload
			So(json.Unmarshal(w.Body.Bytes(), &p), ShouldBeNil)
			So(p.State, ShouldEqual, "unopened")
			So(p.Attributes["sensor_name"], ShouldEqual, "acc")
			So(p.Attributes["sensor_type"], ShouldEqual, "accelerometer")
			So(p.Attributes["rates"], ShouldResemble, []interface{}{12.0, 25.0, 50.0, 100.0, 200.0})
		})

		Convey("unknown sensors are not found", func() {
			So(do("GET", "/api/sensors/mag").Code, ShouldEqual, http.StatusNotFound)
			So(do("POST", "/api/sensors/mag/open?rate=10").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("open resolves the rate and close gives it back", func() {
			w := do("POST", "/api/sensors/acc/open?rate=60")
			So(w.Code, ShouldEqual, http.StatusOK)

			var p OpenPayload
			So(json.Unmarshal(w.Body.Bytes(), &p), ShouldBeNil)
			So(p.Resolved, ShouldEqual, 100)
			So(listenerTotal(hub, "acc"), ShouldEqual, 1)

			So(do("POST", "/api/sensors/acc/close?rate=100").Code, ShouldEqual, http.StatusNoContent)
			So(listenerTotal(hub, "acc"), ShouldEqual, 0)

			Convey("and a second close underflows", func() {
				So(do("POST", "/api/sensors/acc/close?rate=100").Code, ShouldEqual, http.StatusConflict)
			})
		})

		Convey("rates nothing can serve are refused", func() {
			So(do("POST", "/api/sensors/acc/open?rate=1000").Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(listenerTotal(hub, "acc"), ShouldEqual, 0)
		})

		Convey("a rate is required", func() {
			So(do("POST", "/api/sensors/acc/open").Code, ShouldEqual, http.StatusBadRequest)
			So(do("POST", "/api/sensors/acc/open?rate=fast").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("flush reaches the node", func() {
			So(do("POST", "/api/sensors/acc/flush").Code, ShouldEqual, http.StatusNoContent)
		})
	})
}

func TestStream(t *testing.T) {
	Convey("Given a websocket client streaming a sensor", t, func() {
		hub, handler := newTestServer()
		defer hub.Close()

		server := httptest.NewServer(handler)
		defer server.Close()

		url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/stream/fused?rate=100"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		So(err, ShouldBeNil)

		Convey("samples arrive at the resolved rate", func() {
			for i := 0; i < 3; i++ {
				var sample SamplePayload
				So(conn.ReadJSON(&sample), ShouldBeNil)
				So(sample.Sensor, ShouldEqual, "fused")
				So(sample.Rate, ShouldEqual, 100)
			}
			So(listenerTotal(hub, "fused"), ShouldEqual, 1)
			So(listenerTotal(hub, "acc"), ShouldEqual, 1)

			Convey("and hanging up releases the listener", func() {
				So(conn.Close(), ShouldBeNil)

				deadline := time.Now().Add(2 * time.Second)
				for listenerTotal(hub, "acc") != 0 && time.Now().Before(deadline) {
					time.Sleep(10 * time.Millisecond)
				}
				So(listenerTotal(hub, "fused"), ShouldEqual, 0)
				So(listenerTotal(hub, "acc"), ShouldEqual, 0)
			})
		})

		Reset(func() {
			conn.Close()
		})
	})

	Convey("streams need a rate the sensor supports", t, func() {
		hub, handler := newTestServer()
		defer hub.Close()

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/ws/stream/fused?rate=5000", nil))
		So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
	})
}

// recordingSleeper notes every interval it is asked to wait for.
type recordingSleeper struct {
	lock      sync.Mutex
	intervals []time.Duration
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.lock.Lock()
	r.intervals = append(r.intervals, d)
	r.lock.Unlock()
	return sensorhub.TimerSleeper.Sleep(ctx, time.Millisecond)
}

func (r *recordingSleeper) Intervals() []time.Duration {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]time.Duration(nil), r.intervals...)
}

func TestStreamPacing(t *testing.T) {
	Convey("Given a stream paced by its own sleeper", t, func() {
		hub, _ := newTestServer()
		defer hub.Close()

		sleeper := &recordingSleeper{}
		api := &sensorAPI{hub: hub, sleeper: sleeper}
		r := chi.NewRouter()
		r.Get("/ws/stream/{name}", api.Stream)

		server := httptest.NewServer(r)
		defer server.Close()

		url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/stream/acc?rate=60"
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		So(err, ShouldBeNil)
		defer conn.Close()

		Convey("samples are polled at the resolved rate", func() {
			for i := 0; i < 3; i++ {
				var sample SamplePayload
				So(conn.ReadJSON(&sample), ShouldBeNil)
				So(sample.Rate, ShouldEqual, 100)
			}

			intervals := sleeper.Intervals()
			So(len(intervals), ShouldBeGreaterThanOrEqualTo, 2)
			for _, d := range intervals {
				So(d, ShouldEqual, 10*time.Millisecond)
			}
		})
	})
}
