package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/CodedInternet/sensorhub/sensorhub"
	sherrors "github.com/CodedInternet/sensorhub/sensorhub/errors"
	"github.com/go-chi/chi"
	"github.com/go-chi/render"
)

type sensorAPI struct {
	hub     *sensorhub.Hub
	sleeper sensorhub.Sleeper // stream pacing, wall clock when nil
}

//---
// Payloads
//---

type ListenerPayload struct {
	Rate  uint32 `json:"rate"`
	Count uint32 `json:"count"`
}

type SensorPayload struct {
	Name       string                 `json:"name"`
	Variant    string                 `json:"variant"`
	Category   string                 `json:"category"`
	State      string                 `json:"state"`
	Attributes map[string]interface{} `json:"attributes"`
	Listeners  []ListenerPayload      `json:"listeners"`
}

func (p *SensorPayload) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

type OpenPayload struct {
	Sensor    string `json:"sensor"`
	Requested uint32 `json:"requested"`
	Resolved  uint32 `json:"resolved"`
}

type ErrResponse struct {
	Err            error  `json:"-"`
	HTTPStatusCode int    `json:"-"`
	StatusText     string `json:"status"`
	ErrorText      string `json:"error,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

// ErrSensor maps a sensor error to the matching HTTP status.
func ErrSensor(err error) render.Renderer {
	status := http.StatusInternalServerError

	var (
		notFound    sherrors.SensorNameError
		unsupported sherrors.UnsupportedRateError
		noRates     sherrors.NoRatesConfiguredError
		wrongType   sherrors.AttributeTypeError
		outOfRange  sherrors.RateOutOfRangeError
		full        sherrors.CapacityExceededError
		underflow   sherrors.UnderflowError
		notOpened   sherrors.NotOpenedError
		hwErr       sherrors.HardwareError
	)
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &hwErr):
		status = http.StatusBadGateway
	case errors.As(err, &unsupported), errors.As(err, &noRates), errors.As(err, &wrongType),
		errors.As(err, &outOfRange):
		status = http.StatusUnprocessableEntity
	case errors.As(err, &full), errors.As(err, &underflow), errors.As(err, &notOpened):
		status = http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
	}

	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: status,
		StatusText:     http.StatusText(status),
		ErrorText:      err.Error(),
	}
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     http.StatusText(http.StatusBadRequest),
		ErrorText:      err.Error(),
	}
}

//---
// Helpers
//---

func newSensorPayload(s *sensorhub.Sensor) *SensorPayload {
	p := &SensorPayload{
		Name:       s.Name(),
		Variant:    s.Variant().String(),
		Category:   s.Category().String(),
		State:      s.State().String(),
		Attributes: make(map[string]interface{}),
		Listeners:  []ListenerPayload{},
	}
	for _, key := range s.Attributes().Keys() {
		v, _ := s.Attribute(key)
		p.Attributes[key] = attributeJSON(v)
	}
	for _, rate := range s.Listeners().Rates() {
		p.Listeners = append(p.Listeners, ListenerPayload{rate, s.Listeners().Count(rate)})
	}
	return p
}

func attributeJSON(v sensorhub.Value) interface{} {
	switch v := v.(type) {
	case sensorhub.Category:
		return v.String()
	case sensorhub.Uid:
		return uint64(v)
	case sensorhub.HardwareIndex:
		return uint8(v)
	case sensorhub.SensorName:
		return string(v)
	case sensorhub.VendorName:
		return string(v)
	case sensorhub.Rates:
		return []uint32(v)
	case sensorhub.Ranges:
		return []sensorhub.Range(v)
	case sensorhub.Bias:
		return [3]float32(v)
	}
	return v.String()
}

func rateParam(r *http.Request) (uint32, error) {
	raw := r.URL.Query().Get("rate")
	if raw == "" {
		return 0, errors.New("rate is required")
	}
	rate, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(rate), nil
}

//---
// Views
//---

// List describes every sensor on the hub.
func (api *sensorAPI) List(w http.ResponseWriter, r *http.Request) {
	list := []render.Renderer{}
	for _, name := range api.hub.Names() {
		sh, err := api.hub.Sensor(name)
		if err != nil {
			continue
		}
		var p *SensorPayload
		err = sh.Do(r.Context(), func(s *sensorhub.Sensor) error {
			p = newSensorPayload(s)
			return nil
		})
		if err != nil {
			render.Render(w, r, ErrSensor(err))
			return
		}
		list = append(list, p)
	}
	render.RenderList(w, r, list)
}

func (api *sensorAPI) Get(w http.ResponseWriter, r *http.Request) {
	sh, err := api.hub.Sensor(chi.URLParam(r, "name"))
	if err != nil {
		render.Render(w, r, ErrSensor(err))
		return
	}

	var p *SensorPayload
	err = sh.Do(r.Context(), func(s *sensorhub.Sensor) error {
		p = newSensorPayload(s)
		return nil
	})
	if err != nil {
		render.Render(w, r, ErrSensor(err))
		return
	}
	render.Render(w, r, p)
}

// Open attaches one listener at the requested rate. The resolved rate in the
// response is the one that has to be passed to Close.
func (api *sensorAPI) Open(w http.ResponseWriter, r *http.Request) {
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
	render.JSON(w, r, OpenPayload{sh.Name(), requested, resolved})
}

func (api *sensorAPI) Close(w http.ResponseWriter, r *http.Request) {
	sh, err := api.hub.Sensor(chi.URLParam(r, "name"))
	if err != nil {
		render.Render(w, r, ErrSensor(err))
		return
	}
	rate, err := rateParam(r)
	if err != nil {
		render.Render(w, r, ErrInvalidRequest(err))
		return
	}

	if err = sh.Close(r.Context(), rate); err != nil {
		render.Render(w, r, ErrSensor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (api *sensorAPI) Flush(w http.ResponseWriter, r *http.Request) {
	sh, err := api.hub.Sensor(chi.URLParam(r, "name"))
	if err != nil {
		render.Render(w, r, ErrSensor(err))
		return
	}

	err = sh.Do(r.Context(), func(s *sensorhub.Sensor) error {
		return s.Flush()
	})
	if err != nil {
		render.Render(w, r, ErrSensor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
