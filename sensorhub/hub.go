package sensorhub

import (
	"sort"
	"sync"

	sherrors "github.com/CodedInternet/sensorhub/sensorhub/errors"
)

// Hub is the set of sensors known to the process, keyed by sensor name.
type Hub struct {
	lock    sync.RWMutex
	sensors map[string]*Shared
	closers []func() error
}

func NewHub() *Hub {
	return &Hub{
		sensors: make(map[string]*Shared),
	}
}

func (h *Hub) Add(sh *Shared) error {
	h.lock.Lock()
	defer h.lock.Unlock()

	if _, exists := h.sensors[sh.Name()]; exists {
		return sherrors.DuplicateSensorError{Name: sh.Name()}
	}
	h.sensors[sh.Name()] = sh
	return nil
}

func (h *Hub) Sensor(name string) (*Shared, error) {
	h.lock.RLock()
	defer h.lock.RUnlock()

	sh, ok := h.sensors[name]
	if !ok {
		return nil, sherrors.SensorNameError{Name: name}
	}
	return sh, nil
}

// Names lists the registered sensors sorted by name.
func (h *Hub) Names() []string {
	h.lock.RLock()
	defer h.lock.RUnlock()

	names := make([]string, 0, len(h.sensors))
	for name := range h.sensors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// OnClose registers a cleanup run by Close, typically releasing a hardware
// channel.
func (h *Hub) OnClose(fn func() error) {
	h.lock.Lock()
	h.closers = append(h.closers, fn)
	h.lock.Unlock()
}

// Close runs the registered cleanups in reverse order and returns the first
// error seen.
func (h *Hub) Close() (err error) {
	h.lock.Lock()
	closers := h.closers
	h.closers = nil
	h.lock.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		if cerr := closers[i](); cerr != nil && err == nil {
			err = cerr
		}
	}
	return
}
