package sensorhub

import (
	"context"
	"errors"

	"github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
)

var errNoSources = errors.New("virtual sensor has no sources")

// SourceHardware backs a virtual sensor with the sensors it is derived from.
// Every listener of the virtual sensor holds one listener on each source:
// opening attaches them, releasing detaches the set taken for that rate.
type SourceHardware struct {
	sources []*Shared
	opened  map[uint32][][]openedSource // virtual rate -> one set per listener
	log     *log.Entry
}

type openedSource struct {
	source *Shared
	rate   uint32
}

func NewSourceHardware(sources ...*Shared) *SourceHardware {
	return &SourceHardware{
		sources: sources,
		opened:  make(map[uint32][][]openedSource),
		log:     log.NewEntry(log.StandardLogger()),
	}
}

func (h *SourceHardware) Open(rate uint32) error {
	if len(h.sources) == 0 {
		return errNoSources
	}

	ctx := context.Background()
	set := make([]openedSource, 0, len(h.sources))
	for _, src := range h.sources {
		resolved, err := src.Open(ctx, rate)
		if err != nil {
			h.closeSet(ctx, set)
			return err
		}
		set = append(set, openedSource{src, resolved})
	}
	h.opened[rate] = append(h.opened[rate], set)
	return nil
}

// Release gives back the sources held by one listener at rate.
func (h *SourceHardware) Release(rate uint32) error {
	sets := h.opened[rate]
	if len(sets) == 0 {
		return nil
	}

	set := sets[len(sets)-1]
	if len(sets) == 1 {
		delete(h.opened, rate)
	} else {
		h.opened[rate] = sets[:len(sets)-1]
	}
	return h.closeSet(context.Background(), set)
}

// Close runs once the virtual sensor has no listeners left and releases
// whatever is still held.
func (h *SourceHardware) Close() (err error) {
	ctx := context.Background()
	for rate, sets := range h.opened {
		for _, set := range sets {
			if cerr := h.closeSet(ctx, set); cerr != nil && err == nil {
				err = cerr
			}
		}
		delete(h.opened, rate)
	}
	return
}

// Held is the number of source sets taken for listeners at rate.
func (h *SourceHardware) Held(rate uint32) int {
	return len(h.opened[rate])
}

func (h *SourceHardware) closeSet(ctx context.Context, set []openedSource) (err error) {
	for _, o := range set {
		if cerr := o.source.Close(ctx, o.rate); cerr != nil {
			h.log.WithError(cerr).WithFields(log.Fields{
				"source": o.source.Name(),
				"rate":   o.rate,
			}).Error("unable to release source")
			if err == nil {
				err = cerr
			}
		}
	}
	return
}

// Sample averages the readings of all sources.
func (h *SourceHardware) Sample() (v mgl32.Vec3, err error) {
	if len(h.sources) == 0 {
		return v, errNoSources
	}

	for _, src := range h.sources {
		var reading mgl32.Vec3
		err = src.Do(context.Background(), func(s *Sensor) (err error) {
			reading, err = s.Sample()
			return
		})
		if err != nil {
			return mgl32.Vec3{}, err
		}
		v = v.Add(reading)
	}
	return v.Mul(1 / float32(len(h.sources))), nil
}
