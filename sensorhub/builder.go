package sensorhub

import (
	"errors"

	sherrors "github.com/CodedInternet/sensorhub/sensorhub/errors"
	log "github.com/sirupsen/logrus"
)

var errNoSampler = errors.New("hardware does not produce samples")

// Builder assembles a Sensor. Build refuses to hand out a sensor until a
// hardware implementation has been supplied, so a sensor can never reach Open
// with a hook that silently does nothing.
type Builder struct {
	variant  Variant
	category Category
	idx      uint8
	name     string
	vendor   string
	hw       Hardware
	sources  []*Shared
	log      *log.Entry
}

func NewPhysicalSensor(category Category, idx uint8, name, vendor string) *Builder {
	return &Builder{
		variant:  Physical,
		category: category,
		idx:      idx,
		name:     name,
		vendor:   vendor,
	}
}

func NewVirtualSensor(category Category, idx uint8, name, vendor string) *Builder {
	return &Builder{
		variant:  Virtual,
		category: category,
		idx:      idx,
		name:     name,
		vendor:   vendor,
	}
}

// Hardware sets the driver hooks.
func (b *Builder) Hardware(hw Hardware) *Builder {
	b.hw = hw
	return b
}

// Sources derives the hooks of a virtual sensor from the sensors it is
// synthesized from. Ignored for physical sensors.
func (b *Builder) Sources(sources ...*Shared) *Builder {
	b.sources = append(b.sources, sources...)
	return b
}

func (b *Builder) Logger(entry *log.Entry) *Builder {
	b.log = entry
	return b
}

func (b *Builder) Build() (s *Sensor, err error) {
	if err = SensorName(b.name).validate(); err != nil {
		return nil, err
	}
	if err = VendorName(b.vendor).validate(); err != nil {
		return nil, err
	}
	if err = b.category.validate(); err != nil {
		return nil, err
	}

	entry := b.log
	if entry == nil {
		entry = log.NewEntry(log.StandardLogger())
	}
	entry = entry.WithFields(log.Fields{
		"sensor":  b.name,
		"variant": b.variant.String(),
	})

	hw := b.hw
	if hw == nil && b.variant == Virtual && len(b.sources) > 0 {
		src := NewSourceHardware(b.sources...)
		src.log = entry
		hw = src
	}
	if hw == nil {
		return nil, sherrors.MissingHardwareError{Sensor: b.name}
	}

	profile := b.variant.Profile()
	s = &Sensor{
		idx:       b.idx,
		name:      b.name,
		vendor:    b.vendor,
		category:  b.category,
		variant:   b.variant,
		attrs:     NewAttributeStore(profile.AttributeCapacity, profile.KeyWidth),
		listeners: NewListenerRegistry(profile.ListenerCapacity, profile.MaxRate),
		hw:        hw,
		log:       entry,
	}
	return s, nil
}
