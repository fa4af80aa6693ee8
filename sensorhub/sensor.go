package sensorhub

import (
	"math"

	sherrors "github.com/CodedInternet/sensorhub/sensorhub/errors"
	"github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
)

// Hardware is what a concrete driver supplies to back a Sensor. Open is the
// hardware-open hook run after every successful arbitration, Close powers the
// device down once the last listener has gone.
type Hardware interface {
	Open(rate uint32) error
	Close() error
}

// Flusher and Batcher are optional; hooks without them get log-only defaults.
type Flusher interface {
	Flush() error
}

type Batcher interface {
	Batch() error
}

// Releaser is told about every listener that leaves while others remain
// attached, so hook-held resources can follow the listener count.
type Releaser interface {
	Release(rate uint32) error
}

// Reconfigurer follows the highest rate still attached after a listener
// leaves.
type Reconfigurer interface {
	Reconfigure(rate uint32) error
}

// Sampler is implemented by hooks that can produce a reading on demand.
type Sampler interface {
	Sample() (mgl32.Vec3, error)
}

type Variant uint8

const (
	Physical Variant = iota
	Virtual
)

func (v Variant) String() string {
	if v == Virtual {
		return "virtual"
	}
	return "physical"
}

// Profile fixes the bounds of a sensor's attribute store and listener
// registry.
type Profile struct {
	KeyWidth          int
	AttributeCapacity int
	ListenerCapacity  int
	MaxRate           uint32
}

var (
	// Physical ODR fields are 16 bit wide.
	PhysicalProfile = Profile{
		KeyWidth:          32,
		AttributeCapacity: ATTR_CAPACITY,
		ListenerCapacity:  LISTENER_SLOTS,
		MaxRate:           math.MaxUint16,
	}
	VirtualProfile = Profile{
		KeyWidth:          16,
		AttributeCapacity: ATTR_CAPACITY,
		ListenerCapacity:  LISTENER_SLOTS,
		MaxRate:           math.MaxUint32,
	}
)

func (v Variant) Profile() Profile {
	if v == Virtual {
		return VirtualProfile
	}
	return PhysicalProfile
}

type State uint8

const (
	Unopened State = iota
	Opened
)

func (s State) String() string {
	if s == Opened {
		return "opened"
	}
	return "unopened"
}

type Sensor struct {
	idx      uint8
	name     string
	vendor   string
	category Category
	variant  Variant

	attrs     *AttributeStore
	listeners *ListenerRegistry
	hw        Hardware
	log       *log.Entry
}

func (s *Sensor) Index() uint8 { return s.idx }
func (s *Sensor) Name() string { return s.name }
func (s *Sensor) Vendor() string { return s.vendor }
func (s *Sensor) Category() Category { return s.category }
func (s *Sensor) Variant() Variant { return s.variant }
func (s *Sensor) Attributes() *AttributeStore { return s.attrs }
func (s *Sensor) Listeners() *ListenerRegistry { return s.listeners }

func (s *Sensor) State() State {
	if s.listeners.Len() > 0 {
		return Opened
	}
	return Unopened
}

// PublishDefaultAttributes seeds the identity attributes derived from the
// sensor's own fields. Attributes already present are kept as they are, so
// calling it again has no effect.
func (s *Sensor) PublishDefaultAttributes() (err error) {
	s.log.Info("publish default attrs")

	defaults := []struct {
		key   string
		value Value
	}{
		{KeySensorName, SensorName(s.name)},
		{KeyVendorName, VendorName(s.vendor)},
		{KeyHwIdx, HardwareIndex(s.idx)},
		{KeySensorType, s.category},
	}

	for _, d := range defaults {
		if err = s.attrs.InsertIfAbsent(d.key, d.value); err != nil {
			s.log.WithField("key", d.key).WithError(err).Warn("unable to publish default attribute")
			return err
		}
	}
	return nil
}

func (s *Sensor) UpdateAttribute(key string, value Value) error {
	err := s.attrs.Upsert(key, value)
	if err != nil {
		s.log.WithField("key", key).WithError(err).Warn("attribute update rejected")
		return err
	}
	s.log.WithField("key", key).Debugf("attribute set to %s", value)
	return nil
}

func (s *Sensor) Attribute(key string) (Value, bool) {
	return s.attrs.Get(key)
}

// SupportedRates reads the rates attribute.
func (s *Sensor) SupportedRates() (Rates, error) {
	v, ok := s.attrs.Get(KeyRates)
	if !ok {
		return nil, sherrors.NoRatesConfiguredError{Sensor: s.name}
	}

	switch attr := v.(type) {
	case Rates:
		return attr, nil
	case Uid, HardwareIndex, Category, SensorName, VendorName, Ranges, Bias:
		return nil, sherrors.AttributeTypeError{Key: KeyRates, Want: KindRates.String(), Got: attr.Kind().String()}
	}
	return nil, sherrors.AttributeTypeError{Key: KeyRates, Want: KindRates.String(), Got: v.Kind().String()}
}

// Open arbitrates requested against the supported rates, attaches a listener
// at the resolved rate and runs the hardware-open hook. The resolved rate is
// returned and must be handed back to Close.
func (s *Sensor) Open(requested uint32) (resolved uint32, err error) {
	l := s.log.WithField("requested", requested)

	rates, err := s.SupportedRates()
	if err != nil {
		l.WithError(err).Warn("open rejected")
		return 0, err
	}

	resolved, ok := Resolve(rates, requested)
	if !ok {
		err = sherrors.UnsupportedRateError{Sensor: s.name, Requested: requested, Max: maxRate(rates)}
		l.WithError(err).Warn("open rejected")
		return 0, err
	}

	count, err := s.listeners.Attach(resolved)
	if err != nil {
		l.WithError(err).Warn("open rejected")
		return 0, err
	}

	if err = s.hw.Open(resolved); err != nil {
		// roll back so the registry only counts listeners the hardware serves
		if _, derr := s.listeners.Detach(resolved); derr != nil {
			l.WithError(derr).Error("unable to roll back listener")
		}
		err = sherrors.HardwareError{Sensor: s.name, Op: "open", Err: err}
		l.WithError(err).Warn("open failed")
		return 0, err
	}

	l.WithFields(log.Fields{"rate": resolved, "count": count}).Info("sensor open")
	return resolved, nil
}

// Close detaches one listener from resolved. While other listeners remain the
// hooks are told to release it and to follow the highest remaining rate. When
// no listeners remain at any rate the hardware is powered down.
func (s *Sensor) Close(resolved uint32) (err error) {
	l := s.log.WithField("rate", resolved)

	count, err := s.listeners.Detach(resolved)
	if err != nil {
		l.WithError(err).Warn("close rejected")
		return err
	}

	l.WithField("count", count).Info("sensor close")
	if s.listeners.Len() > 0 {
		if r, ok := s.hw.(Releaser); ok {
			if err = s.wrapHardware("release", r.Release(resolved)); err != nil {
				l.WithError(err).Warn("release failed")
				return err
			}
		}
		if rc, ok := s.hw.(Reconfigurer); ok {
			max := s.listeners.Max()
			if err = s.wrapHardware("reconfigure", rc.Reconfigure(max)); err != nil {
				l.WithError(err).Warn("reconfigure failed")
				return err
			}
		}
		return nil
	}

	if err = s.hw.Close(); err != nil {
		err = sherrors.HardwareError{Sensor: s.name, Op: "close", Err: err}
		l.WithError(err).Warn("power down failed")
		return err
	}
	l.Info("sensor powered down")
	return nil
}

func (s *Sensor) Flush() error {
	if f, ok := s.hw.(Flusher); ok {
		return s.wrapHardware("flush", f.Flush())
	}
	s.log.Info("default flush")
	return nil
}

func (s *Sensor) Batch() error {
	if b, ok := s.hw.(Batcher); ok {
		return s.wrapHardware("batch", b.Batch())
	}
	s.log.Info("default batch")
	return nil
}

// Sample reads the hardware and removes the bias attribute, if any.
func (s *Sensor) Sample() (v mgl32.Vec3, err error) {
	if s.State() != Opened {
		return v, sherrors.NotOpenedError{Sensor: s.name}
	}
	sampler, ok := s.hw.(Sampler)
	if !ok {
		return v, sherrors.HardwareError{Sensor: s.name, Op: "sample", Err: errNoSampler}
	}

	v, err = sampler.Sample()
	if err != nil {
		return v, sherrors.HardwareError{Sensor: s.name, Op: "sample", Err: err}
	}

	if attr, ok := s.attrs.Get(KeyBias); ok {
		if b, ok := attr.(Bias); ok {
			v = v.Sub(b.Vec3())
		}
	}
	return v, nil
}

func (s *Sensor) wrapHardware(op string, err error) error {
	if err == nil {
		return nil
	}
	return sherrors.HardwareError{Sensor: s.name, Op: op, Err: err}
}
