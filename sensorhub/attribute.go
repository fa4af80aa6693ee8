package sensorhub

import (
	"fmt"
	"strings"

	sherrors "github.com/CodedInternet/sensorhub/sensorhub/errors"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	MAX_NAME_LEN   = 32
	MAX_RATES      = 8
	MAX_RANGES     = 4
	ATTR_CAPACITY  = 8
	LISTENER_SLOTS = 8
)

// Well known attribute keys.
const (
	KeySensorName = "sensor_name"
	KeyVendorName = "vendor_name"
	KeyHwIdx      = "hw_idx"
	KeySensorType = "sensor_type"
	KeyRates      = "rates"
	KeyRanges     = "ranges"
	KeyBias       = "bias"
	KeyUid        = "uid"
)

type Kind uint8

const (
	KindUid Kind = iota
	KindHardwareIndex
	KindCategory
	KindSensorName
	KindVendorName
	KindRates
	KindRanges
	KindBias
)

func (k Kind) String() string {
	switch k {
	case KindUid:
		return "uid"
	case KindHardwareIndex:
		return "hardware_index"
	case KindCategory:
		return "category"
	case KindSensorName:
		return "sensor_name"
	case KindVendorName:
		return "vendor_name"
	case KindRates:
		return "rates"
	case KindRanges:
		return "ranges"
	case KindBias:
		return "bias"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Value is an attribute payload. The set of implementations is closed: only
// the types declared in this file satisfy it.
type Value interface {
	Kind() Kind
	String() string
	validate() error
}

type Category uint8

const (
	Accelerometer Category = iota
	Gyroscope
	Magnetometer
	Temperature
	AmbientLight
	Proximity
)

var categoryNames = []string{
	"accelerometer",
	"gyroscope",
	"magnetometer",
	"temperature",
	"ambient_light",
	"proximity",
}

func ParseCategory(name string) (Category, error) {
	for i, n := range categoryNames {
		if strings.EqualFold(n, name) {
			return Category(i), nil
		}
	}
	return 0, sherrors.InvalidValueError{Kind: KindCategory.String(), Reason: fmt.Sprintf("unknown category %q", name)}
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", uint8(c))
}

func (c *Category) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	parsed, err := ParseCategory(name)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

func (c Category) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

func (Category) Kind() Kind { return KindCategory }

func (c Category) validate() error {
	if int(c) >= len(categoryNames) {
		return sherrors.InvalidValueError{Kind: KindCategory.String(), Reason: fmt.Sprintf("unknown category %d", uint8(c))}
	}
	return nil
}

type Uid uint64

func (Uid) Kind() Kind { return KindUid }
func (u Uid) String() string { return fmt.Sprintf("0x%016x", uint64(u)) }
func (Uid) validate() error { return nil }

type HardwareIndex uint8

func (HardwareIndex) Kind() Kind { return KindHardwareIndex }
func (h HardwareIndex) String() string { return fmt.Sprintf("%d", uint8(h)) }
func (HardwareIndex) validate() error { return nil }

type SensorName string

func (SensorName) Kind() Kind { return KindSensorName }
func (n SensorName) String() string { return string(n) }
func (n SensorName) validate() error {
	return checkName(KindSensorName, string(n))
}

type VendorName string

func (VendorName) Kind() Kind { return KindVendorName }
func (n VendorName) String() string { return string(n) }
func (n VendorName) validate() error {
	return checkName(KindVendorName, string(n))
}

func checkName(kind Kind, s string) error {
	if len(s) > MAX_NAME_LEN {
		return sherrors.InvalidValueError{Kind: kind.String(), Reason: fmt.Sprintf("%d bytes exceeds %d", len(s), MAX_NAME_LEN)}
	}
	return nil
}

// Rates lists the output data rates a sensor supports, in the order given.
type Rates []uint32

func NewRates(rates ...uint32) (Rates, error) {
	r := Rates(append([]uint32(nil), rates...))
	return r, r.validate()
}

func (Rates) Kind() Kind { return KindRates }
func (r Rates) String() string { return fmt.Sprint([]uint32(r)) }
func (r Rates) validate() error {
	if len(r) > MAX_RATES {
		return sherrors.InvalidValueError{Kind: KindRates.String(), Reason: fmt.Sprintf("%d entries exceeds %d", len(r), MAX_RATES)}
	}
	return nil
}

type Range struct {
	Min int32 `yaml:"min" json:"min"`
	Max int32 `yaml:"max" json:"max"`
}

type Ranges []Range

func NewRanges(ranges ...Range) (Ranges, error) {
	r := Ranges(append([]Range(nil), ranges...))
	return r, r.validate()
}

func (Ranges) Kind() Kind { return KindRanges }
func (r Ranges) String() string {
	parts := make([]string, len(r))
	for i, rg := range r {
		parts[i] = fmt.Sprintf("(%d,%d)", rg.Min, rg.Max)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
func (r Ranges) validate() error {
	if len(r) > MAX_RANGES {
		return sherrors.InvalidValueError{Kind: KindRanges.String(), Reason: fmt.Sprintf("%d entries exceeds %d", len(r), MAX_RANGES)}
	}
	for _, rg := range r {
		if rg.Min > rg.Max {
			return sherrors.InvalidValueError{Kind: KindRanges.String(), Reason: fmt.Sprintf("min %d above max %d", rg.Min, rg.Max)}
		}
	}
	return nil
}

// Bias is a per-axis offset subtracted from samples.
type Bias mgl32.Vec3

func (Bias) Kind() Kind { return KindBias }
func (b Bias) String() string {
	return fmt.Sprintf("[%g %g %g]", b[0], b[1], b[2])
}
func (Bias) validate() error { return nil }

func (b Bias) Vec3() mgl32.Vec3 {
	return mgl32.Vec3(b)
}

func (b *Bias) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw []float32
	if err := unmarshal(&raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return sherrors.InvalidValueError{Kind: KindBias.String(), Reason: fmt.Sprintf("need 3 axes, got %d", len(raw))}
	}
	*b = Bias{raw[0], raw[1], raw[2]}
	return nil
}
