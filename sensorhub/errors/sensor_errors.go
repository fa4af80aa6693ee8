package errors

import "fmt"

type CapacityExceededError struct {
	Map      string // "attributes" or "listeners"
	Capacity int
	Key      string
}

func (err CapacityExceededError) Error() string {
	return fmt.Sprintf("%s full: capacity %d reached, cannot insert %s", err.Map, err.Capacity, err.Key)
}

type KeyTooLongError struct {
	Key   string
	Width int
}

func (err KeyTooLongError) Error() string {
	return fmt.Sprintf("attribute key %q exceeds %d bytes", err.Key, err.Width)
}

type InvalidValueError struct {
	Kind   string
	Reason string
}

func (err InvalidValueError) Error() string {
	return fmt.Sprintf("invalid %s value: %s", err.Kind, err.Reason)
}

type AttributeTypeError struct {
	Key  string
	Want string
	Got  string
}

func (err AttributeTypeError) Error() string {
	return fmt.Sprintf("attribute %s holds %s, expected %s", err.Key, err.Got, err.Want)
}

type NoRatesConfiguredError struct {
	Sensor string
}

func (err NoRatesConfiguredError) Error() string {
	return fmt.Sprintf("sensor %s has no supported rates configured", err.Sensor)
}

type UnsupportedRateError struct {
	Sensor    string
	Requested uint32
	Max       uint32
}

func (err UnsupportedRateError) Error() string {
	return fmt.Sprintf("sensor %s cannot satisfy rate %d (highest supported %d)", err.Sensor, err.Requested, err.Max)
}

type RateOutOfRangeError struct {
	Rate uint32
	Max  uint32
}

func (err RateOutOfRangeError) Error() string {
	return fmt.Sprintf("rate %d exceeds the maximum of %d", err.Rate, err.Max)
}

type UnderflowError struct {
	Rate uint32
}

func (err UnderflowError) Error() string {
	return fmt.Sprintf("no listener attached at rate %d", err.Rate)
}

type MissingHardwareError struct {
	Sensor string
}

func (err MissingHardwareError) Error() string {
	return fmt.Sprintf("sensor %s has no hardware hooks", err.Sensor)
}

type NotOpenedError struct {
	Sensor string
}

func (err NotOpenedError) Error() string {
	return fmt.Sprintf("sensor %s is not opened", err.Sensor)
}

type HardwareError struct {
	Sensor string
	Op     string
	Err    error
}

func (err HardwareError) Error() string {
	if len(err.Op) == 0 {
		err.Op = "UNKNOWN"
	}
	return fmt.Sprintf("sensor %s: hardware %s failed: %v", err.Sensor, err.Op, err.Err)
}

func (err HardwareError) Unwrap() error {
	return err.Err
}

type SensorNameError struct {
	Name string
}

func (err SensorNameError) Error() string {
	return fmt.Sprintf("no such sensor %s", err.Name)
}

type DuplicateSensorError struct {
	Name string
}

func (err DuplicateSensorError) Error() string {
	return fmt.Sprintf("sensor %s already registered", err.Name)
}

type FirmwareVersionError struct {
	Version    string
	Constraint string
}

func (err FirmwareVersionError) Error() string {
	return fmt.Sprintf("unable to use node: received version %s - require %s", err.Version, err.Constraint)
}
