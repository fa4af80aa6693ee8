package hardware

import (
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

const (
	CHANNEL_SIM    = "sim"
	CHANNEL_SERIAL = "serial"

	DEFAULT_BAUD = 115200
)

// Channel is an opaque hardware handle: something that can be brought up at a
// bus frequency and then moves raw bytes.
type Channel interface {
	io.ReadWriteCloser
	Configure(freq uint32) error
}

type ChannelConfig struct {
	Type   string `yaml:"type"`
	Device string `yaml:"device"`
	Baud   uint32 `yaml:"baud"`
}

func OpenChannel(cfg ChannelConfig) (ch Channel, err error) {
	switch cfg.Type {
	case "", CHANNEL_SIM:
		ch = NewSimChannel()
	case CHANNEL_SERIAL:
		if len(cfg.Device) == 0 {
			return nil, fmt.Errorf("serial channel needs a device")
		}
		ch = NewSerialChannel(cfg.Device)
	default:
		err = fmt.Errorf("unknown channel type '%s'", cfg.Type)
	}
	return
}

// SerialChannel is a UART. Its frequency is the baud rate and the port is
// (re)opened whenever it changes.
type SerialChannel struct {
	device string
	baud   uint32
	port   *serial.Port
}

func NewSerialChannel(device string) *SerialChannel {
	return &SerialChannel{device: device}
}

func (c *SerialChannel) Configure(freq uint32) error {
	if freq == 0 {
		freq = DEFAULT_BAUD
	}
	if c.port != nil && c.baud == freq {
		return nil
	}
	if err := c.Close(); err != nil {
		return err
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        c.device,
		Baud:        int(freq),
		ReadTimeout: time.Second,
	})
	if err != nil {
		return err
	}
	c.port = port
	c.baud = freq
	return port.Flush()
}

func (c *SerialChannel) Read(p []byte) (int, error) {
	if c.port == nil {
		return 0, ERR_NOT_CONFIGURED
	}
	return io.ReadFull(c.port, p)
}

func (c *SerialChannel) Write(p []byte) (int, error) {
	if c.port == nil {
		return 0, ERR_NOT_CONFIGURED
	}
	return c.port.Write(p)
}

func (c *SerialChannel) Close() error {
	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	return err
}
