package hardware

import (
	"encoding/binary"
	"math/rand"
	"sync"
)

const (
	SIM_WHO_AM_I = 0x47
	SIM_FIRMWARE = "1.2.0"
	SIM_DELTA    = 40
)

// SimChannel stands in for a register mapped device on the other end of a
// channel. A write of a single byte with READ_FLAG set selects the register to
// read from, any other write stores bytes starting at the first byte's
// register.
type SimChannel struct {
	lock   sync.Mutex
	regs   [256]byte
	ptr    byte
	freq   uint32
	writes int
	closed bool
	rnd    *rand.Rand
}

func NewSimChannel() *SimChannel {
	c := &SimChannel{rnd: rand.New(rand.NewSource(1))}
	c.regs[REG_WHO_AM_I] = SIM_WHO_AM_I
	c.SetFirmware(SIM_FIRMWARE)
	return c
}

func (c *SimChannel) SetFirmware(version string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	for i := 0; i < VERSION_LEN; i++ {
		c.regs[int(REG_VERSION)+i] = 0
	}
	copy(c.regs[REG_VERSION:int(REG_VERSION)+VERSION_LEN], version)
}

func (c *SimChannel) SetWhoAmI(id byte) {
	c.lock.Lock()
	c.regs[REG_WHO_AM_I] = id
	c.lock.Unlock()
}

func (c *SimChannel) Configure(freq uint32) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.freq = freq
	c.closed = false
	return nil
}

func (c *SimChannel) Write(p []byte) (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return 0, ERR_NOT_CONFIGURED
	}
	if len(p) == 0 {
		return 0, nil
	}

	c.writes++
	if len(p) == 1 && p[0]&READ_FLAG != 0 {
		c.ptr = p[0] &^ READ_FLAG
		return 1, nil
	}
	copy(c.regs[p[0]:], p[1:])
	return len(p), nil
}

func (c *SimChannel) Read(p []byte) (int, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.closed {
		return 0, ERR_NOT_CONFIGURED
	}
	if c.ptr == REG_DATA && c.regs[REG_PWR_MGMT]&PWR_ON != 0 {
		c.drift()
	}
	n := copy(p, c.regs[c.ptr:])
	return n, nil
}

// drift moves every axis by a small random step, similar to a device at rest.
func (c *SimChannel) drift() {
	for axis := 0; axis < 3; axis++ {
		off := int(REG_DATA) + axis*2
		val := int16(binary.LittleEndian.Uint16(c.regs[off:]))
		val += int16(c.rnd.Intn(SIM_DELTA*2+1) - SIM_DELTA)
		binary.LittleEndian.PutUint16(c.regs[off:], uint16(val))
	}
}

func (c *SimChannel) Close() error {
	c.lock.Lock()
	c.closed = true
	c.lock.Unlock()
	return nil
}

// Register returns the current content of reg.
func (c *SimChannel) Register(reg byte) byte {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.regs[reg]
}

func (c *SimChannel) Frequency() uint32 {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.freq
}

func (c *SimChannel) Writes() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.writes
}
