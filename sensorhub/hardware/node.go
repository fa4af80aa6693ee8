package hardware

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	sherrors "github.com/CodedInternet/sensorhub/sensorhub/errors"
	"github.com/Masterminds/semver"
	"github.com/go-gl/mathgl/mgl32"
	log "github.com/sirupsen/logrus"
)

const (
	REG_DATA         byte = 0x1F
	REG_SIGNAL_RESET byte = 0x4B
	REG_PWR_MGMT     byte = 0x4E
	REG_ODR          byte = 0x50
	REG_VERSION      byte = 0x60
	REG_WHO_AM_I     byte = 0x75

	READ_FLAG  byte = 0x80
	PWR_ON     byte = 0x0F
	FIFO_FLUSH byte = 0x02

	VERSION_LEN   = 16
	NODE_VERSION  = "~1.2.0"
	DEFAULT_SCALE = 1.0 / 2048
)

var (
	ERR_NOT_CONFIGURED = errors.New("channel not configured")
	ERR_SHORT_READ     = errors.New("short read from channel")
)

type NodeConfig struct {
	WhoAmI   uint8   `yaml:"whoami"`
	Firmware string  `yaml:"firmware"` // semver constraint, NODE_VERSION when empty
	Scale    float32 `yaml:"scale"`
	BusFreq  uint32  `yaml:"bus_freq"`
}

// Node drives a register mapped sensor over a Channel. It implements the
// hardware hooks a Sensor needs.
type Node struct {
	ch         Channel
	cfg        NodeConfig
	lock       sync.Mutex
	identified bool
	version    string
	rate       uint32
	powered    bool
	log        *log.Entry
}

func NewNode(ch Channel, cfg NodeConfig) *Node {
	if cfg.Scale == 0 {
		cfg.Scale = DEFAULT_SCALE
	}
	if len(cfg.Firmware) == 0 {
		cfg.Firmware = NODE_VERSION
	}
	return &Node{
		ch:  ch,
		cfg: cfg,
		log: log.WithField("node", fmt.Sprintf("0x%02x", cfg.WhoAmI)),
	}
}

// Open brings the device up on first use and runs it at rate. When already
// running faster for another listener, the faster rate is kept.
func (n *Node) Open(rate uint32) (err error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	if !n.identified {
		if err = n.identify(); err != nil {
			return
		}
	}

	if n.powered && rate <= n.rate {
		return nil
	}

	if err = n.writeODR(rate); err != nil {
		return
	}
	if !n.powered {
		if err = n.writeReg(REG_PWR_MGMT, PWR_ON); err != nil {
			return
		}
		n.powered = true
	}
	n.rate = rate
	n.log.WithField("rate", rate).Debug("odr programmed")
	return nil
}

// Reconfigure moves a running device to rate, the highest rate still wanted
// after a listener left.
func (n *Node) Reconfigure(rate uint32) (err error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	if !n.powered || rate == 0 || rate == n.rate {
		return nil
	}
	if err = n.writeODR(rate); err != nil {
		return
	}
	n.log.WithFields(log.Fields{"from": n.rate, "rate": rate}).Debug("odr reprogrammed")
	n.rate = rate
	return nil
}

// Close powers the device down.
func (n *Node) Close() (err error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	if !n.powered {
		return nil
	}
	if err = n.writeReg(REG_PWR_MGMT, 0); err != nil {
		return
	}
	n.powered = false
	n.rate = 0
	return nil
}

func (n *Node) Flush() error {
	n.lock.Lock()
	defer n.lock.Unlock()

	return n.writeReg(REG_SIGNAL_RESET, FIFO_FLUSH)
}

// Sample reads the three axes, scaled to physical units.
func (n *Node) Sample() (v mgl32.Vec3, err error) {
	n.lock.Lock()
	defer n.lock.Unlock()

	buf := make([]byte, 6)
	if err = n.readReg(REG_DATA, buf); err != nil {
		return
	}
	for axis := 0; axis < 3; axis++ {
		raw := int16(binary.LittleEndian.Uint16(buf[axis*2:]))
		v[axis] = float32(raw) * n.cfg.Scale
	}
	return v, nil
}

func (n *Node) Rate() uint32 {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.rate
}

func (n *Node) Powered() bool {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.powered
}

func (n *Node) Version() string {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.version
}

// identify configures the channel, checks the device identity and refuses
// firmware outside the accepted range.
func (n *Node) identify() (err error) {
	if err = n.ch.Configure(n.cfg.BusFreq); err != nil {
		return
	}

	id := make([]byte, 1)
	if err = n.readReg(REG_WHO_AM_I, id); err != nil {
		return
	}
	if n.cfg.WhoAmI != 0 && id[0] != n.cfg.WhoAmI {
		return fmt.Errorf("unexpected device id 0x%02x, want 0x%02x", id[0], n.cfg.WhoAmI)
	}

	raw := make([]byte, VERSION_LEN)
	if err = n.readReg(REG_VERSION, raw); err != nil {
		return
	}
	versionString := string(bytes.TrimRight(raw, "\x00"))

	if err = checkFirmware(versionString, n.cfg.Firmware); err != nil {
		return
	}

	n.version = versionString
	n.identified = true
	n.log.WithField("firmware", versionString).Info("node identified")
	return nil
}

func checkFirmware(versionString, constraint string) error {
	if versionString == "DEV" {
		// development builds are accepted as is
		return nil
	}

	semVer, err := semver.NewVersion(versionString)
	if err != nil {
		return sherrors.FirmwareVersionError{Version: versionString, Constraint: constraint}
	}

	semVerConstraint, err := semver.NewConstraint(constraint)
	if err != nil {
		return err
	}
	if !semVerConstraint.Check(semVer) {
		return sherrors.FirmwareVersionError{Version: versionString, Constraint: constraint}
	}
	return nil
}

func (n *Node) writeODR(rate uint32) error {
	odr := make([]byte, 2)
	binary.LittleEndian.PutUint16(odr, uint16(rate))
	return n.writeReg(REG_ODR, odr...)
}

func (n *Node) writeReg(reg byte, data ...byte) error {
	_, err := n.ch.Write(append([]byte{reg}, data...))
	return err
}

func (n *Node) readReg(reg byte, buf []byte) error {
	if _, err := n.ch.Write([]byte{reg | READ_FLAG}); err != nil {
		return err
	}
	read, err := n.ch.Read(buf)
	if err != nil {
		return err
	}
	if read < len(buf) {
		return ERR_SHORT_READ
	}
	return nil
}
