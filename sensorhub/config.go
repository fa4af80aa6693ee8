package sensorhub

import (
	"fmt"
	"io/ioutil"
	"sort"

	"github.com/CodedInternet/sensorhub/sensorhub/hardware"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

const CONFIG_VERSION = 1

type HubConfig struct {
	Version int
	Sensors map[string]SensorConfig
}

type SensorConfig struct {
	Variant  string                 `yaml:"variant"`
	Category Category               `yaml:"category"`
	Index    uint8                  `yaml:"index"`
	Vendor   string                 `yaml:"vendor"`
	Uid      uint64                 `yaml:"uid"`
	Rates    []uint32               `yaml:"rates,flow"`
	Ranges   []Range                `yaml:"ranges"`
	Bias     *Bias                  `yaml:"bias,flow"`
	Channel  hardware.ChannelConfig `yaml:"channel"`
	Node     hardware.NodeConfig    `yaml:"node"`
	Sources  []string               `yaml:"sources,flow"`
}

// ChannelOpener turns a channel definition into a live Channel.
type ChannelOpener func(cfg hardware.ChannelConfig) (hardware.Channel, error)

func LoadConfig(filename string) (cfg HubConfig, err error) {
	raw, err := ioutil.ReadFile(filename)
	if err != nil {
		return
	}
	return ParseConfig(raw)
}

func ParseConfig(raw []byte) (cfg HubConfig, err error) {
	if err = yaml.Unmarshal(raw, &cfg); err != nil {
		return
	}
	if cfg.Version != CONFIG_VERSION {
		err = fmt.Errorf("unable to work with version %d", cfg.Version)
	}
	return
}

// BuildHub creates every configured sensor. Physical sensors come first so
// that virtual sensors can name them as sources.
func BuildHub(cfg HubConfig, open ChannelOpener, logger *log.Logger) (hub *Hub, err error) {
	if open == nil {
		open = hardware.OpenChannel
	}
	if logger == nil {
		logger = log.StandardLogger()
	}

	hub = NewHub()
	defer func() {
		if err != nil {
			if cerr := hub.Close(); cerr != nil {
				logger.WithError(cerr).Error("unable to clean up partially built hub")
			}
			hub = nil
		}
	}()

	physical, virtual, err := splitSensors(cfg.Sensors)
	if err != nil {
		return hub, err
	}
	for _, name := range physical {
		sc := cfg.Sensors[name]
		ch, cerr := open(sc.Channel)
		if cerr != nil {
			return hub, fmt.Errorf("sensor %s: %w", name, cerr)
		}
		hub.OnClose(ch.Close)

		nodeCfg := sc.Node
		if nodeCfg.BusFreq == 0 {
			nodeCfg.BusFreq = sc.Channel.Baud
		}

		b := NewPhysicalSensor(sc.Category, sc.Index, name, sc.Vendor).
			Hardware(hardware.NewNode(ch, nodeCfg)).
			Logger(log.NewEntry(logger))
		if err = addSensor(hub, b, sc); err != nil {
			return hub, fmt.Errorf("sensor %s: %w", name, err)
		}
	}

	for _, name := range virtual {
		sc := cfg.Sensors[name]
		sources := make([]*Shared, 0, len(sc.Sources))
		for _, src := range sc.Sources {
			sh, serr := hub.Sensor(src)
			if serr != nil {
				return hub, fmt.Errorf("sensor %s: %w", name, serr)
			}
			sources = append(sources, sh)
		}

		b := NewVirtualSensor(sc.Category, sc.Index, name, sc.Vendor).
			Sources(sources...).
			Logger(log.NewEntry(logger))
		if err = addSensor(hub, b, sc); err != nil {
			return hub, fmt.Errorf("sensor %s: %w", name, err)
		}
	}
	return hub, nil
}

func splitSensors(sensors map[string]SensorConfig) (physical, virtual []string, err error) {
	for name, sc := range sensors {
		switch sc.Variant {
		case Virtual.String():
			virtual = append(virtual, name)
		case "", Physical.String():
			physical = append(physical, name)
		default:
			return nil, nil, fmt.Errorf("sensor %s: unknown variant '%s'", name, sc.Variant)
		}
	}
	sort.Strings(physical)
	sort.Strings(virtual)
	return
}

func addSensor(hub *Hub, b *Builder, sc SensorConfig) error {
	s, err := b.Build()
	if err != nil {
		return err
	}
	if err = s.PublishDefaultAttributes(); err != nil {
		return err
	}
	if err = applyAttributes(s, sc); err != nil {
		return err
	}
	return hub.Add(NewShared(s))
}

func applyAttributes(s *Sensor, sc SensorConfig) error {
	if sc.Uid != 0 {
		if err := s.UpdateAttribute(KeyUid, Uid(sc.Uid)); err != nil {
			return err
		}
	}
	if len(sc.Rates) > 0 {
		if err := s.UpdateAttribute(KeyRates, Rates(sc.Rates)); err != nil {
			return err
		}
	}
	if len(sc.Ranges) > 0 {
		if err := s.UpdateAttribute(KeyRanges, Ranges(sc.Ranges)); err != nil {
			return err
		}
	}
	if sc.Bias != nil {
		if err := s.UpdateAttribute(KeyBias, *sc.Bias); err != nil {
			return err
		}
	}
	return nil
}
