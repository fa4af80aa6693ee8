package main

import (
	"context"
	"errors"
	"strconv"

	"github.com/CodedInternet/sensorhub/sensorhub"
	"github.com/abiosoft/ishell"
)

var errUsage = errors.New("incorrect number of arguments")

func newShell(hub *sensorhub.Hub) *ishell.Shell {
	sensorNames := func([]string) []string {
		return hub.Names()
	}

	// withSensor looks up the sensor named by the first argument and runs fn
	// while holding it.
	withSensor := func(c *ishell.Context, args int, fn func(s *sensorhub.Sensor) error) {
		if len(c.Args) < args {
			c.Err(errUsage)
			return
		}
		sh, err := hub.Sensor(c.Args[0])
		if err != nil {
			c.Err(err)
			return
		}
		if err = sh.Do(context.Background(), fn); err != nil {
			c.Err(err)
		}
	}

	shell := ishell.New()
	shell.Println("Sensor hub development shell")
	shell.ShowPrompt(true)

	shell.AddCmd(&ishell.Cmd{
		Name: "list",
		Help: "list the sensors on the hub",
		Func: func(c *ishell.Context) {
			for _, name := range hub.Names() {
				sh, _ := hub.Sensor(name)
				sh.Do(context.Background(), func(s *sensorhub.Sensor) error {
					c.Printf("%-24s %-8s %-14s %s\n", s.Name(), s.Variant(), s.Category(), s.State())
					return nil
				})
			}
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "attrs",
		Completer: sensorNames,
		Help:      "attrs <sensor>",
		Func: func(c *ishell.Context) {
			withSensor(c, 1, func(s *sensorhub.Sensor) error {
				for _, key := range s.Attributes().Keys() {
					v, _ := s.Attribute(key)
					c.Printf("%-12s %-14s %s\n", key, v.Kind(), v)
				}
				return nil
			})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "set-rates",
		Completer: sensorNames,
		Help:      "set-rates <sensor> <rate>...",
		Func: func(c *ishell.Context) {
			withSensor(c, 2, func(s *sensorhub.Sensor) error {
				rates := make([]uint32, 0, len(c.Args)-1)
				for _, arg := range c.Args[1:] {
					rate, err := strconv.ParseUint(arg, 10, 32)
					if err != nil {
						return err
					}
					rates = append(rates, uint32(rate))
				}
				value, err := sensorhub.NewRates(rates...)
				if err != nil {
					return err
				}
				return s.UpdateAttribute(sensorhub.KeyRates, value)
			})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "open",
		Completer: sensorNames,
		Help:      "open <sensor> <rate>",
		Func: func(c *ishell.Context) {
			withSensor(c, 2, func(s *sensorhub.Sensor) error {
				requested, err := strconv.ParseUint(c.Args[1], 10, 32)
				if err != nil {
					return err
				}
				resolved, err := s.Open(uint32(requested))
				if err != nil {
					return err
				}
				c.Printf("Opened %s at %d Hz (requested %d Hz)\n", s.Name(), resolved, requested)
				return nil
			})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "close",
		Completer: sensorNames,
		Help:      "close <sensor> <resolved rate>",
		Func: func(c *ishell.Context) {
			withSensor(c, 2, func(s *sensorhub.Sensor) error {
				rate, err := strconv.ParseUint(c.Args[1], 10, 32)
				if err != nil {
					return err
				}
				if err = s.Close(uint32(rate)); err != nil {
					return err
				}
				c.Printf("Closed %s at %d Hz, now %s\n", s.Name(), rate, s.State())
				return nil
			})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "flush",
		Completer: sensorNames,
		Help:      "flush <sensor>",
		Func: func(c *ishell.Context) {
			withSensor(c, 1, func(s *sensorhub.Sensor) error {
				return s.Flush()
			})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "batch",
		Completer: sensorNames,
		Help:      "batch <sensor>",
		Func: func(c *ishell.Context) {
			withSensor(c, 1, func(s *sensorhub.Sensor) error {
				return s.Batch()
			})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "listeners",
		Completer: sensorNames,
		Help:      "listeners <sensor>",
		Func: func(c *ishell.Context) {
			withSensor(c, 1, func(s *sensorhub.Sensor) error {
				for _, rate := range s.Listeners().Rates() {
					c.Printf("%6d Hz  %d\n", rate, s.Listeners().Count(rate))
				}
				c.Printf("total %d\n", s.Listeners().Total())
				return nil
			})
		},
	})

	shell.AddCmd(&ishell.Cmd{
		Name:      "sample",
		Completer: sensorNames,
		Help:      "sample <sensor>",
		Func: func(c *ishell.Context) {
			withSensor(c, 1, func(s *sensorhub.Sensor) error {
				v, err := s.Sample()
				if err != nil {
					return err
				}
				c.Printf("%s: x=%.4f y=%.4f z=%.4f\n", s.Name(), v.X(), v.Y(), v.Z())
				return nil
			})
		},
	})

	return shell
}
