package main

import (
	"net/http"
	"path/filepath"

	"github.com/CodedInternet/sensorhub/sensorhub"
	"github.com/CodedInternet/sensorhub/sensorhub/hardware"
	"github.com/caarlos0/env"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	log "github.com/sirupsen/logrus"
)

type EnvConfig struct {
	CONFIG    string `env:"SENSORHUB_CONFIG" envDefault:"./sensorhub.yaml"`
	DEBUG     bool   `env:"DEBUG" envDefault:"0"`
	LISTEN    string `env:"LISTEN" envDefault:"0.0.0.0:8080"`
	SIMULATED bool   `env:"SIMULATED" envDefault:"1"`
	SHELL     bool   `env:"SHELL" envDefault:"1"`
}

var (
	ENV *EnvConfig
)

func init() {
	ENV = new(EnvConfig)
	if err := env.Parse(ENV); err != nil {
		log.WithError(err).Fatal("unable to parse environment")
	}

	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if ENV.DEBUG {
		log.SetLevel(log.DebugLevel)
	}
}

// simulatedChannels ignores the configured channel type so the whole hub can
// run without any devices attached.
func simulatedChannels(hardware.ChannelConfig) (hardware.Channel, error) {
	return hardware.NewSimChannel(), nil
}

func main() {
	filename, err := filepath.Abs(ENV.CONFIG)
	if err != nil {
		log.WithError(err).Fatal("unable to resolve config path")
	}

	config, err := sensorhub.LoadConfig(filename)
	if err != nil {
		log.WithError(err).WithField("file", filename).Fatal("unable to load config")
	}

	var opener sensorhub.ChannelOpener
	if ENV.SIMULATED {
		log.Info("running with simulated channels")
		opener = simulatedChannels
	}

	hub, err := sensorhub.BuildHub(config, opener, log.StandardLogger())
	if err != nil {
		log.WithError(err).Fatal("unable to initialize sensor hub")
	}
	defer hub.Close()
	log.WithField("sensors", hub.Names()).Info("sensor hub ready")

	//---
	// Create a local shell
	//---
	if ENV.SHELL {
		shell := newShell(hub)
		go shell.Start()
	}

	r := chi.NewRouter()

	// A good base middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer) // make sure this is last

	mountRoutes(r, hub)

	log.WithField("addr", ENV.LISTEN).Info("listening")
	if err := http.ListenAndServe(ENV.LISTEN, r); err != nil {
		log.Fatal(err)
	}
}

// mountRoutes adds the API and websocket routes for hub to r.
func mountRoutes(r chi.Router, hub *sensorhub.Hub) {
	api := &sensorAPI{hub: hub}

	r.Route("/api/sensors", func(r chi.Router) {
		r.Get("/", api.List)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/", api.Get)
			r.Post("/open", api.Open)
			r.Post("/close", api.Close)
			r.Post("/flush", api.Flush)
		})
	})

	r.Route("/ws", func(r chi.Router) {
		r.Get("/stream/{name}", api.Stream)
	})
}
