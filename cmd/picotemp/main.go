// picotemp runs the temperature telemetry loop on a host against simulated
// sensors, writing frames to a serial port so downstream decoders can be
// exercised without a board.
//
// Usage example: picotemp -config picotemp.yaml -p /dev/ttyUSB0
//
// The debug stream goes to stdout, operational logs to stderr.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/itohio/picotemp/pkg/config"
	"github.com/itohio/picotemp/pkg/link"
	"github.com/itohio/picotemp/pkg/source"
	"github.com/itohio/picotemp/pkg/source/sim"
	"github.com/itohio/picotemp/pkg/telemetry"
)

func main() {
	var (
		portFlag    = flag.String("p", "", "Serial port override (e.g. /dev/ttyUSB0)")
		baudFlag    = flag.Int("baud", 0, "Baud rate override")
		configFlag  = flag.String("config", "picotemp.yaml", "Configuration file path (.yaml or .toml)")
		ledFlag     = flag.String("led", "", "GPIO name of the health LED override (e.g. GPIO17)")
		listFlag    = flag.Bool("list", false, "List serial ports and exit")
		saveFlag    = flag.String("save", "", "Write the effective configuration to this file and exit")
		verboseFlag = flag.Bool("v", false, "Log every cycle")
	)
	flag.Parse()

	log.SetOutput(os.Stderr)
	log.SetLevel(log.InfoLevel)
	if *verboseFlag {
		log.SetLevel(log.DebugLevel)
	}

	if *listFlag {
		listPorts()
		return
	}

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	if *portFlag != "" {
		cfg.Serial.Port = *portFlag
	}
	if *baudFlag != 0 {
		cfg.Serial.BaudRate = *baudFlag
	}
	if *ledFlag != "" {
		cfg.Indicator.Pin = *ledFlag
	}

	if *saveFlag != "" {
		if err := cfg.Save(*saveFlag); err != nil {
			log.WithError(err).Fatal("failed to save configuration")
		}
		return
	}

	opts, err := cfg.Options()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	if cfg.Indicator.Pin != "" {
		ind, err := link.NewGPIOIndicator(cfg.Indicator.Pin)
		if err != nil {
			log.WithError(err).WithField("pin", cfg.Indicator.Pin).Warn("health indicator unavailable")
		} else {
			opts.Indicator = ind
		}
	}

	opts.OnReport = logReport

	port := link.New(cfg.Serial.Port, cfg.Serial.BaudRate)
	if err := port.Connect(); err != nil {
		log.WithError(err).Fatal("unable to open serial output")
	}
	defer port.Close()

	simulator := sim.New(&cfg.Simulation, cfg.Calibration)
	adc := source.ADCWithTimeout(source.Oversample(simulator, cfg.Sampling.Oversample), cfg.Sampling.Timeout)
	tc := source.ThermocoupleWithTimeout(simulator, cfg.Sampling.Timeout)

	loop, err := telemetry.New(opts, adc, tc, port, os.Stdout)
	if err != nil {
		log.WithError(err).Fatal("unable to start telemetry loop")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"port":     cfg.Serial.Port,
		"baud":     cfg.Serial.BaudRate,
		"interval": opts.Interval,
		"field":    opts.Field,
		"layout":   opts.Layout,
	}).Info("telemetry started")

	st, err := loop.Run(ctx, telemetry.State{})
	log.WithFields(log.Fields{
		"frames":  st.Counter,
		"dropped": loop.Console().Dropped(),
	}).WithError(err).Info("telemetry stopped")
}

func logReport(r telemetry.Report) {
	entry := log.WithField("counter", r.Counter)
	if r.Err != nil {
		entry.WithError(r.Err).Warn("frame skipped")
		return
	}
	entry.WithField("frame", fmt.Sprintf("% x", r.Frame[:])).Debug("frame sent")
}

func listPorts() {
	ports, err := link.Ports()
	if err != nil {
		log.WithError(err).Fatal("unable to list serial ports")
	}
	for _, p := range ports {
		fmt.Println(p.Description)
	}
}
