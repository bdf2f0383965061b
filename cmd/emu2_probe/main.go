// EMU-2 probe checks that an EMU-2 answers on a port and records its identity.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/NotCoffee418/rainforest_emu2/pkg/config"
	"github.com/NotCoffee418/rainforest_emu2/pkg/emu2"
	"github.com/NotCoffee418/rainforest_emu2/pkg/logging"
	"github.com/NotCoffee418/rainforest_emu2/pkg/pathing"
	"github.com/rs/zerolog/log"
)

func main() {
	port := flag.String("port", "/dev/ttyACM0", "serial device of the EMU-2")
	address := flag.String("address", "", "host:port of a network attached EMU-2, overrides -port")
	baudrate := flag.Uint("baudrate", emu2.DefaultBaudRate, "serial baud rate")
	timeout := flag.Duration("timeout", 10*time.Second, "how long to wait for device info")
	save := flag.Bool("save", true, "write the identity to device.toml")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	logger := logging.InitLogger("emu2_probe", *level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var dialer emu2.Dialer = emu2.NewSerialDialer(*port, *baudrate)
	target := *port
	if *address != "" {
		dialer = emu2.NewTCPDialer(*address)
		target = *address
	}

	cfg := emu2.DefaultConfig()
	cfg.Logger = logger
	engine := emu2.NewEngine(dialer, cfg)
	if err := engine.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start EMU-2 reader")
	}

	id, err := emu2.Probe(ctx, engine, *timeout)
	engine.Stop()
	if err != nil {
		log.Fatal().Err(err).Str("target", target).Msg("no EMU-2 found")
	}

	fmt.Printf("Found %s %s (mac %s, firmware %s, hardware %s)\n",
		id.Manufacturer, id.ModelID, id.DeviceMac, id.FWVersion, id.HWVersion)

	if !*save {
		return
	}
	if err := pathing.EnsureDirs(); err != nil {
		log.Fatal().Err(err).Msg("failed to create directories")
	}
	err = config.SaveDeviceIdentity(config.DeviceIdentity{
		Port:         target,
		DeviceMac:    id.DeviceMac,
		Manufacturer: id.Manufacturer,
		ModelID:      id.ModelID,
		FWVersion:    id.FWVersion,
		HWVersion:    id.HWVersion,
		DateCode:     id.DateCode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to save device identity")
	}
	log.Info().Str("path", pathing.GetDeviceIdentityPath()).Msg("saved device identity")
}
