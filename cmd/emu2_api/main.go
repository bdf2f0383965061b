// EMU-2 API reads the Rainforest EMU-2 and broadcasts its records.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NotCoffee418/rainforest_emu2/pkg/command"
	"github.com/NotCoffee418/rainforest_emu2/pkg/config"
	"github.com/NotCoffee418/rainforest_emu2/pkg/emu2"
	"github.com/NotCoffee418/rainforest_emu2/pkg/logging"
	"github.com/NotCoffee418/rainforest_emu2/pkg/mqttpub"
	"github.com/NotCoffee418/rainforest_emu2/pkg/observer"
	"github.com/NotCoffee418/rainforest_emu2/pkg/pathing"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := pathing.EnsureDirs(); err != nil {
		log.Fatal().Err(err).Msg("failed to create directories")
	}
	if err := config.LoadEmuAPIConfig(); err != nil {
		log.Fatal().Err(err).Msg("failed to load EMU-2 API config")
	}
	cfg := config.ActiveEmuAPIConfig
	logger := logging.InitLogger("emu2_api", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := emu2.NewEngine(dialerFor(cfg), emu2.Config{
		ReconnectBackoff: cfg.ReconnectBackoff(),
		WriteThrottle:    cfg.WriteThrottle(),
		MaxFragmentSize:  emu2.DefaultMaxFragmentSize,
		Logger:           logger,
	})
	a := newAPI(engine)
	engine.RegisterAll(observer.NewFunc(a.broadcastRecord))

	if cfg.MQTT.Broker != "" {
		client := mqttpub.Connect(cfg.MQTT)
		defer client.Disconnect(250)
		publisher := mqttpub.NewPublisher(client, cfg.MQTT.TopicPrefix, cfg.MQTT.Retained)
		engine.RegisterAll(publisher)
		err := publisher.SubscribeCommands(func(name string) {
			if err := a.issueNamed(ctx, name); err != nil {
				log.Warn().Err(err).Str("command", name).Msg("MQTT command failed")
			}
		})
		if err != nil {
			log.Warn().Err(err).Msg("MQTT command subscription failed")
		}
	}

	if err := engine.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start EMU-2 reader")
	}
	defer engine.Stop()

	go engine.Poll(ctx, cfg.PollInterval(),
		func() *command.Command { return command.NewGetCurrentPrice("") },
		func() *command.Command { return command.NewGetCurrentPeriodUsage("") },
		command.NewGetConnectionStatus,
	)
	go a.hub.pingLoop(ctx.Done())

	listener := fmt.Sprintf("%s:%d", cfg.ListenAddress, cfg.ListenPort)
	server := &http.Server{Addr: listener, Handler: a.routes()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info().Str("listen", listener).Msg("starting Rainforest EMU-2 API")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("HTTP server failed")
	}
}

func dialerFor(cfg *config.EmuAPIConfig) emu2.Dialer {
	if cfg.NetworkAddress != "" {
		return emu2.NewTCPDialer(cfg.NetworkAddress)
	}
	return emu2.NewSerialDialer(cfg.SerialDevice, cfg.Baudrate)
}
