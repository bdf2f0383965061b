// Responsible for storing the records broadcast by emu2_api.
// Depends on the EMU-2 API being online.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/NotCoffee418/rainforest_emu2/pkg/aggregator"
	"github.com/NotCoffee418/rainforest_emu2/pkg/config"
	"github.com/NotCoffee418/rainforest_emu2/pkg/interpreter"
	"github.com/NotCoffee418/rainforest_emu2/pkg/logging"
	"github.com/NotCoffee418/rainforest_emu2/pkg/meterdb"
	"github.com/NotCoffee418/rainforest_emu2/pkg/pathing"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := pathing.EnsureDirs(); err != nil {
		log.Fatal().Err(err).Msg("failed to create directories")
	}
	if err := config.LoadMeterCollectorConfig(); err != nil {
		log.Fatal().Err(err).Msg("failed to load meter collector config")
	}
	cfg := config.ActiveMeterCollectorConfig
	logging.InitLogger("meter_collector", cfg.LogLevel)

	meterdb.InitializeDatabase()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go runAggregator(ctx, cfg.RetentionMonths)

	// Subscribe to websocket with revive
	interpreter.StartListener(ctx, interpreter.ListenerURL(cfg.EmuAPIHost, cfg.TLSEnabled), handleEnvelope)
}

func handleEnvelope(env *interpreter.Envelope) {
	rec, err := env.Decode()
	if err != nil {
		log.Warn().Err(err).Str("tag", string(env.Tag)).Msg("failed to decode record")
		return
	}
	stored, err := meterdb.StoreRecord(rec, env.ReceivedAt)
	if err != nil {
		log.Error().Err(err).Str("tag", string(env.Tag)).Msg("failed to store record")
		return
	}
	if stored {
		log.Debug().Str("tag", string(env.Tag)).Msg("stored record")
	}
}

// runAggregator aggregates shortly after every full hour.
func runAggregator(ctx context.Context, retentionMonths int) {
	for {
		now := time.Now().UTC()
		next := now.Truncate(time.Hour).Add(time.Hour + time.Minute)
		select {
		case <-ctx.Done():
			return
		case <-time.After(next.Sub(now)):
		}
		if err := aggregator.AggregateAndCleanup(time.Now(), retentionMonths); err != nil {
			log.Error().Err(err).Msg("aggregation failed")
		}
	}
}
