package emu2

import (
	"context"
	"errors"
	"time"

	"github.com/NotCoffee418/rainforest_emu2/pkg/command"
)

// Poll issues the given commands every interval until ctx ends. Ticks that
// find the engine disconnected are skipped.
func (e *Engine) Poll(ctx context.Context, interval time.Duration, builders ...func() *command.Command) {
	if interval <= 0 || len(builders) == 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		for _, build := range builders {
			cmd := build()
			err := e.IssueCommand(ctx, cmd)
			switch {
			case err == nil:
			case errors.Is(err, ErrNotConnected), errors.Is(err, context.Canceled):
				e.logger.Debug().Err(err).Str("command", cmd.Name).Msg("poll skipped")
			default:
				e.logger.Warn().Err(err).Str("command", cmd.Name).Msg("poll failed")
			}
		}
	}
}
