package emu2

import (
	"context"
	"fmt"
	"time"

	"github.com/NotCoffee418/rainforest_emu2/pkg/command"
)

// IssueCommand writes cmd to the device. It fails fast with ErrNotConnected,
// and holds the write lock for WriteThrottle after the write so commands
// never reach the device faster than one per throttle interval.
func (e *Engine) IssueCommand(ctx context.Context, cmd *command.Command) error {
	if !e.Connected() {
		return ErrNotConnected
	}
	payload, err := cmd.Encode()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	conn := e.currentConn()
	if conn == nil {
		return ErrNotConnected
	}
	if _, err := conn.Write(payload); err != nil {
		recordCommand(cmd.Name, false)
		e.logger.Warn().Err(err).Str("command", cmd.Name).Msg("command write failed")
		return fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
	}
	recordCommand(cmd.Name, true)
	e.logger.Debug().Str("command", cmd.Name).Bytes("payload", payload).Msg("tx")

	time.Sleep(e.cfg.WriteThrottle)
	return nil
}
