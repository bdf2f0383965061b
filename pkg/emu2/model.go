package emu2

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/NotCoffee418/rainforest_emu2/pkg/observer"
	"github.com/NotCoffee418/rainforest_emu2/pkg/records"
	"github.com/looplab/fsm"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultReconnectBackoff = 5 * time.Second
	DefaultWriteThrottle    = time.Second
	DefaultPollInterval     = time.Second
	DefaultMaxFragmentSize  = 64 * 1024
)

type Config struct {
	// ReconnectBackoff is the wait between failed or lost connections.
	ReconnectBackoff time.Duration
	// WriteThrottle is held after every command write before the next writer may proceed.
	WriteThrottle time.Duration
	// PollInterval is the granularity of WaitConnected.
	PollInterval time.Duration
	// MaxFragmentSize caps an unterminated fragment in bytes.
	MaxFragmentSize int
	Logger          zerolog.Logger
}

func DefaultConfig() Config {
	return Config{
		ReconnectBackoff: DefaultReconnectBackoff,
		WriteThrottle:    DefaultWriteThrottle,
		PollInterval:     DefaultPollInterval,
		MaxFragmentSize:  DefaultMaxFragmentSize,
		Logger:           log.Logger,
	}
}

// Engine owns one EMU-2 connection: it reads and dispatches notifications and
// writes commands.
type Engine struct {
	dialer Dialer
	cfg    Config
	logger zerolog.Logger

	state    *fsm.FSM
	store    *records.Store
	registry *observer.Registry

	connMu sync.Mutex
	conn   io.ReadWriteCloser

	writeMu sync.Mutex

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}
