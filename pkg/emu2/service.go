package emu2

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/NotCoffee418/rainforest_emu2/pkg/framing"
	"github.com/NotCoffee418/rainforest_emu2/pkg/observer"
	"github.com/NotCoffee418/rainforest_emu2/pkg/records"
	"github.com/looplab/fsm"
)

// NewEngine creates an engine for dialer. Zero values in cfg take the defaults.
func NewEngine(dialer Dialer, cfg Config) *Engine {
	defaults := DefaultConfig()
	if cfg.ReconnectBackoff <= 0 {
		cfg.ReconnectBackoff = defaults.ReconnectBackoff
	}
	if cfg.WriteThrottle <= 0 {
		cfg.WriteThrottle = defaults.WriteThrottle
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.MaxFragmentSize < 0 {
		cfg.MaxFragmentSize = 0
	}

	RegisterMetrics()
	logger := cfg.Logger.With().Str("component", "emu2").Str("transport", dialer.String()).Logger()
	e := &Engine{
		dialer:   dialer,
		cfg:      cfg,
		logger:   logger,
		store:    records.NewStore(),
		registry: observer.NewRegistry(logger),
	}
	e.state = newStateMachine(fsm.Callbacks{
		"enter_state": e.onEnterState,
	})
	return e
}

func (e *Engine) State() State {
	return State(e.state.Current())
}

func (e *Engine) Connected() bool {
	return e.state.Is(string(StateConnected))
}

// Open establishes the transport. It is a no-op when already connected.
func (e *Engine) Open(ctx context.Context) error {
	_, err := e.open(ctx)
	return err
}

func (e *Engine) open(ctx context.Context) (io.ReadWriteCloser, error) {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	if e.conn != nil {
		return e.conn, nil
	}

	e.transition(eventDial)
	conn, err := e.dialer.Dial(ctx)
	if err == nil && ctx.Err() != nil {
		conn.Close()
		err = ctx.Err()
	}
	if err != nil {
		e.transition(eventFail)
		return nil, fmt.Errorf("%w: %w", ErrTransportUnavailable, err)
	}

	e.conn = conn
	e.transition(eventEstablish)
	e.logger.Info().Msg("connected to EMU-2")
	return conn, nil
}

// Close releases the transport. Safe to call when already disconnected.
func (e *Engine) Close() error {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	var err error
	if e.conn != nil {
		err = e.conn.Close()
		e.conn = nil
		e.logger.Info().Msg("disconnected from EMU-2")
	}
	e.transition(eventDrop)
	return err
}

// drop closes conn if it is still the active transport.
func (e *Engine) drop(conn io.ReadWriteCloser) {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	if e.conn != conn {
		return
	}
	conn.Close()
	e.conn = nil
	e.transition(eventDrop)
}

func (e *Engine) currentConn() io.ReadWriteCloser {
	e.connMu.Lock()
	defer e.connMu.Unlock()
	return e.conn
}

// Start runs the read loop in the background until Stop is called or ctx ends.
// The loop opens the transport itself and reconnects forever after failures.
func (e *Engine) Start(ctx context.Context) error {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.done != nil {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(ctx, e.done)
	return nil
}

// Stop ends the read loop, closes the transport and waits for the loop to exit.
// The latest-value store is kept.
func (e *Engine) Stop() {
	e.runMu.Lock()
	cancel, done := e.cancel, e.done
	e.cancel, e.done = nil, nil
	e.runMu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.Close()
	if done != nil {
		<-done
	}
}

func (e *Engine) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	e.logger.Info().Msg("read loop started")
	defer e.logger.Info().Msg("read loop stopped")

	for ctx.Err() == nil {
		conn, err := e.open(ctx)
		if err == nil {
			err = e.readLoop(conn)
			e.drop(conn)
		}
		if ctx.Err() != nil {
			return
		}

		e.logger.Warn().Err(err).Dur("backoff", e.cfg.ReconnectBackoff).Msg("EMU-2 unavailable, retrying")
		select {
		case <-ctx.Done():
			return
		case <-time.After(e.cfg.ReconnectBackoff):
		}
		recordReconnect()
	}
}

// readLoop feeds lines into a fresh assembler until the transport fails.
// A fragment left partial by the failure is discarded with the assembler.
func (e *Engine) readLoop(conn io.Reader) error {
	assembler := framing.NewAssembler(e.cfg.MaxFragmentSize)
	reader := bufio.NewReader(conn)
	for {
		line, err := readLine(reader, e.cfg.MaxFragmentSize)
		if errors.Is(err, errLineTooLong) {
			assembler.Reset()
			recordFragment("overflow")
			e.logger.Warn().Int("max_size", e.cfg.MaxFragmentSize).Msg("dropped oversized line")
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("transport closed: %w", err)
			}
			return err
		}
		e.handleLine(assembler, line)
	}
}

var errLineTooLong = fmt.Errorf("line exceeds fragment size")

// readLine returns the next newline-terminated line. Once a line grows past
// maxSize bytes the rest of it is consumed and discarded, and errLineTooLong
// is returned at its newline. Zero maxSize means unlimited.
func readLine(r *bufio.Reader, maxSize int) (string, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			line = append(line, chunk...)
			if maxSize > 0 && len(line) > maxSize {
				tooLong, line = true, nil
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			return "", err
		}
		if tooLong {
			return "", errLineTooLong
		}
		return string(line), nil
	}
}

func (e *Engine) handleLine(assembler *framing.Assembler, line string) {
	line = strings.TrimRight(strings.ToValidUTF8(line, "\uFFFD"), " \t\r\n")
	e.logger.Debug().Str("line", line).Msg("rx")

	overflows := assembler.Overflows()
	fragment, ok := assembler.Feed(line)
	if assembler.Overflows() > overflows {
		recordFragment("overflow")
		e.logger.Warn().Int("max_size", assembler.MaxSize).Msg("dropped oversized partial fragment")
	}
	if ok {
		e.dispatchFragment(fragment)
	}
}

// dispatchFragment decodes every top-level element of fragment, stores each
// record and notifies its observers in arrival order.
func (e *Engine) dispatchFragment(fragment string) {
	elements, err := records.ParseFragment(fragment)
	if err != nil {
		recordFragment("malformed")
		e.logger.Warn().Err(err).Str("fragment", fragment).Msg("discarding malformed fragment")
		return
	}
	recordFragment("ok")

	for _, el := range elements {
		rec, err := records.Decode(el)
		if errors.Is(err, records.ErrUnknownTag) {
			e.logger.Debug().Str("tag", el.XMLName.Local).Msg("ignoring unknown tag")
			continue
		}
		if err != nil {
			e.logger.Warn().Err(err).Str("tag", el.XMLName.Local).Msg("discarding undecodable record")
			continue
		}

		e.store.Put(rec)
		recordRecord(string(rec.Tag()))
		e.registry.Notify(rec)
	}
}

// WaitConnected polls the connection state every PollInterval until connected
// or timeout elapses.
func (e *Engine) WaitConnected(ctx context.Context, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if e.Connected() {
			return true
		}
		if !time.Now().Before(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}

// Latest returns the most recent record received for tag.
func (e *Engine) Latest(tag records.Tag) (records.Record, bool) {
	return e.store.Get(tag)
}

func (e *Engine) Store() *records.Store {
	return e.store
}

func (e *Engine) Register(tag records.Tag, obs observer.Observer) {
	e.registry.Register(tag, obs)
}

func (e *Engine) RegisterAll(obs observer.Observer) {
	e.registry.RegisterAll(obs)
}

func (e *Engine) Remove(tag records.Tag, obs observer.Observer) {
	e.registry.Remove(tag, obs)
}

func (e *Engine) RemoveAll(obs observer.Observer) {
	e.registry.RemoveAll(obs)
}
