package emu2

import (
	"context"
	"errors"

	"github.com/looplab/fsm"
)

// State is the connection state of the engine.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
)

const (
	eventDial      = "dial"
	eventEstablish = "establish"
	eventFail      = "fail"
	eventDrop      = "drop"
)

func newStateMachine(callbacks fsm.Callbacks) *fsm.FSM {
	return fsm.NewFSM(
		string(StateDisconnected),
		fsm.Events{
			{Name: eventDial, Src: []string{string(StateDisconnected)}, Dst: string(StateConnecting)},
			{Name: eventEstablish, Src: []string{string(StateConnecting)}, Dst: string(StateConnected)},
			{Name: eventFail, Src: []string{string(StateConnecting)}, Dst: string(StateDisconnected)},
			{Name: eventDrop, Src: []string{string(StateConnecting), string(StateConnected)}, Dst: string(StateDisconnected)},
		},
		callbacks,
	)
}

// transition fires event, treating "not applicable in this state" as a no-op.
func (e *Engine) transition(event string) {
	err := e.state.Event(context.Background(), event)
	if err == nil {
		return
	}
	var noTransition fsm.NoTransitionError
	var invalid fsm.InvalidEventError
	if errors.As(err, &noTransition) || errors.As(err, &invalid) {
		return
	}
	e.logger.Debug().Err(err).Str("event", event).Msg("state transition skipped")
}

func (e *Engine) onEnterState(_ context.Context, ev *fsm.Event) {
	e.logger.Info().Str("from", ev.Src).Str("to", ev.Dst).Msg("connection state changed")
	recordState(State(ev.Dst))
}
