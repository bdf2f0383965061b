package emu2

import "fmt"

var (
	ErrNotConnected         = fmt.Errorf("emu2 not connected")
	ErrTransportUnavailable = fmt.Errorf("emu2 transport unavailable")
	ErrAlreadyStarted       = fmt.Errorf("emu2 read loop already started")
)
