package emu2

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/jacobsa/go-serial/serial"
)

const DefaultBaudRate = 115200

// Dialer opens the byte stream the EMU-2 is reached over.
type Dialer interface {
	Dial(ctx context.Context) (io.ReadWriteCloser, error)
	String() string
}

// SerialDialer opens a local serial port at 8N1 without flow control.
type SerialDialer struct {
	Port     string
	BaudRate uint
}

func NewSerialDialer(port string, baudrate uint) *SerialDialer {
	if baudrate == 0 {
		baudrate = DefaultBaudRate
	}
	return &SerialDialer{Port: port, BaudRate: baudrate}
}

func (d *SerialDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	options := serial.OpenOptions{
		PortName:          d.Port,
		BaudRate:          d.BaudRate,
		DataBits:          8,
		StopBits:          1,
		ParityMode:        serial.PARITY_NONE,
		RTSCTSFlowControl: false,
		MinimumReadSize:   1,
	}

	port, err := serial.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", d.Port, err)
	}
	return port, nil
}

func (d *SerialDialer) String() string {
	return fmt.Sprintf("serial:%s@%d", d.Port, d.BaudRate)
}

// TCPDialer reaches an EMU-2 exposed over the network, e.g. through ser2net.
type TCPDialer struct {
	Address string
	Timeout time.Duration
}

func NewTCPDialer(address string) *TCPDialer {
	return &TCPDialer{Address: address, Timeout: 10 * time.Second}
}

func (d *TCPDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	dialer := net.Dialer{Timeout: d.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", d.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", d.Address, err)
	}
	return conn, nil
}

func (d *TCPDialer) String() string {
	return "tcp:" + d.Address
}

// DialerFunc adapts a function to a Dialer.
type DialerFunc func(ctx context.Context) (io.ReadWriteCloser, error)

func (f DialerFunc) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	return f(ctx)
}

func (f DialerFunc) String() string {
	return "func"
}
