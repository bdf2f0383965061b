//go:build linux || darwin

package emu2

import (
	"context"
	"io"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/NotCoffee418/rainforest_emu2/pkg/records"
	"github.com/creack/pty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The engine reads the slave end of a pseudo terminal like it would a USB
// serial port, while the test plays the device on the master end.
func TestEngineOverPseudoTerminal(t *testing.T) {
	master, slave, err := pty.Open()
	require.NoError(t, err)
	defer master.Close()
	slaveName := slave.Name()
	require.NoError(t, slave.Close())

	dialer := DialerFunc(func(context.Context) (io.ReadWriteCloser, error) {
		return os.OpenFile(slaveName, os.O_RDWR|syscall.O_NOCTTY, 0)
	})
	e := startEngine(t, dialer, testConfig())
	demands := recordChan(e, records.TagInstantaneousDemand)
	require.True(t, e.WaitConnected(context.Background(), 5*time.Second))

	_, err = master.Write([]byte(strings.Join(demandLines, "\n") + "\n"))
	require.NoError(t, err)

	rec := waitRecord(t, demands).(records.InstantaneousDemand)
	assert.Equal(t, 1.234, rec.Reading)

	require.NoError(t, e.GetInstantaneousDemand(context.Background(), "", true))

	// The master also sees the line discipline's echo of what it wrote.
	want := "<Command><Name>get_instantaneous_demand</Name><Refresh>Y</Refresh></Command>"
	found := make(chan bool, 1)
	go func() {
		var seen strings.Builder
		buf := make([]byte, 1024)
		for {
			n, err := master.Read(buf)
			seen.Write(buf[:n])
			if strings.Contains(seen.String(), want) {
				found <- true
				return
			}
			if err != nil {
				found <- false
				return
			}
		}
	}()

	select {
	case ok := <-found:
		assert.True(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("command never reached the terminal")
	}
}
