package emu2

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/NotCoffee418/rainforest_emu2/pkg/command"
	"github.com/NotCoffee418/rainforest_emu2/pkg/observer"
	"github.com/NotCoffee418/rainforest_emu2/pkg/records"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDevice is the device end of a net.Pipe transport.
type fakeDevice struct {
	conn net.Conn
	rx   chan received
}

type received struct {
	at   time.Time
	data string
}

func (d *fakeDevice) drain() {
	buf := make([]byte, 4096)
	for {
		n, err := d.conn.Read(buf)
		if n > 0 {
			d.rx <- received{at: time.Now(), data: string(buf[:n])}
		}
		if err != nil {
			close(d.rx)
			return
		}
	}
}

func (d *fakeDevice) send(t *testing.T, lines ...string) {
	t.Helper()
	for _, line := range lines {
		_, err := d.conn.Write([]byte(line + "\r\n"))
		require.NoError(t, err)
	}
}

// commands collects n complete commands written by the engine.
func (d *fakeDevice) commands(t *testing.T, n int) []received {
	t.Helper()
	var out []received
	var pending strings.Builder
	timeout := time.After(10 * time.Second)
	for len(out) < n {
		select {
		case r, ok := <-d.rx:
			require.True(t, ok, "transport closed")
			pending.WriteString(r.data)
			for {
				s := pending.String()
				end := strings.Index(s, "</Command>")
				if end < 0 {
					break
				}
				end += len("</Command>")
				out = append(out, received{at: r.at, data: s[:end]})
				pending.Reset()
				pending.WriteString(s[end:])
			}
		case <-timeout:
			t.Fatalf("got %d of %d commands", len(out), n)
		}
	}
	return out
}

type pipeDialer struct {
	mu      sync.Mutex
	dials   int
	fail    int
	devices chan *fakeDevice
}

func newPipeDialer(fail int) *pipeDialer {
	return &pipeDialer{fail: fail, devices: make(chan *fakeDevice, 8)}
}

func (p *pipeDialer) Dial(ctx context.Context) (io.ReadWriteCloser, error) {
	p.mu.Lock()
	p.dials++
	n := p.dials
	p.mu.Unlock()
	if n <= p.fail {
		return nil, errors.New("device busy")
	}

	host, device := net.Pipe()
	d := &fakeDevice{conn: device, rx: make(chan received, 64)}
	go d.drain()
	p.devices <- d
	return host, nil
}

func (p *pipeDialer) String() string { return "pipe" }

func (p *pipeDialer) Dials() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.dials
}

func (p *pipeDialer) next(t *testing.T) *fakeDevice {
	t.Helper()
	select {
	case d := <-p.devices:
		return d
	case <-time.After(5 * time.Second):
		t.Fatal("engine never dialed")
		return nil
	}
}

func testConfig() Config {
	return Config{
		ReconnectBackoff: 20 * time.Millisecond,
		WriteThrottle:    10 * time.Millisecond,
		PollInterval:     10 * time.Millisecond,
		MaxFragmentSize:  DefaultMaxFragmentSize,
		Logger:           zerolog.Nop(),
	}
}

func startEngine(t *testing.T, dialer Dialer, cfg Config) *Engine {
	t.Helper()
	e := NewEngine(dialer, cfg)
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(e.Stop)
	return e
}

func recordChan(e *Engine, tag records.Tag) chan records.Record {
	ch := make(chan records.Record, 16)
	e.Register(tag, observer.NewFunc(func(rec records.Record) { ch <- rec }))
	return ch
}

func waitRecord(t *testing.T, ch chan records.Record) records.Record {
	t.Helper()
	select {
	case rec := <-ch:
		return rec
	case <-time.After(5 * time.Second):
		t.Fatal("no record dispatched")
		return nil
	}
}

var demandLines = []string{
	"<InstantaneousDemand>",
	"  <DeviceMacId>0xd8d5b90000001234</DeviceMacId>",
	"  <MeterMacId>0x00135003002c8a1b</MeterMacId>",
	"  <TimeStamp>0x2a3f1c8e</TimeStamp>",
	"  <Demand>0x000004d2</Demand>",
	"  <Multiplier>0x00000001</Multiplier>",
	"  <Divisor>0x000003e8</Divisor>",
	"  <DigitsRight>0x03</DigitsRight>",
	"  <DigitsLeft>0x06</DigitsLeft>",
	"  <SuppressLeadingZero>Y</SuppressLeadingZero>",
	"</InstantaneousDemand>",
}

func TestIssueCommandWhileDisconnected(t *testing.T) {
	dialer := newPipeDialer(0)
	e := NewEngine(dialer, testConfig())

	err := e.GetDeviceInfo(context.Background())
	assert.True(t, errors.Is(err, ErrNotConnected))
	assert.Zero(t, dialer.Dials())
	assert.Equal(t, StateDisconnected, e.State())
}

func TestOpenIsNoopWhenConnected(t *testing.T) {
	dialer := newPipeDialer(0)
	e := NewEngine(dialer, testConfig())
	defer e.Close()

	require.NoError(t, e.Open(context.Background()))
	require.NoError(t, e.Open(context.Background()))
	assert.Equal(t, 1, dialer.Dials())
	assert.True(t, e.Connected())

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())
	assert.Equal(t, StateDisconnected, e.State())
}

func TestOpenFailureSurfacesError(t *testing.T) {
	e := NewEngine(newPipeDialer(1), testConfig())
	err := e.Open(context.Background())
	assert.True(t, errors.Is(err, ErrTransportUnavailable))
	assert.Equal(t, StateDisconnected, e.State())
}

func TestMalformedFragmentDoesNotDesync(t *testing.T) {
	dialer := newPipeDialer(0)
	e := startEngine(t, dialer, testConfig())
	demands := recordChan(e, records.TagInstantaneousDemand)
	device := dialer.next(t)

	device.send(t, "<Broken>", "  <oops", "</Broken>")
	device.send(t, "<Weather><Temp>0x10</Temp>", "</Weather>")
	device.send(t, demandLines...)

	rec := waitRecord(t, demands)
	demand, ok := rec.(records.InstantaneousDemand)
	require.True(t, ok)
	assert.Equal(t, 1.234, demand.Reading)
	assert.Equal(t, "0xd8d5b90000001234", demand.DeviceMAC())

	latest, ok := e.Latest(records.TagInstantaneousDemand)
	require.True(t, ok)
	assert.Equal(t, demand, latest)
	_, ok = e.Latest(records.Tag("Weather"))
	assert.False(t, ok)
}

func TestInvalidUTF8IsReplaced(t *testing.T) {
	dialer := newPipeDialer(0)
	e := startEngine(t, dialer, testConfig())
	messages := recordChan(e, records.TagMessageCluster)
	device := dialer.next(t)

	_, err := device.conn.Write([]byte("<MessageCluster><Text>caf\xe9</Text>\n</MessageCluster>\n"))
	require.NoError(t, err)

	msg := waitRecord(t, messages).(records.MessageCluster)
	assert.Equal(t, "caf�", msg.Text)
}

func TestReadLineDropsOversizedLines(t *testing.T) {
	long := strings.Repeat("x", 100)
	r := bufio.NewReaderSize(strings.NewReader(long+"\n<A>\n"+long), 16)

	_, err := readLine(r, 32)
	assert.True(t, errors.Is(err, errLineTooLong))

	line, err := readLine(r, 32)
	require.NoError(t, err)
	assert.Equal(t, "<A>\n", line)

	_, err = readLine(r, 32)
	assert.True(t, errors.Is(err, io.EOF))

	r = bufio.NewReaderSize(strings.NewReader(long+"\n"), 16)
	line, err = readLine(r, 0)
	require.NoError(t, err)
	assert.Equal(t, long+"\n", line)
}

func TestOversizedLineIsDroppedAndStreamRecovers(t *testing.T) {
	dialer := newPipeDialer(0)
	cfg := testConfig()
	cfg.MaxFragmentSize = 1024
	e := startEngine(t, dialer, cfg)
	demands := recordChan(e, records.TagInstantaneousDemand)
	device := dialer.next(t)

	device.send(t, "<InstantaneousDemand>", "  <Demand>"+strings.Repeat("0", 4096))
	device.send(t, "</InstantaneousDemand>")
	device.send(t, demandLines...)

	demand := waitRecord(t, demands).(records.InstantaneousDemand)
	assert.Equal(t, 1.234, demand.Reading)
	select {
	case rec := <-demands:
		t.Fatalf("unexpected extra record %v", rec)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStoreKeepsLatestPerTag(t *testing.T) {
	dialer := newPipeDialer(0)
	e := startEngine(t, dialer, testConfig())
	times := recordChan(e, records.TagTimeCluster)
	device := dialer.next(t)

	device.send(t, "<TimeCluster><UTCTime>0x1</UTCTime>", "</TimeCluster>")
	device.send(t, "<TimeCluster><UTCTime>0x2</UTCTime>", "</TimeCluster>")
	first := waitRecord(t, times).(records.TimeCluster)
	second := waitRecord(t, times).(records.TimeCluster)
	assert.Equal(t, uint64(1), first.UTCTime)
	assert.Equal(t, uint64(2), second.UTCTime)

	latest, ok := records.Latest[records.TimeCluster](e.Store())
	require.True(t, ok)
	assert.Equal(t, uint64(2), latest.UTCTime)
}

func TestReconnectAfterDialFailure(t *testing.T) {
	dialer := newPipeDialer(2)
	e := startEngine(t, dialer, testConfig())

	assert.True(t, e.WaitConnected(context.Background(), 5*time.Second))
	assert.Equal(t, 3, dialer.Dials())
}

func TestReconnectAfterDropDiscardsPartialFragment(t *testing.T) {
	dialer := newPipeDialer(0)
	e := startEngine(t, dialer, testConfig())
	demands := recordChan(e, records.TagInstantaneousDemand)

	first := dialer.next(t)
	first.send(t, demandLines[:5]...)
	require.NoError(t, first.conn.Close())

	second := dialer.next(t)
	require.True(t, e.WaitConnected(context.Background(), 5*time.Second))
	second.send(t, demandLines[5:]...)
	second.send(t, demandLines...)

	rec := waitRecord(t, demands).(records.InstantaneousDemand)
	assert.Equal(t, 1.234, rec.Reading)
	select {
	case extra := <-demands:
		t.Fatalf("partial fragment replayed: %+v", extra)
	case <-time.After(50 * time.Millisecond):
	}
	assert.Equal(t, 2, dialer.Dials())
}

func TestWaitConnectedTimesOut(t *testing.T) {
	dialer := newPipeDialer(1 << 30)
	e := startEngine(t, dialer, testConfig())

	start := time.Now()
	assert.False(t, e.WaitConnected(context.Background(), 100*time.Millisecond))
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
	assert.False(t, e.Connected())
}

func TestStartTwiceAndStopIdempotent(t *testing.T) {
	dialer := newPipeDialer(0)
	e := NewEngine(dialer, testConfig())
	require.NoError(t, e.Start(context.Background()))
	assert.True(t, errors.Is(e.Start(context.Background()), ErrAlreadyStarted))
	dialer.next(t)

	e.Stop()
	e.Stop()
	assert.Equal(t, StateDisconnected, e.State())
	assert.NoError(t, e.Close())
}

func TestLatestSurvivesStop(t *testing.T) {
	dialer := newPipeDialer(0)
	e := NewEngine(dialer, testConfig())
	require.NoError(t, e.Start(context.Background()))
	times := recordChan(e, records.TagTimeCluster)
	dialer.next(t).send(t, "<TimeCluster>", "</TimeCluster>")
	waitRecord(t, times)

	e.Stop()
	_, ok := e.Latest(records.TagTimeCluster)
	assert.True(t, ok)
}

func TestCommandsReachDeviceEncoded(t *testing.T) {
	dialer := newPipeDialer(0)
	e := startEngine(t, dialer, testConfig())
	device := dialer.next(t)
	require.True(t, e.WaitConnected(context.Background(), 5*time.Second))

	ctx := context.Background()
	require.NoError(t, e.SetFastPoll(ctx, "", command.DefaultFastPollFrequency, command.DefaultFastPollDuration))
	require.NoError(t, e.SetCurrentPrice(ctx, "", "24.373"))

	got := device.commands(t, 2)
	assert.Equal(t, "<Command><Name>set_fast_poll</Name><Frequency>0x0004</Frequency><Duration>0x0014</Duration></Command>", got[0].data)
	assert.Equal(t, "<Command><Name>set_current_price</Name><Price>0x00005f35</Price><TrailingDigits>0x05</TrailingDigits></Command>", got[1].data)
}

func TestInvalidArgumentsNeverWrite(t *testing.T) {
	dialer := newPipeDialer(0)
	e := startEngine(t, dialer, testConfig())
	device := dialer.next(t)
	require.True(t, e.WaitConnected(context.Background(), 5*time.Second))

	ctx := context.Background()
	assert.True(t, errors.Is(e.SetSchedule(ctx, "", command.EventNone, 10, true), command.ErrInvalidArgument))
	assert.True(t, errors.Is(e.GetSchedule(ctx, "", "weather"), command.ErrInvalidArgument))
	assert.True(t, errors.Is(e.ConfirmMessage(ctx, "", nil), command.ErrInvalidArgument))

	require.NoError(t, e.GetMeterList(ctx))
	got := device.commands(t, 1)
	assert.Equal(t, "<Command><Name>get_meter_list</Name></Command>", got[0].data)
}

func TestConcurrentWritesAreSerializedAndThrottled(t *testing.T) {
	dialer := newPipeDialer(0)
	cfg := testConfig()
	cfg.WriteThrottle = DefaultWriteThrottle
	e := startEngine(t, dialer, cfg)
	device := dialer.next(t)
	require.True(t, e.WaitConnected(context.Background(), 5*time.Second))

	const writers = 3
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, e.GetCurrentPrice(context.Background(), "0x00135003002c8a1b"))
		}()
	}

	got := device.commands(t, writers)
	wg.Wait()
	for i, r := range got {
		assert.Equal(t, "<Command><Name>get_current_price</Name><MeterMacId>0x00135003002c8a1b</MeterMacId></Command>", r.data)
		if i > 0 {
			assert.GreaterOrEqual(t, r.at.Sub(got[i-1].at), DefaultWriteThrottle-50*time.Millisecond)
		}
	}
}

func TestWriteFailureIsTransportUnavailable(t *testing.T) {
	host, device := net.Pipe()
	device.Close()
	dialer := DialerFunc(func(context.Context) (io.ReadWriteCloser, error) { return host, nil })
	e := NewEngine(dialer, testConfig())
	defer e.Close()
	require.NoError(t, e.Open(context.Background()))

	err := e.Restart(context.Background())
	assert.True(t, errors.Is(err, ErrTransportUnavailable))
}

func TestProbeReturnsIdentity(t *testing.T) {
	dialer := newPipeDialer(0)
	e := startEngine(t, dialer, testConfig())
	device := dialer.next(t)

	go func() {
		for _, cmd := range device.commands(t, 1) {
			if strings.Contains(cmd.data, "get_device_info") {
				device.send(t,
					"<DeviceInfo>",
					"  <DeviceMacId>0xd8d5b90000001234</DeviceMacId>",
					"  <FWVersion>2.0.0 (7400)</FWVersion>",
					"  <HWVersion>2.7.3</HWVersion>",
					"  <Manufacturer>Rainforest Automation, Inc.</Manufacturer>",
					"  <ModelId>Z105-2-EMU2-LEDD_JM</ModelId>",
					"  <DateCode>2016071012220297</DateCode>",
					"</DeviceInfo>")
			}
		}
	}()

	id, err := Probe(context.Background(), e, 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "0xd8d5b90000001234", id.DeviceMac)
	assert.Equal(t, "Rainforest Automation, Inc.", id.Manufacturer)
	assert.Equal(t, "Z105-2-EMU2-LEDD_JM", id.ModelID)
	assert.Equal(t, "2.0.0 (7400)", id.FWVersion)
}

func TestPollIssuesOnInterval(t *testing.T) {
	dialer := newPipeDialer(0)
	e := startEngine(t, dialer, testConfig())
	device := dialer.next(t)
	require.True(t, e.WaitConnected(context.Background(), 5*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Poll(ctx, 20*time.Millisecond, command.NewGetConnectionStatus)
		close(done)
	}()

	got := device.commands(t, 2)
	cancel()
	<-done
	for _, r := range got {
		assert.Equal(t, "<Command><Name>get_connection_status</Name></Command>", r.data)
	}
}
