package interpreter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/NotCoffee418/rainforest_emu2/pkg/records"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 4*time.Second, RetryDelay(1))
	assert.Equal(t, 32*time.Second, RetryDelay(4))
	assert.Equal(t, 60*time.Second, RetryDelay(5))
	assert.Equal(t, 60*time.Second, RetryDelay(40))
}

func TestListenerURL(t *testing.T) {
	u := ListenerURL("localhost:9039", false)
	assert.Equal(t, "ws://localhost:9039/ws", u.String())
	u = ListenerURL("emu.example:443", true)
	assert.Equal(t, "wss://emu.example:443/ws", u.String())
}

func TestEnvelopeRoundTrip(t *testing.T) {
	recs, err := records.DecodeFragment(`<InstantaneousDemand><DeviceMacId>0x01</DeviceMacId>` +
		`<Demand>0x000004d2</Demand><Multiplier>0x1</Multiplier><Divisor>0x3e8</Divisor><DigitsRight>0x3</DigitsRight></InstantaneousDemand>`)
	require.NoError(t, err)

	env, err := NewEnvelope(recs[0], time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)
	back := EnvelopeFromJsonBytes(env.ToJsonBytes())
	require.NotNil(t, back)
	assert.Equal(t, records.TagInstantaneousDemand, back.Tag)
	assert.True(t, env.ReceivedAt.Equal(back.ReceivedAt))

	rec, err := back.Decode()
	require.NoError(t, err)
	assert.Equal(t, 1.234, rec.(records.InstantaneousDemand).Reading)

	assert.Nil(t, EnvelopeFromJsonBytes([]byte(`{"record":{}}`)))
	assert.Nil(t, EnvelopeFromJsonBytes([]byte(`not json`)))
}

func TestStartListenerDeliversEnvelopes(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		c.WriteMessage(websocket.TextMessage, []byte("garbage"))
		c.WriteMessage(websocket.TextMessage, []byte(`{"tag":"TimeCluster","received_at":"2024-01-02T03:04:05Z","record":{"utc_time":5}}`))
		// Hold the connection until the client closes it.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan *Envelope, 1)
	done := make(chan struct{})
	go func() {
		StartListener(ctx, ListenerURL(u.Host, false), func(env *Envelope) { got <- env })
		close(done)
	}()

	select {
	case env := <-got:
		assert.Equal(t, records.TagTimeCluster, env.Tag)
		rec, err := env.Decode()
		require.NoError(t, err)
		assert.Equal(t, uint64(5), rec.(records.TimeCluster).UTCTime)
	case <-time.After(5 * time.Second):
		t.Fatal("no envelope received")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("listener did not stop")
	}
}
