package interpreter

import (
	"context"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	maxRetries     = 10
	baseRetryDelay = 2 * time.Second
	maxRetryDelay  = 60 * time.Second
	pingInterval   = 30 * time.Second
	// The API sends at least a keepalive ping every pingInterval.
	readTimeout = 2 * pingInterval
)

// ListenerURL builds the websocket address of an emu2_api host.
func ListenerURL(host string, tlsEnabled bool) url.URL {
	scheme := "ws"
	if tlsEnabled {
		scheme = "wss"
	}
	return url.URL{Scheme: scheme, Host: host, Path: "/ws"}
}

// RetryDelay is the exponential backoff before attempt retryCount+1.
func RetryDelay(retryCount int) time.Duration {
	if retryCount >= 6 {
		return maxRetryDelay
	}
	retryDelay := time.Duration(1<<retryCount) * baseRetryDelay
	if retryDelay > maxRetryDelay {
		retryDelay = maxRetryDelay
	}
	return retryDelay
}

// StartListener keeps a websocket connection to the API and calls funcToCall
// for each envelope until ctx ends or maxRetries consecutive dials fail.
func StartListener(ctx context.Context, u url.URL, funcToCall func(env *Envelope)) {
	retryCount := 0

	for ctx.Err() == nil {
		if retryCount > 0 {
			retryDelay := RetryDelay(retryCount)
			log.Info().Dur("delay", retryDelay).Int("attempt", retryCount+1).Int("max", maxRetries).Msg("retrying connection")
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return
			}
		}

		log.Info().Str("url", u.String()).Msg("connecting")
		dialer := *websocket.DefaultDialer
		dialer.HandshakeTimeout = 10 * time.Second
		c, _, err := dialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			log.Warn().Err(err).Msg("connection failed")
			retryCount++
			if retryCount >= maxRetries {
				log.Error().Int("max", maxRetries).Msg("max retries reached, giving up")
				return
			}
			continue
		}

		log.Info().Msg("connected, accepting records")
		retryCount = 0

		connectionBroken := handleConnection(ctx, c, funcToCall)
		c.Close()
		if !connectionBroken {
			return
		}
		log.Warn().Msg("connection lost, will retry")
		retryCount = 1
	}
}

func handleConnection(ctx context.Context, c *websocket.Conn, funcToCall func(env *Envelope)) bool {
	done := make(chan struct{})

	c.SetReadDeadline(time.Now().Add(readTimeout))
	c.SetPingHandler(func(appData string) error {
		c.SetReadDeadline(time.Now().Add(readTimeout))
		return c.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	go func() {
		defer close(done)
		for {
			messageType, message, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Msg("websocket error")
				} else {
					log.Info().Err(err).Msg("connection closed")
				}
				return
			}

			c.SetReadDeadline(time.Now().Add(readTimeout))

			if messageType != websocket.TextMessage {
				log.Debug().Int("type", messageType).Msg("ignoring non-text message")
				continue
			}
			if env := EnvelopeFromJsonBytes(message); env != nil {
				funcToCall(env)
			} else {
				log.Warn().Bytes("message", message).Msg("failed to parse envelope")
			}
		}
	}()

	select {
	case <-done:
		return true
	case <-ctx.Done():
		log.Info().Msg("shutting down listener")
		err := c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		if err != nil {
			log.Warn().Err(err).Msg("error sending close message")
		}
		select {
		case <-done:
		case <-time.After(time.Second):
		}
		return false
	}
}
