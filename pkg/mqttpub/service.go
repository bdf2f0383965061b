// Package mqttpub publishes EMU-2 records to an MQTT broker.
package mqttpub

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/NotCoffee418/rainforest_emu2/pkg/config"
	"github.com/NotCoffee418/rainforest_emu2/pkg/records"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

const publishTimeout = 5 * time.Second

// Client is the part of mqtt.Client the publisher uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
}

// Publisher is an observer that publishes each record as JSON to
// <prefix>/<device mac>/<tag>.
type Publisher struct {
	client   Client
	prefix   string
	retained bool
}

func NewPublisher(client Client, prefix string, retained bool) *Publisher {
	return &Publisher{
		client:   client,
		prefix:   strings.Trim(prefix, "/"),
		retained: retained,
	}
}

// Connect dials the broker from cfg. A failed first attempt is only logged;
// the client keeps reconnecting in the background.
func Connect(cfg config.MQTTConfig) mqtt.Client {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Info().Str("broker", cfg.Broker).Msg("connected to MQTT broker")
	})

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Warn().Err(token.Error()).Msg("could not connect to MQTT initially, will retry in background")
	}
	return client
}

func (p *Publisher) Topic(rec records.Record) string {
	mac := rec.DeviceMAC()
	if mac == "" {
		mac = "unknown"
	}
	return fmt.Sprintf("%s/%s/%s", p.prefix, mac, rec.Tag())
}

// CommandTopic receives command names to issue, e.g. "get_current_price".
func (p *Publisher) CommandTopic() string {
	return p.prefix + "/command"
}

func (p *Publisher) Observe(rec records.Record) {
	payload, err := json.Marshal(rec)
	if err != nil {
		log.Error().Err(err).Str("tag", string(rec.Tag())).Msg("failed to marshal record")
		return
	}
	token := p.client.Publish(p.Topic(rec), 0, p.retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		log.Warn().Str("tag", string(rec.Tag())).Msg("MQTT publish timed out")
		return
	}
	if err := token.Error(); err != nil {
		log.Warn().Err(err).Str("tag", string(rec.Tag())).Msg("MQTT publish failed")
	}
}

// SubscribeCommands calls handle with the trimmed payload of each message on
// CommandTopic.
func (p *Publisher) SubscribeCommands(handle func(name string)) error {
	token := p.client.Subscribe(p.CommandTopic(), 0, func(_ mqtt.Client, msg mqtt.Message) {
		handle(strings.TrimSpace(string(msg.Payload())))
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe to %s timed out", p.CommandTopic())
	}
	return token.Error()
}
