// Package broker bridges the controller to an MQTT broker: journal events
// and room snapshots go out, commands come in.
package broker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"room_controller/internal/config"
	"room_controller/internal/logger"
)

const (
	disconnectQuiesceMs = 250
	maxConnectElapsed   = 30 * time.Second
)

// Client is the part of mqtt.Client the bridge uses.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
}

// Subscription is (re)established every time the client connects, so it
// survives broker restarts with a clean session.
type Subscription struct {
	Topic   string
	QoS     byte
	Handler mqtt.MessageHandler
}

// Topics derives the bridge topics from the configured prefix.
type Topics struct {
	Events  string
	State   string
	Command string
	Ack     string
}

func NewTopics(prefix string) Topics {
	p := strings.TrimRight(strings.TrimSpace(prefix), "/")
	if p == "" {
		p = "room"
	}
	return Topics{
		Events:  p + "/events",
		State:   p + "/state",
		Command: p + "/command",
		Ack:     p + "/command/ack",
	}
}

// Connect dials the broker, retrying with exponential backoff, and keeps
// the connection until ctx is canceled.
func Connect(ctx context.Context, cfg config.MQTTConfig, log *logger.Logger, subs ...Subscription) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warnw("mqtt_connection_lost", "broker", cfg.Broker, "err", err)
	})
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		log.Infow("mqtt_connected", "broker", cfg.Broker, "client_id", cfg.ClientID)
		for _, s := range subs {
			tok := c.Subscribe(s.Topic, s.QoS, s.Handler)
			if !tok.WaitTimeout(cfg.ConnectTimeout) {
				log.Warnw("mqtt_subscribe_timeout", "topic", s.Topic)
				continue
			}
			if err := tok.Error(); err != nil {
				log.Errorw("mqtt_subscribe_failed", "topic", s.Topic, "err", err)
				continue
			}
			log.Infow("mqtt_subscribed", "topic", s.Topic, "qos", s.QoS)
		}
	})

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = maxConnectElapsed
	retries := cfg.ConnectRetries
	if retries < 1 {
		retries = 1
	}

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		tok := client.Connect()
		if !tok.WaitTimeout(cfg.ConnectTimeout) {
			return fmt.Errorf("connect to %s: timed out after %s", cfg.Broker, cfg.ConnectTimeout)
		}
		if err := tok.Error(); err != nil {
			log.Warnw("mqtt_connect_failed", "broker", cfg.Broker, "err", err)
			return err
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(retries-1)), ctx))
	if err != nil {
		return nil, fmt.Errorf("could not establish MQTT connection after %d attempts: %w", retries, err)
	}

	go func() {
		<-ctx.Done()
		client.Disconnect(disconnectQuiesceMs)
		log.Infow("mqtt_disconnected", "broker", cfg.Broker)
	}()
	return client, nil
}
