package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sony/gobreaker"

	"room_controller/internal/config"
	"room_controller/internal/logger"
	"room_controller/internal/metrics"
	"room_controller/internal/models"
)

// ErrPublishTimeout is returned when the broker did not confirm a publish in time.
var ErrPublishTimeout = errors.New("mqtt publish timed out")

const (
	defaultPublishTimeout = 2 * time.Second
	breakerInterval       = time.Minute
)

// StateSource yields the current room snapshot.
type StateSource interface {
	GetState(ctx context.Context) (models.RoomState, error)
}

// Publisher sends journal events and room snapshots to the broker behind a
// circuit breaker, so a dead broker costs one fast failure per call.
type Publisher struct {
	client  Client
	topics  Topics
	qos     byte
	timeout time.Duration
	cb      *gobreaker.CircuitBreaker
	log     *logger.Logger
	metrics *metrics.Recorder
}

func NewPublisher(client Client, cfg config.MQTTConfig, log *logger.Logger, m *metrics.Recorder) *Publisher {
	fails := cfg.BreakerFailures
	if fails < 1 {
		fails = 1
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:     "mqtt-publish",
		Interval: breakerInterval,
		Timeout:  cfg.BreakerOpen,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= uint32(fails)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnw("breaker_state_changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &Publisher{
		client:  client,
		topics:  NewTopics(cfg.TopicPrefix),
		qos:     cfg.QoS,
		timeout: timeout,
		cb:      cb,
		log:     log,
		metrics: m,
	}
}

// PublishEvent implements service.EventSink.
func (p *Publisher) PublishEvent(ctx context.Context, e models.RoomEvent) error {
	return p.publishJSON(ctx, p.topics.Events, false, e)
}

// PublishState publishes the snapshot as the retained state of the room.
func (p *Publisher) PublishState(ctx context.Context, st models.RoomState) error {
	return p.publishJSON(ctx, p.topics.State, true, st)
}

// PublishAck answers a command received on the command topic.
func (p *Publisher) PublishAck(ctx context.Context, ack Ack) error {
	return p.publishJSON(ctx, p.topics.Ack, false, ack)
}

// RunState publishes the room snapshot whenever it changes, polling src
// every interval, until ctx is canceled.
func (p *Publisher) RunState(ctx context.Context, src StateSource, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()

	var (
		last models.RoomState
		sent bool
	)
	for {
		st, err := src.GetState(ctx)
		if err != nil {
			p.log.Warnw("mqtt_state_read_failed", "err", err)
		} else if !sent || !sameRoom(st, last) {
			if err := p.PublishState(ctx, st); err == nil {
				last, sent = st, true
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (p *Publisher) publishJSON(ctx context.Context, topic string, retained bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", topic, err)
	}
	_, err = p.cb.Execute(func() (any, error) {
		return nil, p.await(ctx, p.client.Publish(topic, p.qos, retained, payload))
	})
	p.metrics.IncPublish(err == nil)
	if err != nil {
		p.log.Debugw("mqtt_publish_failed", "topic", topic, "err", err)
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func (p *Publisher) await(ctx context.Context, tok mqtt.Token) error {
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return ErrPublishTimeout
	}
}

// sameRoom compares snapshots ignoring the publish time.
func sameRoom(a, b models.RoomState) bool {
	a.UpdatedAt, b.UpdatedAt = time.Time{}, time.Time{}
	return a == b
}
