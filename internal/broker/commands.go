package broker

import (
	"context"
	"errors"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"room_controller/internal/logger"
	"room_controller/internal/models"
	"room_controller/internal/service"
)

const commandQueueSize = 16

// Executor applies a command on the control loop.
type Executor interface {
	Execute(ctx context.Context, cmd service.Command) (service.CommandResult, error)
}

// Acker publishes command acknowledgements.
type Acker interface {
	PublishAck(ctx context.Context, ack Ack) error
}

// Ack is published on the ack topic for every received command.
type Ack struct {
	Command  string            `json:"command"`
	Notice   string            `json:"notice,omitempty"`
	Rejected bool              `json:"rejected"`
	Error    string            `json:"error,omitempty"`
	State    *models.RoomState `json:"state,omitempty"`
}

// CommandSubscriber receives command names on the command topic and applies
// them. The paho callback only queues the payload; Run does the work so a
// slow control loop never stalls the client's message router.
type CommandSubscriber struct {
	topic string
	qos   byte
	exec  Executor
	queue chan string
	log   *logger.Logger
}

func NewCommandSubscriber(topics Topics, qos byte, exec Executor, log *logger.Logger) *CommandSubscriber {
	return &CommandSubscriber{
		topic: topics.Command,
		qos:   qos,
		exec:  exec,
		queue: make(chan string, commandQueueSize),
		log:   log,
	}
}

// Subscription is passed to Connect.
func (s *CommandSubscriber) Subscription() Subscription {
	return Subscription{Topic: s.topic, QoS: s.qos, Handler: s.onMessage}
}

func (s *CommandSubscriber) onMessage(_ mqtt.Client, msg mqtt.Message) {
	payload := strings.TrimSpace(string(msg.Payload()))
	select {
	case s.queue <- payload:
	default:
		s.log.Warnw("mqtt_command_dropped", "command", payload, "reason", "queue full")
	}
}

// Run applies queued commands and acknowledges each one until ctx is canceled.
func (s *CommandSubscriber) Run(ctx context.Context, acks Acker) {
	for {
		select {
		case <-ctx.Done():
			return
		case payload := <-s.queue:
			ack := s.apply(ctx, payload)
			if err := acks.PublishAck(ctx, ack); err != nil {
				s.log.Warnw("mqtt_ack_failed", "command", payload, "err", err)
			}
		}
	}
}

func (s *CommandSubscriber) apply(ctx context.Context, payload string) Ack {
	cmd, err := service.ParseCommand(payload)
	if err != nil {
		s.log.Infow("mqtt_command_invalid", "command", payload, "err", err)
		return Ack{Command: payload, Error: err.Error()}
	}
	res, err := s.exec.Execute(ctx, cmd)
	if err != nil {
		if !errors.Is(err, service.ErrControllerBusy) {
			s.log.Errorw("mqtt_command_failed", "command", payload, "err", err)
		}
		return Ack{Command: cmd.String(), Error: err.Error()}
	}
	s.log.Infow("mqtt_command_applied", "command", res.Command, "rejected", res.Rejected)
	st := res.State
	return Ack{Command: res.Command, Notice: res.Notice, Rejected: res.Rejected, State: &st}
}
