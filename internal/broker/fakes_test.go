package broker

import (
	"context"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"room_controller/internal/models"
	"room_controller/internal/service"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

// doneToken is already completed with err.
func doneToken(err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	close(t.done)
	return t
}

// pendingToken never completes.
func pendingToken() *fakeToken { return &fakeToken{done: make(chan struct{})} }

func (t *fakeToken) Wait() bool { <-t.done; return true }
func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}
func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu        sync.Mutex
	publishes []published
	next      func() mqtt.Token
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publishes = append(c.publishes, published{topic: topic, qos: qos, retained: retained, payload: payload.([]byte)})
	if c.next != nil {
		return c.next()
	}
	return doneToken(nil)
}

func (c *fakeClient) Subscribe(string, byte, mqtt.MessageHandler) mqtt.Token { return doneToken(nil) }
func (c *fakeClient) Unsubscribe(...string) mqtt.Token                       { return doneToken(nil) }

func (c *fakeClient) sent() []published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]published(nil), c.publishes...)
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type fakeExecutor struct {
	mu  sync.Mutex
	got []service.Command
	res service.CommandResult
	err error
}

func (e *fakeExecutor) Execute(_ context.Context, cmd service.Command) (service.CommandResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.got = append(e.got, cmd)
	res := e.res
	res.Command = cmd.String()
	return res, e.err
}

func (e *fakeExecutor) calls() []service.Command {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]service.Command(nil), e.got...)
}

type ackRecorder struct {
	mu   sync.Mutex
	acks []Ack
}

func (r *ackRecorder) PublishAck(_ context.Context, a Ack) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acks = append(r.acks, a)
	return nil
}

func (r *ackRecorder) all() []Ack {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Ack(nil), r.acks...)
}

type stateSourceStub struct {
	mu sync.Mutex
	st models.RoomState
}

func (s *stateSourceStub) GetState(context.Context) (models.RoomState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st, nil
}

func (s *stateSourceStub) set(st models.RoomState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st = st
}
