package broker

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"room_controller/internal/config"
	"room_controller/internal/logger"
	"room_controller/internal/metrics"
	"room_controller/internal/models"
)

func testMQTTConfig() config.MQTTConfig {
	return config.MQTTConfig{
		TopicPrefix:     "lab/room1",
		QoS:             1,
		ConnectTimeout:  200 * time.Millisecond,
		BreakerFailures: 2,
		BreakerOpen:     time.Minute,
	}
}

func TestNewTopics(t *testing.T) {
	tp := NewTopics("lab/room1/")
	assert.Equal(t, "lab/room1/events", tp.Events)
	assert.Equal(t, "lab/room1/state", tp.State)
	assert.Equal(t, "lab/room1/command", tp.Command)
	assert.Equal(t, "lab/room1/command/ack", tp.Ack)

	assert.Equal(t, "room/state", NewTopics("  ").State)
}

func TestPublisher_EventAndState(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, testMQTTConfig(), logger.Nop(), nil)
	ctx := context.Background()

	ev := models.RoomEvent{EventID: "e1", Type: models.EventAccess, Description: "Door unlocked by Anne"}
	require.NoError(t, p.PublishEvent(ctx, ev))
	require.NoError(t, p.PublishState(ctx, models.RoomState{Door: "UNLOCKED", DoorHolder: "Anne"}))

	sent := client.sent()
	require.Len(t, sent, 2)

	assert.Equal(t, "lab/room1/events", sent[0].topic)
	assert.Equal(t, byte(1), sent[0].qos)
	assert.False(t, sent[0].retained)
	var gotEv models.RoomEvent
	require.NoError(t, json.Unmarshal(sent[0].payload, &gotEv))
	assert.Equal(t, ev.EventID, gotEv.EventID)
	assert.Equal(t, models.EventAccess, gotEv.Type)

	assert.Equal(t, "lab/room1/state", sent[1].topic)
	assert.True(t, sent[1].retained, "state must be retained")
	var gotSt models.RoomState
	require.NoError(t, json.Unmarshal(sent[1].payload, &gotSt))
	assert.Equal(t, "Anne", gotSt.DoorHolder)
}

func TestPublisher_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	reg := prom.NewRegistry()
	rec := metrics.NewRecorder(reg)
	client := &fakeClient{next: func() mqtt.Token { return doneToken(errors.New("not connected")) }}
	p := NewPublisher(client, testMQTTConfig(), logger.Nop(), rec)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := p.PublishEvent(ctx, models.RoomEvent{EventID: "e"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
	}
	err := p.PublishEvent(ctx, models.RoomEvent{EventID: "e"})
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Len(t, client.sent(), 2, "an open breaker must not reach the client")

	expected := `
# HELP room_mqtt_publish_total MQTT publish attempts by result
# TYPE room_mqtt_publish_total counter
room_mqtt_publish_total{result="failed"} 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "room_mqtt_publish_total"))
}

func TestPublisher_TimeoutAndCancel(t *testing.T) {
	client := &fakeClient{next: func() mqtt.Token { return pendingToken() }}
	cfg := testMQTTConfig()
	cfg.ConnectTimeout = 20 * time.Millisecond
	cfg.BreakerFailures = 10
	p := NewPublisher(client, cfg, logger.Nop(), nil)

	err := p.PublishState(context.Background(), models.RoomState{})
	require.ErrorIs(t, err, ErrPublishTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = p.PublishState(ctx, models.RoomState{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestPublisher_RunStatePublishesOnChange(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, testMQTTConfig(), logger.Nop(), nil)
	src := &stateSourceStub{st: models.RoomState{Door: "LOCKED", UpdatedAt: time.Now()}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.RunState(ctx, src, 5*time.Millisecond)
	}()

	require.Eventually(t, func() bool { return len(client.sent()) == 1 }, time.Second, 5*time.Millisecond)

	// a new publish time alone is not a change
	src.set(models.RoomState{Door: "LOCKED", UpdatedAt: time.Now().Add(time.Second)})
	time.Sleep(30 * time.Millisecond)
	assert.Len(t, client.sent(), 1)

	src.set(models.RoomState{Door: "UNLOCKED", DoorHolder: "Victor"})
	require.Eventually(t, func() bool { return len(client.sent()) == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunState did not stop on cancel")
	}

	last := client.sent()[1]
	assert.Equal(t, "lab/room1/state", last.topic)
	assert.Contains(t, string(last.payload), `"door_holder":"Victor"`)
}
