package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"room_controller/internal/logger"
	"room_controller/internal/metrics"
	"room_controller/internal/models"
)

type sinkStub struct {
	mu     sync.Mutex
	got    []models.RoomEvent
	failOn string
}

func (s *sinkStub) PublishEvent(_ context.Context, e models.RoomEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.Type == s.failOn {
		return errors.New("broker offline")
	}
	s.got = append(s.got, e)
	return nil
}

func (s *sinkStub) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.got)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestJournal_RecordStampsAndStores(t *testing.T) {
	repo := &fakeEventRepo{}
	sink := &sinkStub{}
	j := NewJournal(repo, 8, logger.Nop(), nil)
	j.AddSink(sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	local := time.Date(2025, 3, 1, 9, 0, 0, 0, time.FixedZone("BRT", -3*3600))
	j.Record(models.RoomEvent{Type: models.EventLight, Description: "Light turned on.", OccurredAt: local})
	j.Record(models.RoomEvent{EventID: "fixed", Type: models.EventAccess})

	waitFor(t, func() bool { return len(repo.snapshot()) == 2 })
	cancel()
	<-done

	got := repo.snapshot()
	if got[0].EventID == "" {
		t.Fatalf("event id must be generated")
	}
	if got[0].OccurredAt.Location() != time.UTC || !got[0].OccurredAt.Equal(local) {
		t.Fatalf("time must be converted to UTC, got %v", got[0].OccurredAt)
	}
	if got[1].EventID != "fixed" || got[1].OccurredAt.IsZero() {
		t.Fatalf("unexpected second event %+v", got[1])
	}
	if sink.count() != 2 {
		t.Fatalf("sink should see both events, got %d", sink.count())
	}
}

func TestJournal_DropsWhenFull(t *testing.T) {
	reg := prom.NewRegistry()
	j := NewJournal(&fakeEventRepo{}, 2, logger.Nop(), metrics.NewRecorder(reg))

	// Not running: the queue fills up and Record must not block.
	for i := 0; i < 5; i++ {
		j.Record(models.RoomEvent{Type: models.EventOccupancy})
	}
	expected := `
# HELP room_journal_dropped_total Events dropped because the journal queue was full
# TYPE room_journal_dropped_total counter
room_journal_dropped_total 3
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "room_journal_dropped_total"); err != nil {
		t.Fatal(err)
	}
}

func TestJournal_FlushesOnShutdown(t *testing.T) {
	repo := &fakeEventRepo{}
	j := NewJournal(repo, 4, logger.Nop(), nil)
	for i := 0; i < 3; i++ {
		j.Record(models.RoomEvent{Type: models.EventSystem})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j.Run(ctx)

	if got := len(repo.snapshot()); got != 3 {
		t.Fatalf("pending events must be flushed on shutdown, got %d", got)
	}
}

func TestJournal_FailuresDoNotStopDelivery(t *testing.T) {
	repo := &fakeEventRepo{appendErr: errors.New("disk full")}
	sink := &sinkStub{failOn: models.EventAccess}
	j := NewJournal(repo, 4, logger.Nop(), nil)
	j.AddSink(sink)

	j.Record(models.RoomEvent{Type: models.EventAccess})
	j.Record(models.RoomEvent{Type: models.EventLight})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j.Run(ctx)

	if sink.count() != 1 {
		t.Fatalf("sink should still receive events after a store failure, got %d", sink.count())
	}
}

func TestJournal_AddSinkWhileRunning(t *testing.T) {
	repo := &fakeEventRepo{}
	j := NewJournal(repo, 8, logger.Nop(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		j.Run(ctx)
		close(done)
	}()

	j.Record(models.RoomEvent{Type: models.EventSystem})
	waitFor(t, func() bool { return len(repo.snapshot()) == 1 })

	sink := &sinkStub{}
	j.AddSink(sink)
	j.Record(models.RoomEvent{Type: models.EventLight})
	waitFor(t, func() bool { return sink.count() == 1 })

	cancel()
	<-done
	if got := len(repo.snapshot()); got != 2 {
		t.Fatalf("expected 2 stored events, got %d", got)
	}
}
