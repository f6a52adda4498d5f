package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"room_controller/internal/logger"
	"room_controller/internal/metrics"
	"room_controller/internal/models"
	"room_controller/internal/repository"
)

const journalFlushTimeout = 2 * time.Second

// EventSink receives every journal event after it was stored (e.g. the MQTT bridge).
type EventSink interface {
	PublishEvent(ctx context.Context, e models.RoomEvent) error
}

// Journal writes events off the control goroutine. Record never blocks:
// when the queue is full the event is dropped and counted.
type Journal struct {
	repo    repository.EventRepo
	queue   chan models.RoomEvent
	log     *logger.Logger
	metrics *metrics.Recorder

	mu    sync.Mutex
	sinks []EventSink
}

func NewJournal(repo repository.EventRepo, buffer int, log *logger.Logger, m *metrics.Recorder) *Journal {
	if buffer <= 0 {
		buffer = 1
	}
	return &Journal{
		repo:    repo,
		queue:   make(chan models.RoomEvent, buffer),
		log:     log,
		metrics: m,
	}
}

// AddSink registers a sink. It is safe to call while Run is active; the sink
// sees events written after it was added.
func (j *Journal) AddSink(s EventSink) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.sinks = append(j.sinks, s)
}

// Record queues e, stamping its ID and time when missing.
func (j *Journal) Record(e models.RoomEvent) {
	if e.EventID == "" {
		e.EventID = uuid.NewString()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	e.OccurredAt = e.OccurredAt.UTC()
	select {
	case j.queue <- e:
	default:
		j.metrics.IncJournalDropped()
		j.log.Warnw("journal_dropped", "type", e.Type, "event_id", e.EventID)
	}
}

// Run stores queued events until ctx is canceled, then flushes what is left.
func (j *Journal) Run(ctx context.Context) {
	for {
		select {
		case e := <-j.queue:
			j.write(ctx, e)
		case <-ctx.Done():
			j.flush()
			return
		}
	}
}

func (j *Journal) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), journalFlushTimeout)
	defer cancel()
	for {
		select {
		case e := <-j.queue:
			j.write(ctx, e)
		default:
			return
		}
	}
}

func (j *Journal) write(ctx context.Context, e models.RoomEvent) {
	if err := j.repo.Append(ctx, e); err != nil {
		j.log.Errorw("journal_append_failed", "type", e.Type, "err", err)
	}
	j.mu.Lock()
	sinks := j.sinks
	j.mu.Unlock()
	for _, s := range sinks {
		if err := s.PublishEvent(ctx, e); err != nil {
			j.log.Debugw("journal_sink_failed", "type", e.Type, "err", err)
		}
	}
}
