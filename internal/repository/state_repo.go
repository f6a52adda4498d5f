package repository

import (
	"context"
	"sync"
	"time"

	"room_controller/internal/models"
)

// StateMemory keeps the last snapshot in memory. Room state is never
// persisted: a restart starts from an empty, locked room.
type StateMemory struct {
	mu    sync.RWMutex
	state models.RoomState
	saved bool
}

func NewStateMemory() *StateMemory {
	return &StateMemory{}
}

var _ StateRepo = (*StateMemory)(nil)

// Save replaces the snapshot. A zero UpdatedAt is stamped with the current UTC time.
func (r *StateMemory) Save(_ context.Context, s models.RoomState) error {
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = time.Now().UTC()
	} else {
		s.UpdatedAt = s.UpdatedAt.UTC()
	}
	r.mu.Lock()
	r.state = s
	r.saved = true
	r.mu.Unlock()
	return nil
}

// Load returns the last snapshot, or the zero value before the first Save.
func (r *StateMemory) Load(ctx context.Context) (models.RoomState, error) {
	if err := ctx.Err(); err != nil {
		return models.RoomState{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.saved {
		return models.RoomState{}, nil
	}
	return r.state, nil
}
