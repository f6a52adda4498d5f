package repository

import (
	"context"
	"database/sql"
	"time"

	"room_controller/internal/models"
)

type Authorization interface {
	Create(username, hash string, admin bool) (int, error)
	GetByUsername(username string) (*models.User, error)
	GetByID(id int) (*models.User, error)
}

// StateRepo holds the latest published room snapshot.
type StateRepo interface {
	Save(ctx context.Context, s models.RoomState) error
	Load(ctx context.Context) (models.RoomState, error)
}

// EventRepo is the session event journal.
type EventRepo interface {
	Append(ctx context.Context, e models.RoomEvent) error
	List(ctx context.Context, from, to time.Time, typ string) ([]models.RoomEvent, error)
	Prune(ctx context.Context, before time.Time) (int64, error)
	Reset(ctx context.Context) error
}

type Repository struct {
	StateRepo StateRepo
	EventRepo EventRepo
	Auth      Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		StateRepo: NewStateMemory(),
		EventRepo: NewEventSQLite(db),
		Auth:      NewUserRepository(db),
	}
}
