package repository

import (
	"context"
	"errors"

	"github.com/user/validator-service/internal/entity"
)

var (
	// ErrCycleOpen is returned when a cycle cannot be created because a
	// non-terminal cycle already exists.
	ErrCycleOpen = errors.New("an open validation cycle already exists")
	// ErrNoOpenCycle is returned when no non-terminal cycle exists.
	ErrNoOpenCycle = errors.New("no open validation cycle")
)

// CycleRepository manages the durable record of validation cycles.
type CycleRepository interface {
	// Create persists a new open cycle. Returns ErrCycleOpen if another
	// cycle is still open.
	Create(ctx context.Context, cycle *entity.ValidationCycle) error
	// FindOpen returns the current open cycle, or ErrNoOpenCycle.
	FindOpen(ctx context.Context) (*entity.ValidationCycle, error)
	// Close marks the cycle terminal. Returns true only for the call that
	// actually closed it, so the transition happens exactly once.
	Close(ctx context.Context, cycleID string) (bool, error)
}
