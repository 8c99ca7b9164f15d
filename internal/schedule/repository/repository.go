package repository

import (
	"context"

	"chattrix-backend/internal/schedule/domain"
)

// ScheduleRepository defines the interface for scheduled message persistence
type ScheduleRepository interface {
	Save(ctx context.Context, msg *domain.ScheduledMessage) error

	// List returns the owner's records addressed to target
	List(ctx context.Context, owner string, target domain.Target) ([]*domain.ScheduledMessage, error)

	// Delete removes the record. Missing records are not an error.
	Delete(ctx context.Context, owner string, target domain.Target, id string) error

	// Deliver appends the message and deletes the record in one transaction.
	// It reports false when the record is already gone.
	Deliver(ctx context.Context, owner string, target domain.Target, id string) (bool, error)

	// MarkFailed stamps lastError and failedAt on a record that still exists
	MarkFailed(ctx context.Context, owner string, target domain.Target, id, reason string) error
}
