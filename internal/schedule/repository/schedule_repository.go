package repository

import (
	"context"
	"strings"
	"time"

	msgdomain "chattrix-backend/internal/message/domain"
	msgrepo "chattrix-backend/internal/message/repository"
	"chattrix-backend/internal/schedule/domain"
	"chattrix-backend/pkg/docstore"
)

// scheduleRepository implements ScheduleRepository on a document store
type scheduleRepository struct {
	store docstore.Store
}

// NewScheduleRepository creates a new instance of scheduleRepository
func NewScheduleRepository(store docstore.Store) ScheduleRepository {
	return &scheduleRepository{store: store}
}

func (r *scheduleRepository) Save(ctx context.Context, msg *domain.ScheduledMessage) error {
	field, value := msg.Target.Field()
	return r.store.Set(ctx, msg.Key(), map[string]any{
		"text":          msg.Text,
		"scheduledDate": msg.ScheduledAt.UnixMilli(),
		field:           value,
	})
}

func (r *scheduleRepository) List(ctx context.Context, owner string, target domain.Target) ([]*domain.ScheduledMessage, error) {
	field, value := target.Field()
	snaps, err := r.store.Query(ctx, docstore.Query{
		Collection: target.Collection(owner),
		Where:      []docstore.Filter{{Field: field, Value: value}},
		OrderBy:    "scheduledDate",
	})
	if err != nil {
		return nil, err
	}
	out := make([]*domain.ScheduledMessage, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, decodeScheduled(s, owner, target))
	}
	return out, nil
}

func (r *scheduleRepository) Delete(ctx context.Context, owner string, target domain.Target, id string) error {
	return r.store.Delete(ctx, target.Path(owner, id))
}

func (r *scheduleRepository) Deliver(ctx context.Context, owner string, target domain.Target, id string) (bool, error) {
	path := target.Path(owner, id)
	delivered := false
	err := r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		delivered = false
		record, err := tx.Get(path)
		if err != nil {
			return err
		}
		if !record.Exists {
			return nil
		}

		// The scheduled id doubles as the message id, so a message that
		// already exists marks an earlier delivery whose delete was lost.
		msg := &msgdomain.Message{
			ID:             id,
			SenderUsername: owner,
			Type:           msgdomain.TypeText,
			Text:           strings.TrimSpace(record.String("text")),
		}
		switch target.Scope {
		case domain.ScopeDirect:
			msg.RecipientUsername = record.String("friendUsername")
			existing, err := tx.Get(msgdomain.DirectMessagePath(msgdomain.DirectChatID(owner, msg.RecipientUsername), id))
			if err != nil {
				return err
			}
			if !existing.Exists {
				msgrepo.WriteDirectMessage(tx, msg)
			}
		default:
			roomID := record.String("roomId")
			existing, err := tx.Get(msgdomain.RoomMessagePath(roomID, id))
			if err != nil {
				return err
			}
			if !existing.Exists {
				msgrepo.WriteRoomMessage(tx, roomID, msg)
			}
		}
		tx.Delete(path)
		delivered = true
		return nil
	})
	return delivered, err
}

func (r *scheduleRepository) MarkFailed(ctx context.Context, owner string, target domain.Target, id, reason string) error {
	path := target.Path(owner, id)
	return r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		record, err := tx.Get(path)
		if err != nil {
			return err
		}
		if !record.Exists {
			return nil
		}
		tx.Set(path, map[string]any{
			"lastError": reason,
			"failedAt":  docstore.ServerTimestamp,
		}, docstore.Merge())
		return nil
	})
}

func decodeScheduled(s *docstore.Snapshot, owner string, target domain.Target) *domain.ScheduledMessage {
	msg := &domain.ScheduledMessage{
		ID:          s.ID,
		Owner:       owner,
		Text:        s.String("text"),
		ScheduledAt: time.UnixMilli(s.Int64("scheduledDate")).UTC(),
		Target:      target,
		LastError:   s.String("lastError"),
	}
	if s.Has("failedAt") {
		failedAt := s.Time("failedAt")
		msg.FailedAt = &failedAt
	}
	return msg
}
