package repository

import (
	"context"

	"chattrix-backend/internal/message/domain"
	"chattrix-backend/pkg/docstore"
)

// messageRepository implements MessageRepository on a document store
type messageRepository struct {
	store docstore.Store
}

// NewMessageRepository creates a new instance of messageRepository
func NewMessageRepository(store docstore.Store) MessageRepository {
	return &messageRepository{store: store}
}

func (r *messageRepository) AppendRoom(ctx context.Context, roomID string, msg *domain.Message) error {
	return r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		WriteRoomMessage(tx, roomID, msg)
		return nil
	})
}

func (r *messageRepository) AppendDirect(ctx context.Context, msg *domain.Message) error {
	return r.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
		WriteDirectMessage(tx, msg)
		return nil
	})
}

// WriteRoomMessage buffers a room message in tx. The message id is the document id.
func WriteRoomMessage(tx docstore.Tx, roomID string, msg *domain.Message) {
	tx.Set(domain.RoomMessagePath(roomID, msg.ID), encodeMessage(msg))
}

// WriteDirectMessage buffers a direct message and the conversation summary in tx.
func WriteDirectMessage(tx docstore.Tx, msg *domain.Message) {
	chatID := domain.DirectChatID(msg.SenderUsername, msg.RecipientUsername)
	tx.Set(domain.DirectMessagePath(chatID, msg.ID), encodeMessage(msg))
	tx.Set(domain.DirectChatPath(chatID), map[string]any{
		"users":         []string{msg.SenderUsername, msg.RecipientUsername},
		"lastMessage":   msg.Text,
		"lastTimestamp": docstore.ServerTimestamp,
	}, docstore.Merge())
}

func (r *messageRepository) WatchRoom(ctx context.Context, roomID string) (<-chan []domain.Message, error) {
	return r.watch(ctx, domain.RoomMessages(roomID))
}

func (r *messageRepository) WatchDirect(ctx context.Context, chatID string) (<-chan []domain.Message, error) {
	return r.watch(ctx, domain.DirectMessages(chatID))
}

func (r *messageRepository) watch(ctx context.Context, collection string) (<-chan []domain.Message, error) {
	in, err := r.store.Watch(ctx, docstore.Query{Collection: collection, OrderBy: "timestamp"})
	if err != nil {
		return nil, err
	}
	out := make(chan []domain.Message)
	go func() {
		defer close(out)
		for snaps := range in {
			msgs := make([]domain.Message, 0, len(snaps))
			for _, s := range snaps {
				msgs = append(msgs, decodeMessage(s))
			}
			select {
			case out <- msgs:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func encodeMessage(msg *domain.Message) map[string]any {
	data := map[string]any{
		"senderUsername": msg.SenderUsername,
		"timestamp":      docstore.ServerTimestamp,
	}
	if msg.RecipientUsername != "" {
		data["recipientUsername"] = msg.RecipientUsername
	}
	if msg.Type == domain.TypeImage {
		data["type"] = domain.TypeImage
		data["imageUrl"] = msg.ImageURL
	} else {
		data["text"] = msg.Text
	}
	return data
}

func decodeMessage(s *docstore.Snapshot) domain.Message {
	msgType := s.String("type")
	if msgType == "" {
		msgType = domain.TypeText
	}
	return domain.Message{
		ID:                s.ID,
		SenderUsername:    s.String("senderUsername"),
		RecipientUsername: s.String("recipientUsername"),
		Type:              msgType,
		Text:              s.String("text"),
		ImageURL:          s.String("imageUrl"),
		Timestamp:         s.Time("timestamp"),
	}
}
