package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"studymate/domain"
	errs "studymate/errors"
)

// MessageRepository persists chat records in BadgerDB. It implements the
// ChatStore contract consumed by the chat relay.
type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

type diskMessage struct {
	ID       string `json:"id"`
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
	At       int64  `json:"at"`
}

// messageKey formats "msg:{room}:{timestamp_padded}:{uuid}" so that:
//  1. A forward prefix scan yields chronological order (19-digit zero
//     padding keeps the lexicographical order numeric).
//  2. The UUID suffix disambiguates two messages stored in the same
//     nanosecond.
func messageKey(roomID domain.RoomID, at time.Time, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("msg:%s:%019d:%s", roomID, at.UnixNano(), id))
}

func (m MessageRepository) Append(ctx context.Context, roomID domain.RoomID, msg domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	bytes, err := json.Marshal(diskMessage{
		ID:       msg.ID.String(),
		SenderID: msg.SenderID,
		Content:  msg.Content,
		At:       msg.CreatedAt.UnixNano(),
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(roomID, msg.CreatedAt, msg.ID), bytes)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}
	return nil
}

// List returns the full history of a room, ascending by creation time.
// Thanks to the padded timestamp in the key, a forward prefix scan is
// already sorted.
func (m MessageRepository) List(ctx context.Context, roomID domain.RoomID) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var raw []diskMessage
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte(fmt.Sprintf("msg:%s:", roomID))
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				var d diskMessage
				if err := json.Unmarshal(value, &d); err != nil {
					return err
				}
				raw = append(raw, d)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrPersistence, err)
	}

	return lo.Map(raw, func(d diskMessage, _ int) domain.Message {
		id, err := uuid.Parse(d.ID)
		if err != nil {
			m.log.Debug("Stored message with malformed id", "room", roomID, "id", d.ID)
		}
		return domain.Message{
			ID:        id,
			SenderID:  d.SenderID,
			Content:   d.Content,
			CreatedAt: time.Unix(0, d.At).UTC(),
		}
	}), nil
}
