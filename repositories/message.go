package repositories

import (
	"chat-pulse/domain"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type IMessageRepository interface {
	PersistMessage(ctx context.Context, draft domain.MessageDraft) (domain.Message, error)
	GetMessages(ctx context.Context, roomID domain.RoomID, cursor *string) ([]domain.Message, *string, error)
	MarkRoomRead(ctx context.Context, roomID domain.RoomID, reader domain.UserID) ([]domain.Message, error)
}

var _ IMessageRepository = MessageRepository{}

type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) MessageRepository {
	return MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

type DiskMessage struct {
	ID        string
	Room      string
	Author    string
	Recipient string
	Content   string
	At        int64
	ReadBy    []string
}

func messagePrefix(roomID domain.RoomID) string {
	return scopeKey("msg", string(roomID))
}

// messageKey is formatted as "msg:{len}:{room_id}:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two messages
//     arrive at the same nanosecond.
func messageKey(m domain.Message) string {
	return messagePrefix(m.RoomID) + timeKey(m.CreatedAt.UnixNano()) + ":" + m.ID.String()
}

// PersistMessage stores a new message and returns it with its identifier.
func (m MessageRepository) PersistMessage(_ context.Context, draft domain.MessageDraft) (domain.Message, error) {
	createdAt := draft.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	message := domain.Message{
		ID:          uuid.New(),
		RoomID:      draft.RoomID,
		SenderID:    draft.SenderID,
		RecipientID: draft.RecipientID,
		Content:     draft.Content,
		CreatedAt:   createdAt,
	}
	err := m.db.Update(func(txn *badger.Txn) error {
		return set(txn, messageKey(message), fromMessage(message))
	})
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

// GetMessages retrieves messages for a specific room using a reverse prefix scan,
// newest first. It stops collecting messages once limitMessages is reached and
// returns the cursor to resume from.
func (m MessageRepository) GetMessages(_ context.Context, roomID domain.RoomID, cursor *string) ([]domain.Message, *string, error) {
	var messages []domain.Message
	var lastKey string
	err := m.db.View(func(txn *badger.Txn) error {
		prefixStr := messagePrefix(roomID)
		prefix := []byte(prefixStr)
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		var seekKey []byte
		switch cursor {
		case nil:
			// Seek past the newest possible key then walk backwards
			seekKey = append(slices.Clone(prefix), []byte("9999999999999999999")...)
		default:
			seekKey = append(slices.Clone(prefix), []byte(*cursor)...)
		}

		it.Seek(seekKey)
		if cursor != nil && it.ValidForPrefix(prefix) && string(it.Item().Key()[len(prefix):]) == *cursor {
			it.Next()
		}

		for ; it.ValidForPrefix(prefix); it.Next() {
			if m.limitMessages != nil && len(messages) == *m.limitMessages {
				m.log.Debug(fmt.Sprintf("Maximum of %d message reached", *m.limitMessages))
				break
			}
			item := it.Item()
			lastKey = string(item.KeyCopy(nil)[len(prefix):])
			var disk DiskMessage
			if err := item.Value(func(val []byte) error {
				return cbor.Unmarshal(val, &disk)
			}); err != nil {
				return err
			}
			message, err := toMessage(disk)
			if err != nil {
				return err
			}
			messages = append(messages, message)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return messages, &lastKey, nil
}

// MarkRoomRead flags as read by reader every message of the room authored by
// someone else, and returns the messages that were still unread.
func (m MessageRepository) MarkRoomRead(_ context.Context, roomID domain.RoomID, reader domain.UserID) ([]domain.Message, error) {
	var updated []domain.Message
	err := m.db.Update(func(txn *badger.Txn) error {
		pending := make(map[string]DiskMessage)
		err := scan(txn, messagePrefix(roomID), func(key string, disk DiskMessage) error {
			if disk.Author == string(reader) || slices.Contains(disk.ReadBy, string(reader)) {
				return nil
			}
			disk.ReadBy = append(disk.ReadBy, string(reader))
			pending[key] = disk
			return nil
		})
		if err != nil {
			return err
		}
		for key, disk := range pending {
			if err := set(txn, key, disk); err != nil {
				return err
			}
			message, err := toMessage(disk)
			if err != nil {
				return err
			}
			updated = append(updated, message)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(updated, func(a, b domain.Message) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return updated, nil
}

func fromMessage(message domain.Message) DiskMessage {
	return DiskMessage{
		ID:        message.ID.String(),
		Room:      string(message.RoomID),
		Author:    string(message.SenderID),
		Recipient: string(message.RecipientID),
		Content:   message.Content,
		At:        message.CreatedAt.UnixNano(),
		ReadBy: lo.Map(message.ReadBy, func(id domain.UserID, _ int) string {
			return string(id)
		}),
	}
}

func toMessage(disk DiskMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(disk.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:          parsedID,
		RoomID:      domain.RoomID(disk.Room),
		SenderID:    domain.UserID(disk.Author),
		RecipientID: domain.UserID(disk.Recipient),
		Content:     disk.Content,
		CreatedAt:   time.Unix(0, disk.At).UTC(),
		ReadBy: lo.Map(disk.ReadBy, func(id string, _ int) domain.UserID {
			return domain.UserID(id)
		}),
	}, nil
}
