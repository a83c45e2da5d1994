package repositories

import (
	"chat-pulse/domain"
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type SessionRepository struct {
	db *badger.DB
}

func NewSessionRepository(db *badger.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

type DiskMedia struct {
	ID        string
	Session   string
	Sender    string
	URL       string
	MediaType string
	At        int64
}

func mediaPrefix(sessionID domain.SessionID) string {
	return scopeKey("media", string(sessionID))
}

func (s SessionRepository) AddSessionMedia(_ context.Context, media domain.SessionMedia) (domain.SessionMedia, error) {
	if media.ID == uuid.Nil {
		media.ID = uuid.New()
	}
	if media.CreatedAt.IsZero() {
		media.CreatedAt = time.Now().UTC()
	}
	key := mediaPrefix(media.SessionID) + timeKey(media.CreatedAt.UnixNano()) + ":" + media.ID.String()
	err := s.db.Update(func(txn *badger.Txn) error {
		return set(txn, key, DiskMedia{
			ID:        media.ID.String(),
			Session:   string(media.SessionID),
			Sender:    string(media.SenderID),
			URL:       media.MediaURL,
			MediaType: media.MediaType,
			At:        media.CreatedAt.UnixNano(),
		})
	})
	if err != nil {
		return domain.SessionMedia{}, err
	}
	return media, nil
}

// ListSessionMedia returns the media shared in a session, oldest first.
func (s SessionRepository) ListSessionMedia(_ context.Context, sessionID domain.SessionID) ([]domain.SessionMedia, error) {
	var media []domain.SessionMedia
	err := s.db.View(func(txn *badger.Txn) error {
		return scan(txn, mediaPrefix(sessionID), func(_ string, disk DiskMedia) error {
			id, err := uuid.Parse(disk.ID)
			if err != nil {
				return err
			}
			media = append(media, domain.SessionMedia{
				ID:        id,
				SessionID: domain.SessionID(disk.Session),
				SenderID:  domain.UserID(disk.Sender),
				MediaURL:  disk.URL,
				MediaType: disk.MediaType,
				CreatedAt: time.Unix(0, disk.At).UTC(),
			})
			return nil
		})
	})
	return media, err
}
