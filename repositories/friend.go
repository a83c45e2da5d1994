package repositories

import (
	"chat-pulse/domain"
	"context"
	"strings"

	"github.com/dgraph-io/badger/v4"
)

type FriendRepository struct {
	db *badger.DB
}

func NewFriendRepository(db *badger.DB) *FriendRepository {
	return &FriendRepository{db: db}
}

type DiskFriendship struct {
	Status string
}

const friendshipAccepted = "accepted"

func friendPrefix(id domain.UserID) string {
	return scopeKey("friend", string(id))
}

// AddFriendship records an accepted friendship in both directions.
func (f FriendRepository) AddFriendship(_ context.Context, a, b domain.UserID) error {
	return f.db.Update(func(txn *badger.Txn) error {
		record := DiskFriendship{Status: friendshipAccepted}
		if err := set(txn, friendPrefix(a)+string(b), record); err != nil {
			return err
		}
		return set(txn, friendPrefix(b)+string(a), record)
	})
}

func (f FriendRepository) RemoveFriendship(_ context.Context, a, b domain.UserID) error {
	return f.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(friendPrefix(a) + string(b))); err != nil {
			return err
		}
		return txn.Delete([]byte(friendPrefix(b) + string(a)))
	})
}

// GetFriends returns the accepted friends of userID.
func (f FriendRepository) GetFriends(_ context.Context, userID domain.UserID) ([]domain.UserID, error) {
	var friends []domain.UserID
	prefix := friendPrefix(userID)
	err := f.db.View(func(txn *badger.Txn) error {
		return scan(txn, prefix, func(key string, record DiskFriendship) error {
			if record.Status == friendshipAccepted {
				friends = append(friends, domain.UserID(strings.TrimPrefix(key, prefix)))
			}
			return nil
		})
	})
	return friends, err
}
