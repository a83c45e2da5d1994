package repositories

import (
	"chat-pulse/domain"
	"chat-pulse/errors"
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"
)

type IUserRepository interface {
	SaveUser(ctx context.Context, user domain.User) error
	GetUser(ctx context.Context, userID domain.UserID) (domain.User, error)
	SetOnlineStatus(ctx context.Context, userID domain.UserID, online bool, at time.Time) error
}

var _ IUserRepository = (*UserRepository)(nil)

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) *UserRepository {
	return &UserRepository{db: db}
}

// DiskUser is the stored representation of a user profile.
type DiskUser struct {
	ID          string
	DisplayName string
	Online      bool
	LastSeen    int64
}

func userKey(id domain.UserID) string {
	return "user:" + string(id)
}

func (u UserRepository) SaveUser(_ context.Context, user domain.User) error {
	return u.db.Update(func(txn *badger.Txn) error {
		return set(txn, userKey(user.ID), fromUser(user))
	})
}

func (u UserRepository) GetUser(_ context.Context, userID domain.UserID) (domain.User, error) {
	var disk DiskUser
	err := u.db.View(func(txn *badger.Txn) error {
		var err error
		disk, err = get[DiskUser](txn, userKey(userID))
		return err
	})
	if err != nil {
		return domain.User{}, err
	}
	return toUser(disk), nil
}

// SetOnlineStatus updates the persisted online flag. Going online also stamps
// the last seen time. Unknown users get a bare profile.
func (u UserRepository) SetOnlineStatus(_ context.Context, userID domain.UserID, online bool, at time.Time) error {
	return u.db.Update(func(txn *badger.Txn) error {
		disk, err := get[DiskUser](txn, userKey(userID))
		if errors.Is(err, errors.ErrNotFound) {
			disk = DiskUser{ID: string(userID)}
		} else if err != nil {
			return err
		}
		disk.Online = online
		if online {
			disk.LastSeen = at.UnixNano()
		}
		return set(txn, userKey(userID), disk)
	})
}

func fromUser(user domain.User) DiskUser {
	var lastSeen int64
	if !user.LastSeen.IsZero() {
		lastSeen = user.LastSeen.UnixNano()
	}
	return DiskUser{
		ID:          string(user.ID),
		DisplayName: user.DisplayName,
		Online:      user.Online,
		LastSeen:    lastSeen,
	}
}

func toUser(disk DiskUser) domain.User {
	user := domain.User{
		ID:          domain.UserID(disk.ID),
		DisplayName: disk.DisplayName,
		Online:      disk.Online,
	}
	if disk.LastSeen != 0 {
		user.LastSeen = time.Unix(0, disk.LastSeen).UTC()
	}
	return user
}
