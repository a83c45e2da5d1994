package repositories

import (
	"chat-pulse/domain"
	"context"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

type RoomRepository struct {
	db *badger.DB
}

func NewRoomRepository(db *badger.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

type DiskRoom struct {
	ID      string
	Type    string
	Name    string
	Members []string
}

func roomKey(id domain.RoomID) string {
	return "room:" + string(id)
}

func (r RoomRepository) CreateRoom(_ context.Context, room domain.Room) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return set(txn, roomKey(room.ID), fromRoom(room))
	})
}

// AddMember adds a durable member, a no-op when already present.
func (r RoomRepository) AddMember(_ context.Context, roomID domain.RoomID, userID domain.UserID) error {
	return r.db.Update(func(txn *badger.Txn) error {
		disk, err := get[DiskRoom](txn, roomKey(roomID))
		if err != nil {
			return err
		}
		if slices.Contains(disk.Members, string(userID)) {
			return nil
		}
		disk.Members = append(disk.Members, string(userID))
		return set(txn, roomKey(roomID), disk)
	})
}

func (r RoomRepository) GetRoom(_ context.Context, roomID domain.RoomID) (domain.Room, error) {
	var disk DiskRoom
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		disk, err = get[DiskRoom](txn, roomKey(roomID))
		return err
	})
	if err != nil {
		return domain.Room{}, err
	}
	return toRoom(disk), nil
}

func (r RoomRepository) GetDurableRoomMembers(ctx context.Context, roomID domain.RoomID) ([]domain.UserID, error) {
	room, err := r.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return room.Members, nil
}

func fromRoom(room domain.Room) DiskRoom {
	return DiskRoom{
		ID:   string(room.ID),
		Type: string(room.Type),
		Name: room.Name,
		Members: lo.Map(room.Members, func(id domain.UserID, _ int) string {
			return string(id)
		}),
	}
}

func toRoom(disk DiskRoom) domain.Room {
	roomType := domain.RoomType(disk.Type)
	if roomType == "" {
		roomType = domain.RoomGroup
	}
	return domain.Room{
		ID:   domain.RoomID(disk.ID),
		Type: roomType,
		Name: disk.Name,
		Members: lo.Map(disk.Members, func(id string, _ int) domain.UserID {
			return domain.UserID(id)
		}),
	}
}
