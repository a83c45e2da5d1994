package repositories

import (
	"chat-pulse/domain"
	"chat-pulse/errors"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestUserRepository_SetOnlineStatus(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewUserRepository(openDB(t))
	req.NoError(repository.SaveUser(ctx, domain.User{ID: "alice", DisplayName: "Alice"}))

	// When alice goes online
	at := time.Now().UTC()
	req.NoError(repository.SetOnlineStatus(ctx, "alice", true, at))

	// Then the flag and the last seen time are stored
	user, err := repository.GetUser(ctx, "alice")
	req.NoError(err)
	req.True(user.Online)
	req.Equal("Alice", user.Name())
	req.Equal(at.UnixNano(), user.LastSeen.UnixNano())

	// When alice goes offline
	req.NoError(repository.SetOnlineStatus(ctx, "alice", false, at.Add(time.Minute)))

	// Then last seen keeps the time she came online
	user, err = repository.GetUser(ctx, "alice")
	req.NoError(err)
	req.False(user.Online)
	req.Equal(at.UnixNano(), user.LastSeen.UnixNano())
}

func TestUserRepository_UnknownUser(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewUserRepository(openDB(t))

	_, err := repository.GetUser(ctx, "ghost")
	req.ErrorIs(err, errors.ErrNotFound)

	// A status update creates a bare profile
	req.NoError(repository.SetOnlineStatus(ctx, "ghost", true, time.Now()))
	user, err := repository.GetUser(ctx, "ghost")
	req.NoError(err)
	req.Equal("ghost", user.Name())
}

func TestFriendRepository_Both_Directions(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewFriendRepository(openDB(t))

	req.NoError(repository.AddFriendship(ctx, "alice", "bob"))
	req.NoError(repository.AddFriendship(ctx, "alice", "clara"))

	friends, err := repository.GetFriends(ctx, "alice")
	req.NoError(err)
	req.ElementsMatch([]domain.UserID{"bob", "clara"}, friends)

	friends, err = repository.GetFriends(ctx, "bob")
	req.NoError(err)
	req.Equal([]domain.UserID{"alice"}, friends)

	req.NoError(repository.RemoveFriendship(ctx, "bob", "alice"))
	friends, err = repository.GetFriends(ctx, "alice")
	req.NoError(err)
	req.Equal([]domain.UserID{"clara"}, friends)
}

func TestRoomRepository_Members(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewRoomRepository(openDB(t))

	req.NoError(repository.CreateRoom(ctx, domain.Room{ID: "room-1", Name: "general", Members: []domain.UserID{"alice"}}))
	req.NoError(repository.AddMember(ctx, "room-1", "bob"))
	req.NoError(repository.AddMember(ctx, "room-1", "bob"))

	room, err := repository.GetRoom(ctx, "room-1")
	req.NoError(err)
	req.Equal(domain.RoomGroup, room.Type)

	members, err := repository.GetDurableRoomMembers(ctx, "room-1")
	req.NoError(err)
	req.Equal([]domain.UserID{"alice", "bob"}, members)

	_, err = repository.GetRoom(ctx, "missing")
	req.ErrorIs(err, errors.ErrNotFound)
}

func TestNotificationRepository_Create_List_MarkRead(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewNotificationRepository(openDB(t))
	at := time.Now().UTC()

	// Given two identical events for bob
	for i := 0; i < 2; i++ {
		_, err := repository.CreateNotification(ctx, domain.NotificationDraft{
			Recipient:  "bob",
			Actor:      "alice",
			Kind:       domain.NotificationMessageSent,
			EntityID:   "room-1",
			EntityType: domain.EntityRoom,
			CreatedAt:  at.Add(time.Duration(i) * time.Second),
		})
		req.NoError(err)
	}

	// Then both rows exist, nothing is merged
	notifications, err := repository.ListNotifications(ctx, "bob")
	req.NoError(err)
	req.Len(notifications, 2)
	req.False(notifications[0].Read)

	// When bob marks everything read
	count, err := repository.MarkNotificationsRead(ctx, "bob")
	req.NoError(err)
	req.Equal(2, count)

	notifications, err = repository.ListNotifications(ctx, "bob")
	req.NoError(err)
	for _, n := range notifications {
		req.True(n.Read)
	}

	count, err = repository.MarkNotificationsRead(ctx, "bob")
	req.NoError(err)
	req.Zero(count)
}

func TestSessionRepository_Media(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	repository := NewSessionRepository(openDB(t))

	media, err := repository.AddSessionMedia(ctx, domain.SessionMedia{
		SessionID: "sess-1", SenderID: "alice", MediaURL: "https://cdn.example.com/a.png", MediaType: "image/png",
	})
	req.NoError(err)
	req.NotEmpty(media.ID)

	list, err := repository.ListSessionMedia(ctx, "sess-1")
	req.NoError(err)
	req.Len(list, 1)
	req.Equal(media.ID, list[0].ID)
	req.Equal("image/png", list[0].MediaType)

	list, err = repository.ListSessionMedia(ctx, "sess-2")
	req.NoError(err)
	req.Empty(list)
}

func TestDump_DecodesRecordsGenerically(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	db := openDB(t)
	rooms := NewRoomRepository(db)
	req.NoError(rooms.CreateRoom(ctx, domain.Room{ID: "r1", Name: "general", Members: []domain.UserID{"alice"}}))
	req.NoError(NewUserRepository(db).SaveUser(ctx, domain.User{ID: "alice"}))

	var keys []string
	err := Dump(db, "room:", func(key string, record map[string]any) error {
		keys = append(keys, key)
		req.Equal("general", record["Name"])
		return nil
	})
	req.NoError(err)
	req.Equal([]string{"room:r1"}, keys)
}
