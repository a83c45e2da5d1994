//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-pulse/domain"
	"context"
	"reflect"
	"time"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Handle is the transport side of a live connection.
// Send must not block on a slow peer; it either queues the frame or fails.
type Handle interface {
	Send(ctx context.Context, frame []byte) error
	Close()
	RemoteAddr() string
}

type MessageStore interface {
	PersistMessage(ctx context.Context, draft domain.MessageDraft) (domain.Message, error)
	// GetMessages returns one page of the room history, newest first, and the
	// cursor to resume from.
	GetMessages(ctx context.Context, roomID domain.RoomID, cursor *string) ([]domain.Message, *string, error)
	// MarkRoomRead marks every message of the room sent by someone else as
	// read by reader and returns the ones that were still unread.
	MarkRoomRead(ctx context.Context, roomID domain.RoomID, reader domain.UserID) ([]domain.Message, error)
}

type RoomStore interface {
	GetRoom(ctx context.Context, roomID domain.RoomID) (domain.Room, error)
	GetDurableRoomMembers(ctx context.Context, roomID domain.RoomID) ([]domain.UserID, error)
}

type FriendStore interface {
	GetFriends(ctx context.Context, userID domain.UserID) ([]domain.UserID, error)
}

type NotificationStore interface {
	CreateNotification(ctx context.Context, draft domain.NotificationDraft) (domain.Notification, error)
	MarkNotificationsRead(ctx context.Context, recipient domain.UserID) (int, error)
	ListNotifications(ctx context.Context, recipient domain.UserID) ([]domain.Notification, error)
}

type UserStore interface {
	GetUser(ctx context.Context, userID domain.UserID) (domain.User, error)
	SetOnlineStatus(ctx context.Context, userID domain.UserID, online bool, at time.Time) error
}

type SessionStore interface {
	AddSessionMedia(ctx context.Context, media domain.SessionMedia) (domain.SessionMedia, error)
	ListSessionMedia(ctx context.Context, sessionID domain.SessionID) ([]domain.SessionMedia, error)
}

// PresenceCache mirrors online flags to a shared key-value store.
type PresenceCache interface {
	MarkOnline(ctx context.Context, userID domain.UserID) error
	MarkOffline(ctx context.Context, userID domain.UserID) error
	Refresh(ctx context.Context, userID domain.UserID) error
}

// IdentityVerifier binds a handshake to an identity.
type IdentityVerifier interface {
	Verify(claimed domain.UserID, token string) (domain.UserID, error)
}
