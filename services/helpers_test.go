package services

import (
	"chat-pulse/domain"
	"chat-pulse/domain/event"
	"chat-pulse/mocks"
	"chat-pulse/runtime"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type recordingHandle struct {
	mu     sync.Mutex
	frames []event.Envelope
	closed bool
}

func (h *recordingHandle) Send(_ context.Context, frame []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	var envelope event.Envelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		return err
	}
	h.frames = append(h.frames, envelope)
	return nil
}

func (h *recordingHandle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
}

func (h *recordingHandle) RemoteAddr() string { return "127.0.0.1:0" }

// received returns the payloads of every frame of the given type.
func (h *recordingHandle) received(eventType event.Type) []json.RawMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	var res []json.RawMessage
	for _, f := range h.frames {
		if f.Type == eventType {
			res = append(res, f.Payload)
		}
	}
	return res
}

func decodeAs[T any](t *testing.T, payload json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(payload, &v))
	return v
}

type fixture struct {
	log           *slog.Logger
	registry      *runtime.Registry
	rooms         *runtime.RoomManager
	roomStore     *mocks.MockRoomStore
	messages      *mocks.MockMessageStore
	users         *mocks.MockUserStore
	friends       *mocks.MockFriendStore
	notifications *mocks.MockNotificationStore
	sessions      *mocks.MockSessionStore
}

func newFixture(t *testing.T) fixture {
	ctrl := gomock.NewController(t)
	log := slog.Default()
	registry := runtime.NewRegistry(log)
	f := fixture{
		log:           log,
		registry:      registry,
		roomStore:     mocks.NewMockRoomStore(ctrl),
		messages:      mocks.NewMockMessageStore(ctrl),
		users:         mocks.NewMockUserStore(ctrl),
		friends:       mocks.NewMockFriendStore(ctrl),
		notifications: mocks.NewMockNotificationStore(ctrl),
		sessions:      mocks.NewMockSessionStore(ctrl),
	}
	f.rooms = runtime.NewRoomManager(log, registry, f.roomStore, f.users, f.sessions)
	f.users.EXPECT().GetUser(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, id domain.UserID) (domain.User, error) {
			return domain.User{ID: id, DisplayName: "User " + string(id)}, nil
		}).AnyTimes()
	return f
}

func (f fixture) connect(t *testing.T, identity domain.UserID) (*runtime.Connection, *recordingHandle) {
	t.Helper()
	handle := &recordingHandle{}
	conn, err := f.registry.Register(identity, handle)
	require.NoError(t, err)
	return conn, handle
}

func (f fixture) chatService() *ChatService {
	notifier := NewNotificationService(f.log, f.registry, f.notifications, f.users)
	return NewChatService(f.log, f.registry, f.rooms, f.roomStore, f.messages, f.users, notifier, 20)
}
