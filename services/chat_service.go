package services

import (
	"chat-pulse/contract"
	"chat-pulse/domain"
	"chat-pulse/domain/event"
	"chat-pulse/errors"
	"chat-pulse/runtime"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

type IChatService interface {
	JoinRoom(ctx context.Context, identity domain.UserID, roomID domain.RoomID) (event.RoomJoinedEvent, error)
	LeaveRoom(ctx context.Context, identity domain.UserID, roomID domain.RoomID) error
	SendMessage(ctx context.Context, sender domain.UserID, roomID domain.RoomID, content string) (domain.Message, error)
	Typing(ctx context.Context, sender domain.UserID, roomID domain.RoomID, isTyping bool) error
	MarkRead(ctx context.Context, reader domain.UserID, roomID domain.RoomID) (int, error)
}

// ChatService drives durable chat rooms: persist first, then fan out to the
// live members, then notify every other member.
type ChatService struct {
	log              *slog.Logger
	registry         *runtime.Registry
	rooms            *runtime.RoomManager
	roomStore        contract.RoomStore
	messages         contract.MessageStore
	users            contract.UserStore
	notifications    INotificationService
	maxContentLength int
}

func NewChatService(log *slog.Logger, registry *runtime.Registry, rooms *runtime.RoomManager,
	roomStore contract.RoomStore, messages contract.MessageStore, users contract.UserStore,
	notifications INotificationService, maxContentLength int) *ChatService {
	return &ChatService{
		log:              log,
		registry:         registry,
		rooms:            rooms,
		roomStore:        roomStore,
		messages:         messages,
		users:            users,
		notifications:    notifications,
		maxContentLength: maxContentLength,
	}
}

// JoinRoom opens the live channel of a room the caller belongs to. The ack
// carries the latest page of history, oldest first. History is best effort:
// a storage failure still acks the join, without history.
func (s *ChatService) JoinRoom(ctx context.Context, identity domain.UserID, roomID domain.RoomID) (event.RoomJoinedEvent, error) {
	if _, err := s.rooms.Join(ctx, identity, domain.ChatRoom(roomID)); err != nil {
		return event.RoomJoinedEvent{}, err
	}
	ack := event.RoomJoinedEvent{RoomID: roomID, History: []event.MessageView{}}

	page, _, err := s.messages.GetMessages(ctx, roomID, nil)
	if err != nil {
		s.log.Warn("Failed to load room history", "room", roomID, "identity", identity, "error", err)
		return ack, nil
	}
	names := make(map[domain.UserID]string)
	for _, message := range slices.Backward(page) {
		name, ok := names[message.SenderID]
		if !ok {
			name = runtime.DisplayName(ctx, s.users, message.SenderID)
			names[message.SenderID] = name
		}
		ack.History = append(ack.History, toView(message, name))
	}
	return ack, nil
}

func (s *ChatService) LeaveRoom(ctx context.Context, identity domain.UserID, roomID domain.RoomID) error {
	return s.rooms.Leave(ctx, identity, domain.ChatRoom(roomID))
}

// SendMessage runs the message pipeline. A storage failure aborts the send
// before anything is broadcast.
func (s *ChatService) SendMessage(ctx context.Context, sender domain.UserID, roomID domain.RoomID,
	content string) (domain.Message, error) {
	if _, err := s.registry.Live(sender); err != nil {
		return domain.Message{}, err
	}
	if err := s.validateContent(roomID, content); err != nil {
		return domain.Message{}, err
	}

	room, err := s.loadMembership(ctx, sender, roomID)
	if err != nil {
		return domain.Message{}, err
	}

	draft := domain.MessageDraft{RoomID: roomID, SenderID: sender, Content: content}
	if recipient, ok := room.Counterpart(sender); ok {
		draft.RecipientID = recipient
	}
	message, err := s.messages.PersistMessage(ctx, draft)
	if err != nil {
		return domain.Message{}, fmt.Errorf("%w: message to %s: %v", errors.ErrPersistenceFailure, roomID, err)
	}

	members, err := s.roomStore.GetDurableRoomMembers(ctx, roomID)
	if err != nil {
		s.log.Warn("Failed to refresh room members, using membership checked at send",
			"room", roomID, "error", err)
		members = room.Members
	}

	delivered := s.rooms.BroadcastTo(ctx, members, sender, event.NewMessageEvent{
		Message: toView(message, runtime.DisplayName(ctx, s.users, sender)),
	}, false)
	s.log.Debug("Message broadcast", "room", roomID, "message_id", message.ID, "delivered", delivered)

	for _, member := range lo.Without(lo.Uniq(members), sender) {
		if _, err := s.notifications.Notify(ctx, member, sender,
			domain.NotificationMessageSent, string(roomID), domain.EntityRoom); err != nil {
			s.log.Error("Failed to notify member", "room", roomID, "recipient", member, "error", err)
		}
	}
	return message, nil
}

// Typing relays a typing indicator to the other live members of the room.
func (s *ChatService) Typing(ctx context.Context, sender domain.UserID, roomID domain.RoomID, isTyping bool) error {
	if _, err := s.registry.Live(sender); err != nil {
		return err
	}
	if roomID == "" {
		return fmt.Errorf("%w: roomId is required", errors.ErrInvalidRequest)
	}
	room, err := s.loadMembership(ctx, sender, roomID)
	if err != nil {
		return err
	}
	s.rooms.BroadcastTo(ctx, room.Members, sender, event.UserTypingEvent{
		Identity: sender,
		RoomID:   roomID,
		IsTyping: isTyping,
	}, true)
	return nil
}

// MarkRead marks the room read for reader and sends one messages_read event
// to each distinct author of the messages that were unread.
// It returns how many authors were notified.
func (s *ChatService) MarkRead(ctx context.Context, reader domain.UserID, roomID domain.RoomID) (int, error) {
	if _, err := s.registry.Live(reader); err != nil {
		return 0, err
	}
	if roomID == "" {
		return 0, fmt.Errorf("%w: roomId is required", errors.ErrInvalidRequest)
	}
	if _, err := s.loadMembership(ctx, reader, roomID); err != nil {
		return 0, err
	}

	read, err := s.messages.MarkRoomRead(ctx, roomID, reader)
	if err != nil {
		return 0, fmt.Errorf("%w: mark %s read: %v", errors.ErrPersistenceFailure, roomID, err)
	}

	notified := 0
	bySender := lo.GroupBy(read, func(m domain.Message) domain.UserID { return m.SenderID })
	for sender, messages := range bySender {
		if sender == reader {
			continue
		}
		conn, ok := s.registry.Lookup(sender)
		if !ok || !conn.IsLive() {
			continue
		}
		err := conn.Send(ctx, event.MessagesReadEvent{
			ReadBy: reader,
			RoomID: roomID,
			Messages: lo.Map(messages, func(m domain.Message, _ int) string {
				return m.ID.String()
			}),
		})
		if err != nil {
			s.log.Warn("Failed to send read receipt", "room", roomID, "sender", sender, "error", err)
			continue
		}
		notified++
	}
	return notified, nil
}

func (s *ChatService) validateContent(roomID domain.RoomID, content string) error {
	if roomID == "" {
		return fmt.Errorf("%w: roomId is required", errors.ErrInvalidRequest)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content is required", errors.ErrInvalidRequest)
	}
	if s.maxContentLength > 0 && utf8.RuneCountInString(content) > s.maxContentLength {
		return fmt.Errorf("%w: content exceeds %d characters", errors.ErrInvalidRequest, s.maxContentLength)
	}
	return nil
}

// loadMembership fetches the room and checks identity belongs to it.
func (s *ChatService) loadMembership(ctx context.Context, identity domain.UserID, roomID domain.RoomID) (domain.Room, error) {
	room, err := s.roomStore.GetRoom(ctx, roomID)
	if errors.Is(err, errors.ErrNotFound) {
		return domain.Room{}, fmt.Errorf("%w: %s is not a member of %s", errors.ErrNotAuthorized, identity, roomID)
	}
	if err != nil {
		return domain.Room{}, fmt.Errorf("%w: load room %s: %v", errors.ErrPersistenceFailure, roomID, err)
	}
	if !room.HasMember(identity) {
		return domain.Room{}, fmt.Errorf("%w: %s is not a member of %s", errors.ErrNotAuthorized, identity, roomID)
	}
	return room, nil
}

func toView(message domain.Message, senderName string) event.MessageView {
	return event.MessageView{
		ID:          message.ID.String(),
		RoomID:      message.RoomID,
		SenderID:    message.SenderID,
		SenderName:  senderName,
		RecipientID: message.RecipientID,
		Content:     message.Content,
		CreatedAt:   message.CreatedAt,
	}
}
