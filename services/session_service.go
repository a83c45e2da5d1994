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
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"
)

type ISessionService interface {
	Join(ctx context.Context, identity domain.UserID, sessionID domain.SessionID) (runtime.JoinResult, error)
	Leave(ctx context.Context, identity domain.UserID, sessionID domain.SessionID) error
	SendMessage(ctx context.Context, sender domain.UserID, sessionID domain.SessionID, content string) error
	ShareMedia(ctx context.Context, sender domain.UserID, sessionID domain.SessionID, mediaURL, mediaType string) (domain.SessionMedia, error)
}

// SessionService handles shadow sessions, where co-presence requires an
// explicit join and only joined participants receive session traffic.
type SessionService struct {
	log      *slog.Logger
	registry *runtime.Registry
	rooms    *runtime.RoomManager
	sessions contract.SessionStore
	users    contract.UserStore
	now      func() time.Time
}

func NewSessionService(log *slog.Logger, registry *runtime.Registry, rooms *runtime.RoomManager,
	sessions contract.SessionStore, users contract.UserStore) *SessionService {
	return &SessionService{
		log:      log,
		registry: registry,
		rooms:    rooms,
		sessions: sessions,
		users:    users,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Join records the participation and, on first join, hands the joiner the
// current state of the session.
func (s *SessionService) Join(ctx context.Context, identity domain.UserID, sessionID domain.SessionID) (runtime.JoinResult, error) {
	result, err := s.rooms.Join(ctx, identity, domain.SessionRoom(sessionID))
	if err != nil {
		return result, err
	}
	if result.State == nil {
		return result, nil
	}
	conn, err := s.registry.Live(identity)
	if err != nil {
		return result, err
	}
	if err := conn.Send(ctx, s.toStateEvent(ctx, *result.State)); err != nil {
		s.log.Warn("Failed to send session state", "session", sessionID, "identity", identity, "error", err)
	}
	return result, nil
}

func (s *SessionService) Leave(ctx context.Context, identity domain.UserID, sessionID domain.SessionID) error {
	return s.rooms.Leave(ctx, identity, domain.SessionRoom(sessionID))
}

// SendMessage relays an ephemeral session message to every participant,
// the sender included.
func (s *SessionService) SendMessage(ctx context.Context, sender domain.UserID, sessionID domain.SessionID, content string) error {
	if err := s.checkParticipant(sender, sessionID); err != nil {
		return err
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content is required", errors.ErrInvalidRequest)
	}
	s.rooms.Broadcast(ctx, domain.SessionRoom(sessionID), sender, event.SessionMessageEvent{
		SessionID:  sessionID,
		SenderID:   sender,
		SenderName: runtime.DisplayName(ctx, s.users, sender),
		Content:    content,
		Timestamp:  s.now(),
	}, false)
	return nil
}

// ShareMedia stores a shared media reference then broadcasts it to the
// session. The media type must be a MIME type known to the detector.
func (s *SessionService) ShareMedia(ctx context.Context, sender domain.UserID, sessionID domain.SessionID,
	mediaURL, mediaType string) (domain.SessionMedia, error) {
	if err := s.checkParticipant(sender, sessionID); err != nil {
		return domain.SessionMedia{}, err
	}
	if mediaURL == "" {
		return domain.SessionMedia{}, fmt.Errorf("%w: mediaUrl is required", errors.ErrInvalidRequest)
	}
	mime := mimetype.Lookup(strings.ToLower(strings.TrimSpace(mediaType)))
	if mime == nil {
		return domain.SessionMedia{}, fmt.Errorf("%w: unsupported mediaType %q", errors.ErrInvalidRequest, mediaType)
	}

	media, err := s.sessions.AddSessionMedia(ctx, domain.SessionMedia{
		SessionID: sessionID,
		SenderID:  sender,
		MediaURL:  mediaURL,
		MediaType: mime.String(),
		CreatedAt: s.now(),
	})
	if err != nil {
		return domain.SessionMedia{}, fmt.Errorf("%w: media for %s: %v", errors.ErrPersistenceFailure, sessionID, err)
	}

	s.rooms.Broadcast(ctx, domain.SessionRoom(sessionID), sender, s.toMediaEvent(ctx, media), false)
	return media, nil
}

func (s *SessionService) checkParticipant(identity domain.UserID, sessionID domain.SessionID) error {
	if _, err := s.registry.Live(identity); err != nil {
		return err
	}
	if sessionID == "" {
		return fmt.Errorf("%w: sessionId is required", errors.ErrInvalidRequest)
	}
	if !s.rooms.IsMember(domain.SessionRoom(sessionID), identity) {
		return fmt.Errorf("%w: %s has not joined session %s", errors.ErrNotAuthorized, identity, sessionID)
	}
	return nil
}

func (s *SessionService) toMediaEvent(ctx context.Context, media domain.SessionMedia) event.SessionMediaEvent {
	return event.SessionMediaEvent{
		ID:         media.ID.String(),
		SessionID:  media.SessionID,
		SenderID:   media.SenderID,
		SenderName: runtime.DisplayName(ctx, s.users, media.SenderID),
		MediaURL:   media.MediaURL,
		MediaType:  media.MediaType,
		Timestamp:  media.CreatedAt,
	}
}

func (s *SessionService) toStateEvent(ctx context.Context, state domain.SessionState) event.SessionStateEvent {
	return event.SessionStateEvent{
		SessionID: state.SessionID,
		Participants: lo.Map(state.Participants, func(p domain.Participant, _ int) event.ParticipantView {
			return event.ParticipantView{Identity: p.ID, DisplayName: p.DisplayName}
		}),
		Media: lo.Map(state.Media, func(m domain.SessionMedia, _ int) event.SessionMediaEvent {
			return s.toMediaEvent(ctx, m)
		}),
	}
}
