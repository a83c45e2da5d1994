package runtime

import (
	"chat-pulse/contract"
	"chat-pulse/domain"
	"chat-pulse/domain/event"
	"chat-pulse/errors"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
)

type Set map[domain.UserID]struct{}

// JoinResult tells the caller what a Join changed.
type JoinResult struct {
	FirstJoin bool
	State     *domain.SessionState
}

// RoomManager owns ephemeral membership: who currently listens on a live
// channel. Durable membership stays in the storage collaborator and is only
// consulted here.
type RoomManager struct {
	mu       sync.RWMutex
	log      *slog.Logger
	registry *Registry
	rooms    contract.RoomStore
	users    contract.UserStore
	sessions contract.SessionStore
	members  map[domain.RoomRef]Set
	now      func() time.Time
}

func NewRoomManager(log *slog.Logger, registry *Registry, rooms contract.RoomStore,
	users contract.UserStore, sessions contract.SessionStore) *RoomManager {
	return &RoomManager{
		log:      log,
		registry: registry,
		rooms:    rooms,
		users:    users,
		sessions: sessions,
		members:  make(map[domain.RoomRef]Set),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Join adds identity to the live channel of ref.
// Chat rooms require durable membership, session rooms accept anyone since
// joining is the participation being recorded.
func (m *RoomManager) Join(ctx context.Context, identity domain.UserID, ref domain.RoomRef) (JoinResult, error) {
	conn, err := m.registry.Live(identity)
	if err != nil {
		return JoinResult{}, err
	}
	if ref.ID == "" {
		return JoinResult{}, fmt.Errorf("%w: room id is required", errors.ErrInvalidRequest)
	}

	if ref.Kind == domain.KindChat {
		if err := m.checkDurableMember(ctx, identity, domain.RoomID(ref.ID)); err != nil {
			return JoinResult{}, err
		}
	}

	first := m.add(ref, identity)
	conn.addRoom(ref)

	// The connection may have been evicted while storage was consulted.
	if !conn.IsLive() {
		m.remove(ref, identity)
		conn.removeRoom(ref)
		return JoinResult{}, fmt.Errorf("%w: connection closed during join", errors.ErrAuthRequired)
	}

	m.log.Debug("Joined live channel", "identity", identity, "room", ref.String(), "first", first)

	if ref.Kind != domain.KindSession || !first {
		return JoinResult{FirstJoin: first}, nil
	}

	user := DisplayName(ctx, m.users, identity)
	m.Broadcast(ctx, ref, identity, event.ParticipantJoinedEvent{
		Identity:    identity,
		DisplayName: user,
		Timestamp:   m.now(),
	}, true)

	state := m.sessionState(ctx, domain.SessionID(ref.ID))
	return JoinResult{FirstJoin: true, State: &state}, nil
}

func (m *RoomManager) checkDurableMember(ctx context.Context, identity domain.UserID, roomID domain.RoomID) error {
	room, err := m.rooms.GetRoom(ctx, roomID)
	if errors.Is(err, errors.ErrNotFound) {
		return fmt.Errorf("%w: %s is not a member of %s", errors.ErrNotAuthorized, identity, roomID)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrPersistenceFailure, err)
	}
	if !room.HasMember(identity) {
		return fmt.Errorf("%w: %s is not a member of %s", errors.ErrNotAuthorized, identity, roomID)
	}
	return nil
}

// Leave removes identity from the live channel of ref.
func (m *RoomManager) Leave(ctx context.Context, identity domain.UserID, ref domain.RoomRef) error {
	conn, err := m.registry.Live(identity)
	if err != nil {
		return err
	}
	m.leave(ctx, conn, ref)
	return nil
}

// LeaveAll drops every live channel conn had joined. Used on the offline
// path, so it does not require the connection to be live.
func (m *RoomManager) LeaveAll(ctx context.Context, conn *Connection) {
	for _, ref := range conn.Rooms() {
		m.leave(ctx, conn, ref)
	}
}

func (m *RoomManager) leave(ctx context.Context, conn *Connection, ref domain.RoomRef) {
	conn.removeRoom(ref)
	if !m.remove(ref, conn.Identity) {
		return
	}
	m.log.Debug("Left live channel", "identity", conn.Identity, "room", ref.String())

	if ref.Kind == domain.KindSession {
		m.Broadcast(ctx, ref, conn.Identity, event.ParticipantLeftEvent{
			Identity:    conn.Identity,
			DisplayName: DisplayName(ctx, m.users, conn.Identity),
			Timestamp:   m.now(),
		}, true)
	}
}

// Broadcast delivers evt to every live member of the ephemeral set of ref.
// Members without a live connection are skipped, nothing is queued for them.
// It returns the number of connections the event was handed to.
func (m *RoomManager) Broadcast(ctx context.Context, ref domain.RoomRef, sender domain.UserID,
	evt event.Outbound, excludeSender bool) int {
	return m.BroadcastTo(ctx, m.Members(ref), sender, evt, excludeSender)
}

// BroadcastTo delivers evt to the live connections among members. Durable
// chat rooms use it with a membership list fetched at send time.
func (m *RoomManager) BroadcastTo(ctx context.Context, members []domain.UserID, sender domain.UserID,
	evt event.Outbound, excludeSender bool) int {
	frame, err := event.Encode(evt)
	if err != nil {
		m.log.Error("Failed to encode event", "type", evt.EventType(), "error", err)
		return 0
	}

	delivered := 0
	for _, member := range lo.Uniq(members) {
		if excludeSender && member == sender {
			continue
		}
		conn, ok := m.registry.Lookup(member)
		if !ok || !conn.IsLive() {
			continue
		}
		if err := conn.SendRaw(ctx, frame); err != nil {
			m.log.Warn("Delivery failed, skipping recipient",
				"type", evt.EventType(), "recipient", member, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// Members returns a snapshot of the ephemeral set of ref.
func (m *RoomManager) Members(ref domain.RoomRef) []domain.UserID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lo.Keys(m.members[ref])
}

func (m *RoomManager) IsMember(ref domain.RoomRef, identity domain.UserID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.members[ref][identity]
	return ok
}

// RoomCount returns how many live channels currently have members.
func (m *RoomManager) RoomCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.members)
}

// add reports whether identity was not yet in the set.
func (m *RoomManager) add(ref domain.RoomRef, identity domain.UserID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.members[ref]
	if !ok {
		set = make(Set)
		m.members[ref] = set
	}
	if _, exists := set[identity]; exists {
		return false
	}
	set[identity] = struct{}{}
	return true
}

// remove reports whether identity was in the set. Empty rooms are dropped.
func (m *RoomManager) remove(ref domain.RoomRef, identity domain.UserID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.members[ref]
	if !ok {
		return false
	}
	if _, exists := set[identity]; !exists {
		return false
	}
	delete(set, identity)
	if len(set) == 0 {
		delete(m.members, ref)
	}
	return true
}

func (m *RoomManager) sessionState(ctx context.Context, sessionID domain.SessionID) domain.SessionState {
	ref := domain.SessionRoom(sessionID)
	participants := lo.Map(m.Members(ref), func(id domain.UserID, _ int) domain.Participant {
		return domain.Participant{ID: id, DisplayName: DisplayName(ctx, m.users, id)}
	})
	media, err := m.sessions.ListSessionMedia(ctx, sessionID)
	if err != nil {
		m.log.Warn("Failed to load session media", "session", sessionID, "error", err)
	}
	return domain.SessionState{
		SessionID:    sessionID,
		Participants: participants,
		Media:        media,
	}
}

// DisplayName resolves the name shown next to an identity, falling back to
// the identity itself when the user is unknown.
func DisplayName(ctx context.Context, users contract.UserStore, id domain.UserID) string {
	if users == nil {
		return string(id)
	}
	user, err := users.GetUser(ctx, id)
	if err != nil {
		return string(id)
	}
	return user.Name()
}
