package services

import (
	"chat-pulse/contract"
	"chat-pulse/domain"
	"chat-pulse/domain/event"
	"chat-pulse/runtime"
	"context"
	"log/slog"
)

type IConnectionService interface {
	Authenticate(ctx context.Context, claimed domain.UserID, token string, handle contract.Handle) (*runtime.Connection, error)
	Disconnect(ctx context.Context, conn *runtime.Connection) bool
}

// ConnectionService ties the connection lifecycle together: register on a
// verified handshake, and on close (graceful or heartbeat eviction) leave
// every live channel and propagate the offline presence.
type ConnectionService struct {
	log      *slog.Logger
	registry *runtime.Registry
	rooms    *runtime.RoomManager
	presence IPresenceService
	verifier contract.IdentityVerifier
}

func NewConnectionService(log *slog.Logger, registry *runtime.Registry, rooms *runtime.RoomManager,
	presence IPresenceService, verifier contract.IdentityVerifier) *ConnectionService {
	return &ConnectionService{
		log:      log,
		registry: registry,
		rooms:    rooms,
		presence: presence,
		verifier: verifier,
	}
}

func (s *ConnectionService) Authenticate(ctx context.Context, claimed domain.UserID, token string,
	handle contract.Handle) (*runtime.Connection, error) {
	identity, err := s.verifier.Verify(claimed, token)
	if err != nil {
		return nil, err
	}

	conn, err := s.registry.Register(identity, handle)
	if err != nil {
		return nil, err
	}
	if err := conn.Send(ctx, event.AuthSuccessEvent{Identity: identity}); err != nil {
		s.log.Warn("Failed to acknowledge authentication", "identity", identity, "error", err)
	}

	s.log.Info("Client connected", "identity", identity, "connection_id", conn.ID, "addr", conn.RemoteAddr())
	// Decided under the registry lock, so racing logins announce once.
	if !conn.Superseded() {
		s.presence.SetOnline(ctx, identity, true)
	}
	return conn, nil
}

// Disconnect runs the offline path once for the authoritative connection of
// an identity. A superseded connection closing is not an offline transition.
func (s *ConnectionService) Disconnect(ctx context.Context, conn *runtime.Connection) bool {
	if !s.registry.Release(conn) {
		return false
	}
	s.rooms.LeaveAll(ctx, conn)
	s.presence.SetOnline(ctx, conn.Identity, false)
	s.log.Info("Client disconnected", "identity", conn.Identity, "connection_id", conn.ID)
	return true
}
