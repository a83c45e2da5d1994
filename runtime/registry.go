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
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type ConnState int32

const (
	Connecting ConnState = iota
	Authenticated
	Live
	Closing
	Gone
)

func (s ConnState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Authenticated:
		return "authenticated"
	case Live:
		return "live"
	case Closing:
		return "closing"
	case Gone:
		return "gone"
	}
	return "unknown"
}

// Connection is the registry's view of one authenticated client.
type Connection struct {
	ID          uuid.UUID
	Identity    domain.UserID
	ConnectedAt time.Time

	handle     contract.Handle
	alive      atomic.Bool
	state      atomic.Int32
	once       sync.Once
	superseded bool

	mu     sync.Mutex
	joined map[domain.RoomRef]struct{}
}

func newConnection(identity domain.UserID, handle contract.Handle) *Connection {
	c := &Connection{
		ID:          uuid.New(),
		Identity:    identity,
		ConnectedAt: time.Now().UTC(),
		handle:      handle,
		joined:      make(map[domain.RoomRef]struct{}),
	}
	c.state.Store(int32(Authenticated))
	return c
}

func (c *Connection) State() ConnState { return ConnState(c.state.Load()) }

func (c *Connection) IsLive() bool { return c.State() == Live }

// Superseded reports whether this connection replaced a live one of the same
// identity when it was registered. Set before the connection is published.
func (c *Connection) Superseded() bool { return c.superseded }

// MarkAlive records a heartbeat answer.
func (c *Connection) MarkAlive() { c.alive.Store(true) }

// ResetAlive clears the liveness flag and reports whether it was set.
func (c *Connection) ResetAlive() bool { return c.alive.Swap(false) }

func (c *Connection) RemoteAddr() string {
	if c.handle == nil {
		return ""
	}
	return c.handle.RemoteAddr()
}

// Send encodes an outbound event and queues it on the transport.
func (c *Connection) Send(ctx context.Context, evt event.Outbound) error {
	frame, err := event.Encode(evt)
	if err != nil {
		return err
	}
	return c.SendRaw(ctx, frame)
}

func (c *Connection) SendRaw(ctx context.Context, frame []byte) error {
	if s := c.State(); s != Live && s != Authenticated {
		return fmt.Errorf("%w: connection is %s", errors.ErrTransportFailure, s)
	}
	if err := c.handle.Send(ctx, frame); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrTransportFailure, err)
	}
	return nil
}

// Rooms returns a copy of the live channels this connection joined.
func (c *Connection) Rooms() []domain.RoomRef {
	c.mu.Lock()
	defer c.mu.Unlock()
	rooms := make([]domain.RoomRef, 0, len(c.joined))
	for ref := range c.joined {
		rooms = append(rooms, ref)
	}
	return rooms
}

func (c *Connection) HasJoined(ref domain.RoomRef) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.joined[ref]
	return ok
}

func (c *Connection) addRoom(ref domain.RoomRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joined[ref] = struct{}{}
}

func (c *Connection) removeRoom(ref domain.RoomRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.joined, ref)
}

// takeRooms moves the joined set out of the connection.
func (c *Connection) takeRooms() map[domain.RoomRef]struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	rooms := c.joined
	c.joined = make(map[domain.RoomRef]struct{})
	return rooms
}

// close terminates the transport once. Safe to call from any goroutine.
func (c *Connection) close() {
	c.once.Do(func() {
		c.state.Store(int32(Closing))
		if c.handle != nil {
			c.handle.Close()
		}
		c.state.Store(int32(Gone))
	})
}

// Registry owns the identity -> connection table. Callers only go through its
// methods, the map itself is never exposed.
type Registry struct {
	mu          sync.RWMutex
	log         *slog.Logger
	connections map[domain.UserID]*Connection
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{
		log:         log,
		connections: make(map[domain.UserID]*Connection),
	}
}

// Register binds a transport handle to an authenticated identity.
// A previous connection of the same identity is superseded: its handle is
// closed and the live channels it had joined carry over to the new one.
func (r *Registry) Register(identity domain.UserID, handle contract.Handle) (*Connection, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: empty identity", errors.ErrAuthRequired)
	}
	if handle == nil {
		return nil, fmt.Errorf("%w: nil handle", errors.ErrInvalidRequest)
	}
	conn := newConnection(identity, handle)

	r.mu.Lock()
	previous := r.connections[identity]
	if previous != nil {
		conn.joined = previous.takeRooms()
		conn.superseded = true
	}
	r.connections[identity] = conn
	conn.alive.Store(true)
	conn.state.Store(int32(Live))
	count := len(r.connections)
	r.mu.Unlock()

	if previous != nil {
		previous.close()
		r.log.Info("Connection superseded", "identity", identity,
			"previous", previous.ID, "current", conn.ID)
	}
	r.log.Debug("Connection registered", "identity", identity,
		"connection_id", conn.ID, "total", count)
	return conn, nil
}

// Unregister removes whatever connection the identity holds. Removing an
// absent identity is a no-op.
func (r *Registry) Unregister(identity domain.UserID) {
	r.mu.Lock()
	conn, ok := r.connections[identity]
	if ok {
		delete(r.connections, identity)
	}
	r.mu.Unlock()

	if ok {
		conn.close()
		r.log.Debug("Connection unregistered", "identity", identity, "connection_id", conn.ID)
	}
}

// Release closes conn and removes it only if it is still the authoritative
// connection of its identity. It reports whether the entry was removed.
func (r *Registry) Release(conn *Connection) bool {
	if conn == nil {
		return false
	}
	r.mu.Lock()
	current, ok := r.connections[conn.Identity]
	removed := ok && current == conn
	if removed {
		delete(r.connections, conn.Identity)
	}
	r.mu.Unlock()

	conn.close()
	return removed
}

func (r *Registry) Lookup(identity domain.UserID) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.connections[identity]
	return conn, ok
}

// Live returns the connection of identity if it accepts domain operations.
func (r *Registry) Live(identity domain.UserID) (*Connection, error) {
	conn, ok := r.Lookup(identity)
	if !ok || !conn.IsLive() {
		return nil, fmt.Errorf("%w: %s has no live connection", errors.ErrAuthRequired, identity)
	}
	return conn, nil
}

func (r *Registry) IsOnline(identity domain.UserID) bool {
	_, err := r.Live(identity)
	return err == nil
}

// ForEach calls fn on a snapshot of the registered connections. Entries
// added during the iteration are not visited, removed ones may still be.
func (r *Registry) ForEach(fn func(*Connection)) {
	r.mu.RLock()
	snapshot := make([]*Connection, 0, len(r.connections))
	for _, conn := range r.connections {
		snapshot = append(snapshot, conn)
	}
	r.mu.RUnlock()

	for _, conn := range snapshot {
		fn(conn)
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.connections)
}

// CloseAll closes and removes every connection. It returns how many were closed.
func (r *Registry) CloseAll() int {
	r.mu.Lock()
	connections := r.connections
	r.connections = make(map[domain.UserID]*Connection)
	r.mu.Unlock()

	for _, conn := range connections {
		conn.close()
	}
	return len(connections)
}
