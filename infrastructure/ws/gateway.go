package ws

import (
	"chat-pulse/domain"
	"chat-pulse/domain/event"
	"chat-pulse/errors"
	"chat-pulse/runtime"
	"chat-pulse/services"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

type ClientConfig struct {
	SendBufferSize int
	WriteWait      time.Duration
	MaxFrameBytes  int64
}

// FrameCounter is told about every inbound frame and every rejected one.
type FrameCounter interface {
	IncrFramesReceived()
	IncrFramesRejected()
}

type noopCounter struct{}

func (noopCounter) IncrFramesReceived() {}
func (noopCounter) IncrFramesRejected() {}

// Gateway upgrades HTTP requests and dispatches the envelopes of each socket
// to the services. One goroutine per socket reads and dispatches, so the
// operations of a sender are applied in the order they were sent.
type Gateway struct {
	log         *slog.Logger
	upgrader    websocket.Upgrader
	connections services.IConnectionService
	chat        services.IChatService
	sessions    services.ISessionService
	counter     FrameCounter
	config      ClientConfig
}

func NewGateway(log *slog.Logger, connections services.IConnectionService, chat services.IChatService,
	sessions services.ISessionService, counter FrameCounter, config ClientConfig) *Gateway {
	if counter == nil {
		counter = noopCounter{}
	}
	return &Gateway{
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		connections: connections,
		chat:        chat,
		sessions:    sessions,
		counter:     counter,
		config:      config,
	}
}

func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("Websocket upgrade failed", "addr", r.RemoteAddr, "error", err)
		return
	}
	client := NewClient(g.log, socket, g.config)
	go client.writePump()
	g.serve(r.Context(), client)
}

// serve runs the read loop of one socket until it closes.
func (g *Gateway) serve(ctx context.Context, client *Client) {
	var conn *runtime.Connection
	defer func() {
		if conn != nil {
			g.connections.Disconnect(context.WithoutCancel(ctx), conn)
		}
		client.Close()
	}()

	client.OnPong(func() {
		if conn != nil {
			conn.MarkAlive()
		}
	})

	for {
		frame, err := client.ReadFrame()
		if err != nil {
			if isExpectedClose(err) {
				g.log.Debug("Client closed", "addr", client.RemoteAddr())
			} else {
				g.log.Debug("Read failed", "addr", client.RemoteAddr(), "error", err)
			}
			return
		}
		g.counter.IncrFramesReceived()

		var envelope event.Envelope
		if err := json.Unmarshal(frame, &envelope); err != nil {
			g.reject(ctx, client, fmt.Errorf("%w: malformed envelope", errors.ErrInvalidRequest))
			continue
		}

		if envelope.Type == event.Auth {
			if conn != nil {
				g.reject(ctx, client, fmt.Errorf("%w: already authenticated", errors.ErrInvalidRequest))
				continue
			}
			authenticated, err := g.authenticate(ctx, client, envelope.Payload)
			if err != nil {
				g.reject(ctx, client, err)
				continue
			}
			conn = authenticated
			continue
		}

		if conn == nil {
			g.reject(ctx, client, fmt.Errorf("%w: send auth first", errors.ErrAuthRequired))
			continue
		}
		if conn.State() == runtime.Gone {
			// Superseded or evicted, the transport is already closing.
			return
		}
		if err := g.dispatch(ctx, conn, envelope); err != nil {
			g.log.Debug("Operation rejected", "identity", conn.Identity, "type", envelope.Type, "error", err)
			g.reject(ctx, client, err)
		}
	}
}

func (g *Gateway) authenticate(ctx context.Context, client *Client, payload json.RawMessage) (*runtime.Connection, error) {
	cmd, err := decode[domain.AuthCommand](payload)
	if err != nil {
		return nil, err
	}
	return g.connections.Authenticate(ctx, cmd.Identity, cmd.Token, client)
}

func (g *Gateway) dispatch(ctx context.Context, conn *runtime.Connection, envelope event.Envelope) error {
	identity := conn.Identity
	switch envelope.Type {
	case event.Pong:
		conn.MarkAlive()
		return nil

	case event.JoinRoom:
		cmd, err := decode[domain.JoinRoomCommand](envelope.Payload)
		if err != nil {
			return err
		}
		ack, err := g.chat.JoinRoom(ctx, identity, cmd.RoomID)
		if err != nil {
			return err
		}
		return conn.Send(ctx, ack)

	case event.LeaveRoom:
		cmd, err := decode[domain.LeaveRoomCommand](envelope.Payload)
		if err != nil {
			return err
		}
		if err := g.chat.LeaveRoom(ctx, identity, cmd.RoomID); err != nil {
			return err
		}
		return conn.Send(ctx, event.RoomLeftEvent{RoomID: cmd.RoomID})

	case event.SendMessage:
		cmd, err := decode[domain.SendMessageCommand](envelope.Payload)
		if err != nil {
			return err
		}
		_, err = g.chat.SendMessage(ctx, identity, cmd.RoomID, cmd.Content)
		return err

	case event.Typing:
		cmd, err := decode[domain.TypingCommand](envelope.Payload)
		if err != nil {
			return err
		}
		return g.chat.Typing(ctx, identity, cmd.RoomID, cmd.IsTyping)

	case event.MarkMessagesRead:
		cmd, err := decode[domain.MarkReadCommand](envelope.Payload)
		if err != nil {
			return err
		}
		_, err = g.chat.MarkRead(ctx, identity, cmd.RoomID)
		return err

	case event.JoinShadowSession:
		cmd, err := decode[domain.JoinSessionCommand](envelope.Payload)
		if err != nil {
			return err
		}
		_, err = g.sessions.Join(ctx, identity, cmd.SessionID)
		return err

	case event.LeaveShadowSession:
		cmd, err := decode[domain.LeaveSessionCommand](envelope.Payload)
		if err != nil {
			return err
		}
		return g.sessions.Leave(ctx, identity, cmd.SessionID)

	case event.SessionMessageIn:
		cmd, err := decode[domain.SessionMessageCommand](envelope.Payload)
		if err != nil {
			return err
		}
		return g.sessions.SendMessage(ctx, identity, cmd.SessionID, cmd.Content)

	case event.MediaShared:
		cmd, err := decode[domain.MediaSharedCommand](envelope.Payload)
		if err != nil {
			return err
		}
		_, err = g.sessions.ShareMedia(ctx, identity, cmd.SessionID, cmd.MediaURL, cmd.MediaType)
		return err
	}
	return fmt.Errorf("%w: %q", errors.ErrUnknownEvent, envelope.Type)
}

// reject answers the originating socket only.
func (g *Gateway) reject(ctx context.Context, client *Client, err error) {
	g.counter.IncrFramesRejected()
	frame, encodeErr := event.Encode(event.ErrorEvent{Message: errors.ClientMessage(err)})
	if encodeErr != nil {
		g.log.Error("Failed to encode error event", "error", encodeErr)
		return
	}
	if sendErr := client.Send(ctx, frame); sendErr != nil {
		g.log.Debug("Failed to send error event", "addr", client.RemoteAddr(), "error", sendErr)
	}
}

func decode[T any](payload json.RawMessage) (T, error) {
	var cmd T
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return cmd, fmt.Errorf("%w: malformed payload", errors.ErrInvalidRequest)
	}
	if err := domain.Validate(cmd); err != nil {
		return cmd, err
	}
	return cmd, nil
}
