package e2e

import (
	"chat-pulse/auth"
	"chat-pulse/domain"
	"chat-pulse/domain/event"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/suite"
)

type BaseWsSuite struct {
	suite.Suite
	Config Config
}

// SetupSuite loads the environment configuration before running tests
func (s *BaseWsSuite) SetupSuite() {
	var err error
	s.Config, err = LoadConfig()
	s.Require().NoError(err)
	if s.Config.ServerURL == "" {
		s.T().Skip("E2E_SERVER_URL is not set")
	}
}

// Peer is one authenticated websocket client.
type Peer struct {
	suite    *BaseWsSuite
	Identity domain.UserID
	socket   *websocket.Conn
}

// Connect dials the server and authenticates identity.
func (s *BaseWsSuite) Connect(identity domain.UserID) *Peer {
	header := fmt.Sprintf("  ====== %s connects ======", identity)
	if s.Config.Colours {
		header = color.New(color.BgBlack, color.FgGreen).Render(header)
	}
	s.T().Log(header)

	socket, _, err := websocket.DefaultDialer.Dial(s.Config.ServerURL, nil)
	s.Require().NoError(err, "Failed to connect to "+s.Config.ServerURL)
	peer := &Peer{suite: s, Identity: identity, socket: socket}
	s.T().Cleanup(func() { _ = socket.Close() })

	token := ""
	if s.Config.JWTSecret != "" {
		token, err = auth.NewTokenVerifier(s.Config.JWTSecret).GenerateToken(identity, time.Hour)
		s.Require().NoError(err)
	}
	peer.Send(event.Auth, domain.AuthCommand{Identity: identity, Token: token})
	peer.Expect(event.AuthSuccess)
	return peer
}

func (p *Peer) Send(eventType event.Type, payload any) {
	raw, err := json.Marshal(payload)
	p.suite.Require().NoError(err)
	frame, err := json.Marshal(event.Envelope{Type: eventType, Payload: raw})
	p.suite.Require().NoError(err)
	p.log(">", frame)
	p.suite.Require().NoError(p.socket.WriteMessage(websocket.TextMessage, frame))
}

// Expect reads frames until one of eventType arrives, answering pings on the way.
func (p *Peer) Expect(eventType event.Type) json.RawMessage {
	p.suite.Require().NoError(p.socket.SetReadDeadline(time.Now().Add(5 * time.Second)))
	for {
		_, frame, err := p.socket.ReadMessage()
		p.suite.Require().NoError(err, "%s waiting for %s", p.Identity, eventType)
		p.log("<", frame)
		var envelope event.Envelope
		p.suite.Require().NoError(json.Unmarshal(frame, &envelope))
		if envelope.Type == eventType {
			return envelope.Payload
		}
		if envelope.Type == event.Ping {
			p.Send(event.Pong, struct{}{})
		}
	}
}

func (p *Peer) Close() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = p.socket.WriteMessage(websocket.CloseMessage, msg)
	_ = p.socket.Close()
}

func (p *Peer) log(direction string, frame []byte) {
	if !p.suite.Config.DebugJSON {
		return
	}
	line := fmt.Sprintf("%s %s %s", p.Identity, direction, string(frame))
	if p.suite.Config.Colours {
		line = color.New(color.FgGray).Render(line)
	}
	p.suite.T().Log(line)
}
