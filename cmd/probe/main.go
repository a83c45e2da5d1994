// Command probe is an interactive websocket client for a running server.
// Each stdin line is "<type> [json payload]", e.g. `join_room {"roomId":"r1"}`.
package main

import (
	"bufio"
	"chat-pulse/domain"
	"chat-pulse/domain/event"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	URL      string `envconfig:"PROBE_URL" default:"ws://localhost:8080/ws"`
	Identity string `envconfig:"PROBE_IDENTITY" required:"true"`
	Token    string `envconfig:"PROBE_TOKEN"`
	// PROBE_AUTO_PONG answers server pings so the connection is not evicted
	AutoPong bool `envconfig:"PROBE_AUTO_PONG" default:"true"`
	// PROBE_COLOURS enables colorized output for better readability
	Colours bool `envconfig:"PROBE_COLOURS" default:"true"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "probe: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return err
	}

	socket, _, err := websocket.DefaultDialer.Dial(cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", cfg.URL, err)
	}
	defer socket.Close()

	p := &printer{colours: cfg.Colours}
	outbound := make(chan []byte, 16)
	if err := send(outbound, event.Auth, domain.AuthCommand{Identity: domain.UserID(cfg.Identity), Token: cfg.Token}); err != nil {
		return err
	}

	go readLoop(socket, p, outbound, cfg.AutoPong)
	eof := make(chan struct{})
	go stdinLoop(p, outbound, eof)

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	for {
		select {
		case frame := <-outbound:
			if err := socket.WriteMessage(websocket.TextMessage, frame); err != nil {
				return err
			}
			p.sent(frame)
		case <-eof:
			drain(socket, p, outbound)
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			return socket.WriteMessage(websocket.CloseMessage, msg)
		case <-interrupt:
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			return socket.WriteMessage(websocket.CloseMessage, msg)
		}
	}
}

func readLoop(socket *websocket.Conn, p *printer, outbound chan<- []byte, autoPong bool) {
	for {
		_, frame, err := socket.ReadMessage()
		if err != nil {
			p.failure(err)
			os.Exit(0)
		}
		var envelope event.Envelope
		if err := json.Unmarshal(frame, &envelope); err != nil {
			p.failure(err)
			continue
		}
		p.received(envelope)
		if autoPong && envelope.Type == event.Ping {
			_ = send(outbound, event.Pong, struct{}{})
		}
	}
}

func stdinLoop(p *printer, outbound chan<- []byte, eof chan<- struct{}) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		eventType, payload, _ := strings.Cut(line, " ")
		if payload == "" {
			payload = "{}"
		}
		if !json.Valid([]byte(payload)) {
			p.failure(fmt.Errorf("payload is not valid json: %s", payload))
			continue
		}
		if err := send(outbound, event.Type(eventType), json.RawMessage(payload)); err != nil {
			p.failure(err)
		}
	}
	close(eof)
}

func send(outbound chan<- []byte, eventType event.Type, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(event.Envelope{Type: eventType, Payload: raw})
	if err != nil {
		return err
	}
	outbound <- frame
	return nil
}

type printer struct {
	colours bool
}

func (p *printer) render(style color.Style, s string) string {
	if !p.colours {
		return s
	}
	return style.Render(s)
}

func (p *printer) sent(frame []byte) {
	fmt.Println(p.render(color.New(color.FgGray), "> "+string(frame)))
}

func (p *printer) received(envelope event.Envelope) {
	style := color.New(color.FgGreen)
	switch envelope.Type {
	case event.Error:
		style = color.New(color.FgRed, color.OpBold)
	case event.Ping:
		style = color.New(color.FgGray)
	case event.FriendStatusChange, event.NewNotification:
		style = color.New(color.FgYellow)
	}
	fmt.Println(p.render(style, fmt.Sprintf("< %s %s", envelope.Type, string(envelope.Payload))))
}

func (p *printer) failure(err error) {
	fmt.Println(p.render(color.New(color.BgBlack, color.FgRed), "! "+err.Error()))
}

// drain writes the frames still queued when stdin ends.
func drain(socket *websocket.Conn, p *printer, outbound <-chan []byte) {
	for {
		select {
		case frame := <-outbound:
			if err := socket.WriteMessage(websocket.TextMessage, frame); err != nil {
				p.failure(err)
				return
			}
			p.sent(frame)
		default:
			return
		}
	}
}
