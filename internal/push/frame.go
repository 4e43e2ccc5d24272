package push

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Engine.IO v4 packet types.
const (
	engineOpen    = '0'
	engineClose   = '1'
	enginePing    = '2'
	enginePong    = '3'
	engineMessage = '4'
	engineNoop    = '6'
)

// Socket.IO v5 packet types, carried inside an engine message.
const (
	socketConnect      = '0'
	socketDisconnect   = '1'
	socketEvent        = '2'
	socketAck          = '3'
	socketConnectError = '4'
)

type handshake struct {
	SID          string `json:"sid"`
	PingInterval int    `json:"pingInterval"`
	PingTimeout  int    `json:"pingTimeout"`
}

type frame struct {
	engine    byte
	socket    byte
	namespace string
	event     string
	payload   json.RawMessage
	raw       string
}

var errEmptyFrame = errors.New("empty frame")

// decodeFrame parses one websocket text message. Only the default namespace
// is used by the backend; other namespaces are surfaced so the caller can
// drop them.
func decodeFrame(data []byte) (frame, error) {
	text := string(data)
	if text == "" {
		return frame{}, errEmptyFrame
	}
	f := frame{engine: text[0], raw: text[1:]}
	if f.engine != engineMessage {
		return f, nil
	}

	rest := text[1:]
	if rest == "" {
		return frame{}, fmt.Errorf("message frame without socket packet")
	}
	f.socket = rest[0]
	rest = rest[1:]

	if strings.HasPrefix(rest, "/") {
		ns := rest
		if idx := strings.IndexByte(rest, ','); idx >= 0 {
			ns = rest[:idx]
			rest = rest[idx+1:]
		} else {
			rest = ""
		}
		f.namespace = ns
	}

	// Skip an ack id if present.
	i := 0
	for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
		i++
	}
	rest = rest[i:]

	switch f.socket {
	case socketEvent, socketAck:
		if rest == "" {
			return frame{}, fmt.Errorf("event packet without payload")
		}
		var parts []json.RawMessage
		if err := json.Unmarshal([]byte(rest), &parts); err != nil {
			return frame{}, fmt.Errorf("decode event payload: %w", err)
		}
		if f.socket == socketEvent {
			if len(parts) == 0 {
				return frame{}, fmt.Errorf("event packet without name")
			}
			if err := json.Unmarshal(parts[0], &f.event); err != nil {
				return frame{}, fmt.Errorf("decode event name: %w", err)
			}
			parts = parts[1:]
		}
		if len(parts) > 0 {
			f.payload = parts[0]
		}
	case socketConnect, socketConnectError:
		if rest != "" {
			f.payload = json.RawMessage(rest)
		}
	}
	return f, nil
}

func connectPacket() []byte {
	return []byte{engineMessage, socketConnect}
}

func pongPacket() []byte {
	return []byte{enginePong}
}

// connectErrorMessage extracts the reason from a CONNECT_ERROR payload.
func connectErrorMessage(payload json.RawMessage) string {
	if len(payload) == 0 {
		return "connection refused"
	}
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err == nil && body.Message != "" {
		return body.Message
	}
	return strings.Trim(string(payload), `"`)
}
