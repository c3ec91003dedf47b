package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/easeaico/utbot/internal/chatbot"
)

const (
	wsReadTimeout  = 120 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// Socket message types.
const (
	typeUserMessage = "user_message"
	typeReset       = "reset"
	typeDelta       = "delta"
	typeReply       = "reply"
	typeError       = "error"
)

type clientMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type serverMessage struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Failed bool   `json:"failed,omitempty"`
	Code   string `json:"code,omitempty"`
}

// handleBotWS streams replies chunk by chunk. Turns run on the read loop,
// so writes never overlap.
func (s *Server) handleBotWS(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.opts.Bots.Do(id, func(*chatbot.Bot) error { return nil }); errors.Is(err, chatbot.ErrNotFound) {
		respondBotError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	write := func(msg serverMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(msg); err != nil {
			cancel()
			return err
		}
		s.metrics.WSMessages.WithLabelValues("outbound", msg.Type).Inc()
		return nil
	}

	conn.SetReadLimit(1 << 20)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		if msgType != websocket.TextMessage {
			continue
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			if write(serverMessage{Type: typeError, Code: "invalid_client_message", Text: err.Error()}) != nil {
				return
			}
			continue
		}
		s.metrics.WSMessages.WithLabelValues("inbound", msg.Type).Inc()

		if err := s.handleSocketMessage(ctx, id, msg, write); err != nil {
			code := "internal"
			switch {
			case errors.Is(err, chatbot.ErrNotFound):
				code = "bot_not_found"
			case errors.Is(err, chatbot.ErrBusy):
				code = "bot_busy"
			case errors.Is(err, errUnknownType):
				code = "unknown_type"
			}
			if write(serverMessage{Type: typeError, Code: code, Text: err.Error()}) != nil {
				return
			}
			if code == "bot_not_found" {
				return
			}
		}
	}
}

var errUnknownType = errors.New("unknown message type")

func (s *Server) handleSocketMessage(ctx context.Context, id string, msg clientMessage, write func(serverMessage) error) error {
	switch msg.Type {
	case typeReset:
		return s.opts.Bots.Do(id, func(b *chatbot.Bot) error {
			b.Reset()
			return write(serverMessage{Type: typeReset})
		})
	case typeUserMessage:
		if strings.TrimSpace(msg.Text) == "" {
			return errors.New("text is required")
		}
		return s.opts.Bots.Do(id, func(b *chatbot.Bot) error {
			text, err := b.GenerateResponseStream(ctx, msg.Text, func(delta string) {
				_ = write(serverMessage{Type: typeDelta, Text: delta})
			})
			failed := errors.Is(err, chatbot.ErrLLMFailure)
			if err = ignoreFailure(err); err != nil {
				return err
			}
			return write(serverMessage{Type: typeReply, Text: text, Failed: failed})
		})
	default:
		return errUnknownType
	}
}
