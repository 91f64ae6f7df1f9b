package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"mockprep-service/internal/app"
	"mockprep-service/internal/domain"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type answerPayload struct {
	Text string `json:"text"`
}

type togglePayload struct {
	Enabled bool `json:"enabled"`
}

// ServeInterviewWS upgrades the connection and binds it to a fresh interview
// session. Closing the socket tears the session down, releasing any active
// speech playback or capture.
func (h *Handler) ServeInterviewWS(w http.ResponseWriter, r *http.Request) {
	if h.auth != nil {
		if _, _, err := h.auth.Verify(r.URL.Query().Get("token")); err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	session := h.service.CreateInterview()
	defer h.service.CloseInterview(session.ID())

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case ev, ok := <-session.Events():
				if !ok {
					return
				}
				var msg outboundMessage[any]
				if ev.Kind == "transcript" {
					msg = outboundMessage[any]{Type: "transcript", Payload: answerPayload{Text: ev.Transcript}}
				} else {
					msg = outboundMessage[any]{Type: "session", Payload: session.Snapshot()}
				}
				select {
				case send <- msg:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "session", Payload: session.Snapshot()}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if msg, ok := h.dispatchInterview(r, session, inbound); ok {
			send <- msg
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

// dispatchInterview applies one client message to the session and returns an
// optional immediate reply.
func (h *Handler) dispatchInterview(r *http.Request, session *app.InterviewSession, inbound inboundMessage) (outboundMessage[any], bool) {
	fail := func(msg string) (outboundMessage[any], bool) {
		return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}, true
	}
	snapshot := func() (outboundMessage[any], bool) {
		return outboundMessage[any]{Type: "session", Payload: session.Snapshot()}, true
	}

	switch inbound.Type {
	case "generate":
		var cfg domain.InterviewConfig
		if err := json.Unmarshal(inbound.Payload, &cfg); err != nil {
			return fail("invalid generate payload")
		}
		if err := session.Generate(r.Context(), cfg); err != nil {
			return fail("failed to generate questions: " + err.Error())
		}
		return snapshot()

	case "start":
		if err := session.Start(); err != nil {
			return fail(err.Error())
		}
		return snapshot()

	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return fail("invalid answer payload")
		}
		err := session.SubmitAnswer(r.Context(), payload.Text)
		if errors.Is(err, domain.ErrEmptyAnswer) {
			// Silent no-op: the session stays in listening.
			return outboundMessage[any]{}, false
		}
		if err != nil {
			return fail("failed to evaluate answer: " + err.Error())
		}
		return snapshot()

	case "mic":
		var payload togglePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return fail("invalid mic payload")
		}
		if payload.Enabled {
			if err := session.StartCapture(r.Context()); err != nil {
				return fail(err.Error())
			}
		} else {
			session.StopCapture()
		}
		return snapshot()

	case "voice":
		var payload togglePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return fail("invalid voice payload")
		}
		session.SetVoiceEnabled(payload.Enabled)
		return snapshot()

	case "next":
		if err := session.Advance(); err != nil {
			return fail(err.Error())
		}
		return snapshot()

	case "reset":
		session.Reset()
		return snapshot()

	default:
		return fail("unsupported message type")
	}
}
