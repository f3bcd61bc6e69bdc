package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"ai-interview-service/internal/app"
	"ai-interview-service/internal/domain"
	"github.com/gorilla/websocket"
)

// WSHandler wires the interview session onto a websocket: inbound commands
// drive the controller, and every store mutation is pushed back out as a
// session snapshot.
type WSHandler struct {
	store      *app.SessionStore
	controller *app.Controller
	upgrader   websocket.Upgrader
}

func NewWSHandler(store *app.SessionStore, controller *app.Controller) *WSHandler {
	return &WSHandler{
		store:      store,
		controller: controller,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	Text string `json:"text"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and runs the session loop. The candidateId
// query parameter selects (and activates) the candidate for this connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	candidateID := r.URL.Query().Get("candidateId")
	if candidateID == "" {
		http.Error(w, "missing candidateId", http.StatusBadRequest)
		return
	}
	if err := h.store.SetActiveCandidate(candidateID); err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.store.Subscribe()
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer goroutine; gorilla connections do not allow concurrent writes.
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
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "session", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if err := h.dispatch(r, candidateID, inbound, send); err != nil {
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, candidateID string, inbound inboundMessage, send chan outboundMessage[any]) error {
	switch inbound.Type {
	case "start":
		return h.controller.Start(r.Context())
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errors.New("invalid answer payload")
		}
		if err := h.controller.SubmitAnswer(r.Context(), payload.Text); err != nil {
			return err
		}
		if candidate, ok := h.store.Candidate(candidateID); ok && candidate.Status == domain.StatusCompleted {
			send <- outboundMessage[any]{Type: "completed", Payload: candidate}
		}
		return nil
	case "pause":
		return h.controller.Pause()
	case "resume":
		return h.controller.Resume()
	case "retry":
		return h.controller.RetryNextQuestion(r.Context())
	case "dismiss":
		h.controller.DismissWelcomeBack()
		return nil
	default:
		return errors.New("unsupported message type")
	}
}
