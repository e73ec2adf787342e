package http

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"mentora-contest-service/internal/contest"
)

// WSHandler upgrades connections onto the session's persistent channel.
type WSHandler struct {
	svc      *contest.Service
	log      zerolog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(svc *contest.Service, log zerolog.Logger) *WSHandler {
	return &WSHandler{
		svc: svc,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS registers the participant's channel with the engine and pumps
// frames in both directions. The participant must have joined over REST
// first; an unknown uid is rejected right after the upgrade.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	sessionID, uid := vars["id"], vars["uid"]
	if sessionID == "" || uid == "" {
		http.Error(w, "missing session or participant id", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	// send is closed by the engine's registry (replacement, eviction, or
	// session teardown). errs is local to this connection for command
	// rejections, so the read loop never writes to a channel it does not own.
	send := make(chan contest.Envelope, 16)
	errs := make(chan contest.Envelope, 4)
	if err := h.svc.Connect(sessionID, uid, send); err != nil {
		_ = conn.WriteJSON(contest.Envelope{Type: contest.MsgError, Payload: contest.ErrorPayload{Detail: err.Error()}})
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		defer conn.Close() // unblock the read loop when the channel closes
		for {
			select {
			case msg, ok := <-send:
				if !ok {
					// Registration superseded or session gone.
					_ = conn.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
			case msg := <-errs:
				if err := conn.WriteJSON(msg); err != nil {
					return
				}
			}
		}
	}()

	for {
		var inbound contest.Inbound
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case contest.MsgSubmitAnswer:
			if err := h.svc.SubmitAnswer(sessionID, uid, inbound.Answer); err != nil {
				reject(errs, err.Error())
			}
		default:
			reject(errs, "unsupported message type")
		}
	}

	// The transport is gone; do leave-style bookkeeping right away so the
	// roster and the early-grading check see the disconnect. Unregistering
	// closes send, which unblocks the writer.
	h.svc.Disconnect(sessionID, uid, send)
	<-writerDone
}

func reject(errs chan contest.Envelope, detail string) {
	select {
	case errs <- contest.Envelope{Type: contest.MsgError, Payload: contest.ErrorPayload{Detail: detail}}:
	default:
	}
}
