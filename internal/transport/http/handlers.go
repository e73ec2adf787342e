package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"mentora-contest-service/internal/contest"
	"mentora-contest-service/internal/domain"
)

// Handler exposes the contest command surface over REST plus the websocket
// endpoint for the live channel.
type Handler struct {
	svc *contest.Service
	ws  *WSHandler
	log zerolog.Logger
}

func NewHandler(svc *contest.Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, ws: NewWSHandler(svc, log), log: log}
}

// Router builds the full route table.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	s := r.PathPrefix("/mcq/session").Subrouter()
	s.HandleFunc("/create", h.createSession).Methods(http.MethodPost)
	s.HandleFunc("/{id}/join", h.join).Methods(http.MethodPost)
	s.HandleFunc("/{id}/leave", h.leave).Methods(http.MethodPost)
	s.HandleFunc("/{id}/toggle-role/{uid}", h.toggleRole).Methods(http.MethodPost)
	s.HandleFunc("/{id}/update-config", h.updateConfig).Methods(http.MethodPost)
	s.HandleFunc("/{id}/start", h.start).Methods(http.MethodPost)
	s.HandleFunc("/{id}/cancel", h.cancel).Methods(http.MethodPost)

	r.HandleFunc("/mcq/ws/{id}/{uid}", h.ws.ServeWS).Methods(http.MethodGet)
	return r
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	var req struct {
		DocumentID  string `json:"documentId"`
		PlayerLimit int    `json:"playerLimit"`
		MCQCount    int    `json:"mcqCount"`
		QuestionTime int   `json:"questionTime"`
	}
	if !decode(w, r, &req) {
		return
	}
	id, err := h.svc.CreateSession(req.DocumentID, domain.SessionConfig{
		PlayerLimit:         req.PlayerLimit,
		MCQCount:            req.MCQCount,
		QuestionTimeSeconds: req.QuestionTime,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"sessionId": id})
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string      `json:"name"`
		Role domain.Role `json:"role"`
		UID  string      `json:"uid"`
	}
	if !decode(w, r, &req) {
		return
	}
	p, err := h.svc.Join(mux.Vars(r)["id"], req.UID, req.Name, req.Role)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":   p.ID,
		"name": p.Name,
		"role": p.Role,
	})
}

func (h *Handler) leave(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UID string `json:"uid"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.Leave(mux.Vars(r)["id"], req.UID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) toggleRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UID string `json:"uid"` // acting admin
	}
	if !decode(w, r, &req) {
		return
	}
	vars := mux.Vars(r)
	p, err := h.svc.ToggleRole(vars["id"], req.UID, vars["uid"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":    p.ID,
		"name":  p.Name,
		"role":  p.Role,
		"score": p.Score,
	})
}

func (h *Handler) updateConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UID          string `json:"uid"`
		PlayerLimit  *int   `json:"playerLimit"`
		MCQCount     *int   `json:"mcqCount"`
		QuestionTime *int   `json:"questionTime"`
	}
	if !decode(w, r, &req) {
		return
	}
	cfg, err := h.svc.UpdateConfig(mux.Vars(r)["id"], req.UID, contest.ConfigPatch{
		PlayerLimit:         req.PlayerLimit,
		MCQCount:            req.MCQCount,
		QuestionTimeSeconds: req.QuestionTime,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"newLimit": cfg.PlayerLimit})
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UID string `json:"uid"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.Start(r.Context(), mux.Vars(r)["id"], req.UID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UID string `json:"uid"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.svc.Cancel(mux.Vars(r)["id"], req.UID); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid request body"})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy to HTTP status classes.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInsufficientQuestions):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRoleForbidden):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrParticipantNotFound),
		errors.Is(err, domain.ErrQuestionBankNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidPhase),
		errors.Is(err, domain.ErrCapacityExceeded),
		errors.Is(err, domain.ErrAlreadyAnswered):
		status = http.StatusConflict
	default:
		h.log.Error().Err(err).Msg("command failed")
	}
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}
