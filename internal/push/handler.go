package push

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

const defaultOutboxSize = 100

// Notification is one accepted push message.
type Notification struct {
	To     string            `json:"to"`
	Title  string            `json:"title"`
	Body   string            `json:"body"`
	Data   map[string]string `json:"data,omitempty"`
	SentAt time.Time         `json:"sent_at"`
}

// Handler acknowledges push requests and keeps the most recent ones in a
// bounded outbox for inspection.
type Handler struct {
	logger *slog.Logger

	mu     sync.Mutex
	outbox []Notification
	size   int
}

func NewHandler(logger *slog.Logger) *Handler {
	return &Handler{
		logger: logger,
		size:   defaultOutboxSize,
	}
}

type sendRequest struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
}

type sendResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Title) == "" {
		h.writeError(w, http.StatusBadRequest, "to and title are required")
		return
	}

	h.record(Notification{
		To:     req.To,
		Title:  req.Title,
		Body:   req.Body,
		Data:   req.Data,
		SentAt: time.Now().UTC(),
	})

	h.logger.Info("push sent", "to", req.To, "title", req.Title)
	h.writeJSON(w, http.StatusOK, sendResponse{Status: "sent"})
}

// HandleList returns the outbox, newest first, optionally narrowed by ?to=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	to := r.URL.Query().Get("to")

	h.mu.Lock()
	out := make([]Notification, 0, len(h.outbox))
	for i := len(h.outbox) - 1; i >= 0; i-- {
		if to == "" || h.outbox[i].To == to {
			out = append(out, h.outbox[i])
		}
	}
	h.mu.Unlock()

	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) record(n Notification) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.outbox = append(h.outbox, n)
	if over := len(h.outbox) - h.size; over > 0 {
		h.outbox = append(h.outbox[:0], h.outbox[over:]...)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
