package orders

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rafaelsava/S2Market/internal/domain"
)

// Repository is the storage surface the handler depends on.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
	ListByBuyer(ctx context.Context, userID string, status domain.OrderStatus) ([]domain.Order, error)
	ListBySeller(ctx context.Context, sellerID string, status domain.OrderStatus) ([]domain.Order, error)
}

type Publisher interface {
	PublishChange(ctx context.Context, change domain.OrderChange) error
}

type Handler struct {
	repo      Repository
	publisher Publisher
	logger    *slog.Logger
}

// NewHandler accepts a nil publisher, in which case status changes are not
// announced.
func NewHandler(repo Repository, publisher Publisher, logger *slog.Logger) *Handler {
	return &Handler{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	status, err := domain.ParseOrderStatus(req.Status)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.repo.UpdateStatus(r.Context(), id, status)
	if err != nil {
		h.logger.Error("failed to update order status", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	if h.publisher != nil {
		change := domain.OrderChange{
			Type:      domain.ChangeModified,
			Order:     *order,
			Timestamp: time.Now().UTC(),
		}
		if err := h.publisher.PublishChange(r.Context(), change); err != nil {
			h.logger.Error("failed to publish order change", "error", err, "order_id", order.ID)
		}
	}

	h.logger.Info("order status updated", "order_id", order.ID, "status", order.Status)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleListByBuyer(w http.ResponseWriter, r *http.Request) {
	h.handleList(w, r, "userId", h.repo.ListByBuyer)
}

func (h *Handler) HandleListBySeller(w http.ResponseWriter, r *http.Request) {
	h.handleList(w, r, "sellerId", h.repo.ListBySeller)
}

type listFunc func(ctx context.Context, ownerID string, status domain.OrderStatus) ([]domain.Order, error)

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request, param string, list listFunc) {
	ownerID := r.PathValue(param)
	if ownerID == "" {
		h.writeError(w, http.StatusBadRequest, "missing "+param)
		return
	}

	var status domain.OrderStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		parsed, err := domain.ParseOrderStatus(raw)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		status = parsed
	}

	orders, err := list(r.Context(), ownerID, status)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err, param, ownerID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if orders == nil {
		orders = []domain.Order{}
	}

	h.logger.Info("orders listed", param, ownerID, "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
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
