package favorites

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rafaelsava/S2Market/internal/domain"
	"github.com/rafaelsava/S2Market/internal/telemetry"
)

type Store interface {
	Add(ctx context.Context, userID, productID string) error
	Remove(ctx context.Context, userID, productID string) (bool, error)
	Toggle(ctx context.Context, userID, productID string) (bool, error)
	Contains(ctx context.Context, userID, productID string) (bool, error)
	List(ctx context.Context, userID string) ([]domain.Product, error)
}

type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	routes := map[string]http.HandlerFunc{
		"GET /users/{userId}/favorites":                     h.HandleList,
		"GET /users/{userId}/favorites/{productId}":         h.HandleGet,
		"PUT /users/{userId}/favorites/{productId}":         h.HandleAdd,
		"DELETE /users/{userId}/favorites/{productId}":      h.HandleRemove,
		"POST /users/{userId}/favorites/{productId}/toggle": h.HandleToggle,
	}
	for pattern, fn := range routes {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(fn))
	}
}

type favoriteResponse struct {
	ProductID string `json:"product_id"`
	Favorite  bool   `json:"favorite"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return
	}

	products, err := h.store.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list favorites", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if products == nil {
		products = []domain.Product{}
	}

	h.writeJSON(w, http.StatusOK, products)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "check favorite", func(ctx context.Context, userID, productID string) (bool, error) {
		return h.store.Contains(ctx, userID, productID)
	})
}

func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "add favorite", func(ctx context.Context, userID, productID string) (bool, error) {
		return true, h.store.Add(ctx, userID, productID)
	})
}

func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "remove favorite", func(ctx context.Context, userID, productID string) (bool, error) {
		_, err := h.store.Remove(ctx, userID, productID)
		return false, err
	})
}

func (h *Handler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	h.handle(w, r, "toggle favorite", h.store.Toggle)
}

func (h *Handler) handle(w http.ResponseWriter, r *http.Request, action string, op func(ctx context.Context, userID, productID string) (bool, error)) {
	userID, productID := r.PathValue("userId"), r.PathValue("productId")
	if userID == "" || productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user or product id")
		return
	}

	favorite, err := op(r.Context(), userID, productID)
	if errors.Is(err, ErrProductNotFound) {
		h.writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to "+action, "error", err, "user_id", userID, "product_id", productID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, favoriteResponse{ProductID: productID, Favorite: favorite})
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
