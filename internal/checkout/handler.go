package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/rafaelsava/S2Market/internal/cart"
	"github.com/rafaelsava/S2Market/internal/currency"
	"github.com/rafaelsava/S2Market/internal/domain"
	"github.com/rafaelsava/S2Market/internal/telemetry"
)

// Handler serves the buyer's cart and the checkout action on top of the
// session registry.
type Handler struct {
	service  *Service
	sessions *cart.Sessions
	rates    RateProvider
	logger   *slog.Logger
}

// RateProvider converts from COP, the currency prices are stored in.
type RateProvider interface {
	Rate(ctx context.Context, code currency.Code) (float64, error)
}

type HandlerOption func(*Handler)

// WithRates enables ?currency= on the cart view.
func WithRates(rates RateProvider) HandlerOption {
	return func(h *Handler) {
		h.rates = rates
	}
}

func NewHandler(service *Service, sessions *cart.Sessions, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		service:  service,
		sessions: sessions,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the cart routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	routes := map[string]http.HandlerFunc{
		"GET /users/{userId}/cart":                              h.HandleGetCart,
		"POST /users/{userId}/cart/items":                       h.HandleAddItem,
		"POST /users/{userId}/cart/items/{productId}/increment": h.HandleIncrement,
		"POST /users/{userId}/cart/items/{productId}/decrement": h.HandleDecrement,
		"DELETE /users/{userId}/cart/items/{productId}":         h.HandleRemoveItem,
		"DELETE /users/{userId}/cart":                           h.HandleClear,
		"POST /users/{userId}/cart/checkout":                    h.HandleCheckout,
		"DELETE /users/{userId}/session":                        h.HandleEndSession,
	}
	for pattern, fn := range routes {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(fn))
	}
}

type cartResponse struct {
	Lines     []domain.CartLine `json:"lines"`
	Quote     *Quote            `json:"quote,omitempty"`
	Converted *ConvertedQuote   `json:"converted,omitempty"`
}

// ConvertedQuote restates the quote totals in a display currency.
type ConvertedQuote struct {
	Currency currency.Code `json:"currency"`
	Rate     float64       `json:"rate"`
	Subtotal float64       `json:"subtotal"`
	Taxes    float64       `json:"taxes"`
	Total    float64       `json:"total"`
}

func (h *Handler) HandleGetCart(w http.ResponseWriter, r *http.Request) {
	code, err := currency.Parse(r.URL.Query().Get("currency"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	store, ok := h.open(w, r)
	if !ok {
		return
	}

	quote, err := h.service.Quote(r.Context(), store)
	if err != nil {
		h.logger.Error("failed to quote cart", "error", err, "user_id", r.PathValue("userId"))
		h.writeError(w, http.StatusBadGateway, "catalog unavailable")
		return
	}

	resp := cartResponse{Lines: store.Lines(), Quote: &quote}
	if code != currency.COP {
		resp.Converted = h.convert(r.Context(), quote, code)
	}

	h.writeJSON(w, http.StatusOK, resp)
}

// convert returns nil when no rate can be had; the COP quote is still served.
func (h *Handler) convert(ctx context.Context, quote Quote, code currency.Code) *ConvertedQuote {
	if h.rates == nil {
		return nil
	}

	rate, err := h.rates.Rate(ctx, code)
	if err != nil {
		h.logger.Warn("failed to get exchange rate", "error", err, "currency", code)
		return nil
	}

	return &ConvertedQuote{
		Currency: code,
		Rate:     rate,
		Subtotal: currency.Convert(quote.Subtotal, rate),
		Taxes:    currency.Convert(quote.Taxes, rate),
		Total:    currency.Convert(quote.Total, rate),
	}
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ProductID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product_id")
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	store, ok := h.open(w, r)
	if !ok {
		return
	}

	if err := store.Add(req.ProductID, quantity); err != nil {
		h.writeCheckoutError(w, err, r.PathValue("userId"))
		return
	}

	h.writeLines(w, store)
}

func (h *Handler) HandleIncrement(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, (*cart.Store).Increment)
}

func (h *Handler) HandleDecrement(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, (*cart.Store).Decrement)
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, (*cart.Store).Remove)
}

func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	store, ok := h.open(w, r)
	if !ok {
		return
	}
	store.Clear()
	h.writeLines(w, store)
}

type checkoutRequest struct {
	MeetingPoint  string `json:"meeting_point"`
	PaymentMethod string `json:"payment_method"`
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	store, ok := h.open(w, r)
	if !ok {
		return
	}

	userID := r.PathValue("userId")
	order, err := h.service.PlaceOrder(r.Context(), store, userID,
		domain.MeetingPoint(req.MeetingPoint), domain.PaymentMethod(req.PaymentMethod))
	if err != nil {
		h.writeCheckoutError(w, err, userID)
		return
	}

	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleEndSession(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return
	}
	h.sessions.Close(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, op func(*cart.Store, string)) {
	productID := r.PathValue("productId")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	store, ok := h.open(w, r)
	if !ok {
		return
	}

	op(store, productID)
	h.writeLines(w, store)
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) (*cart.Store, bool) {
	userID := r.PathValue("userId")
	if userID == "" {
		h.writeError(w, http.StatusBadRequest, "missing user id")
		return nil, false
	}

	store, err := h.sessions.Open(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to open cart session", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}

	return store, true
}

func (h *Handler) writeLines(w http.ResponseWriter, store *cart.Store) {
	h.writeJSON(w, http.StatusOK, cartResponse{Lines: store.Lines()})
}

func (h *Handler) writeCheckoutError(w http.ResponseWriter, err error, userID string) {
	var (
		decodeErr     *domain.DecodeError
		resolutionErr *ProductResolutionError
		persistErr    *PersistenceError
	)

	switch {
	case errors.Is(err, ErrMissingUser):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, cart.ErrInvalidQuantity):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &decodeErr):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrEmptyCart):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &resolutionErr):
		h.logger.Warn("product resolution failed", "error", err, "user_id", userID, "product_id", resolutionErr.ProductID)
		h.writeError(w, http.StatusConflict, "product "+resolutionErr.ProductID+" is unavailable")
	case errors.As(err, &persistErr):
		h.logger.Error("failed to persist order", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	default:
		h.logger.Error("checkout failed", "error", err, "user_id", userID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
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
