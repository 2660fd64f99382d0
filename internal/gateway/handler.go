package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rafaelsava/S2Market/internal/telemetry"
)

// APIPrefix is stripped before a request is forwarded upstream.
const APIPrefix = "/api"

type Handler struct {
	catalogProxy *ServiceProxy
	ordersProxy  *ServiceProxy
	logger       *slog.Logger
}

func NewHandler(catalogProxy, ordersProxy *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		catalogProxy: catalogProxy,
		ordersProxy:  ordersProxy,
		logger:       logger,
	}
}

// Register mounts the public API. Products and favorites go to the catalog
// service; carts and orders go to the orders service.
func (h *Handler) Register(mux *http.ServeMux) {
	catalogRoutes := []string{
		"GET /api/products",
		"POST /api/products",
		"GET /api/products/{id}",
		"PATCH /api/products/{id}",
		"DELETE /api/products/{id}",
		"GET /api/products/{id}/reviews",
		"POST /api/products/{id}/reviews",
		"GET /api/users/{userId}/favorites",
		"GET /api/users/{userId}/favorites/{productId}",
		"PUT /api/users/{userId}/favorites/{productId}",
		"DELETE /api/users/{userId}/favorites/{productId}",
		"POST /api/users/{userId}/favorites/{productId}/toggle",
	}
	for _, pattern := range catalogRoutes {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(h.HandleCatalog))
	}

	ordersRoutes := []string{
		"GET /api/users/{userId}/cart",
		"DELETE /api/users/{userId}/cart",
		"POST /api/users/{userId}/cart/items",
		"POST /api/users/{userId}/cart/items/{productId}/increment",
		"POST /api/users/{userId}/cart/items/{productId}/decrement",
		"DELETE /api/users/{userId}/cart/items/{productId}",
		"POST /api/users/{userId}/cart/checkout",
		"DELETE /api/users/{userId}/session",
		"GET /api/users/{userId}/orders",
		"GET /api/sellers/{sellerId}/orders",
		"GET /api/orders/{id}",
		"PATCH /api/orders/{id}/status",
	}
	for _, pattern := range ordersRoutes {
		mux.HandleFunc(pattern, telemetry.WithHTTPRoute(h.HandleOrders))
	}
}

func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.catalogProxy, upstreamPath(r.URL.Path))
}

func (h *Handler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.ordersProxy, upstreamPath(r.URL.Path))
}

func upstreamPath(path string) string {
	if p := strings.TrimPrefix(path, APIPrefix); p != "" {
		return p
	}
	return "/"
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, proxy *ServiceProxy, path string) {
	resp, err := proxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "path", path)
		h.writeError(w, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}
