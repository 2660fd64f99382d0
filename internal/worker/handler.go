package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rafaelsava/S2Market/internal/domain"
	"github.com/rafaelsava/S2Market/internal/messaging"
)

const (
	newOrderTitle     = "¡Nueva orden recibida!"
	orderUpdatedTitle = "Orden actualizada"

	deliveredCacheSize = 4096
)

// Notification is the body accepted by the push service.
type Notification struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// NotificationHandler turns order changes into push notifications: sellers
// hear about new orders, buyers about status changes.
//
// A change whose delivery fails part way is redelivered by the consumer.
// Recipients already notified for that change are remembered and skipped, so
// only the remaining ones are retried. The memory is per process; after a
// restart a redelivered change may notify a recipient twice.
type NotificationHandler struct {
	pushServiceURL string
	httpClient     *http.Client
	delivered      *lru.Cache[string, struct{}]
	logger         *slog.Logger
}

func NewNotificationHandler(pushServiceURL string, client *http.Client, logger *slog.Logger) *NotificationHandler {
	delivered, err := lru.New[string, struct{}](deliveredCacheSize)
	if err != nil {
		panic(err)
	}

	return &NotificationHandler{
		pushServiceURL: pushServiceURL,
		httpClient:     client,
		delivered:      delivered,
		logger:         logger,
	}
}

func (h *NotificationHandler) Handle(ctx context.Context, payload []byte) error {
	var change domain.OrderChange
	if err := json.Unmarshal(payload, &change); err != nil {
		h.logger.Error("failed to decode order change", "error", err)
		return messaging.Permanent(fmt.Errorf("unmarshal order change: %w", err))
	}

	h.logger.Info("processing order change", "order_id", change.Order.ID, "type", change.Type)

	var notifications []Notification
	switch change.Type {
	case domain.ChangeAdded:
		notifications = sellerNotifications(change.Order)
	case domain.ChangeModified:
		notifications = []Notification{buyerNotification(change.Order)}
	default:
		h.logger.Warn("ignoring unknown change type", "type", change.Type, "order_id", change.Order.ID)
		return nil
	}

	for _, n := range notifications {
		key := deliveryKey(change, n.To)
		if h.delivered.Contains(key) {
			h.logger.Debug("skipping notified recipient", "order_id", change.Order.ID, "to", n.To)
			continue
		}
		if err := h.send(ctx, n); err != nil {
			h.logger.Error("failed to send notification", "error", err, "order_id", change.Order.ID, "to", n.To)
			return fmt.Errorf("notify %s: %w", n.To, err)
		}
		h.delivered.Add(key, struct{}{})
	}

	h.logger.Info("order change notified", "order_id", change.Order.ID, "notifications", len(notifications))
	return nil
}

func deliveryKey(change domain.OrderChange, to string) string {
	return fmt.Sprintf("%s|%s|%s|%d|%s", change.Order.ID, change.Type, change.Order.Status, change.Timestamp.UnixNano(), to)
}

func sellerNotifications(order domain.Order) []Notification {
	sellers := order.SellerIDs()
	out := make([]Notification, 0, len(sellers))
	for _, sellerID := range sellers {
		out = append(out, Notification{
			To:    sellerID,
			Title: newOrderTitle,
			Body:  fmt.Sprintf("Tienes %d nuevo(s) producto(s) vendidos.", len(order.ItemsForSeller(sellerID))),
			Data:  map[string]string{"order_id": order.ID},
		})
	}
	return out
}

func buyerNotification(order domain.Order) Notification {
	return Notification{
		To:    order.UserID,
		Title: orderUpdatedTitle,
		Body:  fmt.Sprintf("Tu pedido %s… ahora está %q", shortID(order.ID), order.Status),
		Data:  map[string]string{"order_id": order.ID},
	}
}

func shortID(id string) string {
	r := []rune(id)
	if len(r) > 6 {
		return string(r[:6])
	}
	return id
}

func (h *NotificationHandler) send(ctx context.Context, n Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.pushServiceURL+"/send", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("push service returned status %d", resp.StatusCode)
	}

	return nil
}
