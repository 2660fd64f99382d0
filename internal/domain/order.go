package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pendiente"
	OrderStatusInTransit OrderStatus = "en camino"
	OrderStatusDelivered OrderStatus = "entregado"
)

var orderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusInTransit,
	OrderStatusDelivered,
}

// ParseOrderStatus accepts any value of the enumeration. It does not check
// that the value is a forward transition from a previous status.
func ParseOrderStatus(s string) (OrderStatus, error) {
	for _, st := range orderStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", &DecodeError{Field: "status", Value: s}
}

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "Efectivo"
	PaymentNequi  PaymentMethod = "Nequi"
	PaymentLlaves PaymentMethod = "Llaves"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case PaymentCash, PaymentNequi, PaymentLlaves:
		return PaymentMethod(s), nil
	}
	return "", &DecodeError{Field: "payment_method", Value: s}
}

type MeetingPoint string

// MeetingPoints lists the campus locations where buyer and seller meet.
var MeetingPoints = []MeetingPoint{
	"Edificio K",
	"Ad Portas",
	"Villa de Leyva",
	"Edificio G",
	"Edificio D",
	"Edificio O",
	"Biblioteca",
	"Edificio Atelier",
	"Edificio H",
	"Anfiteatro",
	"CAF",
	"Meson",
	"Edificio A",
	"Edificio B",
	"Edificio C",
}

func ParseMeetingPoint(s string) (MeetingPoint, error) {
	for _, mp := range MeetingPoints {
		if string(mp) == s {
			return mp, nil
		}
	}
	return "", &DecodeError{Field: "meeting_point", Value: s}
}

type OrderItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	SellerID  string `json:"seller_id"`
}

type Order struct {
	ID            string        `json:"id"`
	UserID        string        `json:"user_id"`
	Items         []OrderItem   `json:"items"`
	MeetingPoint  MeetingPoint  `json:"meeting_point"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Status        OrderStatus   `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}

// ItemsForSeller returns the items of o owned by sellerID, in order.
func (o *Order) ItemsForSeller(sellerID string) []OrderItem {
	var items []OrderItem
	for _, it := range o.Items {
		if it.SellerID == sellerID {
			items = append(items, it)
		}
	}
	return items
}

// SellerIDs returns the distinct sellers of o in first-seen order.
func (o *Order) SellerIDs() []string {
	seen := make(map[string]struct{}, len(o.Items))
	var ids []string
	for _, it := range o.Items {
		if _, ok := seen[it.SellerID]; ok {
			continue
		}
		seen[it.SellerID] = struct{}{}
		ids = append(ids, it.SellerID)
	}
	return ids
}
