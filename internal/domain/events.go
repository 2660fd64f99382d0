package domain

import "time"

type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeModified ChangeType = "modified"
)

// OrderChange is the delta published for every created or updated order.
type OrderChange struct {
	Type      ChangeType `json:"type"`
	Order     Order      `json:"order"`
	Timestamp time.Time  `json:"timestamp"`
}
