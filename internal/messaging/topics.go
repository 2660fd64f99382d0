package messaging

const (
	// OrderChangesTopic carries domain.OrderChange events keyed by order ID.
	OrderChangesTopic = "order.changes"

	// NotifierGroup is the consumer group of the notification worker.
	NotifierGroup = "order-notifier"
)
