package events

// Topic constants for domain events emitted by the pricing service.
const (
	TopicOrderCreated = "order.created"
)
