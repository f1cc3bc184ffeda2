package events

import "context"

// Event types
const (
	EventContractSent     = "contract_sent"
	EventPaymentReceived  = "payment_received"
	EventWorkSubmitted    = "work_submitted"
	EventContractReleased = "contract_released"
	EventDisputeResolved  = "dispute_resolved"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
