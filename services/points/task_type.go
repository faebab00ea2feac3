package points

const (
	TaskServiceCompleted = "points:service_completed"
	TaskEngagement       = "points:engagement"
)

// ServiceCompletedPayload is the booking system's service-completion fact.
// ReferenceID is the booking identifier and doubles as the ledger
// idempotency key, so webhook redelivery cannot double-accrue.
type ServiceCompletedPayload struct {
	ClientID          string `json:"client_id"`
	ServiceName       string `json:"service_name"`
	ServicePriceCents int64  `json:"service_price_cents"`
	ReferenceID       string `json:"reference_id"`
	TraceID           string `json:"trace_id,omitempty"`
}

type EngagementPayload struct {
	ClientID    string `json:"client_id"`
	Category    string `json:"category"`
	ReferenceID string `json:"reference_id"`
	TraceID     string `json:"trace_id,omitempty"`
}
