package referral

const (
	TaskStatusChanged = "referral:status_changed"
)

// StatusChangedPayload carries a friend lifecycle event from the booking
// system. EventDate is optional; a zero value means "now".
type StatusChangedPayload struct {
	ClientID      string `json:"client_id"`
	FriendID      string `json:"friend_id"`
	Status        string `json:"status"`
	BookedService string `json:"booked_service,omitempty"`
	EventDate     string `json:"event_date,omitempty"`
	TraceID       string `json:"trace_id,omitempty"`
}
