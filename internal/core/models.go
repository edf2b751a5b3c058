package core

import "time"

type EventType string

const (
	EventMessageCreated      EventType = "message.created"
	EventMessageRead         EventType = "message.read"
	EventMessageAck          EventType = "message.ack"
	EventReservationGranted  EventType = "reservation.granted"
	EventReservationReleased EventType = "reservation.released"
)

// Importance levels for messages.
const (
	ImportanceNormal = "normal"
	ImportanceUrgent = "urgent"
)

// DefaultKind is the message kind when the caller does not set one.
const DefaultKind = "message"

// Project groups agents, messages and reservations under a caller-supplied
// human key. Slug is a derived, display-only projection of the key.
type Project struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	HumanKey  string    `json:"human_key"`
	CreatedAt time.Time `json:"created_at"`
}

// Agent is a registered participant. (Name, ProjectID) is unique; agents are
// never deleted, re-registration refreshes LastActiveAt.
type Agent struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Program         string    `json:"program"`
	Model           string    `json:"model"`
	TaskDescription string    `json:"task_description,omitempty"`
	InceptionAt     time.Time `json:"inception_ts"`
	LastActiveAt    time.Time `json:"last_active_ts"`
	ProjectID       string    `json:"project_id"`
}

// Message is immutable after creation. Recipients are tracked per-agent in
// Delivery records, not on the message itself.
type Message struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	SenderID    string    `json:"sender_id"`
	SenderName  string    `json:"from,omitempty"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body_md,omitempty"`
	ThreadID    string    `json:"thread_id,omitempty"`
	Importance  string    `json:"importance"`
	AckRequired bool      `json:"ack_required"`
	Kind        string    `json:"kind"`
	CreatedAt   time.Time `json:"created_ts"`
}

// Delivery is the per-recipient state of a message. ReadAt/AckedAt start
// unset and only ever move forward in time.
type Delivery struct {
	MessageID string     `json:"message_id"`
	AgentID   string     `json:"agent_id"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	AckedAt   *time.Time `json:"acked_at,omitempty"`
}

// Reservation is a file-path lease. It exists from grant until explicit
// release or lazy expiry; there is no renewal, holders re-request to extend.
type Reservation struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	AgentID     string    `json:"agent_id"`
	PathPattern string    `json:"path_pattern"`
	Exclusive   bool      `json:"exclusive"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_ts"`
	ExpiresAt   time.Time `json:"expires_ts"`
}

// Live reports whether the reservation has not expired as of now.
func (r Reservation) Live(now time.Time) bool {
	return r.ExpiresAt.After(now)
}

// PathConflict reports the holders blocking one requested path.
type PathConflict struct {
	Path    string   `json:"path"`
	Holders []string `json:"holders"`
}

// ThreadSummary aggregates a message thread: participant names (set
// semantics), the first five subjects in thread order, subjects of all
// urgent messages, and optionally the first three full messages.
type ThreadSummary struct {
	ThreadID      string    `json:"thread_id"`
	Participants  []string  `json:"participants"`
	KeyPoints     []string  `json:"key_points"`
	ActionItems   []string  `json:"action_items"`
	TotalMessages int       `json:"total_messages"`
	Examples      []Message `json:"examples,omitempty"`
}
