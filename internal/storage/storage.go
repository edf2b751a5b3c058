// Package storage defines the transactional store contract the coordinator
// depends on. The coordinator never touches a concrete database; every
// operation runs inside a single Tx so a failure mid-operation rolls back
// all of its writes.
package storage

import (
	"context"
	"time"

	"github.com/mistakeknot/interlock/internal/core"
)

// Store opens transactions against the authoritative store.
type Store interface {
	// RunInTx executes fn inside one atomic transaction. Concurrent
	// transactions must be serialized such that a reservation
	// check-then-insert cannot interleave with another (see sqlite impl).
	RunInTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}

// InboxQuery filters an agent's inbox.
type InboxQuery struct {
	Limit      int
	UrgentOnly bool
	Since      *time.Time
}

// HeldReservation is a live reservation joined with its holder's agent name,
// for conflict reporting.
type HeldReservation struct {
	core.Reservation
	HolderName string
}

// Tx is the set of entity operations available inside a transaction.
type Tx interface {
	// Projects
	ProjectByKey(humanKey string) (core.Project, error)
	CreateProject(p core.Project) error

	// Agents
	AgentByName(projectID, name string) (core.Agent, error)
	AgentNames(projectID string) (map[string]struct{}, error)
	CreateAgent(a core.Agent) error
	TouchAgent(agentID string, at time.Time) error

	// Messages and per-recipient delivery state
	CreateMessage(m core.Message) error
	AddRecipient(messageID, agentID string) error
	InboxMessages(agentID string, q InboxQuery) ([]core.Message, error)
	MarkRead(messageID, agentID string, at time.Time) error
	MarkAck(messageID, agentID string, at time.Time) error
	ThreadMessages(projectID, threadID string) ([]core.Message, error)
	SearchMessages(projectID, query string, limit int) ([]core.Message, error)

	// Reservations
	DeleteExpiredReservations(projectID string, now time.Time) (int, error)
	LiveExclusiveReservations(projectID, excludeAgentID string, now time.Time) ([]HeldReservation, error)
	CreateReservation(r core.Reservation) error
	DeleteReservationsByID(agentID string, ids []string) (int, error)
	DeleteReservationsByPath(agentID string, paths []string) (int, error)
	DeleteAgentReservations(agentID string) (int, error)
}
