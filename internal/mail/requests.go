package mail

import (
	"time"

	"github.com/mistakeknot/interlock/internal/core"
)

// Request types mirror the caller-facing argument bags, one explicit struct
// per operation. Validate catches missing required arguments at the boundary
// before any store work; defaults for optional arguments are applied by the
// transport layer (or by the operation where a zero value is unambiguous).

type EnsureProjectRequest struct {
	HumanKey string
}

func (r EnsureProjectRequest) Validate() error {
	if r.HumanKey == "" {
		return core.RequiredField("human_key")
	}
	return nil
}

type RegisterAgentRequest struct {
	ProjectKey      string
	Name            string // generated when empty
	Program         string // "unknown" when empty
	Model           string // "unknown" when empty
	TaskDescription string
}

func (r RegisterAgentRequest) Validate() error {
	if r.ProjectKey == "" {
		return core.RequiredField("project_key")
	}
	return nil
}

type SendMessageRequest struct {
	ProjectKey  string
	SenderName  string
	To          []string
	Subject     string
	Body        string
	ThreadID    string
	Importance  string // "normal" when empty
	AckRequired bool
}

func (r SendMessageRequest) Validate() error {
	switch {
	case r.ProjectKey == "":
		return core.RequiredField("project_key")
	case r.SenderName == "":
		return core.RequiredField("sender_name")
	case len(r.To) == 0:
		return core.RequiredField("to")
	}
	switch r.Importance {
	case "", core.ImportanceNormal, core.ImportanceUrgent:
	default:
		return core.RequiredField("importance")
	}
	return nil
}

// SendMessageResponse reports the created message and which of the requested
// recipients actually resolved. Callers detecting partial delivery compare
// SentTo against their request.
type SendMessageResponse struct {
	Message core.Message `json:"message"`
	SentTo  []string     `json:"sent_to"`
}

type FetchInboxRequest struct {
	ProjectKey    string
	AgentName     string
	Limit         int // 10 when zero
	IncludeBodies bool
	UrgentOnly    bool
	Since         *time.Time
}

func (r FetchInboxRequest) Validate() error {
	switch {
	case r.ProjectKey == "":
		return core.RequiredField("project_key")
	case r.AgentName == "":
		return core.RequiredField("agent_name")
	}
	return nil
}

type MarkMessageRequest struct {
	ProjectKey string
	AgentName  string
	MessageID  string
}

func (r MarkMessageRequest) Validate() error {
	switch {
	case r.ProjectKey == "":
		return core.RequiredField("project_key")
	case r.AgentName == "":
		return core.RequiredField("agent_name")
	case r.MessageID == "":
		return core.RequiredField("message_id")
	}
	return nil
}

type SummarizeThreadRequest struct {
	ProjectKey      string
	ThreadID        string
	IncludeExamples bool
}

func (r SummarizeThreadRequest) Validate() error {
	switch {
	case r.ProjectKey == "":
		return core.RequiredField("project_key")
	case r.ThreadID == "":
		return core.RequiredField("thread_id")
	}
	return nil
}

type SearchMessagesRequest struct {
	ProjectKey string
	Query      string
	Limit      int // 20 when zero
}

func (r SearchMessagesRequest) Validate() error {
	switch {
	case r.ProjectKey == "":
		return core.RequiredField("project_key")
	case r.Query == "":
		return core.RequiredField("query")
	}
	return nil
}

type ReservePathsRequest struct {
	ProjectKey string
	AgentName  string
	Paths      []string
	TTLSeconds int  // 3600 when zero
	Exclusive  bool // transport defaults this to true when absent
	Reason     string
}

func (r ReservePathsRequest) Validate() error {
	switch {
	case r.ProjectKey == "":
		return core.RequiredField("project_key")
	case r.AgentName == "":
		return core.RequiredField("agent_name")
	case len(r.Paths) == 0:
		return core.RequiredField("paths")
	}
	return nil
}

// ReservePathsResponse is a partial-grant result: paths are evaluated
// independently, so one call can grant some and report conflicts on others.
type ReservePathsResponse struct {
	Granted   []core.Reservation  `json:"granted"`
	Conflicts []core.PathConflict `json:"conflicts"`
}

type ReleasePathsRequest struct {
	ProjectKey     string
	AgentName      string
	Paths          []string
	ReservationIDs []string
}

func (r ReleasePathsRequest) Validate() error {
	switch {
	case r.ProjectKey == "":
		return core.RequiredField("project_key")
	case r.AgentName == "":
		return core.RequiredField("agent_name")
	}
	return nil
}

type ReleasePathsResponse struct {
	Released   int       `json:"released"`
	ReleasedAt time.Time `json:"released_at"`
}
