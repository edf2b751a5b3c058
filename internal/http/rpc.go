package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mistakeknot/interlock/internal/auth"
	"github.com/mistakeknot/interlock/internal/core"
	"github.com/mistakeknot/interlock/internal/mail"
)

// JSON-RPC error codes. Validation and not-found map to distinct codes so
// clients can branch without parsing messages; everything else is internal.
const (
	codeParse         = -32700
	codeInvalidParams = -32602
	codeMethodUnknown = -32601
	codeInternal      = -32000
	codeNotFound      = -32002
)

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

func (s *Service) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: codeParse, Message: "parse error"}})
		return
	}
	if req.Method != "tools/call" {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{
			Code: codeMethodUnknown, Message: "unknown method: " + req.Method,
		}})
		return
	}

	result, err := s.dispatch(r, req.Params.Name, req.Params.Arguments)
	if err != nil {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: toRPCError(err)})
		return
	}
	writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
}

var errUnknownTool = errors.New("unknown tool")
var errForbidden = errors.New("project not permitted for this key")

func toRPCError(err error) *rpcError {
	switch {
	case errors.Is(err, errUnknownTool):
		return &rpcError{Code: codeMethodUnknown, Message: err.Error()}
	case core.IsValidation(err), errors.Is(err, errForbidden):
		return &rpcError{Code: codeInvalidParams, Message: err.Error()}
	case core.IsNotFound(err):
		return &rpcError{Code: codeNotFound, Message: err.Error()}
	default:
		return &rpcError{Code: codeInternal, Message: err.Error()}
	}
}

func writeRPC(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// checkProject confines API-key requests to their key's project. Localhost
// requests may address any project.
func checkProject(r *http.Request, projectKey string) error {
	info, _ := auth.FromContext(r.Context())
	if info.Mode == auth.ModeAPIKey && projectKey != info.Project {
		return errForbidden
	}
	return nil
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func (s *Service) dispatch(r *http.Request, tool string, args json.RawMessage) (any, error) {
	ctx := r.Context()
	switch tool {
	case "ensure_project":
		var a struct {
			HumanKey string `json:"human_key"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return nil, core.RequiredField("arguments")
		}
		if err := checkProject(r, a.HumanKey); err != nil {
			return nil, err
		}
		return s.mail.EnsureProject(ctx, mail.EnsureProjectRequest{HumanKey: a.HumanKey})

	case "register_agent":
		var a struct {
			ProjectKey      string `json:"project_key"`
			Name            string `json:"name"`
			Program         string `json:"program"`
			Model           string `json:"model"`
			TaskDescription string `json:"task_description"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return nil, core.RequiredField("arguments")
		}
		if err := checkProject(r, a.ProjectKey); err != nil {
			return nil, err
		}
		return s.mail.RegisterAgent(ctx, mail.RegisterAgentRequest{
			ProjectKey:      a.ProjectKey,
			Name:            a.Name,
			Program:         a.Program,
			Model:           a.Model,
			TaskDescription: a.TaskDescription,
		})

	case "send_message":
		var a struct {
			ProjectKey  string   `json:"project_key"`
			SenderName  string   `json:"sender_name"`
			To          []string `json:"to"`
			Subject     string   `json:"subject"`
			Body        string   `json:"body_md"`
			ThreadID    string   `json:"thread_id"`
			Importance  string   `json:"importance"`
			AckRequired bool     `json:"ack_required"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return nil, core.RequiredField("arguments")
		}
		if err := checkProject(r, a.ProjectKey); err != nil {
			return nil, err
		}
		return s.mail.SendMessage(ctx, mail.SendMessageRequest{
			ProjectKey:  a.ProjectKey,
			SenderName:  a.SenderName,
			To:          a.To,
			Subject:     a.Subject,
			Body:        a.Body,
			ThreadID:    a.ThreadID,
			Importance:  a.Importance,
			AckRequired: a.AckRequired,
		})

	case "fetch_inbox":
		var a struct {
			ProjectKey    string `json:"project_key"`
			AgentName     string `json:"agent_name"`
			Limit         int    `json:"limit"`
			IncludeBodies bool   `json:"include_bodies"`
			UrgentOnly    bool   `json:"urgent_only"`
			Since         string `json:"since_ts"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return nil, core.RequiredField("arguments")
		}
		if err := checkProject(r, a.ProjectKey); err != nil {
			return nil, err
		}
		var since *time.Time
		if a.Since != "" {
			t, err := time.Parse(time.RFC3339, a.Since)
			if err != nil {
				return nil, core.RequiredField("since_ts")
			}
			since = &t
		}
		msgs, err := s.mail.FetchInbox(ctx, mail.FetchInboxRequest{
			ProjectKey:    a.ProjectKey,
			AgentName:     a.AgentName,
			Limit:         a.Limit,
			IncludeBodies: a.IncludeBodies,
			UrgentOnly:    a.UrgentOnly,
			Since:         since,
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"messages": msgs, "count": len(msgs)}, nil

	case "mark_message_read":
		a, err := decodeMarkArgs(r, args)
		if err != nil {
			return nil, err
		}
		at, err := s.mail.MarkRead(ctx, a)
		if err != nil {
			return nil, err
		}
		return map[string]any{"marked": true, "read_at": at}, nil

	case "acknowledge_message":
		a, err := decodeMarkArgs(r, args)
		if err != nil {
			return nil, err
		}
		at, err := s.mail.Acknowledge(ctx, a)
		if err != nil {
			return nil, err
		}
		return map[string]any{"acknowledged": true, "acked_at": at}, nil

	case "summarize_thread":
		var a struct {
			ProjectKey      string `json:"project_key"`
			ThreadID        string `json:"thread_id"`
			IncludeExamples bool   `json:"include_examples"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return nil, core.RequiredField("arguments")
		}
		if err := checkProject(r, a.ProjectKey); err != nil {
			return nil, err
		}
		return s.mail.SummarizeThread(ctx, mail.SummarizeThreadRequest{
			ProjectKey:      a.ProjectKey,
			ThreadID:        a.ThreadID,
			IncludeExamples: a.IncludeExamples,
		})

	case "search_messages":
		var a struct {
			ProjectKey string `json:"project_key"`
			Query      string `json:"query"`
			Limit      int    `json:"limit"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return nil, core.RequiredField("arguments")
		}
		if err := checkProject(r, a.ProjectKey); err != nil {
			return nil, err
		}
		msgs, err := s.mail.SearchMessages(ctx, mail.SearchMessagesRequest{
			ProjectKey: a.ProjectKey,
			Query:      a.Query,
			Limit:      a.Limit,
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{"messages": msgs, "count": len(msgs)}, nil

	case "file_reservation_paths":
		var a struct {
			ProjectKey string   `json:"project_key"`
			AgentName  string   `json:"agent_name"`
			Paths      []string `json:"paths"`
			TTLSeconds int      `json:"ttl_seconds"`
			Exclusive  *bool    `json:"exclusive"`
			Reason     string   `json:"reason"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return nil, core.RequiredField("arguments")
		}
		if err := checkProject(r, a.ProjectKey); err != nil {
			return nil, err
		}
		// Reservations are exclusive unless the caller opts out.
		exclusive := true
		if a.Exclusive != nil {
			exclusive = *a.Exclusive
		}
		return s.mail.ReservePaths(ctx, mail.ReservePathsRequest{
			ProjectKey: a.ProjectKey,
			AgentName:  a.AgentName,
			Paths:      a.Paths,
			TTLSeconds: a.TTLSeconds,
			Exclusive:  exclusive,
			Reason:     a.Reason,
		})

	case "release_file_reservations":
		var a struct {
			ProjectKey     string   `json:"project_key"`
			AgentName      string   `json:"agent_name"`
			Paths          []string `json:"paths"`
			ReservationIDs []string `json:"file_reservation_ids"`
		}
		if err := decodeArgs(args, &a); err != nil {
			return nil, core.RequiredField("arguments")
		}
		if err := checkProject(r, a.ProjectKey); err != nil {
			return nil, err
		}
		return s.mail.ReleasePaths(ctx, mail.ReleasePathsRequest{
			ProjectKey:     a.ProjectKey,
			AgentName:      a.AgentName,
			Paths:          a.Paths,
			ReservationIDs: a.ReservationIDs,
		})

	default:
		return nil, fmt.Errorf("%w: %s", errUnknownTool, tool)
	}
}

func decodeMarkArgs(r *http.Request, args json.RawMessage) (mail.MarkMessageRequest, error) {
	var a struct {
		ProjectKey string `json:"project_key"`
		AgentName  string `json:"agent_name"`
		MessageID  string `json:"message_id"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return mail.MarkMessageRequest{}, core.RequiredField("arguments")
	}
	if err := checkProject(r, a.ProjectKey); err != nil {
		return mail.MarkMessageRequest{}, err
	}
	return mail.MarkMessageRequest{
		ProjectKey: a.ProjectKey,
		AgentName:  a.AgentName,
		MessageID:  a.MessageID,
	}, nil
}
