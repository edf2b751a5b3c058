// Package client is a typed Go client for the interlock JSON-RPC surface.
// Every call posts a tools/call envelope to /rpc and decodes the result into
// the operation's response type.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
	APIKey  string

	nextID atomic.Int64
}

type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) { c.APIKey = strings.TrimSpace(key) }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.HTTP = httpClient
		}
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RPCError is a JSON-RPC error returned by the server.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type Project struct {
	ID       string `json:"id"`
	Slug     string `json:"slug"`
	HumanKey string `json:"human_key"`
}

type Agent struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Program         string `json:"program"`
	Model           string `json:"model"`
	TaskDescription string `json:"task_description,omitempty"`
}

type Message struct {
	ID          string    `json:"id"`
	From        string    `json:"from,omitempty"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body_md,omitempty"`
	ThreadID    string    `json:"thread_id,omitempty"`
	Importance  string    `json:"importance"`
	AckRequired bool      `json:"ack_required"`
	Kind        string    `json:"kind"`
	CreatedAt   time.Time `json:"created_ts"`
}

type SendMessageResult struct {
	Message Message  `json:"message"`
	SentTo  []string `json:"sent_to"`
}

type InboxResult struct {
	Messages []Message `json:"messages"`
	Count    int       `json:"count"`
}

type Reservation struct {
	ID          string    `json:"id"`
	PathPattern string    `json:"path_pattern"`
	Exclusive   bool      `json:"exclusive"`
	Reason      string    `json:"reason,omitempty"`
	ExpiresAt   time.Time `json:"expires_ts"`
}

type PathConflict struct {
	Path    string   `json:"path"`
	Holders []string `json:"holders"`
}

type ReserveResult struct {
	Granted   []Reservation  `json:"granted"`
	Conflicts []PathConflict `json:"conflicts"`
}

type ReleaseResult struct {
	Released   int       `json:"released"`
	ReleasedAt time.Time `json:"released_at"`
}

type ThreadSummary struct {
	ThreadID      string    `json:"thread_id"`
	Participants  []string  `json:"participants"`
	KeyPoints     []string  `json:"key_points"`
	ActionItems   []string  `json:"action_items"`
	TotalMessages int       `json:"total_messages"`
	Examples      []Message `json:"examples,omitempty"`
}

func (c *Client) EnsureProject(ctx context.Context, humanKey string) (Project, error) {
	var out Project
	err := c.call(ctx, "ensure_project", map[string]any{"human_key": humanKey}, &out)
	return out, err
}

type RegisterAgentArgs struct {
	ProjectKey      string `json:"project_key"`
	Name            string `json:"name,omitempty"`
	Program         string `json:"program,omitempty"`
	Model           string `json:"model,omitempty"`
	TaskDescription string `json:"task_description,omitempty"`
}

func (c *Client) RegisterAgent(ctx context.Context, args RegisterAgentArgs) (Agent, error) {
	var out Agent
	err := c.call(ctx, "register_agent", args, &out)
	return out, err
}

type SendMessageArgs struct {
	ProjectKey  string   `json:"project_key"`
	SenderName  string   `json:"sender_name"`
	To          []string `json:"to"`
	Subject     string   `json:"subject,omitempty"`
	Body        string   `json:"body_md,omitempty"`
	ThreadID    string   `json:"thread_id,omitempty"`
	Importance  string   `json:"importance,omitempty"`
	AckRequired bool     `json:"ack_required,omitempty"`
}

func (c *Client) SendMessage(ctx context.Context, args SendMessageArgs) (SendMessageResult, error) {
	var out SendMessageResult
	err := c.call(ctx, "send_message", args, &out)
	return out, err
}

type FetchInboxArgs struct {
	ProjectKey    string `json:"project_key"`
	AgentName     string `json:"agent_name"`
	Limit         int    `json:"limit,omitempty"`
	IncludeBodies bool   `json:"include_bodies,omitempty"`
	UrgentOnly    bool   `json:"urgent_only,omitempty"`
	Since         string `json:"since_ts,omitempty"`
}

func (c *Client) FetchInbox(ctx context.Context, args FetchInboxArgs) (InboxResult, error) {
	var out InboxResult
	err := c.call(ctx, "fetch_inbox", args, &out)
	return out, err
}

func (c *Client) MarkRead(ctx context.Context, projectKey, agentName, messageID string) error {
	return c.call(ctx, "mark_message_read", map[string]any{
		"project_key": projectKey,
		"agent_name":  agentName,
		"message_id":  messageID,
	}, nil)
}

func (c *Client) Acknowledge(ctx context.Context, projectKey, agentName, messageID string) error {
	return c.call(ctx, "acknowledge_message", map[string]any{
		"project_key": projectKey,
		"agent_name":  agentName,
		"message_id":  messageID,
	}, nil)
}

func (c *Client) SummarizeThread(ctx context.Context, projectKey, threadID string, includeExamples bool) (ThreadSummary, error) {
	var out ThreadSummary
	err := c.call(ctx, "summarize_thread", map[string]any{
		"project_key":      projectKey,
		"thread_id":        threadID,
		"include_examples": includeExamples,
	}, &out)
	return out, err
}

func (c *Client) SearchMessages(ctx context.Context, projectKey, query string, limit int) (InboxResult, error) {
	var out InboxResult
	args := map[string]any{"project_key": projectKey, "query": query}
	if limit > 0 {
		args["limit"] = limit
	}
	err := c.call(ctx, "search_messages", args, &out)
	return out, err
}

type ReserveArgs struct {
	ProjectKey string   `json:"project_key"`
	AgentName  string   `json:"agent_name"`
	Paths      []string `json:"paths"`
	TTLSeconds int      `json:"ttl_seconds,omitempty"`
	Exclusive  *bool    `json:"exclusive,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

func (c *Client) ReservePaths(ctx context.Context, args ReserveArgs) (ReserveResult, error) {
	var out ReserveResult
	err := c.call(ctx, "file_reservation_paths", args, &out)
	return out, err
}

type ReleaseArgs struct {
	ProjectKey     string   `json:"project_key"`
	AgentName      string   `json:"agent_name"`
	Paths          []string `json:"paths,omitempty"`
	ReservationIDs []string `json:"file_reservation_ids,omitempty"`
}

func (c *Client) ReleasePaths(ctx context.Context, args ReleaseArgs) (ReleaseResult, error) {
	var out ReleaseResult
	err := c.call(ctx, "release_file_reservations", args, &out)
	return out, err
}

type rpcEnvelope struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id"`
	Method  string `json:"method"`
	Params  struct {
		Name      string `json:"name"`
		Arguments any    `json:"arguments"`
	} `json:"params"`
}

type rpcResult struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

func (c *Client) call(ctx context.Context, tool string, args, out any) error {
	env := rpcEnvelope{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: "tools/call"}
	env.Params.Name = tool
	env.Params.Arguments = args

	buf, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/rpc", bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s failed: http %d", tool, resp.StatusCode)
	}

	var result rpcResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if result.Error != nil {
		return result.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(result.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
