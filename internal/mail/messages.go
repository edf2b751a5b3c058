package mail

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mistakeknot/interlock/internal/core"
	"github.com/mistakeknot/interlock/internal/storage"
)

// SendMessage records a message and one delivery record per resolved
// recipient. Recipient names that don't resolve are skipped, not errors:
// delivery is deliberately lenient, and callers compare SentTo against
// their request to detect partial delivery. An unresolved sender is a hard
// failure.
func (s *Service) SendMessage(ctx context.Context, req SendMessageRequest) (SendMessageResponse, error) {
	if err := req.Validate(); err != nil {
		return SendMessageResponse{}, err
	}
	importance := req.Importance
	if importance == "" {
		importance = core.ImportanceNormal
	}

	var resp SendMessageResponse
	var projectKey string
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		project, sender, err := resolve(tx, req.ProjectKey, req.SenderName)
		if err != nil {
			return err
		}
		projectKey = project.HumanKey

		msg := core.Message{
			ID:          uuid.NewString(),
			ProjectID:   project.ID,
			SenderID:    sender.ID,
			SenderName:  sender.Name,
			Subject:     req.Subject,
			Body:        req.Body,
			ThreadID:    req.ThreadID,
			Importance:  importance,
			AckRequired: req.AckRequired,
			Kind:        core.DefaultKind,
			CreatedAt:   s.now().UTC(),
		}
		if err := tx.CreateMessage(msg); err != nil {
			return err
		}

		var sentTo []string
		for _, name := range req.To {
			recipient, err := tx.AgentByName(project.ID, name)
			if core.IsNotFound(err) {
				continue
			}
			if err != nil {
				return err
			}
			if err := tx.AddRecipient(msg.ID, recipient.ID); err != nil {
				return err
			}
			sentTo = append(sentTo, recipient.Name)
		}
		resp = SendMessageResponse{Message: msg, SentTo: sentTo}
		return nil
	})
	if err != nil {
		return SendMessageResponse{}, err
	}
	for _, name := range resp.SentTo {
		s.broadcast(projectKey, name, map[string]any{
			"type":       string(core.EventMessageCreated),
			"project":    projectKey,
			"message_id": resp.Message.ID,
			"from":       resp.Message.SenderName,
			"importance": resp.Message.Importance,
		})
	}
	return resp, nil
}

// FetchInbox returns the agent's messages newest first, truncated to the
// limit. Bodies are withheld unless requested.
func (s *Service) FetchInbox(ctx context.Context, req FetchInboxRequest) ([]core.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}

	var msgs []core.Message
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		_, agent, err := resolve(tx, req.ProjectKey, req.AgentName)
		if err != nil {
			return err
		}
		msgs, err = tx.InboxMessages(agent.ID, storage.InboxQuery{
			Limit:      limit,
			UrgentOnly: req.UrgentOnly,
			Since:      req.Since,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if !req.IncludeBodies {
		for i := range msgs {
			msgs[i].Body = ""
		}
	}
	return msgs, nil
}

// MarkRead stamps the agent's delivery record. Idempotent: re-marking moves
// the timestamp forward, never back, and never errors.
func (s *Service) MarkRead(ctx context.Context, req MarkMessageRequest) (time.Time, error) {
	return s.mark(ctx, req, core.EventMessageRead, storage.Tx.MarkRead)
}

// Acknowledge stamps acked_at with the same shape as MarkRead.
func (s *Service) Acknowledge(ctx context.Context, req MarkMessageRequest) (time.Time, error) {
	return s.mark(ctx, req, core.EventMessageAck, storage.Tx.MarkAck)
}

func (s *Service) mark(ctx context.Context, req MarkMessageRequest, event core.EventType,
	stamp func(storage.Tx, string, string, time.Time) error) (time.Time, error) {
	if err := req.Validate(); err != nil {
		return time.Time{}, err
	}
	at := s.now().UTC()
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		_, agent, err := resolve(tx, req.ProjectKey, req.AgentName)
		if err != nil {
			return err
		}
		return stamp(tx, req.MessageID, agent.ID, at)
	})
	if err != nil {
		return time.Time{}, err
	}
	s.broadcast(req.ProjectKey, "", map[string]any{
		"type":       string(event),
		"project":    req.ProjectKey,
		"message_id": req.MessageID,
		"agent":      req.AgentName,
	})
	return at, nil
}

// SummarizeThread aggregates a thread in chronological order. An unknown
// thread yields an empty summary, not an error.
func (s *Service) SummarizeThread(ctx context.Context, req SummarizeThreadRequest) (core.ThreadSummary, error) {
	if err := req.Validate(); err != nil {
		return core.ThreadSummary{}, err
	}
	var msgs []core.Message
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		project, err := tx.ProjectByKey(req.ProjectKey)
		if err != nil {
			return err
		}
		msgs, err = tx.ThreadMessages(project.ID, req.ThreadID)
		return err
	})
	if err != nil {
		return core.ThreadSummary{}, err
	}

	summary := core.ThreadSummary{
		ThreadID:      req.ThreadID,
		Participants:  []string{},
		KeyPoints:     []string{},
		ActionItems:   []string{},
		TotalMessages: len(msgs),
	}
	seen := make(map[string]struct{})
	for i, m := range msgs {
		if _, ok := seen[m.SenderName]; !ok {
			seen[m.SenderName] = struct{}{}
			summary.Participants = append(summary.Participants, m.SenderName)
		}
		if i < 5 {
			summary.KeyPoints = append(summary.KeyPoints, m.Subject)
		}
		if m.Importance == core.ImportanceUrgent {
			summary.ActionItems = append(summary.ActionItems, m.Subject)
		}
	}
	if req.IncludeExamples && len(msgs) > 0 {
		n := min(3, len(msgs))
		summary.Examples = append(summary.Examples, msgs[:n]...)
	}
	return summary, nil
}

// SearchMessages is a pass-through against the full-text index: project
// scoped, relevance ordered, bounded by limit.
func (s *Service) SearchMessages(ctx context.Context, req SearchMessagesRequest) ([]core.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}
	var msgs []core.Message
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		project, err := tx.ProjectByKey(req.ProjectKey)
		if err != nil {
			return err
		}
		msgs, err = tx.SearchMessages(project.ID, req.Query, limit)
		return err
	})
	return msgs, err
}
