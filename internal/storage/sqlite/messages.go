package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/mistakeknot/interlock/internal/core"
	"github.com/mistakeknot/interlock/internal/storage"
)

const messageColumns = `m.id, m.project_id, m.sender_id, a.name, m.subject, m.body_md,
	m.thread_id, m.importance, m.ack_required, m.kind, m.created_ts`

func (t *sqlTx) CreateMessage(m core.Message) error {
	_, err := t.q.Exec(
		`INSERT INTO messages (id, project_id, sender_id, subject, body_md, thread_id, importance, ack_required, kind, created_ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.ProjectID, m.SenderID, m.Subject, m.Body, nullable(m.ThreadID),
		m.Importance, boolToInt(m.AckRequired), m.Kind, formatTime(m.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

func (t *sqlTx) AddRecipient(messageID, agentID string) error {
	_, err := t.q.Exec(
		`INSERT INTO message_recipients (message_id, agent_id) VALUES (?, ?)`,
		messageID, agentID,
	)
	if err != nil {
		return fmt.Errorf("insert recipient: %w", err)
	}
	return nil
}

func (t *sqlTx) InboxMessages(agentID string, q storage.InboxQuery) ([]core.Message, error) {
	query := `SELECT ` + messageColumns + `
		 FROM messages m
		 JOIN message_recipients mr ON mr.message_id = m.id
		 JOIN agents a ON a.id = m.sender_id
		 WHERE mr.agent_id = ?`
	args := []any{agentID}

	if q.UrgentOnly {
		query += ` AND m.importance = ?`
		args = append(args, core.ImportanceUrgent)
	}
	if q.Since != nil {
		query += ` AND m.created_ts > ?`
		args = append(args, formatTime(*q.Since))
	}
	query += ` ORDER BY m.created_ts DESC LIMIT ?`
	args = append(args, q.Limit)

	return t.queryMessages(query, args...)
}

// markDelivery sets one delivery timestamp column, only ever moving it
// forward. The row existing is the proof the agent is a recipient.
func (t *sqlTx) markDelivery(column, messageID, agentID string, at time.Time) error {
	row := t.q.QueryRow(
		`SELECT 1 FROM message_recipients WHERE message_id = ? AND agent_id = ?`,
		messageID, agentID,
	)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return &core.NotFoundError{Kind: "message", Key: messageID}
		}
		return fmt.Errorf("check delivery: %w", err)
	}
	ts := formatTime(at)
	_, err := t.q.Exec(
		`UPDATE message_recipients SET `+column+` = ?
		 WHERE message_id = ? AND agent_id = ? AND (`+column+` IS NULL OR `+column+` < ?)`,
		ts, messageID, agentID, ts,
	)
	if err != nil {
		return fmt.Errorf("mark %s: %w", column, err)
	}
	return nil
}

func (t *sqlTx) MarkRead(messageID, agentID string, at time.Time) error {
	return t.markDelivery("read_at", messageID, agentID, at)
}

func (t *sqlTx) MarkAck(messageID, agentID string, at time.Time) error {
	return t.markDelivery("acked_at", messageID, agentID, at)
}

func (t *sqlTx) ThreadMessages(projectID, threadID string) ([]core.Message, error) {
	return t.queryMessages(
		`SELECT `+messageColumns+`
		 FROM messages m
		 JOIN agents a ON a.id = m.sender_id
		 WHERE m.project_id = ? AND m.thread_id = ?
		 ORDER BY m.created_ts ASC`,
		projectID, threadID,
	)
}

// SearchMessages queries the external full-text index; ordering is the
// index's relevance rank.
func (t *sqlTx) SearchMessages(projectID, query string, limit int) ([]core.Message, error) {
	return t.queryMessages(
		`SELECT `+messageColumns+`
		 FROM messages m
		 JOIN messages_fts fts ON fts.rowid = m.rowid
		 JOIN agents a ON a.id = m.sender_id
		 WHERE m.project_id = ? AND messages_fts MATCH ?
		 ORDER BY rank
		 LIMIT ?`,
		projectID, query, limit,
	)
}

func (t *sqlTx) queryMessages(query string, args ...any) ([]core.Message, error) {
	rows, err := t.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var out []core.Message
	for rows.Next() {
		var m core.Message
		var body, threadID sql.NullString
		var ackRequired int
		var createdAt string
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.SenderID, &m.SenderName, &m.Subject,
			&body, &threadID, &m.Importance, &ackRequired, &m.Kind, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Body = body.String
		m.ThreadID = threadID.String
		m.AckRequired = ackRequired != 0
		m.CreatedAt = parseTime(createdAt)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
