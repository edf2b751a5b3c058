package sqlite

import (
	"fmt"
	"strings"
	"time"

	"github.com/mistakeknot/interlock/internal/core"
	"github.com/mistakeknot/interlock/internal/storage"
)

func (t *sqlTx) DeleteExpiredReservations(projectID string, now time.Time) (int, error) {
	res, err := t.q.Exec(
		`DELETE FROM file_reservations WHERE project_id = ? AND expires_ts <= ?`,
		projectID, formatTime(now),
	)
	if err != nil {
		return 0, fmt.Errorf("sweep reservations: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// LiveExclusiveReservations returns the unexpired exclusive holds in the
// project belonging to agents other than excludeAgentID, joined with the
// holder's name. Non-exclusive holds are advisory and never returned here.
func (t *sqlTx) LiveExclusiveReservations(projectID, excludeAgentID string, now time.Time) ([]storage.HeldReservation, error) {
	rows, err := t.q.Query(
		`SELECT fr.id, fr.project_id, fr.agent_id, fr.path_pattern, fr.exclusive,
		        fr.reason, fr.created_ts, fr.expires_ts, a.name
		 FROM file_reservations fr
		 JOIN agents a ON a.id = fr.agent_id
		 WHERE fr.project_id = ? AND fr.agent_id != ? AND fr.exclusive = 1 AND fr.expires_ts > ?`,
		projectID, excludeAgentID, formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	var out []storage.HeldReservation
	for rows.Next() {
		var h storage.HeldReservation
		var exclusive int
		var reason, createdAt, expiresAt string
		if err := rows.Scan(&h.ID, &h.ProjectID, &h.AgentID, &h.PathPattern, &exclusive,
			&reason, &createdAt, &expiresAt, &h.HolderName); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		h.Exclusive = exclusive != 0
		h.Reason = reason
		h.CreatedAt = parseTime(createdAt)
		h.ExpiresAt = parseTime(expiresAt)
		out = append(out, h)
	}
	return out, rows.Err()
}

func (t *sqlTx) CreateReservation(r core.Reservation) error {
	_, err := t.q.Exec(
		`INSERT INTO file_reservations (id, project_id, agent_id, path_pattern, exclusive, reason, created_ts, expires_ts)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ProjectID, r.AgentID, r.PathPattern, boolToInt(r.Exclusive),
		r.Reason, formatTime(r.CreatedAt), formatTime(r.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

// DeleteReservationsByID releases the given ids, scoped to the caller's
// agent so nobody can release another agent's holds.
func (t *sqlTx) DeleteReservationsByID(agentID string, ids []string) (int, error) {
	return t.deleteReservationsIn("id", agentID, ids)
}

func (t *sqlTx) DeleteReservationsByPath(agentID string, paths []string) (int, error) {
	return t.deleteReservationsIn("path_pattern", agentID, paths)
}

func (t *sqlTx) deleteReservationsIn(column, agentID string, values []string) (int, error) {
	if len(values) == 0 {
		return 0, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")
	args := make([]any, 0, len(values)+1)
	for _, v := range values {
		args = append(args, v)
	}
	args = append(args, agentID)
	res, err := t.q.Exec(
		`DELETE FROM file_reservations WHERE `+column+` IN (`+placeholders+`) AND agent_id = ?`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("release reservations: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (t *sqlTx) DeleteAgentReservations(agentID string) (int, error) {
	res, err := t.q.Exec(`DELETE FROM file_reservations WHERE agent_id = ?`, agentID)
	if err != nil {
		return 0, fmt.Errorf("release reservations: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
