package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mistakeknot/interlock/internal/core"
)

func (t *sqlTx) ProjectByKey(humanKey string) (core.Project, error) {
	row := t.q.QueryRow(
		`SELECT id, slug, human_key, created_at FROM projects WHERE human_key = ?`,
		humanKey,
	)
	var p core.Project
	var createdAt string
	if err := row.Scan(&p.ID, &p.Slug, &p.HumanKey, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Project{}, &core.NotFoundError{Kind: "project", Key: humanKey}
		}
		return core.Project{}, fmt.Errorf("scan project: %w", err)
	}
	p.CreatedAt = parseTime(createdAt)
	return p, nil
}

func (t *sqlTx) CreateProject(p core.Project) error {
	_, err := t.q.Exec(
		`INSERT INTO projects (id, slug, human_key, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Slug, p.HumanKey, formatTime(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (t *sqlTx) AgentByName(projectID, name string) (core.Agent, error) {
	row := t.q.QueryRow(
		`SELECT id, name, program, model, task_description, inception_ts, last_active_ts, project_id
		 FROM agents WHERE project_id = ? AND name = ?`,
		projectID, name,
	)
	agent, err := scanAgent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Agent{}, &core.NotFoundError{Kind: "agent", Key: name}
		}
		return core.Agent{}, fmt.Errorf("scan agent: %w", err)
	}
	return agent, nil
}

func (t *sqlTx) AgentNames(projectID string) (map[string]struct{}, error) {
	rows, err := t.q.Query(`SELECT name FROM agents WHERE project_id = ?`, projectID)
	if err != nil {
		return nil, fmt.Errorf("query agent names: %w", err)
	}
	defer rows.Close()

	out := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan agent name: %w", err)
		}
		out[name] = struct{}{}
	}
	return out, rows.Err()
}

func (t *sqlTx) CreateAgent(a core.Agent) error {
	_, err := t.q.Exec(
		`INSERT INTO agents (id, name, program, model, task_description, inception_ts, last_active_ts, project_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Name, a.Program, a.Model, a.TaskDescription,
		formatTime(a.InceptionAt), formatTime(a.LastActiveAt), a.ProjectID,
	)
	if err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

func (t *sqlTx) TouchAgent(agentID string, at time.Time) error {
	_, err := t.q.Exec(
		`UPDATE agents SET last_active_ts = ? WHERE id = ?`,
		formatTime(at), agentID,
	)
	if err != nil {
		return fmt.Errorf("touch agent: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAgent(row scanner) (core.Agent, error) {
	var a core.Agent
	var task sql.NullString
	var inception, lastActive string
	err := row.Scan(&a.ID, &a.Name, &a.Program, &a.Model, &task, &inception, &lastActive, &a.ProjectID)
	if err != nil {
		return core.Agent{}, err
	}
	a.TaskDescription = task.String
	a.InceptionAt = parseTime(inception)
	a.LastActiveAt = parseTime(lastActive)
	return a, nil
}
