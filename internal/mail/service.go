// Package mail is the coordinator facade: one exported method per caller
// operation, each executed as a single atomic transaction against the store.
// Composition is strictly top-down — identity resolution, ledger writes and
// the reservation engine all happen inside the transaction the facade opens.
package mail

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mistakeknot/interlock/internal/core"
	"github.com/mistakeknot/interlock/internal/names"
	"github.com/mistakeknot/interlock/internal/storage"
)

// Broadcaster receives domain events for fan-out to connected agents. An
// empty agent means every agent in the project.
type Broadcaster interface {
	Broadcast(project, agent string, event any)
}

type Service struct {
	store storage.Store
	names *names.Generator
	bus   Broadcaster
	now   func() time.Time
}

type Option func(*Service)

// WithClock injects the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNames injects the agent name generator.
func WithNames(g *names.Generator) Option {
	return func(s *Service) { s.names = g }
}

// WithBroadcaster attaches an event sink.
func WithBroadcaster(b Broadcaster) Option {
	return func(s *Service) { s.bus = b }
}

func NewService(store storage.Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		names: names.New(nil),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) broadcast(project, agent string, event any) {
	if s.bus != nil {
		s.bus.Broadcast(project, agent, event)
	}
}

// EnsureProject returns the project for humanKey, creating it on first use.
func (s *Service) EnsureProject(ctx context.Context, req EnsureProjectRequest) (core.Project, error) {
	if err := req.Validate(); err != nil {
		return core.Project{}, err
	}
	var project core.Project
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		existing, err := tx.ProjectByKey(req.HumanKey)
		if err == nil {
			project = existing
			return nil
		}
		if !core.IsNotFound(err) {
			return err
		}
		project = core.Project{
			ID:        uuid.NewString(),
			Slug:      slugify(req.HumanKey),
			HumanKey:  req.HumanKey,
			CreatedAt: s.now().UTC(),
		}
		return tx.CreateProject(project)
	})
	return project, err
}

// RegisterAgent creates or refreshes an agent. Re-registering an existing
// (name, project) pair only bumps last_active_ts; it never duplicates. When
// no name is given one is generated, unique within the project.
func (s *Service) RegisterAgent(ctx context.Context, req RegisterAgentRequest) (core.Agent, error) {
	if err := req.Validate(); err != nil {
		return core.Agent{}, err
	}
	program := req.Program
	if program == "" {
		program = "unknown"
	}
	model := req.Model
	if model == "" {
		model = "unknown"
	}

	var agent core.Agent
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		project, err := tx.ProjectByKey(req.ProjectKey)
		if err != nil {
			return err
		}

		name := req.Name
		if name == "" {
			existing, err := tx.AgentNames(project.ID)
			if err != nil {
				return err
			}
			name = s.names.Unique(existing)
		} else if existing, err := tx.AgentByName(project.ID, name); err == nil {
			// Idempotent re-registration.
			now := s.now().UTC()
			if err := tx.TouchAgent(existing.ID, now); err != nil {
				return err
			}
			existing.LastActiveAt = now
			agent = existing
			return nil
		} else if !core.IsNotFound(err) {
			return err
		}

		now := s.now().UTC()
		agent = core.Agent{
			ID:              uuid.NewString(),
			Name:            name,
			Program:         program,
			Model:           model,
			TaskDescription: req.TaskDescription,
			InceptionAt:     now,
			LastActiveAt:    now,
			ProjectID:       project.ID,
		}
		return tx.CreateAgent(agent)
	})
	return agent, err
}

// resolve loads the project by key and the agent by name inside tx, failing
// fast with the distinct not-found errors.
func resolve(tx storage.Tx, projectKey, agentName string) (core.Project, core.Agent, error) {
	project, err := tx.ProjectByKey(projectKey)
	if err != nil {
		return core.Project{}, core.Agent{}, err
	}
	agent, err := tx.AgentByName(project.ID, agentName)
	if err != nil {
		return core.Project{}, core.Agent{}, err
	}
	return project, agent, nil
}

// slugify derives the display slug: lowercase, separators collapsed to
// underscores, non-alphanumerics dropped, capped at 64 chars.
func slugify(humanKey string) string {
	var b strings.Builder
	for _, r := range humanKey {
		switch {
		case r == '/' || r == '\\' || r == ' ':
			b.WriteByte('_')
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		}
	}
	slug := b.String()
	if len(slug) > 64 {
		slug = slug[:64]
	}
	return slug
}
