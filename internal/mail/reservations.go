package mail

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mistakeknot/interlock/internal/core"
	"github.com/mistakeknot/interlock/internal/glob"
	"github.com/mistakeknot/interlock/internal/storage"
)

// DefaultReservationTTL applies when a request doesn't carry one.
const DefaultReservationTTL = 3600 * time.Second

// ReservePaths evaluates each requested path independently against the
// project's live exclusive holds from other agents, granting what is free
// and reporting holders for what is not. The sweep, the conflict check and
// the inserts share one transaction, so two agents racing for the same
// pattern cannot both be granted.
//
// Only exclusive holds block; non-exclusive reservations are advisory and
// never appear in conflicts. The caller's own holds never block either, so
// re-reserving is the way to extend a lease.
func (s *Service) ReservePaths(ctx context.Context, req ReservePathsRequest) (ReservePathsResponse, error) {
	if err := req.Validate(); err != nil {
		return ReservePathsResponse{}, err
	}
	for _, p := range req.Paths {
		if err := glob.ValidateComplexity(p); err != nil {
			return ReservePathsResponse{}, err
		}
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}

	resp := ReservePathsResponse{
		Granted:   []core.Reservation{},
		Conflicts: []core.PathConflict{},
	}
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		project, agent, err := resolve(tx, req.ProjectKey, req.AgentName)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		if _, err := tx.DeleteExpiredReservations(project.ID, now); err != nil {
			return err
		}
		held, err := tx.LiveExclusiveReservations(project.ID, agent.ID, now)
		if err != nil {
			return err
		}

		for _, path := range req.Paths {
			var holders []string
			for _, h := range held {
				if glob.Overlaps(path, h.PathPattern) {
					holders = append(holders, h.HolderName)
				}
			}
			if len(holders) > 0 {
				resp.Conflicts = append(resp.Conflicts, core.PathConflict{
					Path:    path,
					Holders: holders,
				})
				continue
			}
			r := core.Reservation{
				ID:          uuid.NewString(),
				ProjectID:   project.ID,
				AgentID:     agent.ID,
				PathPattern: path,
				Exclusive:   req.Exclusive,
				Reason:      req.Reason,
				CreatedAt:   now,
				ExpiresAt:   now.Add(ttl),
			}
			if err := tx.CreateReservation(r); err != nil {
				return err
			}
			resp.Granted = append(resp.Granted, r)
		}
		return nil
	})
	if err != nil {
		return ReservePathsResponse{}, err
	}
	if len(resp.Granted) > 0 {
		paths := make([]string, len(resp.Granted))
		for i, r := range resp.Granted {
			paths[i] = r.PathPattern
		}
		s.broadcast(req.ProjectKey, "", map[string]any{
			"type":    string(core.EventReservationGranted),
			"project": req.ProjectKey,
			"agent":   req.AgentName,
			"paths":   paths,
		})
	}
	return resp, nil
}

// ReleasePaths drops the caller's reservations. Selector precedence is
// strict: reservation IDs when given, else exact path patterns, else
// everything the agent holds. Scope is always the calling agent; IDs or
// paths held by someone else silently release nothing.
func (s *Service) ReleasePaths(ctx context.Context, req ReleasePathsRequest) (ReleasePathsResponse, error) {
	if err := req.Validate(); err != nil {
		return ReleasePathsResponse{}, err
	}
	var released int
	at := s.now().UTC()
	err := s.store.RunInTx(ctx, func(tx storage.Tx) error {
		_, agent, err := resolve(tx, req.ProjectKey, req.AgentName)
		if err != nil {
			return err
		}
		switch {
		case len(req.ReservationIDs) > 0:
			released, err = tx.DeleteReservationsByID(agent.ID, req.ReservationIDs)
		case len(req.Paths) > 0:
			released, err = tx.DeleteReservationsByPath(agent.ID, req.Paths)
		default:
			released, err = tx.DeleteAgentReservations(agent.ID)
		}
		return err
	})
	if err != nil {
		return ReleasePathsResponse{}, err
	}
	if released > 0 {
		s.broadcast(req.ProjectKey, "", map[string]any{
			"type":     string(core.EventReservationReleased),
			"project":  req.ProjectKey,
			"agent":    req.AgentName,
			"released": released,
		})
	}
	return ReleasePathsResponse{Released: released, ReleasedAt: at}, nil
}
