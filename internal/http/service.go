// Package httpapi exposes the coordinator as a JSON-RPC 2.0 endpoint plus
// health probes. All ten operations share one POST /rpc route, dispatched by
// tool name with per-operation argument bags.
package httpapi

import (
	"context"

	"github.com/mistakeknot/interlock/internal/mail"
)

// Pinger is the store health probe used by the readiness endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Service struct {
	mail  *mail.Service
	store Pinger
}

func NewService(m *mail.Service, store Pinger) *Service {
	return &Service{mail: m, store: store}
}
