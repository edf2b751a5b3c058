// Package ws fans coordinator events out to connected agents over
// websockets. Connections register under (project, agent); a broadcast with
// an empty agent reaches every agent in the project.
package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/mistakeknot/interlock/internal/auth"
)

const writeTimeout = 5 * time.Second

type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[string]map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[string]map[*websocket.Conn]struct{})}
}

// Handler accepts connections on /ws/agents/{name}?project=KEY. Keyed
// requests are pinned to their key's project regardless of the query.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent := strings.Trim(strings.TrimPrefix(r.URL.Path, "/ws/agents/"), "/")
		if agent == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		requested := strings.TrimSpace(r.URL.Query().Get("project"))
		info, _ := auth.FromContext(r.Context())
		project := info.Project
		if info.Mode == auth.ModeAPIKey {
			if requested != "" && requested != project {
				w.WriteHeader(http.StatusForbidden)
				return
			}
		} else {
			project = requested
		}
		if project == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}

		h.add(project, agent, conn)
		defer h.remove(project, agent, conn)

		// Drain until the peer goes away; the hub only pushes.
		ctx := r.Context()
		for {
			var v any
			if err := wsjson.Read(ctx, conn, &v); err != nil {
				return
			}
		}
	}
}

type connEntry struct {
	conn    *websocket.Conn
	project string
	agent   string
}

// Broadcast writes event to every connection under (project, agent).
// Connections that fail the write are closed and dropped.
func (h *Hub) Broadcast(project, agent string, event any) {
	entries := h.snapshot(project, agent)
	for _, e := range entries {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := wsjson.Write(ctx, e.conn, event)
		cancel()
		if err != nil {
			go func(e connEntry) {
				e.conn.Close(websocket.StatusGoingAway, "write error")
				h.remove(e.project, e.agent, e.conn)
			}(e)
		}
	}
}

func (h *Hub) snapshot(project, agent string) []connEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []connEntry
	perAgent, ok := h.conns[project]
	if !ok {
		return nil
	}
	if agent == "" {
		for name, conns := range perAgent {
			for conn := range conns {
				out = append(out, connEntry{conn: conn, project: project, agent: name})
			}
		}
		return out
	}
	for conn := range perAgent[agent] {
		out = append(out, connEntry{conn: conn, project: project, agent: agent})
	}
	return out
}

func (h *Hub) add(project, agent string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	perProject, ok := h.conns[project]
	if !ok {
		perProject = make(map[string]map[*websocket.Conn]struct{})
		h.conns[project] = perProject
	}
	perAgent, ok := perProject[agent]
	if !ok {
		perAgent = make(map[*websocket.Conn]struct{})
		perProject[agent] = perAgent
	}
	perAgent[conn] = struct{}{}
}

func (h *Hub) remove(project, agent string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	perProject, ok := h.conns[project]
	if !ok {
		return
	}
	perAgent, ok := perProject[agent]
	if !ok {
		return
	}
	delete(perAgent, conn)
	if len(perAgent) == 0 {
		delete(perProject, agent)
	}
	if len(perProject) == 0 {
		delete(h.conns, project)
	}
}
