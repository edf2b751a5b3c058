package httpapi

import "net/http"

// NewRouter wires the RPC endpoint, health probes and the optional
// websocket handler behind the auth middleware. Health probes stay outside
// auth so orchestrators can hit them without a key.
func NewRouter(svc *Service, wsHandler http.HandlerFunc, authMW func(http.Handler) http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", svc.handleRPC)
	if wsHandler != nil {
		mux.HandleFunc("/ws/agents/", wsHandler)
	}

	var inner http.Handler = mux
	if authMW != nil {
		inner = authMW(mux)
	}

	outer := http.NewServeMux()
	outer.HandleFunc("/health/liveness", svc.handleLiveness)
	outer.HandleFunc("/health/readiness", svc.handleReadiness)
	outer.Handle("/", inner)
	return outer
}
