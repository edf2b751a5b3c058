package server

import (
	"context"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestNewRequiresAddr(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without addr")
	}
}

func TestUnixSocketServesAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, "interlock.sock")

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	srv, err := New(Config{Addr: "127.0.0.1:0", SocketPath: sock, Handler: handler})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	go srv.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	})

	client := &http.Client{
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				return (&net.Dialer{}).DialContext(ctx, "unix", sock)
			},
		},
		Timeout: 2 * time.Second,
	}
	resp, err := client.Get("http://unix/health")
	if err != nil {
		t.Fatalf("request over socket: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if _, err := os.Stat(sock); !os.IsNotExist(err) {
		t.Fatalf("socket file not removed: %v", err)
	}
}

func TestStaleSocketRemoved(t *testing.T) {
	dir := t.TempDir()
	sock := filepath.Join(dir, "stale.sock")
	ln, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ln.Close()
	// Closing removes the file on most platforms; recreate a stale one.
	if _, err := os.Stat(sock); os.IsNotExist(err) {
		if err := os.WriteFile(sock, nil, 0660); err != nil {
			t.Fatalf("write stale: %v", err)
		}
	}

	srv, err := New(Config{Addr: "127.0.0.1:0", SocketPath: sock})
	if err != nil {
		t.Fatalf("new with stale socket: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}
