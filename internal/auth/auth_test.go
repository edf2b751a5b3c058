package auth

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadKeyringParsesProjects(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.yaml")
	data := []byte(`default_policy:
  allow_localhost_without_auth: false
projects:
  /work/backend:
    keys:
      - key-one
      - key-two
  /work/frontend:
    keys:
      - key-three
`)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}

	ring, err := LoadKeyring(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if ring.AllowLocalhostWithoutAuth {
		t.Fatal("policy override ignored")
	}
	if project, ok := ring.ProjectForKey("key-two"); !ok || project != "/work/backend" {
		t.Fatalf("key-two -> %q, %v", project, ok)
	}
	if _, ok := ring.ProjectForKey("unknown"); ok {
		t.Fatal("unknown key resolved")
	}
}

func TestLoadKeyringRejectsSharedKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.yaml")
	data := []byte(`projects:
  proj-a:
    keys: [dup]
  proj-b:
    keys: [dup]
`)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadKeyring(path); err == nil {
		t.Fatal("shared key accepted")
	}
}

func TestLoadKeyringBootstrapsMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.yaml")

	ring, err := LoadKeyring(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !ring.AllowLocalhostWithoutAuth {
		t.Fatal("bootstrap should allow localhost")
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("keys file not created: %v", err)
	}

	// A second bootstrap must not overwrite the file.
	res, err := BootstrapDevKey(path, "dev")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	if res.Created {
		t.Fatal("bootstrap replaced an existing file")
	}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info, _ := FromContext(r.Context())
		w.Header().Set("X-Auth-Mode", string(info.Mode))
		w.Header().Set("X-Auth-Project", info.Project)
	})
}

func TestMiddlewareLocalhostBypass(t *testing.T) {
	ring := NewKeyring(true, map[string]string{"secret": "proj"})
	handler := Middleware(ring)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	if rr.Header().Get("X-Auth-Mode") != string(ModeLocalhost) {
		t.Fatalf("mode = %s", rr.Header().Get("X-Auth-Mode"))
	}
}

func TestMiddlewareBearer(t *testing.T) {
	ring := NewKeyring(false, map[string]string{"secret": "proj"})
	handler := Middleware(ring)(okHandler())

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"valid key", "Bearer secret", http.StatusOK},
		{"wrong key", "Bearer nope", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "203.0.113.10:9999"
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tc.status {
				t.Fatalf("status %d, want %d", rr.Code, tc.status)
			}
			if tc.status == http.StatusOK && rr.Header().Get("X-Auth-Project") != "proj" {
				t.Fatalf("project = %s", rr.Header().Get("X-Auth-Project"))
			}
		})
	}
}

func TestMiddlewareForwardedFor(t *testing.T) {
	ring := NewKeyring(true, nil)
	handler := Middleware(ring)(okHandler())

	// Loopback socket but proxied for a remote client: no bypass.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "127.0.0.1:5555"
	req.Header.Set("X-Forwarded-For", "203.0.113.10")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rr.Code)
	}
}
