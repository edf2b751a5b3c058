package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mistakeknot/interlock/internal/auth"
)

func TestInitKeysFileCreatesAndAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keys.yaml")

	first, err := InitKeysFile(path, "proj-a")
	if err != nil {
		t.Fatalf("first init: %v", err)
	}
	second, err := InitKeysFile(path, "proj-a")
	if err != nil {
		t.Fatalf("second init: %v", err)
	}
	if first == second {
		t.Fatal("generated keys are not unique")
	}
	other, err := InitKeysFile(path, "proj-b")
	if err != nil {
		t.Fatalf("third init: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Fatalf("keys file mode %o", info.Mode().Perm())
	}

	ring, err := auth.LoadKeyring(path)
	if err != nil {
		t.Fatalf("load keyring: %v", err)
	}
	for key, want := range map[string]string{first: "proj-a", second: "proj-a", other: "proj-b"} {
		if project, ok := ring.ProjectForKey(key); !ok || project != want {
			t.Fatalf("key %q -> %q, %v (want %q)", key, project, ok, want)
		}
	}
}

func TestInitKeysFileValidation(t *testing.T) {
	if _, err := InitKeysFile("", "proj"); err == nil {
		t.Fatal("empty path accepted")
	}
	if _, err := InitKeysFile("keys.yaml", ""); err == nil {
		t.Fatal("empty project accepted")
	}
}
