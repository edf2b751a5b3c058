package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestInitKeysCommandCreatesKey(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "interlock.keys.yaml")

	cmd := initKeysCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--project", "demo", "--keys-file", keyPath})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("execute init-keys: %v", err)
	}

	data, err := os.ReadFile(keyPath)
	if err != nil {
		t.Fatalf("read keys file: %v", err)
	}
	if !bytes.Contains(data, []byte("demo")) {
		t.Fatal("project section not written")
	}
	if !bytes.Contains(out.Bytes(), []byte("key: ")) {
		t.Fatalf("key not printed: %q", out.String())
	}
}

func TestServeCommandFlags(t *testing.T) {
	cmd := serveCmd()
	for _, name := range []string{"addr", "db", "socket", "keys-file"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Fatalf("serve missing --%s", name)
		}
	}
}
