// Package auth maps bearer API keys to project human keys. Requests from
// loopback addresses may skip auth entirely, controlled by the keys file
// policy; everything else needs a key, and keyed requests are confined to
// the key's project.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const defaultKeysFile = "interlock.keys.yaml"

type keysFile struct {
	DefaultPolicy struct {
		AllowLocalhostWithoutAuth *bool `yaml:"allow_localhost_without_auth"`
	} `yaml:"default_policy"`
	Projects map[string]projectKeys `yaml:"projects"`
}

type projectKeys struct {
	Keys []string `yaml:"keys"`
}

// Keyring is the parsed keys file: key -> project human key, plus the
// localhost policy.
type Keyring struct {
	AllowLocalhostWithoutAuth bool
	keyToProject              map[string]string
}

// ResolveKeysPath honors INTERLOCK_KEYS_FILE, falling back to the working
// directory default.
func ResolveKeysPath() string {
	if v := strings.TrimSpace(os.Getenv("INTERLOCK_KEYS_FILE")); v != "" {
		return v
	}
	return filepath.Join(".", defaultKeysFile)
}

func LoadKeyringFromEnv() (*Keyring, error) {
	return LoadKeyring(ResolveKeysPath())
}

// LoadKeyring reads the keys file at path, bootstrapping one with a dev key
// on first run. An empty path yields an open keyring (localhost only).
func LoadKeyring(path string) (*Keyring, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return defaultKeyring(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read keys file: %w", err)
		}
		if _, err := BootstrapDevKey(path, "dev"); err != nil {
			return nil, fmt.Errorf("bootstrap dev key: %w", err)
		}
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read keys file: %w", err)
		}
	}
	var cfg keysFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse keys file: %w", err)
	}
	ring := &Keyring{
		AllowLocalhostWithoutAuth: true,
		keyToProject:              make(map[string]string),
	}
	if cfg.DefaultPolicy.AllowLocalhostWithoutAuth != nil {
		ring.AllowLocalhostWithoutAuth = *cfg.DefaultPolicy.AllowLocalhostWithoutAuth
	}
	for project, keys := range cfg.Projects {
		for _, key := range keys.Keys {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			if existing, ok := ring.keyToProject[key]; ok && existing != project {
				return nil, fmt.Errorf("key reused across projects: %q", key)
			}
			ring.keyToProject[key] = project
		}
	}
	return ring, nil
}

func defaultKeyring() *Keyring {
	return &Keyring{AllowLocalhostWithoutAuth: true, keyToProject: make(map[string]string)}
}

// NewKeyring builds a keyring directly, for tests.
func NewKeyring(allowLocalhost bool, keyToProject map[string]string) *Keyring {
	clone := make(map[string]string, len(keyToProject))
	for k, v := range keyToProject {
		clone[k] = v
	}
	return &Keyring{AllowLocalhostWithoutAuth: allowLocalhost, keyToProject: clone}
}

func (k *Keyring) ProjectForKey(key string) (string, bool) {
	if k == nil {
		return "", false
	}
	project, ok := k.keyToProject[key]
	return project, ok
}

// BootstrapResult describes a bootstrapped dev key.
type BootstrapResult struct {
	KeysFile string
	Project  string
	Key      string
	Created  bool
}

// BootstrapDevKey creates the keys file with a fresh dev key when it does
// not exist yet, so a first run needs no manual setup. An existing file is
// left untouched.
func BootstrapDevKey(keysPath, project string) (*BootstrapResult, error) {
	if keysPath == "" {
		keysPath = ResolveKeysPath()
	}
	if project == "" {
		project = "dev"
	}

	if _, err := os.Stat(keysPath); err == nil {
		return &BootstrapResult{KeysFile: keysPath, Created: false}, nil
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("check keys file: %w", err)
	}

	key, err := GenerateKey()
	if err != nil {
		return nil, err
	}
	cfg := keysFile{
		Projects: map[string]projectKeys{
			project: {Keys: []string{key}},
		},
	}
	allowLocalhost := true
	cfg.DefaultPolicy.AllowLocalhostWithoutAuth = &allowLocalhost

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal keys file: %w", err)
	}
	if err := os.WriteFile(keysPath, data, 0600); err != nil {
		return nil, fmt.Errorf("write keys file: %w", err)
	}
	return &BootstrapResult{KeysFile: keysPath, Project: project, Key: key, Created: true}, nil
}

// GenerateKey returns a 256-bit url-safe random key.
func GenerateKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
