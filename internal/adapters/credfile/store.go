// Package credfile stores the bearer credential as a small JSON document on
// local disk, one file per console origin.
package credfile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	domainauth "github.com/target/medsurge/internal/domain/auth"
)

// document is the on-disk shape. The key name matches what browser clients
// keep in local storage so tooling can read either.
type document struct {
	AuthToken string `json:"authToken"`
}

// Store is a file-backed ports.CredentialStore.
type Store struct {
	mu   sync.Mutex
	path string
}

// New returns a store for origin under dir. The directory is created on first write.
func New(dir, origin string) *Store {
	return &Store{path: filepath.Join(dir, FileName(origin))}
}

// NewAt returns a store backed by an explicit file path.
func NewAt(path string) *Store {
	return &Store{path: path}
}

// FileName derives a stable file name from origin.
func FileName(origin string) string {
	origin = strings.TrimRight(strings.ToLower(strings.TrimSpace(origin)), "/")
	if origin == "" {
		return "credential.json"
	}
	sum := sha256.Sum256([]byte(origin))
	return "credential-" + hex.EncodeToString(sum[:6]) + ".json"
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

func (s *Store) Get(_ context.Context) (domainauth.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read credential: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return "", nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("decode credential file %s: %w", s.path, err)
	}
	return domainauth.Credential(doc.AuthToken), nil
}

// Set writes the credential atomically (temp file + rename) with owner-only permissions.
func (s *Store) Set(_ context.Context, c domainauth.Credential) error {
	if c.IsZero() {
		return errors.New("credential cannot be empty")
	}
	data, err := json.Marshal(document{AuthToken: string(c)})
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credential-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write credential: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod credential: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credential: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace credential: %w", err)
	}
	return nil
}

// Clear removes the file. A missing file is not an error.
func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove credential: %w", err)
	}
	return nil
}
