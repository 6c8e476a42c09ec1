// File: internal/infra/session/store.go
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"chopshop/internal/domain/ports/repository"

	"github.com/golang-jwt/jwt/v5"
)

var _ repository.SessionStore = (*FileStore)(nil)

// FileStore persists the session as a JSON file, the CLI's stand-in for the
// browser's localStorage. A missing file simply means logged out. An
// override token, when given, wins over whatever the file holds for the
// life of the process; Save and Clear still operate on the file.
type FileStore struct {
	mu       sync.RWMutex
	path     string
	override string
	cur      *repository.Session
}

func NewFileStore(path, override string) (*FileStore, error) {
	s := &FileStore{path: path, override: override}
	if _, err := s.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Load() (*repository.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.cur = nil
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}

	var sess repository.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		// A corrupt session file is treated as logged out rather than
		// wedging every command.
		s.cur = nil
		return nil, nil
	}
	s.cur = &sess
	return &sess, nil
}

func (s *FileStore) Save(sess *repository.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	b, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	s.cur = sess
	return nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cur = nil
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

func (s *FileStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.override != "" {
		return s.override
	}
	if s.cur == nil {
		return ""
	}
	return s.cur.Token
}

// Current returns the cached session without touching the filesystem.
func (s *FileStore) Current() *repository.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// TokenExpiry reads the exp claim of a bearer token without verifying the
// signature; the client has no key material and only wants to know whether
// re-authentication is due before it bothers the backend.
func TokenExpiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("parse token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, errors.New("token has no expiry claim")
	}
	return exp.Time, nil
}

// Expired reports whether the stored credential is past its exp claim.
// Unparseable tokens count as expired.
func Expired(token string, now time.Time) bool {
	if token == "" {
		return true
	}
	exp, err := TokenExpiry(token)
	if err != nil {
		return true
	}
	return now.After(exp)
}
