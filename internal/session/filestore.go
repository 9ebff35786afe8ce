package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"farmwatch/internal/model"
)

// tokenFile is the on-disk shape of the persisted credentials.
type tokenFile struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// profileFile is the on-disk shape of the last-known user profile.
type profileFile struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone_number"`
	Role      string `json:"role"`
}

// DefaultDir returns the per-user config directory for persisted state.
func DefaultDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "farmwatch")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "farmwatch")
}

// FileStore persists tokens and the last-known profile as JSON files
// under a config directory, surviving restarts. It doubles as the
// transport token source: reads are served from an in-memory copy.
type FileStore struct {
	dir string

	mu      sync.RWMutex
	tokens  model.Tokens
	profile model.User
	hasProf bool
}

// NewFileStore opens (and lazily creates) the store at dir, loading any
// previously persisted state.
func NewFileStore(dir string) *FileStore {
	s := &FileStore{dir: dir}
	s.loadFromDisk()
	return s
}

func (s *FileStore) tokenPath() string   { return filepath.Join(s.dir, "token.json") }
func (s *FileStore) profilePath() string { return filepath.Join(s.dir, "profile.json") }

func (s *FileStore) loadFromDisk() {
	if b, err := os.ReadFile(s.tokenPath()); err == nil {
		var tf tokenFile
		if json.Unmarshal(b, &tf) == nil {
			s.tokens = model.Tokens{
				AccessToken:  tf.AccessToken,
				RefreshToken: tf.RefreshToken,
				ExpiresAt:    tf.ExpiresAt,
			}
		}
	}
	if b, err := os.ReadFile(s.profilePath()); err == nil {
		var pf profileFile
		if json.Unmarshal(b, &pf) == nil {
			s.profile = model.User{
				ID:        pf.ID,
				FirstName: pf.FirstName,
				LastName:  pf.LastName,
				Email:     pf.Email,
				Phone:     pf.Phone,
				Role:      pf.Role,
			}
			s.hasProf = true
		}
	}
}

// AccessToken implements transport.TokenSource.
func (s *FileStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.AccessToken
}

// RefreshToken returns the persisted refresh token, if any.
func (s *FileStore) RefreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens.RefreshToken
}

// Tokens returns a copy of the persisted tokens.
func (s *FileStore) Tokens() model.Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// SaveTokens persists tokens to disk and memory.
func (s *FileStore) SaveTokens(t model.Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = t
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(tokenFile{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.ExpiresAt,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.tokenPath(), b, 0o600)
}

// Profile returns the last-known profile and whether one is stored.
func (s *FileStore) Profile() (model.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile, s.hasProf
}

// SaveProfile persists the last-known profile.
func (s *FileStore) SaveProfile(u model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile, s.hasProf = u, true
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(profileFile{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Phone:     u.Phone,
		Role:      u.Role,
	}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.profilePath(), b, 0o600)
}

// Clear wipes tokens and profile from memory and disk.
func (s *FileStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = model.Tokens{}
	s.profile, s.hasProf = model.User{}, false
	_ = os.Remove(s.tokenPath())
	_ = os.Remove(s.profilePath())
}
