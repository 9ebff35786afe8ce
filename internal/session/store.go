// Package session owns the authenticated identity: login, logout,
// restore-on-start, and the forced clear on 401. It is the only place
// that mutates tokens.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"farmwatch/internal/errs"
	"farmwatch/internal/model"
	"farmwatch/internal/transport"
)

// Credentials is the login form input.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// API is the slice of the transport client the store needs.
type API interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Post(ctx context.Context, path string, body any) (json.RawMessage, error)
	Patch(ctx context.Context, path string, body any) (json.RawMessage, error)
}

// Store holds the current Session and notifies subscribers on change.
type Store struct {
	api    API
	tokens *FileStore
	log    *zap.Logger

	mu      sync.Mutex
	current *model.Session
	subs    map[int]func(*model.Session)
	nextSub int
}

// NewStore constructs a Store over the transport client and token store.
func NewStore(api API, tokens *FileStore, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		api:    api,
		tokens: tokens,
		log:    log,
		subs:   map[int]func(*model.Session){},
	}
}

// Current returns the session, or nil when unauthenticated.
func (s *Store) Current() *model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	cpy := *s.current
	return &cpy
}

// IsAuthenticated reports whether a session exists.
func (s *Store) IsAuthenticated() bool { return s.Current() != nil }

// Subscribe registers a listener invoked on every session change (nil on
// clear). The returned function unsubscribes.
func (s *Store) Subscribe(fn func(*model.Session)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(sess *model.Session) {
	s.mu.Lock()
	fns := make([]func(*model.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		var cpy *model.Session
		if sess != nil {
			c := *sess
			cpy = &c
		}
		fn(cpy)
	}
}

type loginResponse struct {
	Access  string          `json:"access"`
	Refresh string          `json:"refresh"`
	User    json.RawMessage `json:"user"`
}

// Login authenticates, persists tokens, then fetches the profile to
// populate identity and role before returning. On failure the server's
// message is surfaced verbatim, defaulting to "Invalid credentials",
// and no session is created.
func (s *Store) Login(ctx context.Context, creds Credentials) error {
	raw, err := s.api.Post(ctx, transport.EpLogin, creds)
	if err != nil {
		return loginError(err)
	}

	var resp loginResponse
	if err := json.Unmarshal(raw, &resp); err != nil || resp.Access == "" {
		return errors.New("invalid response from server")
	}

	toks := model.Tokens{
		AccessToken:  resp.Access,
		RefreshToken: resp.Refresh,
		ExpiresAt:    tokenExpiry(resp.Access),
	}
	if err := s.tokens.SaveTokens(toks); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}

	profile, err := s.fetchProfile(ctx)
	if err != nil {
		// no partial session: a login that cannot resolve an identity
		// is a failed login
		s.tokens.Clear()
		return fmt.Errorf("fetch profile: %w", err)
	}
	_ = s.tokens.SaveProfile(profile)

	sess := sessionFrom(profile, toks)
	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
	s.log.Info("logged in", zap.Int64("user", sess.UserID), zap.String("role", string(sess.Role)))
	s.notify(&sess)
	return nil
}

func loginError(err error) error {
	var te *transport.Error
	if errors.As(err, &te) && !te.IsNetwork() {
		if te.Message != "" {
			return errors.New(te.Message)
		}
		return errors.New("Invalid credentials")
	}
	return err
}

// Logout best-effort notifies the backend, then clears local state
// unconditionally: the goal is local session termination, not
// server-side confirmation.
func (s *Store) Logout(ctx context.Context) {
	if refresh := s.tokens.RefreshToken(); refresh != "" {
		if _, err := s.api.Post(ctx, transport.EpLogout, map[string]string{"refresh": refresh}); err != nil {
			s.log.Debug("logout request failed", zap.Error(err))
		}
	}
	s.clearLocked(false)
}

// Restore rebuilds the session from persisted tokens at startup. A
// missing token is not an error (unauthenticated start); a profile
// fetch failure clears the stale state and reports it.
func (s *Store) Restore(ctx context.Context) error {
	if s.tokens.AccessToken() == "" {
		return nil
	}
	profile, err := s.fetchProfile(ctx)
	if err != nil {
		s.clearLocked(false)
		return fmt.Errorf("restore session: %w", err)
	}
	_ = s.tokens.SaveProfile(profile)
	sess := sessionFrom(profile, s.tokens.Tokens())
	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
	s.notify(&sess)
	return nil
}

// ForceClear is the 401 path. It clears the session exactly once even
// when several in-flight requests hit 401 concurrently; subsequent
// calls are no-ops until a new login.
func (s *Store) ForceClear() {
	s.clearLocked(true)
}

func (s *Store) clearLocked(forced bool) {
	s.mu.Lock()
	hadSession := s.current != nil
	hadTokens := s.tokens.AccessToken() != ""
	if !hadSession && !hadTokens {
		s.mu.Unlock()
		return
	}
	s.current = nil
	// tokens are wiped under the same lock so concurrent 401s cannot
	// both observe a live session
	s.tokens.Clear()
	s.mu.Unlock()

	if forced {
		s.log.Warn("session cleared after 401")
	}
	s.notify(nil)
}

type profilePayload struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone_number"`
	Role      string `json:"role"`
}

func (s *Store) fetchProfile(ctx context.Context) (model.User, error) {
	raw, err := s.api.Get(ctx, transport.EpProfile)
	if err != nil {
		return model.User{}, err
	}
	var p profilePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return model.User{}, fmt.Errorf("decode profile: %w", err)
	}
	return model.User{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
		Role:      p.Role,
	}, nil
}

func sessionFrom(u model.User, t model.Tokens) model.Session {
	return model.Session{
		UserID:      u.ID,
		DisplayName: u.DisplayName(),
		Email:       u.Email,
		Role:        model.ParseRole(u.Role),
		Tokens:      t,
	}
}

// tokenExpiry reads exp from the JWT without verifying the signature.
// Informational only; validity is enforced by the backend via 401.
func tokenExpiry(access string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// ProfilePatch is the editable subset of the profile.
type ProfilePatch struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone_number"`
}

// UpdateProfile patches the profile and refreshes the session identity.
func (s *Store) UpdateProfile(ctx context.Context, patch ProfilePatch) error {
	if !s.IsAuthenticated() {
		return errs.ErrNoSession
	}
	if _, err := s.api.Patch(ctx, transport.EpProfile, patch); err != nil {
		return err
	}
	profile, err := s.fetchProfile(ctx)
	if err != nil {
		return err
	}
	_ = s.tokens.SaveProfile(profile)
	sess := sessionFrom(profile, s.tokens.Tokens())
	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
	s.notify(&sess)
	return nil
}

// ChangePassword validates locally, then submits the change. Validation
// failures never reach the network.
func (s *Store) ChangePassword(ctx context.Context, oldPwd, newPwd, confirm string) error {
	if !s.IsAuthenticated() {
		return errs.ErrNoSession
	}
	if newPwd != confirm {
		return fmt.Errorf("%w: new passwords do not match", errs.ErrValidation)
	}
	if len(newPwd) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", errs.ErrValidation)
	}
	_, err := s.api.Patch(ctx, transport.EpChangePassword, map[string]string{
		"old_password": oldPwd,
		"new_password": newPwd,
	})
	return err
}
