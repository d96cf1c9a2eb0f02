// pantry/session/session.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/authform/pantry/crypto"
)

// Session holds per-visitor form state: the CSRF token, pending toast,
// outstanding submission nonces and, once signed in, the account email.
type Session struct {
	mu        sync.RWMutex
	id        string
	data      map[string]any
	isNew     bool
	modified  bool
	expiresAt time.Time
}

// ID returns the session ID.
func (s *Session) ID() string {
	return s.id
}

// IsNew returns true if the session was just created.
func (s *Session) IsNew() bool {
	return s.isNew
}

// Get retrieves a value from the session.
func (s *Session) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.data[key]
	return val, ok
}

// GetString retrieves a string value, or "" when absent.
func (s *Session) GetString(key string) string {
	val, ok := s.Get(key)
	if !ok {
		return ""
	}
	str, _ := val.(string)
	return str
}

// GetStrings retrieves a string list. Values that went through a JSON
// backend come back as []any and are converted.
func (s *Session) GetStrings(key string) []string {
	val, ok := s.Get(key)
	if !ok {
		return nil
	}
	switch v := val.(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	default:
		return nil
	}
}

// Set stores a value in the session.
func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	s.modified = true
}

// Delete removes a value from the session.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; !ok {
		return
	}
	delete(s.data, key)
	s.modified = true
}

// Clear removes all values from the session.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = make(map[string]any)
	s.modified = true
}

// Modified returns true if the session data has been changed.
func (s *Session) Modified() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modified
}

// ExpiresAt returns when the session expires.
func (s *Session) ExpiresAt() time.Time {
	return s.expiresAt
}

// Store defines the interface for session storage backends.
type Store interface {
	// Load retrieves session data by ID.
	// Returns ErrNotFound if the session doesn't exist.
	Load(ctx context.Context, id string) (*SessionData, error)

	// Save stores session data.
	Save(ctx context.Context, data *SessionData) error

	// Delete removes a session by ID.
	Delete(ctx context.Context, id string) error

	// Close releases any resources.
	Close() error
}

// SessionData is the serializable session data stored in backends.
type SessionData struct {
	ID        string         `json:"id"`
	Data      map[string]any `json:"data"`
	ExpiresAt time.Time      `json:"expires_at"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (s *SessionData) MarshalBinary() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (s *SessionData) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, s)
}

var (
	ErrNotFound = errors.New("session: not found")
	ErrExpired  = errors.New("session: expired")
)

func generateID() (string, error) {
	return crypto.RandomHex(32)
}

// Manager handles session creation, retrieval, and persistence.
type Manager struct {
	store  Store
	config Config
}

// Config configures the session manager.
type Config struct {
	// CookieName is the name of the session cookie.
	// Default: "authform_session".
	CookieName string

	// MaxAge is the session lifetime.
	// Default: 24 hours.
	MaxAge time.Duration

	// Path is the cookie path.
	// Default: "/".
	Path string

	// Secure sets the Secure flag on the cookie.
	Secure bool

	// SameSite sets the SameSite attribute.
	// Default: http.SameSiteLaxMode.
	SameSite http.SameSite

	// IDGenerator generates session IDs.
	// Default: 32 random bytes, hex encoded.
	IDGenerator func() (string, error)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		CookieName:  "authform_session",
		MaxAge:      24 * time.Hour,
		Path:        "/",
		Secure:      true,
		SameSite:    http.SameSiteLaxMode,
		IDGenerator: generateID,
	}
}

// NewManager creates a session manager with the given store and config.
// Session cookies are always HttpOnly.
func NewManager(store Store, cfg Config) *Manager {
	if cfg.CookieName == "" {
		cfg.CookieName = "authform_session"
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 24 * time.Hour
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = http.SameSiteLaxMode
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = generateID
	}
	return &Manager{store: store, config: cfg}
}

// CookieName returns the name of the session cookie.
func (m *Manager) CookieName() string {
	return m.config.CookieName
}

// Get retrieves the session from the request, creating a new one if needed.
func (m *Manager) Get(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.config.CookieName)
	if err == nil && cookie.Value != "" {
		data, err := m.store.Load(r.Context(), cookie.Value)
		if err == nil {
			if time.Now().After(data.ExpiresAt) {
				_ = m.store.Delete(r.Context(), cookie.Value)
			} else {
				if data.Data == nil {
					data.Data = make(map[string]any)
				}
				return &Session{
					id:        data.ID,
					data:      data.Data,
					expiresAt: data.ExpiresAt,
				}, nil
			}
		} else if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrExpired) {
			return nil, err
		}
	}
	return m.New()
}

// New creates a new session.
func (m *Manager) New() (*Session, error) {
	id, err := m.config.IDGenerator()
	if err != nil {
		return nil, err
	}
	return &Session{
		id:        id,
		data:      make(map[string]any),
		isNew:     true,
		modified:  true,
		expiresAt: time.Now().Add(m.config.MaxAge),
	}, nil
}

// Save persists the session and sets the cookie.
func (m *Manager) Save(w http.ResponseWriter, r *http.Request, session *Session) error {
	session.mu.RLock()
	now := time.Now()
	data := &SessionData{
		ID:        session.id,
		Data:      session.data,
		ExpiresAt: session.expiresAt,
		UpdatedAt: now,
	}
	if session.isNew {
		data.CreatedAt = now
	}
	session.mu.RUnlock()

	if err := m.store.Save(r.Context(), data); err != nil {
		return err
	}

	session.mu.Lock()
	session.modified = false
	session.mu.Unlock()

	http.SetCookie(w, m.cookie(session.id, int(m.config.MaxAge.Seconds())))
	return nil
}

// Regenerate gives the session a new ID while preserving its data.
// Call after sign-in to prevent session fixation.
func (m *Manager) Regenerate(w http.ResponseWriter, r *http.Request, session *Session) error {
	newID, err := m.config.IDGenerator()
	if err != nil {
		return err
	}

	session.mu.Lock()
	oldID := session.id
	session.id = newID
	session.modified = true
	session.mu.Unlock()

	_ = m.store.Delete(r.Context(), oldID)
	return m.Save(w, r, session)
}

// Close closes the session manager and underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.config.CookieName,
		Value:    value,
		Path:     m.config.Path,
		MaxAge:   maxAge,
		Secure:   m.config.Secure,
		HttpOnly: true,
		SameSite: m.config.SameSite,
	}
}
