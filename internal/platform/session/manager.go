package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

const (
	defaultCookieName = "onclick_session"
	defaultMaxAge     = 30 * 24 * time.Hour
	globalOwnerKey    = "*"
)

// ErrNoSession indicates the request carried no session cookie.
var ErrNoSession = errors.New("session: no cookie")

// Config defines cookie parameters for the session manager.
type Config struct {
	CookieName string
	HashKey    []byte
	BlockKey   []byte
	Secure     bool
	MaxAge     time.Duration
	Path       string
}

// Manager encodes sessions into signed (and optionally encrypted) cookies.
type Manager struct {
	cfg   Config
	codec *securecookie.SecureCookie
	now   func() time.Time
}

// Data is the serialised cookie payload.
type Data struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"createdAt"`
	Owners    map[string]bool `json:"owners,omitempty"`
}

// Session is the per-request view of a browsing session. Owner flags mirror the
// per-handle and global markers a creator receives after publishing; they are a
// convenience for showing edit controls, not an authorization boundary.
type Session struct {
	data  Data
	dirty bool
}

// NewManager validates the configuration and builds a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.HashKey) < 32 {
		return nil, errors.New("session: hash key must be at least 32 bytes")
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, errors.New("session: block key must be 16, 24 or 32 bytes")
	}
	if strings.TrimSpace(cfg.CookieName) == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = defaultMaxAge
	}
	if cfg.Path == "" {
		cfg.Path = "/"
	}

	var block []byte
	if len(cfg.BlockKey) > 0 {
		block = cfg.BlockKey
	}
	codec := securecookie.New(cfg.HashKey, block)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.MaxAge.Seconds()))

	return &Manager{cfg: cfg, codec: codec, now: time.Now}, nil
}

// RandomKeys generates ephemeral hash and block keys for local runs.
func RandomKeys() (hashKey, blockKey []byte) {
	return securecookie.GenerateRandomKey(64), securecookie.GenerateRandomKey(32)
}

// Load decodes the session cookie from the request.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, err
	}
	var data Data
	if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &data); err != nil {
		return nil, fmt.Errorf("session: decode: %w", err)
	}
	if data.ID == "" {
		return nil, errors.New("session: missing id")
	}
	if data.Owners == nil {
		data.Owners = make(map[string]bool)
	}
	return &Session{data: data}, nil
}

// New returns a fresh session with a random identifier.
func (m *Manager) New() *Session {
	return &Session{
		data: Data{
			ID:        uuid.NewString(),
			CreatedAt: m.now().UTC(),
			Owners:    make(map[string]bool),
		},
		dirty: true,
	}
}

// Save writes the session cookie when it changed during the request.
func (m *Manager) Save(w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return errors.New("session: nil session")
	}
	if !sess.dirty {
		return nil
	}
	encoded, err := m.codec.Encode(m.cfg.CookieName, sess.data)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    encoded,
		Path:     m.cfg.Path,
		MaxAge:   int(m.cfg.MaxAge.Seconds()),
		Expires:  m.now().Add(m.cfg.MaxAge).UTC(),
		Secure:   m.cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	sess.dirty = false
	return nil
}

// ID returns the stable session identifier.
func (s *Session) ID() string {
	return s.data.ID
}

// GrantOwner marks the session as the owner of handle. An empty handle sets the global flag.
func (s *Session) GrantOwner(handle string) {
	key := ownerKey(handle)
	if s.data.Owners == nil {
		s.data.Owners = make(map[string]bool)
	}
	if s.data.Owners[key] {
		return
	}
	s.data.Owners[key] = true
	s.dirty = true
}

// OwnsHandle reports the handle-scoped owner flag.
func (s *Session) OwnsHandle(handle string) bool {
	if s == nil || strings.TrimSpace(handle) == "" {
		return false
	}
	return s.data.Owners[ownerKey(handle)]
}

// GlobalOwner reports the global owner flag set by any publish.
func (s *Session) GlobalOwner() bool {
	if s == nil {
		return false
	}
	return s.data.Owners[globalOwnerKey]
}

// Dirty reports whether Save would write a cookie.
func (s *Session) Dirty() bool {
	return s.dirty
}

func ownerKey(handle string) string {
	handle = strings.ToLower(strings.TrimSpace(handle))
	if handle == "" {
		return globalOwnerKey
	}
	return handle
}
