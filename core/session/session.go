package session

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/cadenza-app/cadenza/core"
)

var (
	salt    = []byte("cadenza.core.session")
	nowFunc = time.Now // mockable

	// errors
	ErrInvalidSession = errors.New("invalid session")
	ErrSessionExpired = errors.New("session expired")
)

// Session is the server side state behind a portal login cookie.
type Session struct {
	Key        string    `json:"-"`
	UserID     string    `json:"user_id"`
	Roles      []string  `json:"roles"`
	CreatedAt  time.Time `json:"created_at"`   // UTC
	LastSeenAt time.Time `json:"last_seen_at"` // UTC; slides on every verified use
	ExpiresAt  time.Time `json:"expires_at"`   // UTC; absolute lifetime
}

type (
	// Store persists sessions keyed by their opaque key.
	Store interface {
		SaveSession(sess Session) error
		GetSession(key string) (Session, error)
		DeleteSessions(keys ...string) error
		DeleteUserSessions(userID string) error
	}

	// Manager starts, verifies and destroys cookie-backed sessions.
	//
	// The cookie value is `key.signature`; the signature is checked before the
	// store is ever consulted, so a tampered cookie costs no lookup.
	Manager struct {
		store       Store
		secretKey   []byte
		ttl         time.Duration
		idleTimeout time.Duration
	}
)

func NewManager(store Store) *Manager {
	return &Manager{
		store:       store,
		secretKey:   []byte(core.Conf.SecretKey),
		ttl:         core.Conf.SessionTTL,
		idleTimeout: core.Conf.SessionIdleTimeout,
	}
}

// Start creates a new session for the user and returns it along with the value
// to be set on the session cookie.
func (m *Manager) Start(userID string, roles []string) (Session, string, error) {
	key, err := newKey()
	if err != nil {
		return Session{}, "", errors.Wrap(err, "generating session key")
	}

	now := nowFunc().UTC()
	sess := Session{
		Key:        key,
		UserID:     userID,
		Roles:      roles,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(m.ttl),
	}
	if err := m.store.SaveSession(sess); err != nil {
		return Session{}, "", errors.Wrap(err, "saving session")
	}
	return sess, m.CookieValue(sess), nil
}

// CookieValue returns the signed cookie representation of the session.
func (m *Manager) CookieValue(sess Session) string {
	return sess.Key + "." + m.sign(sess.Key)
}

// Verify checks the cookie value's signature, loads the session and enforces
// its absolute and idle lifetimes. A verified use slides LastSeenAt.
func (m *Manager) Verify(cookieVal string) (Session, error) {
	key, err := m.checkSignature(cookieVal)
	if err != nil {
		return Session{}, err
	}

	sess, err := m.store.GetSession(key)
	if err != nil {
		return Session{}, ErrInvalidSession
	}

	now := nowFunc().UTC()
	if now.After(sess.ExpiresAt) || now.After(sess.LastSeenAt.Add(m.idleTimeout)) {
		_ = m.store.DeleteSessions(sess.Key)
		return Session{}, ErrSessionExpired
	}

	sess.LastSeenAt = now
	if err := m.store.SaveSession(sess); err != nil {
		return Session{}, errors.Wrap(err, "sliding session")
	}
	return sess, nil
}

// Destroy deletes the session referenced by the cookie value. Unknown or
// tampered cookies are ignored.
func (m *Manager) Destroy(cookieVal string) error {
	key, err := m.checkSignature(cookieVal)
	if err != nil {
		return nil
	}
	return m.store.DeleteSessions(key)
}

// DestroyAll deletes every session belonging to the user.
func (m *Manager) DestroyAll(userID string) error {
	return m.store.DeleteUserSessions(userID)
}

func (m *Manager) checkSignature(cookieVal string) (string, error) {
	parts := strings.SplitN(cookieVal, ".", 2)
	if len(parts) < 2 || parts[0] == "" {
		return "", ErrInvalidSession
	}
	key, sig := parts[0], parts[1]
	if subtle.ConstantTimeCompare([]byte(m.sign(key)), []byte(sig)) == 0 {
		return "", ErrInvalidSession
	}
	return key, nil
}

func (m *Manager) sign(key string) string {
	k := sha256.Sum256(append(salt, m.secretKey...))
	h := hmac.New(sha256.New, k[:])
	h.Write([]byte(key))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func newKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
