package shared

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Flash kinds understood by the layout template.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashWarning = "warning"
	FlashDanger  = "danger"
)

// FlashMessage represents a one-time notification stored in session.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionManager orchestrates signed cookie sessions backed by Redis.
type SessionManager struct {
	client      *redis.Client
	cookieName  string
	ttl         time.Duration
	rememberTTL time.Duration
	secure      bool
	secret      []byte
}

// Session holds per-request session data.
type Session struct {
	ID        string
	values    map[string]string
	userID    string
	remember  bool
	flashes   []FlashMessage
	isNew     bool
	dirty     bool
	destroyed bool
	// replaced is the id given up by Renew, deleted on the next Commit.
	replaced string
}

type sessionPayload struct {
	Values   map[string]string `json:"values"`
	UserID   string            `json:"user_id"`
	Remember bool              `json:"remember"`
	Flashes  []FlashMessage    `json:"flashes"`
}

// NewSessionManager constructs a SessionManager. Sessions live for ttl unless
// the user asked to be remembered, in which case rememberTTL applies and the
// cookie becomes persistent.
func NewSessionManager(client *redis.Client, cookieName string, secret string, ttl, rememberTTL time.Duration, secure bool) *SessionManager {
	if rememberTTL < ttl {
		rememberTTL = ttl
	}
	return &SessionManager{
		client:      client,
		cookieName:  cookieName,
		ttl:         ttl,
		rememberTTL: rememberTTL,
		secure:      secure,
		secret:      []byte(secret),
	}
}

// Load loads or creates a new session for request. Cookies with a bad
// signature are ignored and a fresh session is issued.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return sm.newSession(), nil
		}
		return nil, err
	}

	id, ok := sm.verify(cookie.Value)
	if !ok {
		return sm.newSession(), nil
	}

	payload, err := sm.client.Get(ctx, sm.redisKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return sm.newSession(), nil
		}
		return nil, err
	}

	var stored sessionPayload
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}

	sess := sm.newSession()
	sess.ID = id
	if stored.Values != nil {
		sess.values = stored.Values
	}
	sess.userID = stored.UserID
	sess.remember = stored.Remember
	sess.flashes = stored.Flashes
	sess.isNew = false
	sess.dirty = false
	return sess, nil
}

// Commit persists the session and writes cookie headers as needed.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}

	if sess.destroyed {
		keys := []string{sm.redisKey(sess.ID)}
		if sess.replaced != "" {
			keys = append(keys, sm.redisKey(sess.replaced))
		}
		if err := sm.client.Del(ctx, keys...).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		http.SetCookie(w, &http.Cookie{
			Name:     sm.cookieName,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   sm.secure,
			SameSite: http.SameSiteLaxMode,
		})
		return nil
	}

	ttl := sm.ttl
	if sess.remember {
		ttl = sm.rememberTTL
	}

	if sess.dirty || sess.isNew {
		data, err := json.Marshal(sess.payload())
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, sm.redisKey(sess.ID), data, ttl).Err(); err != nil {
			return err
		}
		sess.dirty = false
	}
	if sess.replaced != "" {
		if err := sm.client.Del(ctx, sm.redisKey(sess.replaced)).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		sess.replaced = ""
	}

	cookie := &http.Cookie{
		Name:     sm.cookieName,
		Value:    sm.sign(sess.ID),
		Path:     "/",
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if sess.remember {
		cookie.Expires = time.Now().Add(ttl)
	}
	http.SetCookie(w, cookie)
	return nil
}

// Destroy marks the session for deletion.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.destroyed = true
}

// Renew moves the session to a fresh id, keeping its data. The old id stops
// resolving once the session is committed.
func (sm *SessionManager) Renew(sess *Session) {
	if sess == nil {
		return
	}
	if sess.replaced == "" {
		sess.replaced = sess.ID
	}
	sess.ID = uuid.NewString()
	sess.dirty = true
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

// CookieValue returns the signed cookie value for a session id.
func (sm *SessionManager) CookieValue(id string) string {
	return sm.sign(id)
}

// Session helpers

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	if s.values == nil {
		return ""
	}
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if s.values == nil {
		return
	}
	delete(s.values, key)
	s.dirty = true
}

// SetUser associates the session with a user ID.
func (s *Session) SetUser(id string) {
	s.userID = id
	s.dirty = true
}

// User returns the current user ID.
func (s *Session) User() string {
	return s.userID
}

// SetRemember switches the session between browser-lifetime and persistent cookies.
func (s *Session) SetRemember(remember bool) {
	s.remember = remember
	s.dirty = true
}

// Remember reports whether the session uses a persistent cookie.
func (s *Session) Remember() bool {
	return s.remember
}

// AddFlash queues a flash message.
func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlash retrieves and clears the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}

func (s *Session) payload() sessionPayload {
	return sessionPayload{Values: s.values, UserID: s.userID, Remember: s.remember, Flashes: s.flashes}
}

func (sm *SessionManager) newSession() *Session {
	return &Session{
		ID:     uuid.NewString(),
		values: make(map[string]string),
		isNew:  true,
		dirty:  true,
	}
}

func (sm *SessionManager) redisKey(id string) string {
	return "session:" + id
}

func (sm *SessionManager) sign(id string) string {
	mac := hmac.New(sha256.New, sm.secret)
	_, _ = mac.Write([]byte(id))
	return id + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func (sm *SessionManager) verify(value string) (string, bool) {
	idx := strings.LastIndexByte(value, '.')
	if idx <= 0 {
		return "", false
	}
	id := value[:idx]
	if !hmac.Equal([]byte(sm.sign(id)), []byte(value)) {
		return "", false
	}
	return id, true
}
