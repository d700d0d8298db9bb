package auth

import (
	"sync"
	"time"

	"github.com/nerrad567/pawl-core/internal/cryptox"
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type session struct {
	owner  string
	expiry time.Time
	timer  *time.Timer
}

// Sessions tracks live session tokens.
//
// The token map and the per-user index are guarded by one mutex and are
// always updated together, so a token is either in both or in neither.
//
// Each token gets a timer that purges it at its expiry instant. Early
// removal (logout, user edit or removal) leaves the timer running; when it
// fires on an absent token it does nothing.
type Sessions struct {
	lifetime time.Duration
	now      func() time.Time
	logger   Logger

	mu      sync.Mutex
	tokens  map[string]*session
	byOwner map[string]map[string]struct{}
	closed  bool
}

// NewSessions creates a session manager issuing tokens valid for lifetime.
func NewSessions(lifetime time.Duration) *Sessions {
	return &Sessions{
		lifetime: lifetime,
		now:      time.Now,
		logger:   noopLogger{},
		tokens:   make(map[string]*session),
		byOwner:  make(map[string]map[string]struct{}),
	}
}

// SetLogger sets the logger for the session manager.
func (s *Sessions) SetLogger(logger Logger) {
	s.logger = logger
}

// Lifetime returns the fixed session lifetime.
func (s *Sessions) Lifetime() time.Duration {
	return s.lifetime
}

// Issue mints a new token for owner and schedules its expiry.
func (s *Sessions) Issue(owner string) (Session, error) {
	token, err := cryptox.RandomToken()
	if err != nil {
		return Session{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Session{}, ErrClosed
	}

	expiry := s.now().Add(s.lifetime)
	sess := &session{owner: owner, expiry: expiry}
	sess.timer = time.AfterFunc(s.lifetime, func() { s.expire(token) })

	s.tokens[token] = sess
	set, ok := s.byOwner[owner]
	if !ok {
		set = make(map[string]struct{})
		s.byOwner[owner] = set
	}
	set[token] = struct{}{}

	return Session{Token: token, Owner: owner, Expiry: expiry}, nil
}

// Authenticate returns the owner of an active token. Expired tokens found
// here are purged on the spot.
func (s *Sessions) Authenticate(token string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.tokens[token]
	if !ok {
		return "", ErrUnauthenticated
	}
	if !s.now().Before(sess.expiry) {
		s.purgeLocked(token)
		return "", ErrUnauthenticated
	}
	return sess.owner, nil
}

// Revoke purges token and reports whether it was present. Revoking an
// absent token is not an error.
func (s *Sessions) Revoke(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.purgeLocked(token)
}

// RevokeUser purges every token owned by owner and returns how many there
// were. Afterwards owner has no entry in either map.
func (s *Sessions) RevokeUser(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	set := s.byOwner[owner]
	for token := range set {
		delete(s.tokens, token)
	}
	delete(s.byOwner, owner)

	if n := len(set); n > 0 {
		s.logger.Info("sessions revoked", "username", owner, "count", n)
		return n
	}
	return 0
}

// Count returns the number of tracked tokens, expired ones included until
// they are purged.
func (s *Sessions) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// CountFor returns the number of tracked tokens owned by owner.
func (s *Sessions) CountFor(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byOwner[owner])
}

// Close stops pending expiry timers and drops every session. Issue fails
// afterwards.
func (s *Sessions) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sess := range s.tokens {
		sess.timer.Stop()
	}
	s.tokens = make(map[string]*session)
	s.byOwner = make(map[string]map[string]struct{})
	s.closed = true
}

// expire is the timer callback. The token may already be gone.
func (s *Sessions) expire(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.purgeLocked(token) {
		s.logger.Debug("session expired")
	}
}

// purgeLocked removes token from both maps. Caller holds s.mu.
func (s *Sessions) purgeLocked(token string) bool {
	sess, ok := s.tokens[token]
	if !ok {
		return false
	}
	delete(s.tokens, token)

	if set, ok := s.byOwner[sess.owner]; ok {
		delete(set, token)
		if len(set) == 0 {
			delete(s.byOwner, sess.owner)
		}
	}
	return true
}
