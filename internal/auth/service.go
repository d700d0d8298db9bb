package auth

import (
	"context"
	"fmt"

	"github.com/nerrad567/pawl-core/internal/cryptox"
	"github.com/nerrad567/pawl-core/internal/registry"
)

// LoginRecorder receives the outcome of every login attempt.
type LoginRecorder interface {
	RecordLogin(username string, success bool)
}

type noopRecorder struct{}

func (noopRecorder) RecordLogin(string, bool) {}

// Service is the credential-checked front of the record registry.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Service struct {
	reg      *registry.Registry
	sessions *Sessions
	logger   Logger
	logins   LoginRecorder

	// Replaceable in tests to count or speed up hashing.
	hash   func(password string) (string, error)
	verify func(password, encodedHash string) (bool, error)
}

// NewService wires the registry and the session manager together.
func NewService(reg *registry.Registry, sessions *Sessions) *Service {
	return &Service{
		reg:      reg,
		sessions: sessions,
		logger:   noopLogger{},
		logins:   noopRecorder{},
		hash:     cryptox.HashPassword,
		verify:   cryptox.VerifyPassword,
	}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// SetLoginRecorder sets where login outcomes are reported.
func (s *Service) SetLoginRecorder(r LoginRecorder) {
	s.logins = r
}

// Sessions returns the underlying session manager.
func (s *Service) Sessions() *Sessions {
	return s.sessions
}

// Login checks a username and password and issues a session.
//
// Exactly one password verification runs per call: against the stored hash
// when the user exists, against the decoy hash when it does not. Both
// failures return ErrInvalidCredentials.
func (s *Service) Login(_ context.Context, username, password string) (Session, error) {
	user, known := s.reg.Users.Get(username)
	hash := user.Passhash
	if !known {
		decoy, err := cryptox.DecoyHash()
		if err != nil {
			return Session{}, fmt.Errorf("loading decoy hash: %w", err)
		}
		hash = decoy
	}

	match, err := s.verify(password, hash)
	if err != nil {
		s.logger.Error("password verification failed", "username", username, "error", err)
		s.logins.RecordLogin(username, false)
		return Session{}, ErrInvalidCredentials
	}
	if !known || !match {
		s.logger.Info("login failed", "username", username)
		s.logins.RecordLogin(username, false)
		return Session{}, ErrInvalidCredentials
	}

	// Issue under the user read lock so a concurrent edit or removal either
	// happens first (and we refuse) or cascades over the new token.
	var (
		sess     Session
		issueErr error
	)
	s.reg.Users.View(username, func(current registry.User, ok bool) {
		if !ok || current.Passhash != hash {
			issueErr = ErrInvalidCredentials
			return
		}
		sess, issueErr = s.sessions.Issue(username)
	})
	if issueErr != nil {
		s.logins.RecordLogin(username, false)
		return Session{}, issueErr
	}

	s.logger.Info("login succeeded", "username", username)
	s.logins.RecordLogin(username, true)
	return sess, nil
}

// Logout revokes token. Unknown tokens are ignored.
func (s *Service) Logout(token string) {
	s.sessions.Revoke(token)
}

// Authenticate returns the username bound to an active session token.
func (s *Service) Authenticate(token string) (string, error) {
	if token == "" {
		return "", ErrUnauthenticated
	}
	return s.sessions.Authenticate(token)
}

// AuthenticateAPI checks a Ratchet API key.
func (s *Service) AuthenticateAPI(key string) error {
	stored, ok := s.reg.APIKeys.Get(registry.APIKeyRowKey)
	if !ok || key == "" || !cryptox.ConstantTimeEqual(key, stored.Key) {
		return ErrAPIKeyNotFound
	}
	return nil
}

// AddUser creates an operator. The password is hashed before storage.
func (s *Service) AddUser(ctx context.Context, username, password string) error {
	if !IsValidUsername(username) || password == "" {
		return ErrInvalidInput
	}
	if s.reg.Users.Contains(username) {
		return registry.ErrConflict
	}

	hash, err := s.hash(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	if err := s.reg.Users.Add(ctx, registry.User{Username: username, Passhash: hash}); err != nil {
		return err
	}

	s.logger.Info("user added", "username", username)
	return nil
}

// EditUser replaces an operator's password and revokes all of their
// sessions.
func (s *Service) EditUser(ctx context.Context, username, password string) error {
	if !IsValidUsername(username) || password == "" {
		return ErrInvalidInput
	}
	if !s.reg.Users.Contains(username) {
		return registry.ErrGone
	}

	hash, err := s.hash(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	err = s.reg.Users.Edit(ctx, registry.User{Username: username, Passhash: hash}, func(registry.User) {
		s.sessions.RevokeUser(username)
	})
	if err != nil {
		return err
	}

	s.logger.Info("user edited", "username", username)
	return nil
}

// RemoveUser deletes an operator and revokes all of their sessions.
//
// Removing the last operator is allowed. Nobody can log in afterwards until
// the process restarts and bootstrap recreates the default operator.
func (s *Service) RemoveUser(ctx context.Context, username string) error {
	err := s.reg.Users.Remove(ctx, username, func(registry.User) {
		s.sessions.RevokeUser(username)
	})
	if err != nil {
		return err
	}

	s.logger.Info("user removed", "username", username)
	if s.reg.Users.Len() == 0 {
		s.logger.Warn("last user removed; no operator can log in until restart",
			"username", username,
		)
	}
	return nil
}

// ListUsers returns every operator's public projection.
func (s *Service) ListUsers() []registry.PublicUser {
	users := s.reg.Users.GetAll()
	out := make([]registry.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out
}

// AddDevice registers a device and its shared secret.
func (s *Service) AddDevice(ctx context.Context, networkID, key string) error {
	if !IsValidNetworkID(networkID) || key == "" {
		return ErrInvalidInput
	}
	if err := s.reg.Devices.Add(ctx, registry.Device{NetworkID: networkID, Key: key}); err != nil {
		return err
	}
	s.logger.Info("device added", "network_id", networkID)
	return nil
}

// EditDevice replaces a device's shared secret.
func (s *Service) EditDevice(ctx context.Context, networkID, key string) error {
	if !IsValidNetworkID(networkID) || key == "" {
		return ErrInvalidInput
	}
	if err := s.reg.Devices.Edit(ctx, registry.Device{NetworkID: networkID, Key: key}, nil); err != nil {
		return err
	}
	s.logger.Info("device edited", "network_id", networkID)
	return nil
}

// RemoveDevice deletes a device.
func (s *Service) RemoveDevice(ctx context.Context, networkID string) error {
	if err := s.reg.Devices.Remove(ctx, networkID, nil); err != nil {
		return err
	}
	s.logger.Info("device removed", "network_id", networkID)
	return nil
}

// ListDevices returns every device's public projection.
func (s *Service) ListDevices() []registry.PublicDevice {
	devices := s.reg.Devices.GetAll()
	out := make([]registry.PublicDevice, 0, len(devices))
	for _, d := range devices {
		out = append(out, d.Public())
	}
	return out
}

// Devices returns full device records, secrets included. Only for callers
// that have passed AuthenticateAPI.
func (s *Service) Devices() []registry.Device {
	return s.reg.Devices.GetAll()
}

// Device returns one full device record.
func (s *Service) Device(networkID string) (registry.Device, bool) {
	return s.reg.Devices.Get(networkID)
}

// Policy returns the current command policy body.
func (s *Service) Policy() string {
	return s.reg.CurrentPolicy()
}

// SetPolicy replaces the command policy.
func (s *Service) SetPolicy(ctx context.Context, body string) error {
	if err := s.reg.Policy.Put(ctx, registry.Policy{Body: body}); err != nil {
		return err
	}
	s.logger.Info("command policy updated", "bytes", len(body))
	return nil
}
