package auth

import (
	"context"
	"fmt"

	"github.com/nerrad567/pawl-core/internal/cryptox"
	"github.com/nerrad567/pawl-core/internal/registry"
)

// BootstrapResult carries secrets generated on this start. Empty fields
// mean the corresponding record already existed.
type BootstrapResult struct {
	Username string
	Password string
	APIKey   string
}

// Created reports whether anything was generated.
func (r BootstrapResult) Created() bool {
	return r.Password != "" || r.APIKey != ""
}

// Bootstrap creates the default operator when the user table is empty and
// the API key when the key table is empty. Generated secrets are returned
// for one-time display and are never logged.
func (s *Service) Bootstrap(ctx context.Context) (BootstrapResult, error) {
	var result BootstrapResult

	if s.reg.Users.Len() == 0 {
		password, err := cryptox.RandomString(bootstrapPasswordLen, cryptox.PasswordAlphabet)
		if err != nil {
			return result, fmt.Errorf("generating bootstrap password: %w", err)
		}
		hash, err := s.hash(password)
		if err != nil {
			return result, fmt.Errorf("hashing bootstrap password: %w", err)
		}

		created, err := s.reg.Users.PutIfEmpty(ctx, registry.User{Username: BootstrapUsername, Passhash: hash})
		if err != nil {
			return result, fmt.Errorf("creating bootstrap user: %w", err)
		}
		if created {
			result.Username = BootstrapUsername
			result.Password = password
			s.logger.Warn("bootstrap user created",
				"username", BootstrapUsername,
				"action_required", "change this password immediately",
			)
		}
	} else {
		s.logger.Info("users exist, skipping user bootstrap", "count", s.reg.Users.Len())
	}

	if s.reg.APIKeys.Len() == 0 {
		key, err := cryptox.RandomString(apiKeyLen, cryptox.KeyAlphabet)
		if err != nil {
			return result, fmt.Errorf("generating api key: %w", err)
		}

		created, err := s.reg.APIKeys.PutIfEmpty(ctx, registry.APIKey{Key: key})
		if err != nil {
			return result, fmt.Errorf("creating api key: %w", err)
		}
		if created {
			result.APIKey = key
			s.logger.Warn("api key created", "action_required", "distribute to ratchet nodes")
		}
	}

	return result, nil
}
