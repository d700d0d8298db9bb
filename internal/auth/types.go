package auth

import (
	"errors"
	"regexp"
	"time"
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// networkIDPattern is the accepted device network identifier format.
var networkIDPattern = regexp.MustCompile(`^[a-zA-Z0-9._:-]{1,128}$`)

// IsValidUsername checks if a username meets format requirements.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// IsValidNetworkID checks if a device network identifier is acceptable.
func IsValidNetworkID(id string) bool {
	return networkIDPattern.MatchString(id)
}

// Session is an issued session token.
type Session struct {
	Token  string    `json:"-"` // only ever sent as a cookie
	Owner  string    `json:"username"`
	Expiry time.Time `json:"expires_at"`
}

// Bootstrap defaults.
const (
	// BootstrapUsername is the operator created when the user table is empty.
	BootstrapUsername = "DefaultRatchetUser"

	// bootstrapPasswordLen is the generated operator password length.
	bootstrapPasswordLen = 16

	// apiKeyLen is the generated API key length.
	apiKeyLen = 40
)

// Sentinel errors for auth operations.
var (
	// ErrInvalidCredentials is returned by Login for any failed attempt,
	// whether the username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUnauthenticated is returned for absent, revoked or expired tokens.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrAPIKeyNotFound is returned when an API key does not match.
	ErrAPIKeyNotFound = errors.New("api key not found")

	// ErrInvalidInput is returned when a username, network id or secret is
	// malformed or empty.
	ErrInvalidInput = errors.New("invalid input")

	// ErrClosed is returned by Issue after Close.
	ErrClosed = errors.New("session manager closed")
)
