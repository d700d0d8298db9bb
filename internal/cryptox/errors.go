package cryptox

import "errors"

// Sentinel errors for crypto operations.
var (
	// ErrMissingSecret is returned when the operator secret is empty.
	ErrMissingSecret = errors.New("cryptox: encryption secret is empty")

	// ErrPayloadTooShort is returned for plaintexts below the FF1 domain minimum.
	ErrPayloadTooShort = errors.New("cryptox: payload shorter than cipher minimum")

	// ErrMalformed is returned when ciphertext cannot be decoded or decrypted.
	ErrMalformed = errors.New("cryptox: malformed ciphertext")
)
