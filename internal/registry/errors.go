package registry

import "errors"

// Mutation outcomes besides success.
var (
	// ErrConflict is returned by Add when the key already exists.
	ErrConflict = errors.New("record already exists")

	// ErrGone is returned by Edit and Remove when the key does not exist.
	ErrGone = errors.New("record does not exist")
)

// ErrCorruptRecord is returned by Load when a row decrypts to something that
// is not a valid record. It usually means the secret is wrong or the file
// was tampered with.
var ErrCorruptRecord = errors.New("corrupt record")
