package cryptox

import (
	"encoding/hex"
	"fmt"

	"github.com/capitalone/fpe/ff1"
)

// Cipher parameters.
const (
	// KeySize is the record cipher key width (AES-256).
	KeySize = 32

	// radix is the FF1 alphabet size. Records are rendered as hex numerals,
	// two per byte, so ciphertext decodes back to the plaintext's byte length.
	radix = 16

	// MinPayload is the shortest plaintext the cipher accepts. FF1 needs a
	// domain of at least one million values: 16^5 > 10^6, i.e. 3 bytes.
	MinPayload = 3
)

// Key is the fixed-width record key.
type Key [KeySize]byte

// DeriveKey turns the operator secret into a record key.
//
// The secret's bytes are copied verbatim: shorter secrets are zero padded,
// longer ones truncated. The mapping is deterministic so the same secret
// always opens the same database.
func DeriveKey(secret string) (Key, error) {
	var key Key
	if secret == "" {
		return key, ErrMissingSecret
	}
	copy(key[:], secret)
	return key, nil
}

// Cipher encrypts and decrypts serialized records.
//
// A Cipher is immutable after NewCipher returns and is safe for concurrent
// use. Each call builds its own FF1 state from the stored key.
type Cipher struct {
	key Key
}

// NewCipher validates the key by building one FF1 instance and returns a
// Cipher bound to it.
func NewCipher(key Key) (*Cipher, error) {
	if key == (Key{}) {
		return nil, ErrMissingSecret
	}
	if _, err := ff1.NewCipher(radix, 0, key[:], nil); err != nil {
		return nil, fmt.Errorf("creating ff1 cipher: %w", err)
	}
	return &Cipher{key: key}, nil
}

// Encrypt returns ciphertext with the same length as plaintext.
func (c *Cipher) Encrypt(plaintext []byte) ([]byte, error) {
	if len(plaintext) < MinPayload {
		return nil, ErrPayloadTooShort
	}

	fc, err := ff1.NewCipher(radix, 0, c.key[:], nil)
	if err != nil {
		return nil, fmt.Errorf("creating ff1 cipher: %w", err)
	}

	out, err := fc.Encrypt(hex.EncodeToString(plaintext))
	if err != nil {
		return nil, fmt.Errorf("encrypting payload: %w", err)
	}

	ciphertext, err := hex.DecodeString(out)
	if err != nil {
		return nil, fmt.Errorf("decoding ff1 output: %w", err)
	}
	return ciphertext, nil
}

// Decrypt reverses Encrypt.
//
// FF1 is not authenticated: a wrong key or a tampered row decrypts to
// garbage rather than failing here. Callers detect that when the payload
// does not parse.
func (c *Cipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < MinPayload {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformed, len(ciphertext))
	}

	fc, err := ff1.NewCipher(radix, 0, c.key[:], nil)
	if err != nil {
		return nil, fmt.Errorf("creating ff1 cipher: %w", err)
	}

	out, err := fc.Decrypt(hex.EncodeToString(ciphertext))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	plaintext, err := hex.DecodeString(out)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return plaintext, nil
}
