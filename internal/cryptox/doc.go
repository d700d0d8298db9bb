// Package cryptox is the crypto layer under the durable record store.
//
// It provides:
//   - A format-preserving record cipher (NIST SP 800-38G FF1) keyed from an
//     operator supplied secret. Ciphertext has exactly the length of the
//     plaintext, so a stored row reveals nothing beyond its size.
//   - Argon2id password hashing with a constant-time verifier and a fixed
//     decoy hash for unknown usernames.
//   - Random identifiers for session tokens, generated passwords and API keys.
//
// Key material is a value produced once at startup by DeriveKey and handed
// to NewCipher. Nothing in this package holds mutable package-level state.
package cryptox
