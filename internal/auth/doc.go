// Package auth provides operator sessions and the credential-checked
// operations the route layer calls.
//
// It implements:
//   - Opaque random session tokens with a fixed lifetime, revocable one at
//     a time or all at once per user
//   - A login path that always performs exactly one Argon2id verification,
//     using a decoy hash when the username is unknown
//   - API key checks for Ratchet nodes using constant-time comparison
//   - First-boot bootstrap of the default operator and the API key
//
// Session state lives only in memory. Editing or removing a user kills
// every session that user holds before the mirror lock is released, so a
// request authenticated after the mutation returns can never act as the
// old identity.
//
// Lock order: user mirror, then the session maps, then the notification
// bus. Nothing in this package acquires them in any other order.
package auth
