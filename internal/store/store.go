package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nerrad567/pawl-core/internal/cryptox"
	"github.com/nerrad567/pawl-core/internal/infrastructure/database"
)

// Table names. These match the record tables created by the migrations.
const (
	TableUsers   = "users"
	TableDevices = "devices"
	TableAPIKeys = "api_keys"
	TablePolicy  = "cmd_policy"
)

// ErrUnknownTable is returned for any table name not listed above.
var ErrUnknownTable = errors.New("unknown table")

// Per-table statements, built once so table names never come from callers.
type statements struct {
	upsert string
	delete string
	scan   string
}

var tables = func() map[string]statements {
	m := make(map[string]statements)
	for _, name := range []string{TableUsers, TableDevices, TableAPIKeys, TablePolicy} {
		m[name] = statements{
			upsert: "INSERT INTO " + name + " (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
			delete: "DELETE FROM " + name + " WHERE key = ?",
			scan:   "SELECT key, value FROM " + name + " ORDER BY key",
		}
	}
	return m
}()

// Store encrypts records on their way into the database and decrypts them
// on the way out.
//
// Thread Safety:
//   - Safe for concurrent use. Callers serialise writes per record kind.
type Store struct {
	db     *database.DB
	cipher *cryptox.Cipher
}

// New returns a Store over an open, migrated database.
func New(db *database.DB, cipher *cryptox.Cipher) *Store {
	return &Store{db: db, cipher: cipher}
}

// Put encrypts plaintext and upserts it under key in one transaction.
func (s *Store) Put(ctx context.Context, table, key string, plaintext []byte) error {
	stmt, ok := tables[table]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}

	ciphertext, err := s.cipher.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("encrypting %s/%s: %w", table, key, err)
	}

	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, stmt.upsert, key, ciphertext); err != nil {
			return fmt.Errorf("writing %s/%s: %w", table, key, err)
		}
		return nil
	})
}

// Delete removes key from table in one transaction. Deleting an absent key
// is not an error; the mirror decides what absence means.
func (s *Store) Delete(ctx context.Context, table, key string) error {
	stmt, ok := tables[table]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}

	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, stmt.delete, key); err != nil {
			return fmt.Errorf("deleting %s/%s: %w", table, key, err)
		}
		return nil
	})
}

// Scan decrypts every row of table and passes it to fn in key order.
// The first decrypt or callback error stops the scan and is returned.
func (s *Store) Scan(ctx context.Context, table string, fn func(key string, plaintext []byte) error) error {
	stmt, ok := tables[table]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTable, table)
	}

	rows, err := s.db.QueryContext(ctx, stmt.scan)
	if err != nil {
		return fmt.Errorf("reading %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			key        string
			ciphertext []byte
		)
		if err := rows.Scan(&key, &ciphertext); err != nil {
			return fmt.Errorf("scanning %s row: %w", table, err)
		}

		plaintext, err := s.cipher.Decrypt(ciphertext)
		if err != nil {
			return fmt.Errorf("decrypting %s/%s: %w", table, key, err)
		}
		if err := fn(key, plaintext); err != nil {
			return fmt.Errorf("loading %s/%s: %w", table, key, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating %s: %w", table, err)
	}
	return nil
}
