// Package database provides the SQLite handle behind Pawl's record tables.
//
// This package manages:
//   - Opening the database file with a busy timeout and optional WAL mode
//   - Embedded, versioned schema migrations
//   - A single-connection pool and transaction helper
//
// It knows nothing about records or encryption. The store package layers
// encrypted key/value tables on top of it.
//
// Security Considerations:
//   - All queries use parameterised statements
//   - The database file is restricted to mode 0600
//   - Row values are ciphertext; this package never sees plaintext records
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
