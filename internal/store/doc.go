// Package store provides the encrypted key/value tables that hold Pawl's
// records on disk.
//
// Each record kind has its own table. Keys are stored in the clear so rows
// can be addressed; values are serialized records passed through the
// format-preserving cipher before they reach SQLite and after they leave it.
// Every Put and Delete is its own transaction.
package store
