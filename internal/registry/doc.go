// Package registry keeps Pawl's in-memory record mirrors.
//
// There is one Mirror per record kind (users, devices, the API key and the
// command policy). Each mirror is loaded from its encrypted table at startup
// and is the only copy handlers read from afterwards. Every mutation writes
// the durable table first and updates the map only once that write has
// committed, all under the mirror's write lock, so a reader never sees a
// record that is not on disk nor misses one that is.
//
// After a successful mutation the mirror calls its Notifier exactly once.
//
// Lock order across packages is: user mirror, then session maps, then the
// notification bus. Hooks passed to Edit and Remove run while the mirror
// lock is held and may take the later locks, never the earlier ones.
package registry
