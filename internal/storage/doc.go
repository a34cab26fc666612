// Package storage persists the single credential token of the client.
//
// The token is stored under the well-known key "authToken". Absence means
// "no session". Three backends implement TokenStore:
//
//   - FileStore: one file, mode 0600, watched with fsnotify so that other
//     processes' logins and logouts are noticed (best effort)
//   - BadgerStore: an embedded badger database, optionally in-memory
//   - memory.Store: process-local, for tests and --no-persist
//
// Sealed wraps any backend and encrypts the token at rest.
package storage
