// Package interfaces defines the contracts and persisted types shared by the
// split-session service, separating interface definitions from implementations.
//
// # Storage Interfaces
//
// SessionStore: durable key-value persistence of session snapshots, keyed by
// session ID. Implementations live in the storage package (memory, file, S3,
// Vault, Postgres, SQLite) and are selected by StoreLocation URI scheme.
//
// # Splitting Interfaces
//
// Splitter: partitions a secret into an ordered list of shares for a given
// shares/quorum policy. Each implementation reports a protocol tag so callers
// can tell splitting algorithms apart.
//
// # Types
//
//   - SessionID, AuthToken: random UUID-shaped identifiers
//   - Share, SecretDigest: opaque share values and the SHA-256 of a secret
//   - SessionSnapshot, UserSnapshot: the persisted shape of a session
package interfaces
