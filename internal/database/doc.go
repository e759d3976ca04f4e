// Package database provides the SQLite-backed persistent store for the
// tagging index.
//
// It handles storage and retrieval of:
//   - Tracked folders and their files
//   - Tags, tag values and tag groups
//   - File descriptions and thumbnail paths
//
// The database uses WAL mode with foreign keys enabled so that deleting a
// folder cascades to its files and their tag associations. Every operation
// runs under a bounded retry policy for transient write-lock contention;
// constraint violations surface immediately as ErrConstraint.
package database
