// Package sqlite stores keywords, articles and the URL ledger in a single
// SQLite database using the pure-Go modernc.org/sqlite driver.
//
// The schema is created by embedded migrations applied in NewStore.
// Timestamps are stored as UTC Unix microseconds.
package sqlite
