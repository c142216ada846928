// Package index maintains the retrieval index: an in-memory set of
// embedded article chunks with a durable snapshot.
//
// # Eligibility
//
// Policy admits an article when its keyword is ACTIVE, it was collected
// within MaxAge and its final score is at least MinScore. AddOrUpdate
// applies the policy to one article; Rebuild applies it to everything and
// is the only operation that removes entries.
//
// # Durability
//
// AddOrUpdate marks the index dirty and returns; a background loop started
// by Start writes the snapshot when dirty. Rebuild writes synchronously
// before swapping the new index in. Close performs a final flush.
//
// # Concurrency
//
// Searches read an immutable snapshot through an atomic pointer and never
// block on writers. RebuildAsync queues rebuilds on a small worker pool and
// merges triggers that arrive while one is already waiting.
package index
