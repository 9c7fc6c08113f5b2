// Package store provides the knowledge store: CRUD and predicate-filter
// access to entities, relationships and triples, scoped by tenant.
//
// Two implementations are provided. MemoryStore is a mutex-guarded in-memory
// store used in tests and when no persistent backend is configured.
// BadgerStore persists records to BadgerDB as JSON values with identity-key
// and tenant index entries, and uses serializable transactions so that
// get-or-create is an atomic insert-or-fetch even under concurrent
// extraction tasks.
package store
