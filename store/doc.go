// Package store is the append-only record store behind the butterfly service.
//
// A [Store] owns three named collections ([Butterflies], [Users], [Scores]).
// Each collection is an insertion-ordered sequence of flat JSON objects
// ([Record]). Records are never updated or removed once written.
//
// # Operations
//
//   - [Store.Create] assigns a fresh id, appends the record and returns it once
//     the backend reports the write durable.
//   - [Store.FindByID] returns the first record with a matching id.
//   - [Store.FindAll] returns every record matching a [query.Predicate], in
//     insertion order.
//
// Writes are serialized store-wide: id assignment, append and persistence
// happen under one lock. Reads may run concurrently with each other.
//
// # Backends
//
// Physical storage is injected as a [Backend]:
//
//   - [MemoryBackend] keeps records in process memory.
//   - [FileBackend] keeps a single JSON document holding all collections.
//   - [SQLiteBackend] keeps records in a SQLite table, ordered by rowid.
//   - [DynamoBackend] keeps records in one DynamoDB table keyed by collection
//     and a zero-padded sequence number.
//
// # Errors
//
//   - [ErrNotFound] - no record with the requested id
//   - [ErrUnknownCollection] - collection name is not one of the three
//   - [ErrAlreadyExists] - the backend already holds a record with that id
//   - [ErrClosed] - backend used after Close
package store
