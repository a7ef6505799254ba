// Package schema defines the entity types persisted by the local store
// and exchanged with the remote service.
//
// All three entity kinds share the same bookkeeping fields:
//
//   - ID: opaque unique identifier, generated locally on creation and
//     preserved on server round-trips.
//   - OwnerUserID: the tenancy boundary. Every read and write is scoped
//     by it; a device can host several accounts sequentially.
//   - DateKey: a calendar-day string (YYYY-MM-DD) in local time. It is
//     the uniqueness key for surveys and measurements and a grouping key
//     for nutrition entries.
//   - Dirty: true while the row has local edits the server has not
//     confirmed. A server-originated write always lands clean.
//   - Deleted: soft-delete tombstone. Tombstoned rows are excluded from
//     reads and are synced like any other mutation.
package schema
