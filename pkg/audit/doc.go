// Package audit defines the audit trail data model and the persistence
// contracts of the retention pipeline.
//
// # Data Model
//
//   - Event: the append-mostly record of a system action, carrying optional
//     before/after snapshots and a retention lifecycle
//   - RetentionConfig: the singleton retention policy (nil when never saved)
//   - DeletionReceipt: immutable, checksummed record of one deletion run
//   - RetentionAlert: lifecycle notification with forward-only status
//   - ExportRecord: immutable log of one export action
//
// # Lifecycle
//
// Events move through active → marked_for_deletion → deleted. The only
// backwards move is postponement (marked_for_deletion → active). An event may
// become deleted only when it has been exported, its retention date has been
// reached and it is not already deleted:
//
//	active ──────────────┐
//	  │  ▲               ▼
//	  ▼  │ postpone   deleted (tombstone) ── purge ──▶ removed
//	marked_for_deletion ─┘
//
// # Storage
//
// Store is split into EventStore, ConfigStore, ReceiptStore, AlertStore and
// ExportStore. All status changes go through conditional writes
// (EventStore.TransitionEvents, AlertStore.TransitionAlert) so that concurrent
// runs cannot process the same row twice: the losing writer simply affects
// zero rows.
//
// Backends live in the storage subpackage (memory for tests, SQLite for
// single-node deployments).
package audit
