// Package retention implements the audit event retention engine.
//
// An event's retention date is its creation date plus the policy's
// retention months, clamped to the end of shorter months. The engine is
// split into small services that share options:
//
//   - PolicyService reads and updates the stored policy
//   - Evaluator lists active events approaching their retention date
//   - Scanner marks overdue events and raises retention warnings
//   - Deleter tombstones exported, due events and writes receipts
//   - Postponer returns marked events to active with a later date
//   - Verifier checks receipt checksums
//   - Scheduler runs scans and auto-delete on cron schedules
//
// # Export Gate
//
// An event is never deleted unless it has been exported. Deleter re-checks
// the gate, the status and the date inside every batch write so that a
// concurrent run or export cannot slip a row through.
//
// # Basic Usage
//
//	deleter := retention.NewDeleter(store,
//	    retention.WithMetrics(collector),
//	    retention.WithRecorder(rec),
//	)
//	receipt, err := deleter.DeleteEligible(ctx, retention.DeleteRequest{Actor: "alice"})
//	if errors.Is(err, audit.ErrNoEligibleEvents) {
//	    return nil
//	}
//
// # Receipts
//
// Each run that deletes anything stores one audit.DeletionReceipt. Its
// checksum is xxhash64 over the count, actor and timestamp; Verify detects
// edits but is not tamper-proof against someone who can recompute it.
package retention
