// Package recorder writes audit events for actions taken by custodian
// itself: deletions, postponements, exports and policy changes.
//
// Callers depend on the narrow Logger interface. Log never blocks and never
// returns an error; entries are queued to a buffered channel and a single
// worker writes them through the audit store. A full buffer, a closed
// recorder or a failed write drops the entry and logs it, so auditing can
// never fail the operation being audited.
//
// Each recorded event gets a retention date from the stored policy (or the
// default when none is stored), and configured snapshot fields such as
// "password" are replaced with "[REDACTED]" before storage.
//
//	rec := recorder.NewRecorder(store, recorder.DefaultConfig())
//	defer rec.Close()
//
//	rec.Log(ctx, recorder.Entry{
//	    Category: "retention",
//	    Module:   "retention",
//	    Action:   "postpone",
//	    UserID:   actor,
//	    After:    map[string]any{"ids": ids, "days": 7},
//	})
package recorder
