// Package alerts is the ledger of retention notifications.
//
// Three alert types exist: retention_warning (events approaching their
// retention date), export_ready (an export covering them was produced) and
// deletion_complete (a deletion run finished). Every alert starts pending
// and only moves forward:
//
//	pending < acknowledged < exported < deleted
//
// Steps may be skipped. Moving backwards, or to the status an alert already
// holds, fails with audit.ErrInvalidTransition and changes nothing. The
// check happens inside the store's conditional update, so two concurrent
// transitions cannot both succeed.
package alerts
