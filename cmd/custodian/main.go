// Custodian manages the lifecycle of audit trail events.
//
// It decides when audit events reach their retention date, refuses to
// delete anything that was never exported, deletes in bounded batches with
// a verifiable receipt, and shows field-level diffs of event snapshots.
//
// Usage:
//
//	# Show retention state
//	custodian retention status
//
//	# Export everything not yet deleted, then delete what is due
//	custodian export --format xlsx
//	custodian retention delete --actor alice
//
//	# Run the scheduler and metrics endpoint
//	custodian run --config /etc/custodian/config.yaml
//
//	# Show what changed in one event
//	custodian diff 6f1c2e9a-...
package main

func main() {
	Execute()
}
