package retention

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/audit/recorder"
	"mercator-hq/custodian/pkg/telemetry/metrics"
)

// DefaultBatchSize is the number of events transitioned per write.
const DefaultBatchSize = 100

// deletableStatuses are the statuses a deletion run may tombstone.
var deletableStatuses = []audit.LifecycleStatus{audit.StatusActive, audit.StatusMarkedForDeletion}

// DeleteRequest describes one deletion run.
type DeleteRequest struct {
	// Actor is recorded on the receipt. Defaults to audit.SystemActor.
	Actor string

	// BatchSize bounds each conditional write. Defaults to DefaultBatchSize.
	BatchSize int

	// AlertID optionally names the alert that authorized the run. It is
	// moved to deleted once the receipt is stored.
	AlertID string
}

// Deleter tombstones exported events whose retention date has passed and
// writes a deletion receipt for every run that deletes anything.
type Deleter struct {
	store audit.Store
	deps
}

// NewDeleter creates a deleter over store.
func NewDeleter(store audit.Store, opts ...Option) *Deleter {
	return &Deleter{
		store: store,
		deps:  newDeps("audit.retention.delete", opts),
	}
}

// Ready returns the events a run started on today would delete: status
// active or marked_for_deletion, exported, and retention date on or before
// today. Oldest retention date first.
func (d *Deleter) Ready(ctx context.Context, today time.Time) ([]*audit.Event, error) {
	exported := true
	due := audit.DateOf(today)
	return d.store.QueryEvents(ctx, &audit.EventQuery{
		Statuses:       deletableStatuses,
		Exported:       &exported,
		RetentionDueBy: &due,
		SortBy:         "retention_date",
		SortOrder:      "asc",
	})
}

// DeleteEligible runs one deletion pass.
//
// Events are transitioned in batches. Each batch re-checks the status,
// export and date gates in its write, so events changed by a concurrent run
// are skipped and never counted twice. When a batch fails after earlier
// batches succeeded, a receipt for the deleted events is still stored and a
// *audit.PartialDeletionError is returned. When nothing qualifies,
// audit.ErrNoEligibleEvents is returned and nothing is written.
func (d *Deleter) DeleteEligible(ctx context.Context, req DeleteRequest) (*audit.DeletionReceipt, error) {
	actor := req.Actor
	if actor == "" {
		actor = audit.SystemActor
	}
	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	ctx, span := d.tracer.Start(ctx, "retention.DeleteEligible",
		trace.WithAttributes(
			attribute.String("retention.actor", actor),
			attribute.Int("retention.batch_size", batchSize),
		),
	)
	defer span.End()

	start := time.Now()
	now := d.now().UTC().Truncate(time.Millisecond)
	today := audit.DateOf(now)

	selected, err := d.Ready(ctx, today)
	if err != nil {
		d.fail(span, err)
		d.metrics.RecordDeletionRun(metrics.OutcomeFailure, 0, time.Since(start))
		return nil, err
	}
	if len(selected) == 0 {
		d.logger.InfoContext(ctx, "no events eligible for deletion", "actor", actor)
		d.metrics.RecordDeletionRun(metrics.OutcomeEmpty, 0, time.Since(start))
		return nil, audit.ErrNoEligibleEvents
	}

	batches := chunk(selected, batchSize)
	span.SetAttributes(
		attribute.Int("retention.selected", len(selected)),
		attribute.Int("retention.batches", len(batches)),
	)

	var deleted []*audit.Event
	for i, batch := range batches {
		done, err := d.deleteBatch(ctx, batch, today, now)
		if err != nil {
			d.metrics.RecordDeletionBatch(metrics.OutcomeFailure)
			return nil, d.partial(ctx, span, start, actor, req.AlertID, deleted, now, i+1, len(batches), err)
		}
		d.metrics.RecordDeletionBatch(metrics.OutcomeSuccess)
		deleted = append(deleted, done...)
	}

	if len(deleted) == 0 {
		// Every selected event was claimed by a concurrent run.
		d.logger.InfoContext(ctx, "no events deleted, selection changed concurrently",
			"actor", actor,
			"selected", len(selected),
		)
		d.metrics.RecordDeletionRun(metrics.OutcomeEmpty, 0, time.Since(start))
		return nil, audit.ErrNoEligibleEvents
	}

	receipt, err := d.writeReceipt(ctx, actor, req.AlertID, deleted, now)
	if err != nil {
		d.fail(span, err)
		d.metrics.RecordDeletionRun(metrics.OutcomeFailure, len(deleted), time.Since(start))
		return nil, err
	}

	ledger := d.alertLedger(d.store)
	if req.AlertID != "" {
		if _, err := ledger.MarkDeleted(ctx, req.AlertID); err != nil {
			d.logger.WarnContext(ctx, "failed to mark authorizing alert deleted",
				"alert_id", req.AlertID,
				"receipt_id", receipt.ID,
				"error", err,
			)
		}
	}
	if _, err := ledger.Raise(ctx, audit.AlertDeletionComplete, receipt.DeletedCount, &receipt.RangeStart, &receipt.RangeEnd); err != nil {
		d.logger.WarnContext(ctx, "failed to raise deletion complete alert",
			"receipt_id", receipt.ID,
			"error", err,
		)
	}

	span.SetAttributes(attribute.Int("retention.deleted", receipt.DeletedCount))
	d.metrics.RecordDeletionRun(metrics.OutcomeSuccess, receipt.DeletedCount, time.Since(start))
	d.logger.InfoContext(ctx, "deleted audit events",
		"actor", actor,
		"deleted", receipt.DeletedCount,
		"batches", len(batches),
		"receipt_id", receipt.ID,
		"duration", time.Since(start),
	)

	return receipt, nil
}

// deleteBatch transitions one batch and returns the events it deleted.
func (d *Deleter) deleteBatch(ctx context.Context, batch []*audit.Event, today, now time.Time) ([]*audit.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids := eventIDs(batch)
	n, err := d.store.TransitionEvents(ctx, audit.Transition{
		IDs:             ids,
		From:            deletableStatuses,
		To:              audit.StatusDeleted,
		RequireExported: true,
		RetentionDueBy:  &today,
		At:              now,
	})
	if err != nil {
		return nil, err
	}
	if int(n) == len(batch) {
		return batch, nil
	}

	// Some rows changed since selection; keep the ones this run stamped.
	current, err := d.store.QueryEvents(ctx, &audit.EventQuery{
		IDs:      ids,
		Statuses: []audit.LifecycleStatus{audit.StatusDeleted},
	})
	if err != nil {
		return nil, err
	}
	var done []*audit.Event
	for _, e := range current {
		if e.DeletedAt != nil && e.DeletedAt.Equal(now) {
			done = append(done, e)
		}
	}
	d.logger.DebugContext(ctx, "batch skipped concurrently changed events",
		"batch", len(batch),
		"deleted", len(done),
	)
	return done, nil
}

// writeReceipt stores the receipt for deleted.
func (d *Deleter) writeReceipt(ctx context.Context, actor, alertID string, deleted []*audit.Event, now time.Time) (*audit.DeletionReceipt, error) {
	rangeStart, rangeEnd, _ := audit.CreatedRange(deleted)

	receipt := &audit.DeletionReceipt{
		ID:           uuid.New().String(),
		DeletedBy:    actor,
		DeletedCount: len(deleted),
		RangeStart:   rangeStart.UTC(),
		RangeEnd:     rangeEnd.UTC(),
		AlertID:      alertID,
		DeletedAt:    now,
		Checksum:     Checksum(len(deleted), actor, now),
	}

	if err := d.store.CreateReceipt(ctx, receipt); err != nil {
		return nil, fmt.Errorf("store deletion receipt: %w", err)
	}

	d.recorder.Log(ctx, recorder.Entry{
		Category:    "retention",
		Description: fmt.Sprintf("Deleted %d audit events", receipt.DeletedCount),
		UserID:      actor,
		Module:      "retention",
		Action:      "delete",
		EntityType:  "deletion_receipt",
		EntityID:    receipt.ID,
		Severity:    "warning",
		After:       receipt,
	})

	return receipt, nil
}

// partial builds the error for a run that stopped at a failing batch.
func (d *Deleter) partial(ctx context.Context, span trace.Span, start time.Time, actor, alertID string, deleted []*audit.Event, now time.Time, failed, total int, cause error) error {
	d.fail(span, cause)

	if len(deleted) == 0 {
		d.logger.ErrorContext(ctx, "deletion run failed",
			"actor", actor,
			"batch", failed,
			"batches", total,
			"error", cause,
		)
		d.metrics.RecordDeletionRun(metrics.OutcomeFailure, 0, time.Since(start))
		return cause
	}

	perr := &audit.PartialDeletionError{
		FailedBatch:  failed,
		TotalBatches: total,
		Cause:        cause,
	}

	receipt, err := d.writeReceipt(ctx, actor, alertID, deleted, now)
	if err != nil {
		d.logger.ErrorContext(ctx, "failed to store receipt for partial deletion",
			"actor", actor,
			"deleted", len(deleted),
			"error", err,
		)
		perr.Cause = errors.Join(cause, err)
	} else {
		perr.Receipt = receipt
	}

	d.logger.ErrorContext(ctx, "deletion run stopped after partial progress",
		"actor", actor,
		"deleted", len(deleted),
		"batch", failed,
		"batches", total,
		"error", cause,
	)
	d.metrics.RecordDeletionRun(metrics.OutcomePartial, len(deleted), time.Since(start))
	return perr
}

// Purge permanently removes tombstoned events. Events in any other status
// are left alone. Receipts are kept.
func (d *Deleter) Purge(ctx context.Context, ids []string, actor string) (int64, error) {
	if len(ids) == 0 {
		return 0, audit.ErrNoEligibleEvents
	}
	if actor == "" {
		actor = audit.SystemActor
	}

	ctx, span := d.tracer.Start(ctx, "retention.Purge",
		trace.WithAttributes(attribute.Int("retention.requested", len(ids))),
	)
	defer span.End()

	n, err := d.store.PurgeEvents(ctx, ids)
	if err != nil {
		d.fail(span, err)
		return 0, err
	}

	d.metrics.RecordPurge(int(n))
	d.logger.InfoContext(ctx, "purged deleted events",
		"actor", actor,
		"requested", len(ids),
		"purged", n,
	)
	if n > 0 {
		d.recorder.Log(ctx, recorder.Entry{
			Category:    "retention",
			Description: fmt.Sprintf("Purged %d deleted audit events", n),
			UserID:      actor,
			Module:      "retention",
			Action:      "purge",
			Severity:    "warning",
			After:       map[string]any{"ids": ids, "purged": n},
		})
	}

	return n, nil
}

func (d *Deleter) fail(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func chunk(events []*audit.Event, size int) [][]*audit.Event {
	var out [][]*audit.Event
	for size < len(events) {
		events, out = events[size:], append(out, events[:size:size])
	}
	if len(events) > 0 {
		out = append(out, events)
	}
	return out
}

func eventIDs(events []*audit.Event) []string {
	ids := make([]string, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids
}
