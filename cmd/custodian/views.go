package main

import (
	"strconv"
	"time"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/audit/retention"
	"mercator-hq/custodian/pkg/cli"
)

// Result views. Each renders as a table in text output and as itself in
// JSON output.

type statusView struct {
	RetentionMonths   int        `json:"retention_months"`
	AlertDays         int        `json:"alert_days"`
	AutoDeleteEnabled bool       `json:"auto_delete_enabled"`
	PolicyPersisted   bool       `json:"policy_persisted"`
	Active            int64      `json:"active"`
	MarkedForDeletion int64      `json:"marked_for_deletion"`
	Deleted           int64      `json:"deleted"`
	Ready             int64      `json:"ready_for_deletion"`
	AwaitingExport    int64      `json:"awaiting_export"`
	NextRetentionDate *time.Time `json:"next_retention_date,omitempty"`
	PendingAlerts     int        `json:"pending_alerts"`
}

func newStatusView(s *retention.Summary) *statusView {
	return &statusView{
		RetentionMonths:   s.Policy.RetentionMonths,
		AlertDays:         s.Policy.AlertDays,
		AutoDeleteEnabled: s.Policy.AutoDeleteEnabled,
		PolicyPersisted:   s.PolicyPersisted,
		Active:            s.Active,
		MarkedForDeletion: s.MarkedForDeletion,
		Deleted:           s.Deleted,
		Ready:             s.Ready,
		AwaitingExport:    s.AwaitingExport,
		NextRetentionDate: s.NextRetentionDate,
		PendingAlerts:     s.PendingAlerts,
	}
}

func (v *statusView) Table() *cli.Table {
	t := &cli.Table{Headers: []string{"Setting", "Value"}}
	policy := strconv.Itoa(v.RetentionMonths) + " months"
	if !v.PolicyPersisted {
		policy += " (default)"
	}
	t.AddRow("retention", policy)
	t.AddRow("alert days", v.AlertDays)
	t.AddRow("auto delete", v.AutoDeleteEnabled)
	t.AddRow("active", v.Active)
	t.AddRow("marked for deletion", v.MarkedForDeletion)
	t.AddRow("deleted", v.Deleted)
	t.AddRow("ready for deletion", v.Ready)
	t.AddRow("awaiting export", v.AwaitingExport)
	t.AddRow("next retention date", formatDate(v.NextRetentionDate))
	t.AddRow("pending alerts", v.PendingAlerts)
	return t
}

type eligibleView struct {
	EventID           string    `json:"event_id"`
	CreatedAt         time.Time `json:"created_at"`
	Category          string    `json:"category"`
	Module            string    `json:"module"`
	RetentionDate     string    `json:"retention_date"`
	DaysUntilDeletion int       `json:"days_until_deletion"`
	Exported          bool      `json:"exported"`
}

type eligibleList []eligibleView

func newEligibleList(events []retention.EligibleEvent) eligibleList {
	out := make(eligibleList, 0, len(events))
	for _, e := range events {
		out = append(out, eligibleView{
			EventID:           e.Event.ID,
			CreatedAt:         e.Event.CreatedAt,
			Category:          e.Event.Category,
			Module:            e.Event.Module,
			RetentionDate:     e.RetentionDate.Format(audit.DateLayout),
			DaysUntilDeletion: e.DaysUntilDeletion,
			Exported:          e.Event.Exported(),
		})
	}
	return out
}

func (l eligibleList) Table() *cli.Table {
	t := &cli.Table{Headers: []string{"ID", "Created", "Category", "Module", "Retention", "Days", "Exported"}}
	for _, e := range l {
		t.AddRow(e.EventID, e.CreatedAt.UTC().Format(time.RFC3339), e.Category, e.Module, e.RetentionDate, e.DaysUntilDeletion, e.Exported)
	}
	return t
}

type receiptList []*audit.DeletionReceipt

func (l receiptList) Table() *cli.Table {
	t := &cli.Table{Headers: []string{"ID", "Deleted At", "By", "Count", "Range Start", "Range End", "Alert"}}
	for _, r := range l {
		t.AddRow(r.ID, r.DeletedAt.UTC().Format(time.RFC3339), r.DeletedBy, r.DeletedCount,
			r.RangeStart.UTC().Format(time.RFC3339), r.RangeEnd.UTC().Format(time.RFC3339), orDash(r.AlertID))
	}
	return t
}

type verificationList []*retention.VerificationResult

func (l verificationList) Table() *cli.Table {
	t := &cli.Table{Headers: []string{"Receipt", "Deleted At", "Count", "Checksum", "Valid"}}
	for _, v := range l {
		t.AddRow(v.Receipt.ID, v.Receipt.DeletedAt.UTC().Format(time.RFC3339), v.Receipt.DeletedCount, orDash(v.Receipt.Checksum), v.Valid)
	}
	return t
}

type alertList []*audit.RetentionAlert

func (l alertList) Table() *cli.Table {
	t := &cli.Table{Headers: []string{"ID", "Type", "Status", "Events", "Range Start", "Range End", "Created"}}
	for _, a := range l {
		t.AddRow(a.ID, a.Type, a.Status, a.EventCount, formatDate(a.RangeStart), formatDate(a.RangeEnd), a.CreatedAt.UTC().Format(time.RFC3339))
	}
	return t
}

type policyView struct {
	Policy    audit.RetentionConfig `json:"policy"`
	Persisted bool                  `json:"persisted"`
}

func (v *policyView) Table() *cli.Table {
	t := &cli.Table{Headers: []string{"Setting", "Value"}}
	t.AddRow("retention_months", v.Policy.RetentionMonths)
	t.AddRow("alert_days", v.Policy.AlertDays)
	t.AddRow("auto_delete_enabled", v.Policy.AutoDeleteEnabled)
	if v.Persisted {
		t.AddRow("updated_by", orDash(v.Policy.UpdatedBy))
		t.AddRow("updated_at", v.Policy.UpdatedAt.UTC().Format(time.RFC3339))
	} else {
		t.AddRow("source", "default")
	}
	return t
}

type countResult struct {
	Action string `json:"action"`
	Count  int64  `json:"count"`
}

func (r *countResult) Table() *cli.Table {
	t := &cli.Table{Headers: []string{"Action", "Events"}}
	t.AddRow(r.Action, r.Count)
	return t
}

type eventList []*audit.Event

func (l eventList) Table() *cli.Table {
	t := &cli.Table{Headers: []string{"ID", "Created", "Category", "Module", "Action", "User", "Status", "Retention", "Exported"}}
	for _, e := range l {
		t.AddRow(e.ID, e.CreatedAt.UTC().Format(time.RFC3339), e.Category, e.Module, e.Action, e.UserID,
			e.Status, formatDate(&e.RetentionDate), e.Exported())
	}
	return t
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(audit.DateLayout)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
