package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/audit/retention"
	"mercator-hq/custodian/pkg/cli"
)

var retentionCmd = &cobra.Command{
	Use:   "retention",
	Short: "Inspect and apply the retention policy",
	Long: `Inspect and apply the audit retention policy.

Events become eligible for deletion on their retention date, but are only
deleted after an export has covered them. Every deletion run stores a
receipt whose checksum can be verified later.

Examples:
  # Show counts and the active policy
  custodian retention status

  # List events due within 30 days
  custodian retention eligible --days 30

  # Preview, then run a deletion pass
  custodian retention delete --dry-run
  custodian retention delete --actor alice --batch-size 500

  # Keep two events another 14 days
  custodian retention postpone --days 14 <id> <id>

  # Verify every receipt checksum
  custodian retention verify --all`,
}

var retentionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show retention counts and policy",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		sum, err := retention.Summarize(cmd.Context(), a.store, time.Now())
		if err != nil {
			return cli.NewCommandError("retention status", err)
		}
		return printResult(cmd, newStatusView(sum))
	},
}

var eligibleFlags struct {
	days int
}

var retentionEligibleCmd = &cobra.Command{
	Use:   "eligible",
	Short: "List active events approaching their retention date",
	Long: `List active events whose retention date is within the given number of
days. Overdue events show a negative day count. Nothing is modified.

Without --days, the policy's alert days are used.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		days := eligibleFlags.days
		if !cmd.Flags().Changed("days") {
			policy, _, err := retention.NewPolicyService(a.store, a.retentionOptions()...).Get(ctx)
			if err != nil {
				return cli.NewCommandError("retention eligible", err)
			}
			days = policy.AlertDays
		}

		events, err := retention.NewEvaluator(a.store, a.retentionOptions()...).Eligible(ctx, days)
		if err != nil {
			return cli.NewCommandError("retention eligible", err)
		}
		return printResult(cmd, newEligibleList(events))
	},
}

var retentionScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Mark due events and raise a retention warning",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := retention.NewScanner(a.store, a.retentionOptions()...).Scan(cmd.Context())
		if err != nil {
			return cli.NewCommandError("retention scan", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ %d events within the alert window, %d marked for deletion\n", len(res.Eligible), res.Marked)
		if res.Alert != nil {
			fmt.Fprintf(out, "✓ Raised %s alert %s\n", res.Alert.Type, res.Alert.ID)
		}
		return nil
	},
}

var deleteFlags struct {
	actor     string
	batchSize int
	alertID   string
	dryRun    bool
}

var retentionDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete exported events past their retention date",
	Long: `Run one deletion pass.

Only events that were exported and whose retention date has passed are
deleted. Events are tombstoned in batches, and a receipt recording the count,
actor, range and checksum is stored.

Exit codes:
  0  events deleted
  3  nothing was eligible
  4  a batch failed after earlier batches succeeded (receipt stored)`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		deleter := retention.NewDeleter(a.store, a.retentionOptions()...)

		if deleteFlags.dryRun {
			ready, err := deleter.Ready(ctx, time.Now())
			if err != nil {
				return cli.NewCommandError("retention delete", err)
			}
			return printResult(cmd, eventList(ready))
		}

		actor := deleteFlags.actor
		if actor == "" {
			actor = a.cfg.Retention.Actor
		}
		batchSize := deleteFlags.batchSize
		if batchSize <= 0 {
			batchSize = a.cfg.Retention.BatchSize
		}

		receipt, err := deleter.DeleteEligible(ctx, retention.DeleteRequest{
			Actor:     actor,
			BatchSize: batchSize,
			AlertID:   deleteFlags.alertID,
		})
		var partial *audit.PartialDeletionError
		if errors.As(err, &partial) && partial.Receipt != nil {
			_ = printResult(cmd, receiptList{partial.Receipt})
		}
		if err != nil {
			return cli.NewCommandError("retention delete", err)
		}
		return printResult(cmd, receiptList{receipt})
	},
}

var postponeFlags struct {
	days  int
	actor string
}

var retentionPostponeCmd = &cobra.Command{
	Use:   "postpone <event-id>...",
	Short: "Return marked events to active with a later retention date",
	Long: `Move events from marked_for_deletion back to active. Their retention date
becomes today plus --days. Events in other states are left alone.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := retention.NewPostponer(a.store, a.retentionOptions()...).
			Postpone(cmd.Context(), args, postponeFlags.days, actorOr(postponeFlags.actor, a.cfg.Retention.Actor))
		if err != nil {
			return cli.NewCommandError("retention postpone", err)
		}
		return printResult(cmd, &countResult{Action: "postponed", Count: n})
	},
}

var purgeFlags struct {
	actor string
}

var retentionPurgeCmd = &cobra.Command{
	Use:   "purge <event-id>...",
	Short: "Permanently remove deleted events",
	Long: `Permanently remove events that are already deleted. Events in any other
state are skipped. Deletion receipts are kept.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := retention.NewDeleter(a.store, a.retentionOptions()...).
			Purge(cmd.Context(), args, actorOr(purgeFlags.actor, a.cfg.Retention.Actor))
		if err != nil {
			return cli.NewCommandError("retention purge", err)
		}
		return printResult(cmd, &countResult{Action: "purged", Count: n})
	},
}

var verifyFlags struct {
	all   bool
	limit int
}

var retentionVerifyCmd = &cobra.Command{
	Use:   "verify [receipt-id]",
	Short: "Verify deletion receipt checksums",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !verifyFlags.all {
			return cli.NewConfigError("receipt-id", "a receipt id or --all is required")
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		verifier := retention.NewVerifier(a.store, a.retentionOptions()...)

		var results verificationList
		if len(args) == 1 {
			res, err := verifier.VerifyReceipt(ctx, args[0])
			if err != nil {
				return cli.NewCommandError("retention verify", err)
			}
			results = verificationList{res}
		} else {
			results, err = verifier.VerifyAll(ctx, verifyFlags.limit)
			if err != nil {
				return cli.NewCommandError("retention verify", err)
			}
		}

		if err := printResult(cmd, results); err != nil {
			return err
		}
		for _, r := range results {
			if !r.Valid {
				return cli.NewCommandError("retention verify", fmt.Errorf("receipt %s failed checksum verification", r.Receipt.ID))
			}
		}
		return nil
	},
}

var receiptsFlags struct {
	limit int
}

var retentionReceiptsCmd = &cobra.Command{
	Use:   "receipts",
	Short: "List deletion receipts, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		receipts, err := a.store.ListReceipts(cmd.Context(), receiptsFlags.limit)
		if err != nil {
			return cli.NewCommandError("retention receipts", err)
		}
		return printResult(cmd, receiptList(receipts))
	},
}

var alertsFlags struct {
	alertType string
	status    string
}

var retentionAlertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "List retention alerts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			alertType audit.AlertType
			status    audit.AlertStatus
			err       error
		)
		if alertsFlags.alertType != "" {
			if alertType, err = audit.ParseAlertType(alertsFlags.alertType); err != nil {
				return cli.NewConfigError("type", err.Error())
			}
		}
		if alertsFlags.status != "" {
			if status, err = audit.ParseAlertStatus(alertsFlags.status); err != nil {
				return cli.NewConfigError("status", err.Error())
			}
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		alerts, err := a.ledger.List(cmd.Context(), alertType, status)
		if err != nil {
			return cli.NewCommandError("retention alerts", err)
		}
		return printResult(cmd, alertList(alerts))
	},
}

var retentionAckCmd = &cobra.Command{
	Use:   "ack <alert-id>",
	Short: "Acknowledge a pending alert",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		alert, err := a.ledger.Acknowledge(cmd.Context(), args[0])
		if err != nil {
			return cli.NewCommandError("retention ack", err)
		}
		return printResult(cmd, alertList{alert})
	},
}

var policyFlags struct {
	months     int
	alertDays  int
	autoDelete bool
	actor      string
}

var retentionPolicyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Show or change the retention policy",
	Long: `Show the retention policy, or change it with flags. Only the flags given
are changed. Existing events keep their retention dates; the new period
applies to events created afterwards.

Examples:
  custodian retention policy
  custodian retention policy --months 6 --alert-days 30
  custodian retention policy --auto-delete=true`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		svc := retention.NewPolicyService(a.store, a.retentionOptions()...)

		var upd retention.PolicyUpdate
		if cmd.Flags().Changed("months") {
			upd.RetentionMonths = &policyFlags.months
		}
		if cmd.Flags().Changed("alert-days") {
			upd.AlertDays = &policyFlags.alertDays
		}
		if cmd.Flags().Changed("auto-delete") {
			upd.AutoDeleteEnabled = &policyFlags.autoDelete
		}

		if upd.RetentionMonths == nil && upd.AlertDays == nil && upd.AutoDeleteEnabled == nil {
			policy, persisted, err := svc.Get(ctx)
			if err != nil {
				return cli.NewCommandError("retention policy", err)
			}
			return printResult(cmd, &policyView{Policy: policy, Persisted: persisted})
		}

		policy, err := svc.Update(ctx, actorOr(policyFlags.actor, a.cfg.Retention.Actor), upd)
		if err != nil {
			var rerr *audit.RetentionError
			if errors.As(err, &rerr) {
				return cli.NewConfigError("policy", err.Error())
			}
			return cli.NewCommandError("retention policy", err)
		}
		return printResult(cmd, &policyView{Policy: *policy, Persisted: true})
	},
}

func actorOr(actor, fallback string) string {
	if actor != "" {
		return actor
	}
	return fallback
}

func init() {
	retentionEligibleCmd.Flags().IntVar(&eligibleFlags.days, "days", 0, "days until retention date (default: policy alert days)")

	retentionDeleteCmd.Flags().StringVar(&deleteFlags.actor, "actor", "", "user recorded on the receipt (default: retention.actor)")
	retentionDeleteCmd.Flags().IntVar(&deleteFlags.batchSize, "batch-size", 0, "events per batch (default: retention.batch_size)")
	retentionDeleteCmd.Flags().StringVar(&deleteFlags.alertID, "alert-id", "", "alert authorizing this run")
	retentionDeleteCmd.Flags().BoolVar(&deleteFlags.dryRun, "dry-run", false, "list the events a run would delete")

	retentionPostponeCmd.Flags().IntVar(&postponeFlags.days, "days", 30, "days from today until the new retention date")
	retentionPostponeCmd.Flags().StringVar(&postponeFlags.actor, "actor", "", "user recorded for the change")

	retentionPurgeCmd.Flags().StringVar(&purgeFlags.actor, "actor", "", "user recorded for the purge")

	retentionVerifyCmd.Flags().BoolVar(&verifyFlags.all, "all", false, "verify every receipt")
	retentionVerifyCmd.Flags().IntVar(&verifyFlags.limit, "limit", 0, "verify at most this many recent receipts (0 = all)")

	retentionReceiptsCmd.Flags().IntVar(&receiptsFlags.limit, "limit", 50, "maximum receipts to list (0 = all)")

	retentionAlertsCmd.Flags().StringVar(&alertsFlags.alertType, "type", "", "filter by type: retention_warning, export_ready, deletion_complete")
	retentionAlertsCmd.Flags().StringVar(&alertsFlags.status, "status", "", "filter by status: pending, acknowledged, exported, deleted")

	retentionPolicyCmd.Flags().IntVar(&policyFlags.months, "months", audit.DefaultRetentionMonths, "retention period in months")
	retentionPolicyCmd.Flags().IntVar(&policyFlags.alertDays, "alert-days", audit.DefaultAlertDays, "days before the retention date to alert")
	retentionPolicyCmd.Flags().BoolVar(&policyFlags.autoDelete, "auto-delete", false, "enable scheduled deletion")
	retentionPolicyCmd.Flags().StringVar(&policyFlags.actor, "actor", "", "user recorded for the change")

	retentionCmd.AddCommand(
		retentionStatusCmd,
		retentionEligibleCmd,
		retentionScanCmd,
		retentionDeleteCmd,
		retentionPostponeCmd,
		retentionPurgeCmd,
		retentionVerifyCmd,
		retentionReceiptsCmd,
		retentionAlertsCmd,
		retentionAckCmd,
		retentionPolicyCmd,
	)
	rootCmd.AddCommand(retentionCmd)
}
