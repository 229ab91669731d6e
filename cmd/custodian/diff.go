package main

import (
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/audit/diff"
	"mercator-hq/custodian/pkg/cli"
)

var diffFlags struct {
	before string
	after  string
}

type diffView struct {
	EventID string       `json:"event_id,omitempty"`
	Result  *diff.Result `json:"changes"`
}

func (v *diffView) Table() *cli.Table {
	t := &cli.Table{Headers: []string{"Field", "Change", "Old", "New"}}
	for _, c := range v.Result.Changes() {
		t.AddRow(c.Field, c.Kind, diff.FormatValue(c.OldValue), diff.FormatValue(c.NewValue))
	}
	return t
}

var diffCmd = &cobra.Command{
	Use:   "diff [event-id]",
	Short: "Show the field changes recorded in an audit event",
	Long: `Compare the before and after snapshots of an audit event field by field.

Only top-level fields are compared; nested values are shown whole. Snapshots
that are not JSON objects are compared as a single "$" field.

Examples:
  # Diff a stored event
  custodian diff 6f1c2e9a-8d1b-4c55-9f0e-3f2b6c7d8e90

  # Diff two snapshot files
  custodian diff --before old.json --after new.json`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			if diffFlags.before == "" && diffFlags.after == "" {
				return cli.NewConfigError("event-id", "an event id or --before/--after is required")
			}
			before, err := readSnapshot(diffFlags.before)
			if err != nil {
				return cli.NewConfigError("before", err.Error())
			}
			after, err := readSnapshot(diffFlags.after)
			if err != nil {
				return cli.NewConfigError("after", err.Error())
			}
			return printResult(cmd, &diffView{Result: diff.ComputeRaw(before, after)})
		}

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		event, err := a.store.GetEvent(cmd.Context(), args[0])
		if err != nil {
			return cli.NewCommandError("diff", err)
		}
		return printResult(cmd, &diffView{EventID: event.ID, Result: diff.ComputeRaw(event.Before, event.After)})
	},
}

// readSnapshot reads a snapshot file. An empty path is an absent snapshot.
func readSnapshot(path string) ([]byte, error) {
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

func init() {
	diffCmd.Flags().StringVar(&diffFlags.before, "before", "", "file holding the before snapshot")
	diffCmd.Flags().StringVar(&diffFlags.after, "after", "", "file holding the after snapshot")
	rootCmd.AddCommand(diffCmd)
}
