package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/cli"
)

var (
	// Global flags
	cfgFile      string
	verbose      bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "custodian",
	Short: "Custodian - audit trail retention, export and deletion",
	Long: `Custodian manages the lifecycle of audit trail events.

Events are kept until their retention date, must be exported before they can
be deleted, and are deleted in batches that each leave a verifiable deletion
receipt. Alerts track upcoming deletions, exports and completed deletions.

Configuration is read from a YAML file (--config) with CUSTODIAN_* environment
overrides. Without a file, defaults and the environment are used.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with a code that reflects the
// kind of failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default: defaults + CUSTODIAN_* env)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "text", "output format: text, json")
}

// printResult writes data in the --format output format.
func printResult(cmd *cobra.Command, data interface{}) error {
	format, err := cli.ParseOutputFormat(outputFormat)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}
	return cli.NewFormatter(format).FormatTo(cmd.OutOrStdout(), data)
}
