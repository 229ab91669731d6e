package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/config"
)

func TestConfigError(t *testing.T) {
	err := NewConfigError("storage.path", "path is required")
	if got := err.Error(); got != "config error in storage.path: path is required" {
		t.Errorf("Error() = %q", got)
	}

	err = NewConfigError("", "failed to load config")
	if got := err.Error(); got != "config error: failed to load config" {
		t.Errorf("Error() = %q", got)
	}
}

func TestCommandErrorUnwrap(t *testing.T) {
	err := NewCommandError("export", audit.ErrNoEligibleEvents)
	if got := err.Error(); got != "command export failed: no eligible events" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, audit.ErrNoEligibleEvents) {
		t.Error("Expected CommandError to unwrap")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"generic", errors.New("boom"), ExitFailure},
		{"config", NewConfigError("x", "y"), ExitConfig},
		{"validation", fmt.Errorf("load: %w", config.ValidationError{}), ExitConfig},
		{"no eligible", NewCommandError("delete", audit.ErrNoEligibleEvents), ExitNoEligible},
		{"partial", NewCommandError("delete", &audit.PartialDeletionError{Cause: errors.New("x")}), ExitPartial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseOutputFormat(t *testing.T) {
	for in, want := range map[string]OutputFormat{"": FormatText, "text": FormatText, "JSON": FormatJSON} {
		got, err := ParseOutputFormat(in)
		if err != nil || got != want {
			t.Errorf("ParseOutputFormat(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseOutputFormat("yaml"); err == nil {
		t.Error("Expected error for unknown format")
	}
}

type receipts struct{ ids []string }

func (r receipts) Table() *Table {
	t := &Table{Headers: []string{"id", "count"}}
	for i, id := range r.ids {
		t.AddRow(id, i+1)
	}
	return t
}

func TestTextFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatText).FormatTo(&buf, receipts{ids: []string{"r-1", "receipt-2"}}); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header + 2 rows, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "ID") || !strings.Contains(lines[0], "COUNT") {
		t.Errorf("Unexpected header %q", lines[0])
	}
	if strings.Index(lines[1], "1") != strings.Index(lines[0], "COUNT") {
		t.Errorf("Expected aligned columns:\n%s", buf.String())
	}

	buf.Reset()
	if err := NewFormatter(FormatText).FormatTo(&buf, "plain"); err != nil || buf.String() != "plain\n" {
		t.Errorf("Unexpected plain output %q, %v", buf.String(), err)
	}
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	if err := NewFormatter(FormatJSON).FormatTo(&buf, map[string]int{"deleted": 2}); err != nil {
		t.Fatalf("FormatTo() failed: %v", err)
	}
	if !strings.Contains(buf.String(), `"deleted": 2`) {
		t.Errorf("Unexpected JSON %q", buf.String())
	}
}

func TestSetupSignalHandler(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	ctx, stop := SetupSignalHandler(parent)
	defer stop()

	select {
	case <-ctx.Done():
		t.Fatal("Context should not be cancelled initially")
	default:
	}

	cancel()
	<-ctx.Done()
}
