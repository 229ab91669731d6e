package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"mercator-hq/custodian/pkg/config"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	return m
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	logger.Info("ignored")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}

	logger.Warn("kept", "count", 3)
	m := decode(t, &buf)
	if m["msg"] != "kept" {
		t.Errorf("expected msg kept, got %v", m["msg"])
	}
	if m["count"] != float64(3) {
		t.Errorf("expected count 3, got %v", m["count"])
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	logger.Info("hello", "k", "v")
	if !strings.Contains(buf.String(), "msg=hello") || !strings.Contains(buf.String(), "k=v") {
		t.Errorf("unexpected text output %q", buf.String())
	}
}

func TestNew_InvalidSettings(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestNew_RedactsSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", Writer: &buf, RedactKeys: []string{"password", "token"}})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	logger.Info("login", "password", "hunter2", "refresh_token", "abc", "user", "alice")
	m := decode(t, &buf)

	if m["password"] != Redacted {
		t.Errorf("expected password redacted, got %v", m["password"])
	}
	if m["refresh_token"] != Redacted {
		t.Errorf("expected refresh_token redacted, got %v", m["refresh_token"])
	}
	if m["user"] != "alice" {
		t.Errorf("expected user kept, got %v", m["user"])
	}
}

func TestNew_RedactsInlinePatterns(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	logger.Info("request", "header", "Bearer abc.def-123", "dsn", "user=x password=s3cret host=db")
	m := decode(t, &buf)

	if m["header"] != "Bearer ***" {
		t.Errorf("expected bearer token redacted, got %v", m["header"])
	}
	if strings.Contains(m["dsn"].(string), "s3cret") {
		t.Errorf("expected inline password redacted, got %v", m["dsn"])
	}
}

func TestNew_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	ctx := WithActor(context.Background(), "alice")
	ctx = WithRunID(ctx, "run-1")
	ctx = WithOperation(ctx, "delete")

	logger.With("component", "retention").InfoContext(ctx, "batch")
	m := decode(t, &buf)

	for k, want := range map[string]string{"actor": "alice", "run_id": "run-1", "operation": "delete", "component": "retention"} {
		if m[k] != want {
			t.Errorf("expected %s=%q, got %v", k, want, m[k])
		}
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	var buf bytes.Buffer

	lc := FromConfig(&cfg.Telemetry.Logging, &buf)
	if lc.Level != "info" || lc.Format != "json" || lc.Writer != &buf {
		t.Errorf("unexpected converted config %+v", lc)
	}
	if len(lc.RedactKeys) == 0 {
		t.Error("expected default redact keys")
	}
}

func TestContextGetters_Empty(t *testing.T) {
	ctx := context.Background()
	if GetActor(ctx) != "" || GetRunID(ctx) != "" || GetOperation(ctx) != "" {
		t.Error("expected empty values from bare context")
	}
}
