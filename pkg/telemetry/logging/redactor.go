package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redacted replaces the value of a sensitive attribute.
const Redacted = "***"

// Redactor masks sensitive values in log attributes.
type Redactor struct {
	keys     []string
	patterns []*redactPattern
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a Redactor for the given sensitive keys plus the
// built-in inline patterns.
func NewRedactor(keys []string) *Redactor {
	r := &Redactor{}
	for _, k := range keys {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			r.keys = append(r.keys, k)
		}
	}

	r.patterns = []*redactPattern{
		// Bearer tokens
		{regex: regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`), replacement: "Bearer ***"},
		// password=..., secret: ...
		{regex: regexp.MustCompile(`(?i)(password|passwd|secret)[:=]\s*[^\s,]+`), replacement: "$1: ***"},
	}

	return r
}

// ReplaceAttr is an slog.HandlerOptions.ReplaceAttr function.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	if r.isSensitiveKey(a.Key) {
		return slog.String(a.Key, Redacted)
	}

	if a.Value.Kind() == slog.KindString {
		if s := a.Value.String(); s != "" {
			if red := r.RedactString(s); red != s {
				return slog.String(a.Key, red)
			}
		}
	}

	return a
}

// RedactString applies the inline patterns to value.
func (r *Redactor) RedactString(value string) string {
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllString(value, p.replacement)
	}
	return value
}

func (r *Redactor) isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, k := range r.keys {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}
