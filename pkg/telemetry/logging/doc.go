// Package logging builds the structured loggers used across custodian.
//
// Loggers are plain *slog.Logger values. New configures level, format and
// source location, masks attributes whose key names a secret (password,
// token, api_key by default) and strips inline bearer tokens and
// password=value pairs from string values.
//
// Context values set with WithActor, WithRunID and WithOperation are
// appended to every record logged through a *Context method:
//
//	logger, _ := logging.New(logging.Config{Level: "info", Format: "json"})
//	ctx = logging.WithRunID(ctx, runID)
//	logger.InfoContext(ctx, "deletion batch complete", "deleted", 100)
package logging
