package cli

import (
	"errors"
	"fmt"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/config"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitConfig     = 2
	ExitNoEligible = 3 // Nothing matched; not a failure for scripted runs
	ExitPartial    = 4 // Deletion stopped part way; a receipt was written
)

// ConfigError represents an error in configuration.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

// CommandError represents an error from a command execution.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var configErr *ConfigError
	var validationErr config.ValidationError
	var partial *audit.PartialDeletionError
	switch {
	case errors.As(err, &configErr), errors.As(err, &validationErr):
		return ExitConfig
	case errors.As(err, &partial):
		return ExitPartial
	case errors.Is(err, audit.ErrNoEligibleEvents):
		return ExitNoEligible
	default:
		return ExitFailure
	}
}
