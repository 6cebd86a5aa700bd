package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"mercator-hq/lifecycle/pkg/audit"
	"mercator-hq/lifecycle/pkg/classify"
	"mercator-hq/lifecycle/pkg/config"
)

// Process exit codes.
const (
	ExitOK          = 0
	ExitFailure     = 1   // Command failed
	ExitConfig      = 2   // Configuration missing or invalid
	ExitUnavailable = 3   // Audit storage, listener or another backend unreachable
	ExitInterrupted = 130 // Stopped by a signal before finishing
)

// ConfigError reports configuration that cannot be used. Source is where it
// came from: the configuration file, "flags", or a dotted section such as
// "audit.backend".
type ConfigError struct {
	Source string
	Fields []config.FieldError
	Err    error
}

func (e *ConfigError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "config error in %s", e.Source)
	switch {
	case len(e.Fields) == 1 && e.Fields[0].Field == e.Source:
		fmt.Fprintf(&sb, ": %s", e.Fields[0].Message)
	case len(e.Fields) > 0:
		for _, f := range e.Fields {
			fmt.Fprintf(&sb, "\n  - %s", f)
		}
	case e.Err != nil:
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// HasField reports whether field is one of the invalid settings.
func (e *ConfigError) HasField(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// NewConfigError wraps a load or validation failure from source. The field
// errors of a config.ValidationError are kept so each one can be reported.
func NewConfigError(source string, err error) *ConfigError {
	ce := &ConfigError{Source: source, Err: err}
	var verr config.ValidationError
	if errors.As(err, &verr) {
		ce.Fields = verr.Errors
	}
	return ce
}

// NewFieldError reports one setting that rules out the command.
func NewFieldError(field, message string) *ConfigError {
	fe := config.FieldError{Field: field, Message: message}
	return &ConfigError{Source: field, Fields: []config.FieldError{fe}, Err: fe}
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

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps a command result to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var cerr *ConfigError
	var serr *audit.StorageError
	switch {
	case errors.As(err, &cerr):
		return ExitConfig
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.As(err, &serr), classify.Classify(err).Category == classify.CategoryInfra:
		return ExitUnavailable
	default:
		return ExitFailure
	}
}
