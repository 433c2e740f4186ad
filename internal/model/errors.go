package model

import "fmt"

// ExitCode defines the process exit codes of the CLI.
// These codes allow scripts and CI systems to programmatically determine
// which stage of provisioning failed.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitInvalidConfig indicates a setting was outside its allowed values.
	ExitInvalidConfig ExitCode = 2

	// ExitUnsupportedPlatform indicates the OS, architecture or CPU
	// feature set cannot run the AVX build.
	ExitUnsupportedPlatform ExitCode = 3

	// ExitMissingCommand indicates a required executable is not on PATH.
	ExitMissingCommand ExitCode = 4

	// ExitPythonVersion indicates the interpreter is outside the
	// supported version range.
	ExitPythonVersion ExitCode = 5

	// ExitGitError indicates a clone, fetch or checkout failed.
	ExitGitError ExitCode = 6

	// ExitDependencyInstall indicates pip failed to install a
	// requirements manifest or to prepare the virtual environment.
	ExitDependencyInstall ExitCode = 7

	// ExitBuildFailed indicates the wheel build or the install step failed.
	ExitBuildFailed ExitCode = 8

	// ExitSystemDeps indicates apt-get failed after it was attempted.
	ExitSystemDeps ExitCode = 9
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
//
// Pipeline packages return CLIError directly from the step that failed, so
// the code identifies the step. cli.Execute finds it with errors.As even
// when it has been wrapped again.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
