// Package model defines the domain types and value objects for the
// vllm-avx-provision CLI.
//
// This package contains pure data structures with no external dependencies.
// All values (Settings, InstallMode, SystemDepsFlag) are transient: they are
// resolved from flags, environment variables and an optional profile file
// at startup and live only for the duration of a single run.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (CLIError) that carries exit codes for proper OS process exit handling.
package model
