package model

import (
	"fmt"
	"strings"
)

// InstallMode selects how the built library ends up in the virtual
// environment.
type InstallMode string

const (
	// ModeEditable installs the package in development mode so that it
	// runs directly from the source tree (pip install -e).
	ModeEditable InstallMode = "editable"

	// ModeWheel builds a distributable wheel into dist/ and installs it.
	ModeWheel InstallMode = "wheel"
)

// String returns the string representation of InstallMode.
func (m InstallMode) String() string {
	return string(m)
}

// IsValid checks whether the InstallMode value is one of the
// predefined valid modes.
func (m InstallMode) IsValid() bool {
	switch m {
	case ModeEditable, ModeWheel:
		return true
	default:
		return false
	}
}

// ParseInstallMode converts a string to an InstallMode.
// Surrounding whitespace and case are ignored. Any other value is rejected.
func ParseInstallMode(s string) (InstallMode, error) {
	mode := InstallMode(strings.ToLower(strings.TrimSpace(s)))
	if !mode.IsValid() {
		return "", fmt.Errorf("invalid install mode: %q (valid: editable, wheel)", s)
	}
	return mode, nil
}

// SystemDepsFlag is the boolean-like INSTALL_SYSTEM_DEPS switch. It is kept
// as a two-valued string rather than a bool so that "true", "yes" and
// friends are rejected instead of silently coerced.
type SystemDepsFlag string

const (
	// SystemDepsOff skips the system package step entirely.
	SystemDepsOff SystemDepsFlag = "0"

	// SystemDepsOn requests a best-effort apt-get installation.
	SystemDepsOn SystemDepsFlag = "1"
)

// Enabled reports whether system package installation was requested.
func (f SystemDepsFlag) Enabled() bool {
	return f == SystemDepsOn
}

// IsValid checks whether the flag is exactly "0" or "1".
func (f SystemDepsFlag) IsValid() bool {
	return f == SystemDepsOff || f == SystemDepsOn
}

// ParseSystemDepsFlag converts a string to a SystemDepsFlag.
func ParseSystemDepsFlag(s string) (SystemDepsFlag, error) {
	flag := SystemDepsFlag(strings.TrimSpace(s))
	if !flag.IsValid() {
		return "", fmt.Errorf("invalid system deps flag: %q (valid: 0, 1)", s)
	}
	return flag, nil
}

// Settings is the fully resolved configuration of a provisioning run.
type Settings struct {
	// Python is the interpreter used to create the virtual environment.
	// Either a bare command name resolved via PATH or a path.
	Python string `json:"python"`

	// VenvDir is the absolute path of the virtual environment.
	VenvDir string `json:"venvDir"`

	// SrcDir is the absolute path where the repository is cloned when no
	// local checkout is detected.
	SrcDir string `json:"srcDir"`

	// Ref is the branch, tag or commit checked out in a cloned repository.
	Ref string `json:"ref"`

	// RepoURL is the remote cloned into SrcDir.
	RepoURL string `json:"repoUrl"`

	// InstallMode is either editable or wheel.
	InstallMode InstallMode `json:"installMode"`

	// SystemDeps controls the optional apt-get step.
	SystemDeps SystemDepsFlag `json:"installSystemDeps"`

	// ExtraIndexURL is passed to pip so that CPU builds of torch resolve.
	ExtraIndexURL string `json:"extraIndexUrl"`
}

// Validate checks every field that has a constraint beyond "is a string".
func (s *Settings) Validate() error {
	if !s.InstallMode.IsValid() {
		return fmt.Errorf("invalid install mode: %q (valid: editable, wheel)", string(s.InstallMode))
	}
	if !s.SystemDeps.IsValid() {
		return fmt.Errorf("invalid system deps flag: %q (valid: 0, 1)", string(s.SystemDeps))
	}
	if s.Python == "" {
		return fmt.Errorf("python interpreter must not be empty")
	}
	if s.VenvDir == "" {
		return fmt.Errorf("venv directory must not be empty")
	}
	if s.SrcDir == "" {
		return fmt.Errorf("source directory must not be empty")
	}
	if s.Ref == "" {
		return fmt.Errorf("source reference must not be empty")
	}
	if s.RepoURL == "" {
		return fmt.Errorf("repository URL must not be empty")
	}
	return nil
}
