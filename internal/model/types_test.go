package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestParseInstallMode verifies that only editable and wheel are accepted,
// with case and whitespace normalization.
func TestParseInstallMode(t *testing.T) {
	tests := []struct {
		input    string
		expected InstallMode
		hasError bool
	}{
		{"editable", ModeEditable, false},
		{"wheel", ModeWheel, false},
		{"Wheel", ModeWheel, false},
		{" EDITABLE ", ModeEditable, false},
		{"develop", "", true},
		{"sdist", "", true},
		{"wheels", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseInstallMode(tt.input)
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

// TestParseSystemDepsFlag verifies that the flag is strictly 0 or 1.
func TestParseSystemDepsFlag(t *testing.T) {
	for _, ok := range []string{"0", "1", " 1 "} {
		_, err := ParseSystemDepsFlag(ok)
		assert.NoError(t, err, "input %q", ok)
	}
	for _, bad := range []string{"", "2", "true", "false", "yes", "01", "-1"} {
		_, err := ParseSystemDepsFlag(bad)
		assert.Error(t, err, "input %q", bad)
	}

	assert.True(t, SystemDepsOn.Enabled())
	assert.False(t, SystemDepsOff.Enabled())
}

func validSettings() Settings {
	return Settings{
		Python:        "python3",
		VenvDir:       "/tmp/venv",
		SrcDir:        "/tmp/src",
		Ref:           "main",
		RepoURL:       "https://example.com/repo.git",
		InstallMode:   ModeWheel,
		SystemDeps:    SystemDepsOff,
		ExtraIndexURL: "https://download.pytorch.org/whl/cpu",
	}
}

// TestSettings_Validate covers each constrained field.
func TestSettings_Validate(t *testing.T) {
	s := validSettings()
	require.NoError(t, s.Validate())

	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"bad mode", func(s *Settings) { s.InstallMode = "sdist" }},
		{"bad flag", func(s *Settings) { s.SystemDeps = "yes" }},
		{"empty python", func(s *Settings) { s.Python = "" }},
		{"empty venv", func(s *Settings) { s.VenvDir = "" }},
		{"empty src", func(s *Settings) { s.SrcDir = "" }},
		{"empty ref", func(s *Settings) { s.Ref = "" }},
		{"empty repo", func(s *Settings) { s.RepoURL = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := validSettings()
			tt.mutate(&s)
			assert.Error(t, s.Validate())
		})
	}
}

// TestCLIError verifies the custom error type used for exit code mapping.
func TestCLIError(t *testing.T) {
	t.Run("without underlying error", func(t *testing.T) {
		err := NewCLIError(ExitUnsupportedPlatform, "CPU lacks avx")
		assert.Equal(t, "CPU lacks avx", err.Error())
		assert.Equal(t, ExitUnsupportedPlatform, err.Code)
		assert.Nil(t, err.Unwrap())
	})

	t.Run("with underlying error", func(t *testing.T) {
		inner := errors.New("exit status 128")
		err := WrapCLIError(ExitGitError, "git clone failed", inner)
		assert.Equal(t, "git clone failed: exit status 128", err.Error())
		assert.ErrorIs(t, err, inner)
	})

	t.Run("errors.As finds the code", func(t *testing.T) {
		var wrapped error = WrapCLIError(ExitBuildFailed, "build failed", errors.New("boom"))
		var cliErr *CLIError
		require.True(t, errors.As(wrapped, &cliErr))
		assert.Equal(t, ExitBuildFailed, cliErr.Code)
	})
}
