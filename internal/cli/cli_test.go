// cli_test.go runs the config and hint commands end to end
// and checks the error reporting helpers.
//
// None of these tests start a child process that changes the system; the
// install pipeline itself is covered in the provision package.
package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/vllm-avx-provision/internal/model"
)

// settingEnv lists every environment variable the config package reads.
var settingEnv = []string{
	"PYTHON_BIN", "VENV_DIR", "SRC_DIR", "VLLM_REF", "VLLM_REPO_URL",
	"INSTALL_MODE", "INSTALL_SYSTEM_DEPS", "PIP_EXTRA_INDEX_URL",
}

// isolate points HOME at a temp dir and blanks every setting variable.
// Empty variables count as unset.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, name := range settingEnv {
		t.Setenv(name, "")
	}
	return home
}

// runCLI executes the root command with args and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func TestConfigCommand_Defaults(t *testing.T) {
	home := isolate(t)

	out, _, err := runCLI(t, "config")
	require.NoError(t, err)

	assert.Contains(t, out, "PYTHON_BIN")
	assert.Contains(t, out, "python3")
	assert.Contains(t, out, filepath.Join(home, ".venvs", "vllm-cpu-avx"))
	assert.Contains(t, out, filepath.Join(home, "src", "vllm"))
	assert.Contains(t, out, "https://download.pytorch.org/whl/cpu")

	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if strings.HasPrefix(line, "INSTALL_MODE") {
			assert.Equal(t, "wheel", strings.TrimSpace(strings.TrimPrefix(line, "INSTALL_MODE")))
		}
	}
}

func TestConfigCommand_Precedence(t *testing.T) {
	isolate(t)
	t.Setenv("INSTALL_MODE", "editable")
	t.Setenv("VLLM_REF", "v0.6.3")

	out, _, err := runCLI(t, "config", "--json", "--ref", "v0.7.0")
	require.NoError(t, err)

	var s model.Settings
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, model.ModeEditable, s.InstallMode, "environment overrides the default")
	assert.Equal(t, "v0.7.0", s.Ref, "flag overrides the environment")
	assert.Equal(t, model.SystemDepsOff, s.SystemDeps)
}

func TestConfigCommand_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{name: "unknown install mode", env: "INSTALL_MODE", val: "sdist"},
		{name: "system deps out of range", env: "INSTALL_SYSTEM_DEPS", val: "2"},
		{name: "system deps as word", env: "INSTALL_SYSTEM_DEPS", val: "yes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv(tt.env, tt.val)

			out, _, err := runCLI(t, "config")
			require.Error(t, err)
			assert.Empty(t, out)

			var cliErr *model.CLIError
			require.True(t, errors.As(err, &cliErr))
			assert.Equal(t, model.ExitInvalidConfig, cliErr.Code)
		})
	}
}

func TestConfigCommand_Profile(t *testing.T) {
	home := isolate(t)
	profile := filepath.Join(home, "avx.yaml")
	require.NoError(t, os.WriteFile(profile, []byte("install_mode: editable\ninstall_system_deps: 1\nvenv_dir: ~/envs/avx\n"), 0o644))

	out, _, err := runCLI(t, "config", "--json", "--profile", profile)
	require.NoError(t, err)

	var s model.Settings
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, model.ModeEditable, s.InstallMode)
	assert.Equal(t, model.SystemDepsOn, s.SystemDeps)
	assert.Equal(t, filepath.Join(home, "envs", "avx"), s.VenvDir)
}

func TestHintCommand_JSON(t *testing.T) {
	isolate(t)

	out, _, err := runCLI(t, "hint", "--json")
	require.NoError(t, err)

	var res hintResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	if runtime.NumCPU() > 1 {
		assert.Contains(t, res.ThreadsBind, "VLLM_CPU_OMP_THREADS_BIND=0-")
	}
	if res.Libraries.Complete() {
		assert.Contains(t, res.Preload, "LD_PRELOAD")
	} else {
		assert.Empty(t, res.Preload)
		assert.NotEmpty(t, res.Missing)
	}
}

func TestFormatSettings(t *testing.T) {
	s := &model.Settings{
		Python:        "python3.11",
		VenvDir:       "/opt/venv",
		SrcDir:        "/opt/src/vllm",
		Ref:           "main",
		RepoURL:       "https://example.com/vllm.git",
		InstallMode:   model.ModeWheel,
		SystemDeps:    model.SystemDepsOn,
		ExtraIndexURL: "https://download.pytorch.org/whl/cpu",
	}

	var buf bytes.Buffer
	require.NoError(t, FormatSettings(&buf, s))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 8)
	assert.True(t, strings.HasPrefix(lines[0], "PYTHON_BIN"))
	assert.True(t, strings.HasSuffix(lines[0], "python3.11"))
	assert.True(t, strings.HasPrefix(lines[6], "INSTALL_SYSTEM_DEPS"))
	assert.True(t, strings.HasSuffix(lines[6], "1"))
}

func TestReportError(t *testing.T) {
	tests := []struct {
		name     string
		json     bool
		err      error
		wantCode model.ExitCode
		wantOut  string
	}{
		{
			name:     "cli error with cause",
			err:      model.WrapCLIError(model.ExitGitError, "git fetch failed", errors.New("network unreachable")),
			wantCode: model.ExitGitError,
			wantOut:  "Error: git fetch failed: network unreachable\n",
		},
		{
			name:     "plain error",
			err:      errors.New("unknown flag: --foo"),
			wantCode: model.ExitGeneralError,
			wantOut:  "Error: unknown flag: --foo\n",
		},
		{
			name:     "json output",
			json:     true,
			err:      model.NewCLIError(model.ExitUnsupportedPlatform, "CPU lacks the avx flag"),
			wantCode: model.ExitUnsupportedPlatform,
			wantOut:  `"message": "CPU lacks the avx flag"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jsonOutput = tt.json
			t.Cleanup(func() { jsonOutput = false })

			var buf bytes.Buffer
			code := reportError(&buf, tt.err)
			assert.Equal(t, tt.wantCode, code)
			assert.Contains(t, buf.String(), tt.wantOut)
		})
	}
}

// TestIsJSONOutput verifies that the --json flag switches every command to
// JSON and that a fresh root command starts in text mode again.
func TestIsJSONOutput(t *testing.T) {
	isolate(t)
	t.Cleanup(func() { jsonOutput = false })

	out, stderr, err := runCLI(t, "config", "--json")
	require.NoError(t, err)
	assert.True(t, IsJSONOutput())
	assert.True(t, json.Valid([]byte(out)), "stdout must hold a single JSON document")
	assert.Empty(t, stderr)

	out, _, err = runCLI(t, "config")
	require.NoError(t, err)
	assert.False(t, IsJSONOutput())
	assert.False(t, json.Valid([]byte(out)))
}
