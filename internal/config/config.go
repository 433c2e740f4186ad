// Package config resolves the settings of a provisioning run.
//
// Values are layered, highest precedence first:
//
//	command-line flag > environment variable > profile file > default
//
// Layering is done by a private viper instance so that tests (and multiple
// commands in one process) never share global state. Environment variables
// that are set but empty count as unset, so PYTHON_BIN= behaves the same
// as leaving it out.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/shinji-kodama/vllm-avx-provision/internal/model"
)

// Setting keys. They double as profile file keys.
const (
	KeyPython        = "python"
	KeyVenvDir       = "venv_dir"
	KeySrcDir        = "src_dir"
	KeyRef           = "ref"
	KeyRepoURL       = "repo_url"
	KeyInstallMode   = "install_mode"
	KeySystemDeps    = "install_system_deps"
	KeyExtraIndexURL = "extra_index_url"
)

// DefaultRepoURL is the upstream repository cloned when no local checkout
// is found.
const DefaultRepoURL = "https://github.com/vllm-project/vllm.git"

// DefaultExtraIndexURL serves CPU-only torch wheels.
const DefaultExtraIndexURL = "https://download.pytorch.org/whl/cpu"

// setting ties a key to its environment variable, flag and help text.
type setting struct {
	key   string
	env   string
	flag  string
	usage string
}

var settings = []setting{
	{KeyPython, "PYTHON_BIN", "python", "Python interpreter used to create the virtual environment"},
	{KeyVenvDir, "VENV_DIR", "venv-dir", "Virtual environment directory"},
	{KeySrcDir, "SRC_DIR", "src-dir", "Directory to clone the source into"},
	{KeyRef, "VLLM_REF", "ref", "Branch, tag or commit to check out"},
	{KeyRepoURL, "VLLM_REPO_URL", "repo-url", "Git repository to clone"},
	{KeyInstallMode, "INSTALL_MODE", "mode", "Install mode: editable or wheel"},
	{KeySystemDeps, "INSTALL_SYSTEM_DEPS", "system-deps", "Install system packages with apt-get: 0 or 1"},
	{KeyExtraIndexURL, "PIP_EXTRA_INDEX_URL", "extra-index-url", "Extra package index for CPU torch wheels"},
}

// EnvName returns the environment variable bound to key, or "".
func EnvName(key string) string {
	for _, s := range settings {
		if s.key == key {
			return s.env
		}
	}
	return ""
}

// Defaults returns the default value of every key for the given home
// directory.
func Defaults(home string) map[string]string {
	return map[string]string{
		KeyPython:        "python3",
		KeyVenvDir:       filepath.Join(home, ".venvs", "vllm-cpu-avx"),
		KeySrcDir:        filepath.Join(home, "src", "vllm"),
		KeyRef:           "main",
		KeyRepoURL:       DefaultRepoURL,
		KeyInstallMode:   string(model.ModeWheel),
		KeySystemDeps:    string(model.SystemDepsOff),
		KeyExtraIndexURL: DefaultExtraIndexURL,
	}
}

// RegisterFlags defines one flag per setting on fs. Flag defaults are left
// empty so that an unset flag never shadows the environment; the effective
// default is named in the usage text instead.
func RegisterFlags(fs *pflag.FlagSet) {
	for _, s := range settings {
		fs.String(s.flag, "", fmt.Sprintf("%s (env %s)", s.usage, s.env))
	}
}

// Options controls where Load reads from.
type Options struct {
	// ProfilePath is an optional YAML or JSONC profile file.
	ProfilePath string

	// Flags holds flags registered with RegisterFlags. May be nil.
	Flags *pflag.FlagSet

	// Home overrides the home directory used for defaults and ~ expansion.
	// Empty means os.UserHomeDir().
	Home string
}

// Load resolves and validates the settings. Any value outside its allowed
// set is reported as an ExitInvalidConfig CLIError.
func Load(opts Options) (*model.Settings, error) {
	home := opts.Home
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return nil, model.WrapCLIError(model.ExitInvalidConfig, "cannot determine home directory", err)
		}
		home = h
	}

	v := viper.New()
	for key, val := range Defaults(home) {
		v.SetDefault(key, val)
	}

	for _, s := range settings {
		if err := v.BindEnv(s.key, s.env); err != nil {
			return nil, model.WrapCLIError(model.ExitInvalidConfig, "failed to bind "+s.env, err)
		}
		if opts.Flags == nil {
			continue
		}
		if f := opts.Flags.Lookup(s.flag); f != nil {
			if err := v.BindPFlag(s.key, f); err != nil {
				return nil, model.WrapCLIError(model.ExitInvalidConfig, "failed to bind --"+s.flag, err)
			}
		}
	}

	if opts.ProfilePath != "" {
		values, err := ReadProfile(opts.ProfilePath)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitInvalidConfig, "invalid profile", err)
		}
		if err := v.MergeConfigMap(values); err != nil {
			return nil, model.WrapCLIError(model.ExitInvalidConfig, "invalid profile", err)
		}
	}

	mode, err := model.ParseInstallMode(v.GetString(KeyInstallMode))
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidConfig, "INSTALL_MODE must be editable or wheel", err)
	}
	sysDeps, err := model.ParseSystemDepsFlag(v.GetString(KeySystemDeps))
	if err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidConfig, "INSTALL_SYSTEM_DEPS must be 0 or 1", err)
	}

	s := &model.Settings{
		Python:        expandHome(strings.TrimSpace(v.GetString(KeyPython)), home),
		VenvDir:       v.GetString(KeyVenvDir),
		SrcDir:        v.GetString(KeySrcDir),
		Ref:           strings.TrimSpace(v.GetString(KeyRef)),
		RepoURL:       strings.TrimSpace(v.GetString(KeyRepoURL)),
		InstallMode:   mode,
		SystemDeps:    sysDeps,
		ExtraIndexURL: strings.TrimSpace(v.GetString(KeyExtraIndexURL)),
	}

	if s.VenvDir, err = absPath(s.VenvDir, home); err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidConfig, "invalid VENV_DIR", err)
	}
	if s.SrcDir, err = absPath(s.SrcDir, home); err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidConfig, "invalid SRC_DIR", err)
	}

	if err := s.Validate(); err != nil {
		return nil, model.WrapCLIError(model.ExitInvalidConfig, "invalid configuration", err)
	}
	return s, nil
}

// expandHome replaces a leading "~" with home.
func expandHome(p, home string) string {
	if p == "~" {
		return home
	}
	if strings.HasPrefix(p, "~/") {
		return filepath.Join(home, p[2:])
	}
	return p
}

func absPath(p, home string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", nil
	}
	return filepath.Abs(expandHome(p, home))
}
