package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// ReadProfile loads a profile file and returns its settings keyed by
// setting key. The format is chosen from the extension: .yaml/.yml are
// YAML, .json/.jsonc are JSON with comments and trailing commas allowed.
//
// Unknown keys are rejected so that a typo such as "install-mode" does not
// silently fall back to the default. Values must be strings or integers;
// integers are kept in their decimal form, which is what lets
// install_system_deps: 1 work unquoted.
func ReadProfile(path string) (map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	raw := make(map[string]interface{})
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse YAML profile %s: %w", path, err)
		}
	case ".json", ".jsonc":
		dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to parse JSON profile %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported profile format %q (use .yaml, .yml, .json or .jsonc)", ext)
	}

	known := make(map[string]bool, len(settings))
	for _, s := range settings {
		known[s.key] = true
	}

	out := make(map[string]interface{}, len(raw))
	var unknown []string
	for key, val := range raw {
		if !known[key] {
			unknown = append(unknown, key)
			continue
		}
		str, err := scalarString(val)
		if err != nil {
			return nil, fmt.Errorf("profile key %q: %w", key, err)
		}
		out[key] = str
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("unknown profile keys: %s", strings.Join(unknown, ", "))
	}
	return out, nil
}

func scalarString(v interface{}) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case int:
		return strconv.Itoa(t), nil
	case json.Number:
		if _, err := t.Int64(); err != nil {
			return "", fmt.Errorf("expected an integer, got %s", t.String())
		}
		return t.String(), nil
	case float64:
		if t != math.Trunc(t) {
			return "", fmt.Errorf("expected an integer, got %v", t)
		}
		return strconv.FormatInt(int64(t), 10), nil
	default:
		return "", fmt.Errorf("expected a string or integer, got %T", v)
	}
}
