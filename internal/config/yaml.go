package config

import (
	"fmt"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	yaml "go.yaml.in/yaml/v3"
)

// toJSON hands back JSON bytes for either config format. YAML is decoded
// and re-marshaled so the one strict decoder in Parse sees both formats;
// files without a .yaml/.yml extension are treated as JSON as-is.
func toJSON(path string, data []byte) ([]byte, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return data, nil
	}

	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("yaml unmarshal: %w", err)
	}
	j, err := json.Marshal(stringifyKeys(v))
	if err != nil {
		return nil, fmt.Errorf("yaml->json marshal: %w", err)
	}
	return j, nil
}

// stringifyKeys rewrites map[any]any nodes, which YAML produces for
// non-scalar keys, into map[string]any so JSON marshaling cannot fail.
func stringifyKeys(in any) any {
	switch x := in.(type) {
	case map[any]any:
		m := make(map[string]any, len(x))
		for k, v := range x {
			m[fmt.Sprint(k)] = stringifyKeys(v)
		}
		return m
	case map[string]any:
		for k, v := range x {
			x[k] = stringifyKeys(v)
		}
		return x
	case []any:
		for i := range x {
			x[i] = stringifyKeys(x[i])
		}
		return x
	default:
		return in
	}
}
