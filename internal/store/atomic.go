package store

import (
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
)

// writeAtomic marshals v and replaces path in one rename so a crash
// mid-write never leaves a truncated document behind.
func writeAtomic(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
