package forge

import (
	"os"
	"path/filepath"
	"testing"

	"forgewatch/pkg/logx"
)

func TestLoadCatalog(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forge_items.json")
	data := `{
		"REFINED_DIAMOND": {"name": "Refined Diamond", "duration": 28800000},
		"NO_DURATION": {"name": "Broken Entry"},
		"NO_NAME": {"duration": 1000}
	}`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	c := LoadCatalog(path, logx.Nop())
	if c.Len() != 2 {
		t.Fatalf("expected 2 usable items, got %d", c.Len())
	}

	it, ok := c.Lookup("REFINED_DIAMOND")
	if !ok || it.Name != "Refined Diamond" || it.DurationMS != 28_800_000 {
		t.Fatalf("unexpected entry: %+v ok=%v", it, ok)
	}
	if _, ok := c.Lookup("NO_DURATION"); ok {
		t.Fatal("entry without duration should be dropped")
	}
	it, ok = c.Lookup("NO_NAME")
	if !ok || it.Name != "NO_NAME" {
		t.Fatalf("missing name should default to ID, got %+v", it)
	}
}

func TestCatalogReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forge_items.json")
	if err := os.WriteFile(path, []byte(`{"GEM": {"duration": 1000}}`), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	c := LoadCatalog(path, logx.Nop())
	if c.Len() != 1 {
		t.Fatalf("initial load: %d items", c.Len())
	}

	next := `{"GEM": {"duration": 2000}, "ORE": {"duration": 500}}`
	if err := os.WriteFile(path, []byte(next), 0o644); err != nil {
		t.Fatalf("rewrite catalog: %v", err)
	}
	c.reload(path, logx.Nop())
	if c.Len() != 2 {
		t.Fatalf("after reload: %d items", c.Len())
	}
	if it, _ := c.Lookup("GEM"); it.DurationMS != 2000 {
		t.Fatalf("reload did not swap entries: %+v", it)
	}

	// A malformed rewrite keeps the last good snapshot.
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("rewrite catalog: %v", err)
	}
	c.reload(path, logx.Nop())
	if c.Len() != 2 {
		t.Fatalf("malformed reload should keep previous entries, got %d", c.Len())
	}
}

func TestLoadCatalogMissingOrMalformed(t *testing.T) {
	c := LoadCatalog(filepath.Join(t.TempDir(), "nope.json"), logx.Nop())
	if c.Len() != 0 {
		t.Fatalf("missing file should load empty, got %d", c.Len())
	}

	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c = LoadCatalog(path, logx.Nop())
	if c.Len() != 0 {
		t.Fatalf("malformed file should load empty, got %d", c.Len())
	}
}
