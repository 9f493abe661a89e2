package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadConfigMissingFileIsNotAnError(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.Display.Columns != nil {
		t.Fatal("missing file must leave all fields unset")
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Fatal("empty path should fail")
	}
}

func TestResolveDefaults(t *testing.T) {
	cfg, err := Resolve(FileConfig{})
	if err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	want := Default()
	if cfg != want {
		t.Fatalf("resolved = %+v, want defaults %+v", cfg, want)
	}
}

func TestResolvePartialOverride(t *testing.T) {
	path := writeConfig(t, `
[display]
columns = 6
trial-seconds = 2.5

[dispatch]
enabled = true
`)
	file, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg, err := Resolve(file)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Columns != 6 {
		t.Errorf("columns = %d", cfg.Columns)
	}
	if cfg.TrialSeconds != 2.5 {
		t.Errorf("trial seconds = %g", cfg.TrialSeconds)
	}
	if !cfg.Dispatch {
		t.Error("dispatch not enabled")
	}
	if cfg.Width != Default().Width {
		t.Errorf("untouched field changed: width = %d", cfg.Width)
	}
}

func TestResolveRejectsBadValues(t *testing.T) {
	cases := map[string]FileConfig{
		"zero columns":     {Display: DisplayConfig{Columns: intPtr(0)}},
		"padding too high": {Display: DisplayConfig{PaddingRatio: floatPtr(1.0)}},
		"negative trial":   {Display: DisplayConfig{TrialSeconds: floatPtr(-1)}},
		"zero speed":       {Display: DisplayConfig{SpeedFactor: floatPtr(0)}},
		"empty charset":    {Display: DisplayConfig{Charset: strPtr("")}},
		"empty addr":       {Server: ServerConfig{Addr: strPtr("")}},
	}
	for name, file := range cases {
		if _, err := Resolve(file); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestLoadConfigBadTOML(t *testing.T) {
	path := writeConfig(t, "[display\ncolumns = ")
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("malformed TOML should fail")
	}
}

func intPtr(v int) *int { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string { return &v }
