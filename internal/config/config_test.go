package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "hunkline.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadParsesSectionsAndDefaults(t *testing.T) {
	t.Parallel()
	tmp := t.TempDir()
	cfgPath := writeConfig(t, tmp, `
db_path = "state/hl.db"

[diff]
context_lines = 5
rename_detection = false

[conflict]
style = "diff3"
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.DBPath != filepath.Join(tmp, "state", "hl.db") {
		t.Fatalf("expected db path resolved against config dir, got %s", cfg.DBPath)
	}
	if cfg.Diff.ContextLines == nil || *cfg.Diff.ContextLines != 5 {
		t.Fatalf("expected context_lines 5, got %v", cfg.Diff.ContextLines)
	}
	if cfg.Diff.RenameDetection == nil || *cfg.Diff.RenameDetection {
		t.Fatalf("expected rename_detection false, got %v", cfg.Diff.RenameDetection)
	}
	if cfg.Conflict.Style != "diff3" {
		t.Fatalf("expected conflict style diff3, got %s", cfg.Conflict.Style)
	}

	// Defaults.
	if cfg.LogLevel != "info" {
		t.Fatalf("expected default log level info, got %s", cfg.LogLevel)
	}
	if cfg.Render.TabWidth != 4 || cfg.Render.Style != "monokai" {
		t.Fatalf("unexpected render defaults: %+v", cfg.Render)
	}
	if cfg.Diff.MaxWorkers != 0 {
		t.Fatalf("expected max_workers 0 (one per CPU), got %d", cfg.Diff.MaxWorkers)
	}
}

func TestLoadEnvOverridesLogLevel(t *testing.T) {
	cfgPath := writeConfig(t, t.TempDir(), `log_level = "warn"`)
	t.Setenv("HUNKLINE_LOG_LEVEL", "DEBUG")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected log level from env, got %q", cfg.LogLevel)
	}
}

func TestLoadValidation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "log level", content: `log_level = "loud"`, want: "unsupported log_level"},
		{name: "conflict style", content: "[conflict]\nstyle = \"octopus\"", want: "unsupported conflict.style"},
		{name: "context lines", content: "[diff]\ncontext_lines = -1", want: "diff.context_lines"},
		{name: "max workers", content: "[diff]\nmax_workers = -2", want: "diff.max_workers"},
		{name: "tab width", content: "[render]\ntab_width = 40", want: "render.tab_width"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(writeConfig(t, t.TempDir(), tt.content))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected %q in error, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadFailsForMalformedTOML(t *testing.T) {
	t.Parallel()
	_, err := Load(writeConfig(t, t.TempDir(), `log_level = `))
	if err == nil || !strings.Contains(err.Error(), "decode config") {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestResolvePrefersExplicitThenGlobal(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	got, err := Resolve("")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "" {
		t.Fatalf("expected no config, got %q", got)
	}

	global := filepath.Join(configHome, "hunkline", "config.toml")
	if err := os.MkdirAll(filepath.Dir(global), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(global, []byte(`log_level = "error"`), 0o644); err != nil {
		t.Fatalf("write global: %v", err)
	}
	if got, err = Resolve(""); err != nil || got != global {
		t.Fatalf("expected global config %q, got %q (%v)", global, got, err)
	}

	explicit := writeConfig(t, t.TempDir(), `log_level = "debug"`)
	if got, err = Resolve(explicit); err != nil || got != explicit {
		t.Fatalf("expected explicit config, got %q (%v)", got, err)
	}
	if _, err := Resolve(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing explicit config")
	}

	cfg, err := LoadResolved("")
	if err != nil {
		t.Fatalf("load resolved: %v", err)
	}
	if cfg.LogLevel != "error" || cfg.Path != global {
		t.Fatalf("expected global config to load, got %+v", cfg)
	}
}

func TestDefaultUsesDataDir(t *testing.T) {
	dataHome := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dataHome)
	t.Setenv("HUNKLINE_LOG_LEVEL", "")

	cfg, err := Default()
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if want := filepath.Join(dataHome, "hunkline", "hunkline.db"); cfg.DBPath != want {
		t.Fatalf("expected %q, got %q", want, cfg.DBPath)
	}
	if cfg.Conflict.Style != "merge" {
		t.Fatalf("expected merge conflict style, got %s", cfg.Conflict.Style)
	}
}

func TestEncodeRoundTrips(t *testing.T) {
	t.Parallel()
	cfg, err := Load(writeConfig(t, t.TempDir(), "[render]\nsyntax_highlight = true\ntab_width = 8"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	var buf bytes.Buffer
	if err := cfg.Encode(&buf); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"syntax_highlight = true", "tab_width = 8", `style = "merge"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in encoded config:\n%s", want, out)
		}
	}
}

func TestSlogLevel(t *testing.T) {
	t.Parallel()
	cfg := &Config{LogLevel: "warn"}
	if got := cfg.SlogLevel().String(); got != "WARN" {
		t.Fatalf("expected WARN, got %s", got)
	}
}
