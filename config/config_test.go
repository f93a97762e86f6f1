package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/arthur-debert/rollover/types"
	"github.com/google/go-cmp/cmp"
)

// isolate keeps discovery away from the developer's real config files
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("ROLLOVER_CONFIG", "")
	return dir
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "rollover.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	isolate(t)

	got, err := New("").Settings()
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	if diff := cmp.Diff(types.DefaultSettings(), got); diff != "" {
		t.Errorf("Settings() mismatch (-want +got):\n%s", diff)
	}
}

func TestConfigFile(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, `
auto-rollover: "09:30"
portal-mode: true
date-limit: 3
retain-completed: true
move-order: prepend
interval: 30s
tree: notes.json
`)

	src := New(path)
	got, err := src.Settings()
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}

	want := types.Settings{
		AutoRolloverTime: "09:30",
		PortalMode:       true,
		DateLimit:        3,
		RetainCompleted:  true,
		MoveOrder:        types.MoveOrderPrepend,
		Interval:         30 * time.Second,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Settings() mismatch (-want +got):\n%s", diff)
	}
	if src.String(KeyTree) != "notes.json" {
		t.Errorf("Expected tree 'notes.json', got '%s'", src.String(KeyTree))
	}
	if src.String(KeyState) != DefaultStatePath {
		t.Errorf("Expected default state path, got '%s'", src.String(KeyState))
	}
	if src.ConfigFileUsed() != path {
		t.Errorf("Expected config file %s, got %s", path, src.ConfigFileUsed())
	}
}

func TestROLLOVER_CONFIG_EnvironmentVariable(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, "date-limit: 2\n")
	t.Setenv("ROLLOVER_CONFIG", path)

	got, err := New("").Settings()
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	if got.DateLimit != 2 {
		t.Errorf("Expected date-limit 2 from ROLLOVER_CONFIG, got %d", got.DateLimit)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, "portal-mode: false\nauto-rollover: \"08:00\"\n")
	t.Setenv("ROLLOVER_PORTAL_MODE", "true")
	t.Setenv("ROLLOVER_AUTO_ROLLOVER", "07:15")

	got, err := New(path).Settings()
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	if !got.PortalMode {
		t.Error("Expected ROLLOVER_PORTAL_MODE to enable portal mode")
	}
	if got.AutoRolloverTime != "07:15" {
		t.Errorf("Expected auto-rollover 07:15, got %s", got.AutoRolloverTime)
	}
}

func TestSettingsRereadsFile(t *testing.T) {
	dir := isolate(t)
	path := writeConfig(t, dir, "date-limit: 4\n")
	src := New(path)

	first, err := src.Settings()
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}
	writeConfig(t, dir, "date-limit: 9\n")
	second, err := src.Settings()
	if err != nil {
		t.Fatalf("Settings() error = %v", err)
	}

	if first.DateLimit != 4 || second.DateLimit != 9 {
		t.Errorf("Expected date-limit 4 then 9, got %d then %d", first.DateLimit, second.DateLimit)
	}
}

func TestInvalidSettings(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad time", "auto-rollover: \"25:00\"\n"},
		{"negative date limit", "date-limit: -1\n"},
		{"unknown move order", "move-order: sideways\n"},
		{"tiny interval", "interval: 10ms\n"},
		{"malformed yaml", "date-limit: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			path := writeConfig(t, dir, tt.content)
			if _, err := New(path).Settings(); err == nil {
				t.Error("Expected error, got nil")
			}
		})
	}
}

func TestMissingConfigFileIsNotAnError(t *testing.T) {
	dir := isolate(t)
	src := New(filepath.Join(dir, "absent.yaml"))
	if err := src.ReadConfig(); err != nil {
		t.Errorf("ReadConfig() error = %v", err)
	}
	if _, err := src.Settings(); err != nil {
		t.Errorf("Settings() error = %v", err)
	}
}
