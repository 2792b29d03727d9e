package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestIgnoresStateDir(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"empty", "", false},
		{"bare name", "node_modules/\n.tmap\n*.log\n", true},
		{"directory rule", ".tmap/\n", true},
		{"anchored", "/.tmap/\n", true},
		{"contents glob", ".tmap/**\n", true},
		{"indented", "  .tmap/  \n", true},
		{"comment", "# .tmap/\n", false},
		{"lookalikes", ".tmap2/\ntmap/\n.tmap-backup\n*.tmap\n", false},
		{"negated later", ".tmap/\n!.tmap/\n", false},
		{"ignored again", "!.tmap/\n/.tmap\n", true},
		{"no trailing newline", "dist\n.tmap/", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ignoresStateDir([]byte(tt.content)); got != tt.want {
				t.Errorf("ignoresStateDir(%q) = %v, want %v", tt.content, got, tt.want)
			}
		})
	}
}

func TestAppendIgnoreBlock(t *testing.T) {
	block := ignoreHeader + "\n.tmap/\n"
	tests := []struct {
		name, before, want string
	}{
		{"empty", "", block},
		{"trailing newline", "node_modules/\n", "node_modules/\n\n" + block},
		{"no trailing newline", "node_modules/", "node_modules/\n\n" + block},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(appendIgnoreBlock([]byte(tt.before))); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnsureIgnored(t *testing.T) {
	tests := []struct {
		name     string
		existing string // "" means no .gitignore
		want     int    // ".tmap/" rules afterwards
	}{
		{"creates file", "", 1},
		{"keeps covering rule", "/.tmap\n", 0},
		{"re-adds after negation", ".tmap/\n!.tmap/\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			path := filepath.Join(root, ".gitignore")
			if tt.existing != "" {
				if err := os.WriteFile(path, []byte(tt.existing), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			for i := 0; i < 2; i++ {
				if err := EnsureIgnored(root); err != nil {
					t.Fatalf("EnsureIgnored: %v", err)
				}
			}
			data, err := os.ReadFile(path)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.HasPrefix(string(data), tt.existing) {
				t.Errorf("existing content not preserved:\n%s", data)
			}
			got := 0
			for _, line := range strings.Split(string(data), "\n") {
				if line == ".tmap/" {
					got++
				}
			}
			if got != tt.want {
				t.Errorf(".tmap/ rules = %d, want %d:\n%s", got, tt.want, data)
			}
			if !ignoresStateDir(data) {
				t.Errorf("state dir not ignored:\n%s", data)
			}
		})
	}
}

func TestInit(t *testing.T) {
	root := t.TempDir()
	path, err := Init(root, Default())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if path != filepath.Join(root, DirName, "config.yaml") {
		t.Errorf("config path = %q", path)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() after Init error = %v", err)
	}
	if cfg.Store.Backend != "file" {
		t.Errorf("backend = %q, want file", cfg.Store.Backend)
	}
	if _, ok := FindRoot(root); !ok {
		t.Error("Init should make the directory discoverable")
	}

	// A second Init keeps user edits.
	if err := os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Init(root, Default()); err != nil {
		t.Fatal(err)
	}
	cfg, _ = Load(path)
	if cfg.Log.Level != "warn" {
		t.Errorf("Init overwrote an existing config: level = %q", cfg.Log.Level)
	}
}
