package main_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// buildTmapBinary compiles cmd/tmap into a temp dir once per test.
func buildTmapBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping e2e build in -short mode")
	}
	_, thisFile, _, _ := runtime.Caller(0)
	repoRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")

	binPath := filepath.Join(t.TempDir(), "tmap")
	if runtime.GOOS == "windows" {
		binPath += ".exe"
	}
	cmd := exec.Command("go", "build", "-o", binPath, "./cmd/tmap")
	cmd.Dir = repoRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}
	return binPath
}

const fixtureMap = `{
  "version": 1,
  "nodes": [
    {"id": "t", "kind": "topic", "text": "Energy"},
    {"id": "c1", "kind": "claim", "text": "Solar is cheap", "parent": "t"},
    {"id": "c2", "kind": "claim", "text": "Storage is not"}
  ],
  "edges": [
    {"id": "e1", "source": "c2", "target": "c1", "relation": "opposes"}
  ]
}`

// newProject creates a directory with .tmap/ and one map file.
func newProject(t *testing.T, bin string) (dir, mapFile string) {
	t.Helper()
	dir = t.TempDir()
	run(t, bin, dir, "init", "--yes")
	mapFile = filepath.Join(dir, "energy.tmap.json")
	if err := os.WriteFile(mapFile, []byte(fixtureMap), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, mapFile
}

func run(t *testing.T, bin, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command(bin, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		stderr := ""
		if ee, ok := err.(*exec.ExitError); ok {
			stderr = string(ee.Stderr)
		}
		t.Fatalf("tmap %s: %v\n%s%s", strings.Join(args, " "), err, out, stderr)
	}
	return string(out)
}

func TestEndToEndBuildAndRun(t *testing.T) {
	bin := buildTmapBinary(t)
	out := run(t, bin, t.TempDir(), "--version")
	if !strings.HasPrefix(out, "tmap ") {
		t.Errorf("version output = %q", out)
	}
}

func TestE2E_InitCreatesProject(t *testing.T) {
	bin := buildTmapBinary(t)
	dir, _ := newProject(t, bin)

	if _, err := os.Stat(filepath.Join(dir, ".tmap", "config.yaml")); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	ignore, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil || !strings.Contains(string(ignore), ".tmap") {
		t.Errorf(".gitignore = %q, err %v", ignore, err)
	}
}

func TestE2E_LayoutPrintsEveryNode(t *testing.T) {
	bin := buildTmapBinary(t)
	dir, mapFile := newProject(t, bin)

	var doc struct {
		Nodes []struct {
			ID string  `json:"id"`
			X  float64 `json:"x"`
			Y  float64 `json:"y"`
		} `json:"nodes"`
	}
	if err := json.Unmarshal([]byte(run(t, bin, dir, "layout", mapFile)), &doc); err != nil {
		t.Fatalf("layout output is not JSON: %v", err)
	}
	if len(doc.Nodes) != 3 {
		t.Fatalf("got %d nodes, want 3", len(doc.Nodes))
	}

	// Layout is deterministic for the same input.
	again := run(t, bin, dir, "layout", "--compact", mapFile)
	var doc2 struct {
		Nodes []struct {
			ID string  `json:"id"`
			X  float64 `json:"x"`
			Y  float64 `json:"y"`
		} `json:"nodes"`
	}
	if err := json.Unmarshal([]byte(again), &doc2); err != nil {
		t.Fatal(err)
	}
	for i := range doc.Nodes {
		if doc.Nodes[i] != doc2.Nodes[i] {
			t.Errorf("node %d moved between runs: %+v vs %+v", i, doc.Nodes[i], doc2.Nodes[i])
		}
	}
}

func TestE2E_ExportFormats(t *testing.T) {
	bin := buildTmapBinary(t)
	dir, mapFile := newProject(t, bin)

	tests := []struct {
		format string
		want   string
	}{
		{"svg", "<svg"},
		{"html", "<html"},
		{"md", "Energy"},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			out := filepath.Join(dir, "out."+tt.format)
			run(t, bin, dir, "export", mapFile, "--format", tt.format, "--out", out)
			data, err := os.ReadFile(out)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(data), tt.want) {
				t.Errorf("%s export missing %q", tt.format, tt.want)
			}
		})
	}

	png := filepath.Join(dir, "out.png")
	run(t, bin, dir, "export", mapFile, "-f", "png", "-o", png)
	data, err := os.ReadFile(png)
	if err != nil || len(data) < 8 || string(data[1:4]) != "PNG" {
		t.Errorf("png export invalid (err %v)", err)
	}
}

func TestE2E_ValidateRejectsBrokenMap(t *testing.T) {
	bin := buildTmapBinary(t)
	dir, mapFile := newProject(t, bin)

	if out := run(t, bin, dir, "validate", mapFile); !strings.Contains(out, "ok: 3 nodes, 1 edges") {
		t.Errorf("validate output = %q", out)
	}

	broken := filepath.Join(dir, "broken.tmap.json")
	bad := `{"version": 1, "nodes": [], "edges": [{"id": "e", "source": "x", "target": "y", "relation": "supports"}]}`
	if err := os.WriteFile(broken, []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	cmd := exec.Command(bin, "validate", broken)
	cmd.Dir = dir
	if err := cmd.Run(); err == nil {
		t.Error("validate accepted an edge to missing nodes")
	}
}

func TestE2E_StatsReportsArgumentShape(t *testing.T) {
	bin := buildTmapBinary(t)
	dir, mapFile := newProject(t, bin)

	out := run(t, bin, dir, "stats", mapFile)
	for _, want := range []string{"3 nodes, 1 edges", "Unsupported claims: c1, c2"} {
		if !strings.Contains(out, want) {
			t.Errorf("stats output missing %q:\n%s", want, out)
		}
	}

	var doc struct {
		Hubs []struct {
			ID string `json:"id"`
		} `json:"hubs"`
	}
	if err := json.Unmarshal([]byte(run(t, bin, dir, "stats", "--json", mapFile)), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(doc.Hubs) == 0 || doc.Hubs[0].ID != "c1" {
		t.Errorf("hubs = %+v, want c1 first", doc.Hubs)
	}
}
