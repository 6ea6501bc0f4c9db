package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/texbake/pkg/errors"
	"github.com/matzehuels/texbake/pkg/history"
	"github.com/matzehuels/texbake/pkg/host/soft"
	"github.com/matzehuels/texbake/pkg/manifest"
)

const testScene = `{
  "objects": [
    {"name": "Rock", "type": "mesh", "materials": ["Stone"],
     "mesh": {"positions": [[0,0,0],[1,0,0],[1,1,0],[0,1,0]], "triangles": [[0,1,2],[0,2,3]]}},
    {"name": "Stick", "type": "empty"}
  ],
  "materials": [
    {"name": "Stone", "graph": {
      "nodes": [
        {"id": "bsdf", "kind": "principled", "values": {"Roughness": 0.8, "Base Color": [0.3, 0.3, 0.3]}},
        {"id": "out", "kind": "output"}
      ],
      "links": [{"from": "bsdf.BSDF", "to": "out.Surface"}]
    }},
    {"name": "Moss", "graph": {"nodes": [{"id": "out", "kind": "output"}]}}
  ]
}`

// captureOutput redirects styled output into a buffer for the test.
func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := out
	out = &buf
	t.Cleanup(func() { out = prev })
	return &buf
}

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// bakeFixture writes a scene and a config naming objects into a temp dir.
func bakeFixture(t *testing.T, objects string) (dir, cfg string) {
	t.Helper()
	dir = t.TempDir()
	writeFile(t, filepath.Join(dir, "scene.json"), testScene)
	cfg = writeFile(t, filepath.Join(dir, "rock.json"), `{
  "scene_file": "scene.json",
  "objects": [`+objects+`],
  "output_name": "rock",
  "texture_resolution": 16,
  "output_directory": "out",
  "settings": {"bake_margin": 2}
}`)
	return dir, cfg
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(io.Discard)
	root.SetErr(io.Discard)
	return root.ExecuteContext(context.Background())
}

func TestBakeCommand(t *testing.T) {
	buf := captureOutput(t)
	dir, cfg := bakeFixture(t, `"Rock"`)
	db := filepath.Join(dir, "history.db")

	if err := execute(t, "bake", cfg, "--history-db", db); err != nil {
		t.Fatalf("bake: %v", err)
	}

	outDir := filepath.Join(dir, "out")
	if _, err := os.Stat(filepath.Join(outDir, manifest.TextFile)); err != nil {
		t.Errorf("manifest not written: %v", err)
	}
	if !strings.Contains(buf.String(), "Baked") || !strings.Contains(buf.String(), "separate") {
		t.Errorf("output = %q", buf.String())
	}

	store, err := history.Open(db)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	runs, err := store.Recent(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("recorded %d runs, want 1", len(runs))
	}
	r := runs[0]
	if r.Status != history.StatusSucceeded || r.ConfigPath != cfg || len(r.Files) == 0 {
		t.Errorf("recorded run = %+v", r)
	}
	if !slices.Equal(r.Objects, []string{"Rock"}) {
		t.Errorf("objects = %v", r.Objects)
	}
}

func TestBakeCommandOverrides(t *testing.T) {
	captureOutput(t)
	dir, cfg := bakeFixture(t, `"Rock"`)
	alt := filepath.Join(dir, "alt")

	if err := execute(t, "bake", cfg, "--no-history", "-o", alt, "-r", "8"); err != nil {
		t.Fatalf("bake: %v", err)
	}
	m, err := manifest.Read(filepath.Join(alt, manifest.TOMLFile))
	if err != nil {
		t.Fatal(err)
	}
	if m.Resolution != 8 {
		t.Errorf("resolution = %d, want 8", m.Resolution)
	}
	if _, err := os.Stat(filepath.Join(dir, "out")); !os.IsNotExist(err) {
		t.Error("configured output directory used despite override")
	}
}

func TestBakeCommandRecordsFailure(t *testing.T) {
	captureOutput(t)
	dir, cfg := bakeFixture(t, `"Boulder"`)
	db := filepath.Join(dir, "history.db")

	err := execute(t, "bake", cfg, "--history-db", db)
	if !errors.Is(err, errors.ErrCodeObjectNotFound) {
		t.Fatalf("bake error = %v, want OBJECT_NOT_FOUND", err)
	}

	store, err := history.Open(db)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	runs, _ := store.Recent(context.Background(), 10)
	if len(runs) != 1 || runs[0].Status != history.StatusFailed || !strings.Contains(runs[0].Error, "Boulder") {
		t.Errorf("recorded runs = %+v", runs)
	}
}

func TestBakeCommandBadConfig(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "history.db")
	cfg := writeFile(t, filepath.Join(dir, "bad.json"), `{"objects": ["Rock"]}`)

	if err := execute(t, "bake", cfg, "--history-db", db); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("error = %v, want INVALID_CONFIG", err)
	}
	if _, err := os.Stat(db); !os.IsNotExist(err) {
		t.Error("history written for a config that never loaded")
	}
}

func TestGraphCommandDOT(t *testing.T) {
	buf := captureOutput(t)
	scene := writeFile(t, filepath.Join(t.TempDir(), "scene.json"), testScene)

	if err := execute(t, "graph", scene, "--object", "Rock"); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if !strings.Contains(got, `digraph "Stone"`) {
		t.Errorf("output missing Stone graph:\n%s", got)
	}
	if strings.Contains(got, `digraph "Moss"`) {
		t.Error("unassigned material included")
	}
}

func TestGraphCommandSVG(t *testing.T) {
	captureOutput(t)
	dir := t.TempDir()
	scene := writeFile(t, filepath.Join(dir, "scene.json"), testScene)
	outDir := filepath.Join(dir, "diagrams")

	if err := execute(t, "graph", scene, "--material", "Stone", "-f", "svg", "-o", outDir); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(outDir, "Stone.svg"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("<svg")) {
		t.Error("output is not SVG")
	}
}

func TestGraphCommandUnknownFormat(t *testing.T) {
	scene := writeFile(t, filepath.Join(t.TempDir(), "scene.json"), testScene)
	if err := execute(t, "graph", scene, "-f", "pdf"); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}

func TestSelectMaterials(t *testing.T) {
	path := writeFile(t, filepath.Join(t.TempDir(), "scene.json"), testScene)
	sc, err := soft.ReadScene(path)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		material string
		object   string
		want     []string
		code     errors.Code
	}{
		{name: "all", want: []string{"Stone", "Moss"}},
		{name: "by material", material: "Moss", want: []string{"Moss"}},
		{name: "by object", object: "Rock", want: []string{"Stone"}},
		{name: "material not on object", material: "Moss", object: "Rock", code: errors.ErrCodeMissingMaterial},
		{name: "unknown object", object: "Boulder", code: errors.ErrCodeObjectNotFound},
		{name: "object without material", object: "Stick", code: errors.ErrCodeMissingMaterial},
		{name: "unknown material", material: "Lava", code: errors.ErrCodeMissingMaterial},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mats, err := selectMaterials(sc, tt.material, tt.object)
			if tt.code != "" {
				if !errors.Is(err, tt.code) {
					t.Errorf("error = %v, want %s", err, tt.code)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			var got []string
			for _, m := range mats {
				got = append(got, m.Name)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHistoryCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(db)
	if err != nil {
		t.Fatal(err)
	}
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"run-old", "run-new"} {
		err := store.Record(context.Background(), history.Run{
			ID:         id,
			Started:    base.Add(time.Duration(i) * time.Hour),
			Duration:   time.Second,
			ConfigPath: "/work/rock.json",
			SceneFile:  "/work/scene.json",
			Mode:       manifest.ModeCombined,
			Objects:    []string{"Rock"},
			Status:     history.StatusSucceeded,
			Files:      []string{"textures/rock_albedo.png"},
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	store.Close()

	buf := captureOutput(t)
	if err := execute(t, "history", "--db", db, "-n", "1"); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if !strings.Contains(got, "run-new") || strings.Contains(got, "run-old") {
		t.Errorf("history listing = %q", got)
	}
	for _, header := range []string{"Run", "Started", "Mode", "Objects", "Duration", "Status"} {
		if !strings.Contains(got, header) {
			t.Errorf("history listing missing %q header:\n%s", header, got)
		}
	}

	buf.Reset()
	if err := execute(t, "history", "show", "run-old", "--db", db); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); !strings.Contains(got, "/work/rock.json") || !strings.Contains(got, "textures/rock_albedo.png") {
		t.Errorf("history show = %q", got)
	}

	if err := execute(t, "history", "show", "run-missing", "--db", db); !errors.Is(err, errors.ErrCodeNotFound) {
		t.Errorf("show missing error = %v", err)
	}

	buf.Reset()
	if err := execute(t, "history", "prune", "--keep", "1", "--db", db); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "Removed 1 runs") {
		t.Errorf("prune output = %q", buf.String())
	}
}

func TestRunTable(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	runs := []history.Run{
		{ID: "run-ok", Started: started, Duration: 1500 * time.Millisecond, Mode: manifest.ModeSeparate,
			Objects: []string{"Rock", "Pebble"}, Status: history.StatusSucceeded},
		{ID: "run-bad", Started: started, Duration: time.Second, Mode: manifest.ModeCombined,
			Objects: []string{"Boulder"}, Status: history.StatusFailed, Error: "object not found"},
	}

	lines := strings.Split(runTable(runs).Render(), "\n")
	if len(lines) < 6 {
		t.Fatalf("table has %d lines:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	header := lines[1]
	prev := -1
	for _, col := range []string{"Run", "Started", "Mode", "Objects", "Duration", "Status"} {
		i := strings.Index(header, col)
		if i <= prev {
			t.Errorf("header %q out of order in %q", col, header)
		}
		prev = i
	}

	tests := []struct {
		id   string
		want []string
	}{
		{id: "run-ok", want: []string{"Rock, Pebble", "1.5s", history.StatusSucceeded}},
		{id: "run-bad", want: []string{"Boulder", "1s", history.StatusFailed}},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			var row string
			for _, l := range lines {
				if strings.Contains(l, tt.id) {
					row = l
				}
			}
			if row == "" {
				t.Fatalf("no row for %s", tt.id)
			}
			for _, w := range tt.want {
				if !strings.Contains(row, w) {
					t.Errorf("row %q missing %q", row, w)
				}
			}
		})
	}
}

func TestHistoryPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := historyPath(""); got != filepath.Join("/data", appName, "history.db") {
		t.Errorf("default = %q", got)
	}
	if got := historyPath("/tmp/h.db"); got != "/tmp/h.db" {
		t.Errorf("flag = %q", got)
	}
}

func TestRootCommandVersion(t *testing.T) {
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"--version"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), appName+" version ") {
		t.Errorf("version output = %q", buf.String())
	}
	var names []string
	for _, sub := range root.Commands() {
		names = append(names, sub.Name())
	}
	for _, want := range []string{"bake", "graph", "history"} {
		if !slices.Contains(names, want) {
			t.Errorf("missing %s command in %v", want, names)
		}
	}
}
