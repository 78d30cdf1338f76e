package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/holosym/internal/dynamo"
)

func sampleTrajectory() *dynamo.Trajectory {
	traj := dynamo.NewTrajectory(3)
	traj.Append(0, dynamo.State{0.01, 0, 0, 0})
	traj.Append(0.5, dynamo.State{0.1 / 3, math.Pi, -1e-17, 2.0 / 3})
	traj.Append(1, dynamo.State{1, 2, 3, 4})
	traj.Stats = dynamo.Stats{Accepted: 12, Rejected: 1, Evaluations: 79, LastStep: 0.1}
	return traj
}

func sampleMeta() RunMetadata {
	return RunMetadata{
		Model:      "breathing",
		Integrator: "rk45",
		Params:     map[string]float64{"kappa": 1, "g0": 0.5},
		InitState:  []float64{0.01, 0, 0, 0},
		Span:       dynamo.Span{Start: 0, End: 1},
		Samples:    3,
		Tolerances: dynamo.DefaultTolerances(),
		Columns:    []string{"phi", "phi_dot", "chi", "chi_dot"},
		Outcome:    "completed",
		Metrics:    map[string]float64{"energy_drift": 1e-9},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	traj := sampleTrajectory()
	runID, err := st.Save(sampleMeta(), traj)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !strings.HasPrefix(runID, "breathing_") {
		t.Errorf("unexpected run id %q", runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Integrator != "rk45" || meta.Params["g0"] != 0.5 {
		t.Errorf("metadata mismatch: %+v", meta)
	}
	if meta.Stats != traj.Stats {
		t.Errorf("stats = %+v, want %+v", meta.Stats, traj.Stats)
	}
	if meta.Metrics["energy_drift"] != 1e-9 {
		t.Errorf("expected drift 1e-9, got %g", meta.Metrics["energy_drift"])
	}

	loaded, err := st.LoadTrajectory(runID)
	if err != nil {
		t.Fatalf("load trajectory failed: %v", err)
	}
	if loaded.Len() != traj.Len() {
		t.Fatalf("expected %d samples, got %d", traj.Len(), loaded.Len())
	}
	for i := range traj.States {
		if loaded.Times[i] != traj.Times[i] {
			t.Errorf("time %d = %v, want %v", i, loaded.Times[i], traj.Times[i])
		}
		for k := range traj.States[i] {
			if loaded.States[i][k] != traj.States[i][k] {
				t.Errorf("sample %d[%d] = %v, want %v", i, k, loaded.States[i][k], traj.States[i][k])
			}
		}
	}
}

func TestStatesHeader(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(sampleMeta(), sampleTrajectory())
	if err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(st.Dir(runID), "states.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if lines[0] != "time,phi,phi_dot,chi,chi_dot" {
		t.Errorf("header = %q", lines[0])
	}
	if len(lines) != 4 {
		t.Errorf("expected header plus 3 rows, got %d lines", len(lines))
	}
}

func TestWriteCSVDefaultColumns(t *testing.T) {
	traj := dynamo.NewTrajectory(1)
	traj.Append(0, dynamo.State{1, 2})

	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil, traj); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "time,x0,x1\n0,1,2\n" {
		t.Errorf("csv = %q", got)
	}
}

func TestListNewestFirst(t *testing.T) {
	st := New(t.TempDir())

	older := sampleMeta()
	older.ID = "older"
	older.Timestamp = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := sampleMeta()
	newer.ID = "newer"
	newer.Timestamp = older.Timestamp.Add(time.Hour)

	for _, m := range []RunMetadata{older, newer} {
		if _, err := st.Save(m, sampleTrajectory()); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(st.Dir("junk")), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err := st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "newer" || runs[1].ID != "older" {
		t.Errorf("order = %s, %s", runs[0].ID, runs[1].ID)
	}
}

func TestListMissingDir(t *testing.T) {
	runs, err := New(filepath.Join(t.TempDir(), "absent")).List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("expected no runs, got %d", len(runs))
	}
}

func TestLoadNotFound(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
	if err := st.Delete("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound from delete, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(sampleMeta(), sampleTrajectory())
	if err != nil {
		t.Fatal(err)
	}
	if err := st.Delete(runID); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(st.Dir(runID)); !os.IsNotExist(err) {
		t.Errorf("run directory still present: %v", err)
	}
}

func TestExportJSON(t *testing.T) {
	var buf bytes.Buffer
	meta := sampleMeta()
	meta.ID = "run"
	if err := ExportJSON(&buf, meta, sampleTrajectory()); err != nil {
		t.Fatal(err)
	}

	var got ExportData
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if got.ID != "run" || len(got.Times) != 3 || len(got.States) != 3 {
		t.Errorf("unexpected export: %+v", got)
	}
	if got.States[1][1] != math.Pi {
		t.Errorf("lost precision: %v", got.States[1][1])
	}
}
