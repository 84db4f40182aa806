package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/knotfold/archive"
	"github.com/justapithecus/knotfold/cli/reader"
	"github.com/justapithecus/knotfold/runtime"
)

const hairpin = "GGGGAAAACCCC"

// runApp runs the CLI in-process and returns stdout, stderr and the exit code.
func runApp(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := &cli.App{
		Name:           "knotfold",
		Writer:         &stdout,
		ErrWriter:      &stderr,
		ExitErrHandler: func(*cli.Context, error) {},
		Commands: []*cli.Command{
			PredictCommand(),
			BatchCommand(),
			InspectCommand(),
			ListCommand(),
			StatsCommand(),
			VersionCommand("abc123"),
		},
	}
	err := app.RunContext(t.Context(), append([]string{"knotfold"}, args...))
	code := 0
	if err != nil {
		var exitCoder cli.ExitCoder
		if errors.As(err, &exitCoder) {
			code = exitCoder.ExitCode()
		} else {
			code = 1
		}
	}
	return stdout.String(), stderr.String(), code
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func decode[T any](t *testing.T, s string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
	return v
}

func TestReadOnlyFlags_IncludesTUI(t *testing.T) {
	hasTUI := false
	for _, f := range ReadOnlyFlags() {
		if f.Names()[0] == "tui" {
			hasTUI = true
			break
		}
	}
	if !hasTUI {
		t.Error("ReadOnlyFlags should include --tui flag for explicit error handling")
	}
}

func TestPredict_PersistsAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	seqFile := writeFile(t, dir, "hp.fa", ">hp\n"+hairpin+"\n")
	store := filepath.Join(dir, "store")
	ctPath := filepath.Join(dir, "hp.ct")
	archivePath := filepath.Join(dir, "hp.kfa")
	reportPath := filepath.Join(dir, "report.json")

	stdout, stderr, code := runApp(t, "predict",
		"--run-id", "run-hp",
		"--storage-path", store,
		"--ct", ctPath,
		"--archive", archivePath,
		"--report", reportPath,
		"--log-level", "error",
		"--format", "json",
		seqFile,
	)
	if code != runtime.ExitCodeSuccess {
		t.Fatalf("exit code = %d, stderr:\n%s", code, stderr)
	}

	summary := decode[predictSummary](t, stdout)
	if summary.RunID != "run-hp" || summary.Label != "hp" || summary.Outcome != "success" {
		t.Errorf("summary = %+v", summary)
	}
	if summary.E0Kcal != -5.1 {
		t.Errorf("e0 = %v, want -5.1", summary.E0Kcal)
	}
	if summary.Structures < 1 {
		t.Errorf("structures = %d", summary.Structures)
	}

	ct, err := os.ReadFile(ctPath)
	if err != nil {
		t.Fatalf("CT file: %v", err)
	}
	if !strings.Contains(string(ct), "hp") {
		t.Errorf("CT file missing label:\n%s", ct)
	}

	a, err := archive.ReadFile(archivePath)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if a.Header.RunID != "run-hp" || a.Header.Sequence != hairpin {
		t.Errorf("archive header = %+v", a.Header)
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	report := decode[runtime.RunReport](t, string(data))
	if report.RunID != "run-hp" || report.ExitCode != 0 || report.Policy == nil || report.Policy.Name != "strict" {
		t.Errorf("report = %+v", report)
	}

	t.Run("list", func(t *testing.T) {
		out, stderr, code := runApp(t, "list", "--storage-path", store, "--format", "json")
		if code != 0 {
			t.Fatalf("exit code = %d: %s", code, stderr)
		}
		runs := decode[[]reader.RunSummary](t, out)
		if len(runs) != 1 || runs[0].RunID != "run-hp" || runs[0].Source != "default" {
			t.Errorf("runs = %+v", runs)
		}
	})

	t.Run("list filters outcome", func(t *testing.T) {
		out, _, code := runApp(t, "list", "--storage-path", store, "--outcome", "no_structure", "--format", "json")
		if code != 0 {
			t.Fatalf("exit code = %d", code)
		}
		if runs := decode[[]reader.RunSummary](t, out); len(runs) != 0 {
			t.Errorf("runs = %+v", runs)
		}
	})

	t.Run("inspect run", func(t *testing.T) {
		out, stderr, code := runApp(t, "inspect", "--run-id", "run-hp", "--storage-path", store, "--format", "json")
		if code != 0 {
			t.Fatalf("exit code = %d: %s", code, stderr)
		}
		detail := decode[reader.RunDetail](t, out)
		if len(detail.Structures) != summary.Structures {
			t.Fatalf("structures = %d, want %d", len(detail.Structures), summary.Structures)
		}
		if got := detail.Structures[0].DotBracket; got != "((((....))))" {
			t.Errorf("baseline = %s", got)
		}
	})

	t.Run("inspect archive", func(t *testing.T) {
		out, stderr, code := runApp(t, "inspect", "--archive", archivePath, "--format", "json")
		if code != 0 {
			t.Fatalf("exit code = %d: %s", code, stderr)
		}
		detail := decode[reader.RunDetail](t, out)
		if detail.Sequence != hairpin || !detail.Structures[0].Baseline {
			t.Errorf("detail = %+v", detail)
		}
	})

	t.Run("inspect unknown run", func(t *testing.T) {
		_, _, code := runApp(t, "inspect", "--run-id", "nope", "--storage-path", store)
		if code != 1 {
			t.Errorf("exit code = %d, want 1", code)
		}
	})

	t.Run("stats", func(t *testing.T) {
		out, stderr, code := runApp(t, "stats", "--run-id", "run-hp", "--storage-path", store, "--format", "json")
		if code != 0 {
			t.Fatalf("exit code = %d: %s", code, stderr)
		}
		snap := decode[reader.MetricsSnapshot](t, out)
		if snap.RunsCompleted != 1 || snap.Policy != "strict" || snap.StorageBackend != "fs" {
			t.Errorf("snapshot = %+v", snap)
		}
		if snap.LodeWriteSuccess == 0 {
			t.Error("expected lode writes to be counted")
		}
	})
}

func TestPredict_InputErrors(t *testing.T) {
	dir := t.TempDir()
	seqFile := writeFile(t, dir, "hp.fa", ">hp\n"+hairpin+"\n")
	badSeq := writeFile(t, dir, "bad.fa", ">bad\nGGGZZCCC\n")
	shortShape := writeFile(t, dir, "short.shape", "1 0.5\n40 0.2\n")

	tests := []struct {
		name string
		args []string
	}{
		{"no args", []string{"predict"}},
		{"missing file", []string{"predict", filepath.Join(dir, "missing.fa")}},
		{"invalid bases", []string{"predict", badSeq}},
		{"buffered without capacity", []string{"predict", "--policy", "buffered", seqFile}},
		{"unknown policy", []string{"predict", "--policy", "eventual", seqFile}},
		{"unknown backend", []string{"predict", "--storage-backend", "ftp", "--storage-path", dir, seqFile}},
		{"rerun without parent", []string{"predict", "--attempt", "2", seqFile}},
		{"probe out of range", []string{"predict", "--shape", shortShape, seqFile}},
		{"bad threshold", []string{"predict", "--threshold", "1.5", "--log-level", "error", seqFile}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, stderr, code := runApp(t, tt.args...)
			if code != runtime.ExitCodeInvalidInput {
				t.Errorf("exit code = %d, want %d; stderr:\n%s", code, runtime.ExitCodeInvalidInput, stderr)
			}
		})
	}
}

func TestPredict_NoStorageDiscardsRecords(t *testing.T) {
	dir := t.TempDir()
	seqFile := writeFile(t, dir, "hp.seq", hairpin+"\n")

	out, stderr, code := runApp(t, "predict", "--log-level", "error", "--format", "json", seqFile)
	if code != 0 {
		t.Fatalf("exit code = %d: %s", code, stderr)
	}
	if s := decode[predictSummary](t, out); s.Persisted == 0 {
		t.Errorf("expected the policy to accept records without storage: %+v", s)
	}
}

func TestPredict_Quiet(t *testing.T) {
	dir := t.TempDir()
	seqFile := writeFile(t, dir, "hp.fa", ">hp\n"+hairpin+"\n")

	out, _, code := runApp(t, "predict", "--quiet", "--log-level", "error", seqFile)
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if out != "" {
		t.Errorf("quiet run printed %q", out)
	}
}

func TestPredict_WebhookNotified(t *testing.T) {
	var calls atomic.Int32
	var body atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		data, _ := io.ReadAll(r.Body)
		body.Store(string(data))
		if r.Header.Get("X-Lab") != "bench-4" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	dir := t.TempDir()
	seqFile := writeFile(t, dir, "hp.fa", ">hp\n"+hairpin+"\n")

	_, stderr, code := runApp(t, "predict",
		"--run-id", "run-notify",
		"--adapter", "webhook",
		"--adapter-url", srv.URL,
		"--adapter-header", "X-Lab: bench-4",
		"--log-level", "error",
		"--quiet",
		seqFile,
	)
	if code != 0 {
		t.Fatalf("exit code = %d: %s", code, stderr)
	}
	if calls.Load() != 1 {
		t.Fatalf("webhook calls = %d, want 1", calls.Load())
	}
	got, _ := body.Load().(string)
	if !strings.Contains(got, `"run_id":"run-notify"`) || !strings.Contains(got, `"outcome":"success"`) {
		t.Errorf("event body = %s", got)
	}
}

func TestPredict_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	seqFile := writeFile(t, dir, "hp.fa", ">hp\n"+hairpin+"\n")
	store := filepath.Join(dir, "store")
	cfgFile := writeFile(t, dir, "knotfold.yaml", `
source: lab-a
log_level: error
storage:
  path: `+store+`
policy:
  name: buffered
  buffer_records: 64
`)

	_, stderr, code := runApp(t, "predict", "--config", cfgFile, "--run-id", "run-cfg", "--quiet", seqFile)
	if code != 0 {
		t.Fatalf("exit code = %d: %s", code, stderr)
	}

	out, _, code := runApp(t, "list", "--storage-path", store, "--source", "lab-a", "--format", "json")
	if code != 0 {
		t.Fatalf("list exit code = %d", code)
	}
	runs := decode[[]reader.RunSummary](t, out)
	if len(runs) != 1 || runs[0].RunID != "run-cfg" {
		t.Errorf("runs = %+v", runs)
	}

	out, _, _ = runApp(t, "stats", "--run-id", "run-cfg", "--storage-path", store, "--format", "json")
	if snap := decode[reader.MetricsSnapshot](t, out); snap.Policy != "buffered" {
		t.Errorf("policy = %q, want buffered", snap.Policy)
	}
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	fasta := writeFile(t, dir, "set.fa", ">a\n"+hairpin+"\n>b\n"+hairpin+"\n>c\nGGGGAAAACCCCAA\n")
	outDir := filepath.Join(dir, "out")
	store := filepath.Join(dir, "store")

	stdout, stderr, code := runApp(t, "batch",
		"--job-id", "job-1",
		"--parallel-runs", "2",
		"--out-dir", outDir,
		"--storage-path", store,
		"--log-level", "error",
		fasta,
	)
	if code != 0 {
		t.Fatalf("exit code = %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "3 received, 1 deduped") {
		t.Errorf("summary:\n%s", stdout)
	}

	for _, name := range []string{"000_a.ct", "000_a.kfa", "002_c.ct", "002_c.kfa"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	out, _, _ := runApp(t, "list", "--storage-path", store, "--format", "json")
	if runs := decode[[]reader.RunSummary](t, out); len(runs) != 2 {
		t.Errorf("persisted runs = %d, want 2", len(runs))
	}
}

func TestBatch_MaxRuns(t *testing.T) {
	dir := t.TempDir()
	fasta := writeFile(t, dir, "set.fa", ">a\n"+hairpin+"\n>c\nGGGGAAAACCCCAA\n")

	stdout, _, code := runApp(t, "batch", "--max-runs", "1", "--log-level", "error", fasta)
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	if !strings.Contains(stdout, "1 total") || !strings.Contains(stdout, "1 skipped") {
		t.Errorf("summary:\n%s", stdout)
	}
}

func TestBatch_ProbeMismatchIsInvalidInput(t *testing.T) {
	dir := t.TempDir()
	fasta := writeFile(t, dir, "set.fa", ">a\n"+hairpin+"\n")
	shape := writeFile(t, dir, "long.shape", "30 0.4\n")

	_, _, code := runApp(t, "batch", "--shape", shape, "--log-level", "error", fasta)
	if code != runtime.ExitCodeInvalidInput {
		t.Errorf("exit code = %d, want %d", code, runtime.ExitCodeInvalidInput)
	}
}

func TestInspect_RequiresOneSource(t *testing.T) {
	for _, args := range [][]string{
		{"inspect"},
		{"inspect", "--run-id", "r", "--archive", "a.kfa"},
	} {
		if _, _, code := runApp(t, args...); code != 1 {
			t.Errorf("%v: exit code = %d, want 1", args, code)
		}
	}
}

func TestInspect_RunNeedsStoragePath(t *testing.T) {
	if _, _, code := runApp(t, "inspect", "--run-id", "r"); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestList_RejectsTUI(t *testing.T) {
	_, _, code := runApp(t, "list", "--tui", "--storage-path", t.TempDir())
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestStats_NoMetrics(t *testing.T) {
	_, _, code := runApp(t, "stats", "--storage-path", t.TempDir())
	if code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
}

func TestVersion(t *testing.T) {
	out, _, code := runApp(t, "version", "--format", "json")
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	v := decode[VersionResponse](t, out)
	if v.Commit != "abc123" || v.Version == "" || v.ArchiveVersion == "" {
		t.Errorf("version = %+v", v)
	}

	if _, _, code := runApp(t, "version", "--tui"); code != 1 {
		t.Errorf("--tui exit code = %d, want 1", code)
	}
}
