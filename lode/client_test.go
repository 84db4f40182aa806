package lode

import (
	"errors"
	"testing"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/justapithecus/knotfold/metrics"
	"github.com/justapithecus/knotfold/types"
)

func TestLodeClient_QueryRun_RoundTrip(t *testing.T) {
	store := lode.NewMemory()
	cfg := testConfig("run-001")
	client := newTestClient(t, cfg, sharedFactory(store))
	ctx := t.Context()

	h := types.NewHelix(3, 15, 2, -12)
	if err := client.WriteStructures(ctx, []*types.StructureRecord{
		structureRecord(cfg.RunID, 0, -42, nil),
		structureRecord(cfg.RunID, 1, -51, &h),
	}); err != nil {
		t.Fatalf("WriteStructures failed: %v", err)
	}
	if err := client.WriteTrials(ctx, []*types.TrialRecord{
		{RunID: cfg.RunID, Index: 0, Helix: h, Outcome: "accepted", Energy: -51},
		{RunID: cfg.RunID, Index: 1, Helix: types.NewHelix(5, 9, 2, -3), Outcome: "failed", Error: "empty fold"},
	}); err != nil {
		t.Fatalf("WriteTrials failed: %v", err)
	}
	if err := client.WriteRun(ctx, runRecord(cfg.RunID)); err != nil {
		t.Fatalf("WriteRun failed: %v", err)
	}

	ds, err := NewReadDataset(DefaultDataset, sharedFactory(store))
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}
	got, err := QueryRun(ctx, ds, cfg.RunID)
	if err != nil {
		t.Fatalf("QueryRun failed: %v", err)
	}

	if v := StringField(got.Run, "label"); v != "kissing" {
		t.Errorf("label = %q, want kissing", v)
	}
	if v := Int64Field(got.Run, "e0"); v != -42 {
		t.Errorf("e0 = %d, want -42", v)
	}
	if v := Int64Field(got.Run, "trials"); v != 5 {
		t.Errorf("trials = %d, want 5", v)
	}
	if v := StringField(got.Run, "job_id"); v != "job-1" {
		t.Errorf("job_id = %q, want job-1", v)
	}
	if len(got.Structures) != 2 {
		t.Fatalf("structures = %d, want 2", len(got.Structures))
	}
	if got.Structures[0]["baseline"] != true {
		t.Error("rank 0 should be the baseline")
	}
	if v := Int64Field(got.Structures[1], "i_start"); v != 3 {
		t.Errorf("source i_start = %d, want 3", v)
	}
	if len(got.Trials) != 2 || StringField(got.Trials[1], "error") != "empty fold" {
		t.Errorf("trials = %v", got.Trials)
	}
}

func TestQueryRun_CollapsesRewrittenRecords(t *testing.T) {
	store := lode.NewMemory()
	cfg := testConfig("run-dup")
	client := newTestClient(t, cfg, sharedFactory(store))
	ctx := t.Context()

	recs := []*types.StructureRecord{structureRecord(cfg.RunID, 0, -42, nil)}
	// An at-least-once retry writes the same batch twice.
	for range 2 {
		if err := client.WriteStructures(ctx, recs); err != nil {
			t.Fatalf("WriteStructures failed: %v", err)
		}
	}
	if err := client.WriteRun(ctx, runRecord(cfg.RunID)); err != nil {
		t.Fatalf("WriteRun failed: %v", err)
	}

	ds, _ := NewReadDataset(DefaultDataset, sharedFactory(store))
	got, err := QueryRun(ctx, ds, cfg.RunID)
	if err != nil {
		t.Fatalf("QueryRun failed: %v", err)
	}
	if len(got.Structures) != 1 {
		t.Errorf("structures = %d, want 1", len(got.Structures))
	}
}

func TestQueryRun_UncommittedRunNotFound(t *testing.T) {
	store := lode.NewMemory()
	cfg := testConfig("run-partial")
	client := newTestClient(t, cfg, sharedFactory(store))

	if err := client.WriteStructures(t.Context(), []*types.StructureRecord{
		structureRecord(cfg.RunID, 0, -42, nil),
	}); err != nil {
		t.Fatalf("WriteStructures failed: %v", err)
	}

	ds, _ := NewReadDataset(DefaultDataset, sharedFactory(store))
	_, err := QueryRun(t.Context(), ds, cfg.RunID)
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("QueryRun error = %v, want ErrRunNotFound", err)
	}
}

func TestListRuns(t *testing.T) {
	store := lode.NewMemory()
	ctx := t.Context()

	for _, id := range []string{"run-1", "run-2", "run-10"} {
		cfg := testConfig(id)
		if id == "run-2" {
			cfg.Source = "other"
		}
		client := newTestClient(t, cfg, sharedFactory(store))
		if err := client.WriteRun(ctx, runRecord(id)); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", id, err)
		}
	}

	ds, _ := NewReadDataset(DefaultDataset, sharedFactory(store))

	tests := []struct {
		name   string
		source string
		limit  int
		want   []string
	}{
		{name: "all newest first", want: []string{"run-10", "run-2", "run-1"}},
		{name: "by source", source: "test-source", want: []string{"run-10", "run-1"}},
		{name: "limit", limit: 1, want: []string{"run-10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runs, err := ListRuns(ctx, ds, tt.source, tt.limit)
			if err != nil {
				t.Fatalf("ListRuns failed: %v", err)
			}
			if len(runs) != len(tt.want) {
				t.Fatalf("ListRuns returned %d runs, want %d", len(runs), len(tt.want))
			}
			for i, id := range tt.want {
				if got := StringField(runs[i], "run_id"); got != id {
					t.Errorf("runs[%d] = %q, want %q", i, got, id)
				}
			}
		})
	}
}

func TestQueryLatestMetrics_WriteAndRead(t *testing.T) {
	store := lode.NewMemory()
	cfg := testConfig("run-001")
	client := newTestClient(t, cfg, sharedFactory(store))

	snap := metrics.Snapshot{
		RunsStarted:         1,
		RunsCompleted:       1,
		CandidatesExtracted: 12,
		TrialsAccepted:      2,
		RecordsReceived:     9,
		RecordsPersisted:    8,
		RecordsDropped:      1,
		DroppedByKind:       map[string]int64{"trial": 1},
		LodeWriteSuccess:    3,
		Policy:              "buffered",
		Alphabet:            "rna",
		StorageBackend:      "fs",
		RunID:               "run-001",
		JobID:               "job-xyz",
	}
	completedAt := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	if err := client.WriteMetrics(t.Context(), snap, completedAt); err != nil {
		t.Fatalf("WriteMetrics failed: %v", err)
	}

	ds, _ := NewReadDataset(DefaultDataset, sharedFactory(store))
	record, err := QueryLatestMetrics(t.Context(), ds, "", "")
	if err != nil {
		t.Fatalf("QueryLatestMetrics failed: %v", err)
	}

	wantInts := map[string]int64{
		"runs_started_total":         1,
		"candidates_extracted_total": 12,
		"trials_accepted_total":      2,
		"records_dropped_total":      1,
		"lode_write_success_total":   3,
	}
	for key, want := range wantInts {
		if got := Int64Field(record, key); got != want {
			t.Errorf("%s = %d, want %d", key, got, want)
		}
	}
	if v := StringField(record, "policy"); v != "buffered" {
		t.Errorf("policy = %q, want buffered", v)
	}
	if v := StringField(record, "job_id"); v != "job-xyz" {
		t.Errorf("job_id = %q, want job-xyz", v)
	}
	if v := StringField(record, "ts"); v != "2026-03-14T15:00:00Z" {
		t.Errorf("ts = %q", v)
	}
}

func TestQueryLatestMetrics_RunIDNoSubstringCollision(t *testing.T) {
	store := lode.NewMemory()
	ctx := t.Context()

	for i, id := range []string{"run-1", "run-10"} {
		client := newTestClient(t, testConfig(id), sharedFactory(store))
		snap := metrics.Snapshot{RunsStarted: int64(i + 1), RunID: id}
		if err := client.WriteMetrics(ctx, snap, time.Now()); err != nil {
			t.Fatalf("WriteMetrics failed: %v", err)
		}
	}

	ds, _ := NewReadDataset(DefaultDataset, sharedFactory(store))
	record, err := QueryLatestMetrics(ctx, ds, "run-1", "")
	if err != nil {
		t.Fatalf("QueryLatestMetrics failed: %v", err)
	}
	if got := StringField(record, "run_id"); got != "run-1" {
		t.Errorf("run_id = %q, want run-1", got)
	}
	if got := Int64Field(record, "runs_started_total"); got != 1 {
		t.Errorf("runs_started_total = %d, want 1", got)
	}
}

func TestQueryLatestMetrics_Empty(t *testing.T) {
	ds, err := NewReadDataset(DefaultDataset, sharedFactory(lode.NewMemory()))
	if err != nil {
		t.Fatalf("NewReadDataset failed: %v", err)
	}
	if _, err := QueryLatestMetrics(t.Context(), ds, "", ""); !errors.Is(err, ErrNoMetricsFound) {
		t.Errorf("error = %v, want ErrNoMetricsFound", err)
	}
}

func TestToStructureRecordMap(t *testing.T) {
	cfg := testConfig("run-abc")
	h := types.NewHelix(3, 15, 2, -12)
	m := toStructureRecordMap(structureRecord(cfg.RunID, 1, -51, &h), cfg)

	if m["record_kind"] != RecordKindStructure {
		t.Errorf("record_kind = %v", m["record_kind"])
	}
	for _, key := range partitionKeys {
		if _, ok := m[key]; !ok {
			t.Errorf("partition key %q missing", key)
		}
	}
	if m["energy_kcal"] != -5.1 {
		t.Errorf("energy_kcal = %v, want -5.1", m["energy_kcal"])
	}
	if m["j_start"] != 14 || m["helix_energy"] != int64(-12) {
		t.Errorf("source helix fields = %v / %v", m["j_start"], m["helix_energy"])
	}

	baseline := toStructureRecordMap(structureRecord(cfg.RunID, 0, -42, nil), cfg)
	if _, ok := baseline["i_start"]; ok {
		t.Error("baseline record should carry no source helix")
	}
}

func TestToMetricsRecordMap_CopiesCounts(t *testing.T) {
	counts := map[string]int64{"trial": 2}
	m := toMetricsRecordMap(metrics.Snapshot{DroppedByKind: counts}, testConfig("r"), time.Now())
	counts["trial"] = 99

	got, ok := m["dropped_by_kind"].(map[string]int64)
	if !ok {
		t.Fatalf("dropped_by_kind type = %T", m["dropped_by_kind"])
	}
	if got["trial"] != 2 {
		t.Errorf("dropped_by_kind[trial] = %d, want 2", got["trial"])
	}
	if _, ok := m["job_id"]; ok {
		t.Error("job_id should be omitted when empty")
	}
}

func TestS3Config_Validate(t *testing.T) {
	err := (&S3Config{}).Validate()
	if types.CodeOf(err) != types.CodeConfig {
		t.Errorf("empty bucket: got %v, want config error", err)
	}
	if err := (&S3Config{Bucket: "b"}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestParseS3Path(t *testing.T) {
	tests := []struct {
		in, bucket, prefix string
	}{
		{"bucket", "bucket", ""},
		{"bucket/a/b", "bucket", "a/b"},
		{"bucket/", "bucket", ""},
		{"s3://bucket/runs/", "bucket", "runs"},
		{"s3://bucket", "bucket", ""},
	}
	for _, tt := range tests {
		b, p := ParseS3Path(tt.in)
		if b != tt.bucket || p != tt.prefix {
			t.Errorf("ParseS3Path(%q) = (%q, %q), want (%q, %q)", tt.in, b, p, tt.bucket, tt.prefix)
		}
	}
}
