package lode

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/justapithecus/lode/lode"
)

var (
	// ErrNoMetricsFound is returned when no metrics record matches.
	ErrNoMetricsFound = errors.New("no metrics records found")
	// ErrRunNotFound is returned when a run has no committed run record.
	ErrRunNotFound = errors.New("run not found")
)

// RunRecords is everything persisted for one run.
type RunRecords struct {
	Run map[string]any
	// Structures are ordered by rank; rank 0 is the baseline.
	Structures []map[string]any
	// Trials are ordered by trial index. Buffered runs may have gaps.
	Trials []map[string]any
}

// scanRecords visits records of matching snapshots, newest snapshot first.
// Manifest paths are a coarse pre-filter; visit sees every record of a
// matching snapshot and decides for itself. Returning false stops the scan.
func scanRecords(ctx context.Context, ds lode.Dataset, match func(*lode.Snapshot) bool, visit func(map[string]any) bool) error {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return WrapReadError(err, string(ds.ID())+"/snapshots")
	}

	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !match(snap) {
			continue
		}
		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return WrapReadError(err, fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID))
		}
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if !visit(record) {
				return nil
			}
		}
	}
	return nil
}

// QueryLatestMetrics returns the most recent metrics record. runID and
// source filter when non-empty.
func QueryLatestMetrics(ctx context.Context, ds lode.Dataset, runID, source string) (map[string]any, error) {
	var found map[string]any
	match := func(snap *lode.Snapshot) bool {
		return snapshotHasKind(snap, RecordKindMetrics) &&
			snapshotMatchesFilter(snap, "run_id", runID) &&
			snapshotMatchesFilter(snap, "source", source)
	}
	err := scanRecords(ctx, ds, match, func(record map[string]any) bool {
		if record["record_kind"] != RecordKindMetrics {
			return true
		}
		if runID != "" && toString(record["run_id"]) != runID {
			return true
		}
		if source != "" && toString(record["source"]) != source {
			return true
		}
		found = record
		return false
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNoMetricsFound
	}
	return found, nil
}

// QueryRun reads back the records of one run. Records repeated by
// at-least-once flushes are collapsed by rank or trial index.
func QueryRun(ctx context.Context, ds lode.Dataset, runID string) (*RunRecords, error) {
	out := &RunRecords{}
	seenRank := make(map[int64]struct{})
	seenTrial := make(map[int64]struct{})

	match := func(snap *lode.Snapshot) bool {
		return snapshotMatchesFilter(snap, "run_id", runID)
	}
	err := scanRecords(ctx, ds, match, func(record map[string]any) bool {
		if toString(record["run_id"]) != runID {
			return true
		}
		switch record["record_kind"] {
		case RecordKindRun:
			if out.Run == nil {
				out.Run = record
			}
		case RecordKindStructure:
			rank := toInt64(record["rank"])
			if _, dup := seenRank[rank]; !dup {
				seenRank[rank] = struct{}{}
				out.Structures = append(out.Structures, record)
			}
		case RecordKindTrial:
			idx := toInt64(record["index"])
			if _, dup := seenTrial[idx]; !dup {
				seenTrial[idx] = struct{}{}
				out.Trials = append(out.Trials, record)
			}
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if out.Run == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	slices.SortFunc(out.Structures, byField("rank"))
	slices.SortFunc(out.Trials, byField("index"))
	return out, nil
}

// ListRuns returns committed run records, newest first. source filters
// when non-empty; limit <= 0 returns every run.
func ListRuns(ctx context.Context, ds lode.Dataset, source string, limit int) ([]map[string]any, error) {
	var runs []map[string]any
	seen := make(map[string]struct{})

	match := func(snap *lode.Snapshot) bool {
		return snapshotHasKind(snap, RecordKindRun) && snapshotMatchesFilter(snap, "source", source)
	}
	err := scanRecords(ctx, ds, match, func(record map[string]any) bool {
		if record["record_kind"] != RecordKindRun {
			return true
		}
		if source != "" && toString(record["source"]) != source {
			return true
		}
		id := toString(record["run_id"])
		if _, dup := seen[id]; dup {
			return true
		}
		seen[id] = struct{}{}
		runs = append(runs, record)
		return limit <= 0 || len(runs) < limit
	})
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func byField(key string) func(a, b map[string]any) int {
	return func(a, b map[string]any) int {
		return cmp.Compare(toInt64(a[key]), toInt64(b[key]))
	}
}

// toString converts a value to string, returning empty string for nil/non-string.
func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toInt64 normalises numbers decoded from JSONL (float64) or held in
// memory (int, int64).
func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

// Int64Field reads a numeric record field.
func Int64Field(record map[string]any, key string) int64 {
	return toInt64(record[key])
}

// StringField reads a string record field.
func StringField(record map[string]any, key string) string {
	return toString(record[key])
}
