package reader

import "strconv"

// RunSummary is one row of list runs.
type RunSummary struct {
	RunID         string  `json:"run_id" yaml:"run_id"`
	Label         string  `json:"label" yaml:"label"`
	Outcome       string  `json:"outcome" yaml:"outcome"`
	Attempt       int64   `json:"attempt" yaml:"attempt"`
	Length        int64   `json:"length" yaml:"length"`
	E0Kcal        float64 `json:"e0_kcal" yaml:"e0_kcal"`
	Structures    int64   `json:"structures" yaml:"structures"`
	Pseudoknotted int64   `json:"pseudoknotted" yaml:"pseudoknotted"`
	Source        string  `json:"source,omitempty" yaml:"source,omitempty"`
	Category      string  `json:"category,omitempty" yaml:"category,omitempty"`
	Ts            string  `json:"ts,omitempty" yaml:"ts,omitempty"`
}

// Headers implements render.Tabular.
func (s RunSummary) Headers() []string {
	return []string{"RUN ID", "LABEL", "OUTCOME", "LEN", "E0", "STRUCTS", "PK", "TS"}
}

// Rows implements render.Tabular.
func (s RunSummary) Rows() [][]string {
	return [][]string{s.row()}
}

// RunList is the list runs payload.
type RunList []RunSummary

// Headers implements render.Tabular.
func (l RunList) Headers() []string {
	return RunSummary{}.Headers()
}

// Rows implements render.Tabular.
func (l RunList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, s := range l {
		rows = append(rows, s.row())
	}
	return rows
}

// StructureView is one aggregate entry as shown by inspect.
type StructureView struct {
	Rank          int     `json:"rank" yaml:"rank"`
	EnergyKcal    float64 `json:"energy_kcal" yaml:"energy_kcal"`
	Baseline      bool    `json:"baseline" yaml:"baseline"`
	Pseudoknotted bool    `json:"pseudoknotted" yaml:"pseudoknotted"`
	NeedsReview   bool    `json:"needs_review,omitempty" yaml:"needs_review,omitempty"`
	// Helix is the candidate that produced the entry; empty for the baseline.
	Helix      string `json:"helix,omitempty" yaml:"helix,omitempty"`
	DotBracket string `json:"dot_bracket" yaml:"dot_bracket"`
}

// TrialView is one refinement trial.
type TrialView struct {
	Index      int     `json:"index" yaml:"index"`
	Helix      string  `json:"helix" yaml:"helix"`
	Outcome    string  `json:"outcome" yaml:"outcome"`
	EnergyKcal float64 `json:"energy_kcal" yaml:"energy_kcal"`
	Error      string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunDetail is the inspect payload, read from Lode or from an archive.
// Archive reads leave the counters zero and Trials empty.
type RunDetail struct {
	RunID       string  `json:"run_id" yaml:"run_id"`
	JobID       string  `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	Label       string  `json:"label" yaml:"label"`
	Outcome     string  `json:"outcome,omitempty" yaml:"outcome,omitempty"`
	Message     string  `json:"message,omitempty" yaml:"message,omitempty"`
	Attempt     int64   `json:"attempt,omitempty" yaml:"attempt,omitempty"`
	Alphabet    string  `json:"alphabet" yaml:"alphabet"`
	Length      int64   `json:"length" yaml:"length"`
	Sequence    string  `json:"sequence,omitempty" yaml:"sequence,omitempty"`
	Temperature float64 `json:"temperature" yaml:"temperature"`
	E0Kcal      float64 `json:"e0_kcal" yaml:"e0_kcal"`
	Candidates  int64   `json:"candidates" yaml:"candidates"`
	Reduced     int64   `json:"reduced" yaml:"reduced"`
	Accepted    int64   `json:"accepted" yaml:"accepted"`
	Rejected    int64   `json:"rejected" yaml:"rejected"`
	Failed      int64   `json:"failed" yaml:"failed"`
	Duplicates  int64   `json:"duplicates" yaml:"duplicates"`
	Version     string  `json:"version,omitempty" yaml:"version,omitempty"`
	Ts          string  `json:"ts,omitempty" yaml:"ts,omitempty"`

	Structures []StructureView `json:"structures" yaml:"structures"`
	Trials     []TrialView     `json:"trials,omitempty" yaml:"trials,omitempty"`
}

// Headers implements render.Tabular. The table view lists structures; the
// run fields are available in json and yaml.
func (d *RunDetail) Headers() []string {
	return []string{"RANK", "ENERGY", "PK", "HELIX", "DOT-BRACKET"}
}

// Rows implements render.Tabular.
func (d *RunDetail) Rows() [][]string {
	rows := make([][]string, 0, len(d.Structures))
	for _, s := range d.Structures {
		rows = append(rows, s.row())
	}
	return rows
}

// MetricsSnapshot is the stats metrics payload.
type MetricsSnapshot struct {
	Ts string `json:"ts" yaml:"ts"`

	RunsStarted   int64 `json:"runs_started_total" yaml:"runs_started_total"`
	RunsCompleted int64 `json:"runs_completed_total" yaml:"runs_completed_total"`
	RunsFailed    int64 `json:"runs_failed_total" yaml:"runs_failed_total"`
	RunsCanceled  int64 `json:"runs_canceled_total" yaml:"runs_canceled_total"`

	CandidatesExtracted int64 `json:"candidates_extracted_total" yaml:"candidates_extracted_total"`
	CandidatesReduced   int64 `json:"candidates_reduced_total" yaml:"candidates_reduced_total"`
	TrialsAccepted      int64 `json:"trials_accepted_total" yaml:"trials_accepted_total"`
	TrialsRejected      int64 `json:"trials_rejected_total" yaml:"trials_rejected_total"`
	TrialsFailed        int64 `json:"trials_failed_total" yaml:"trials_failed_total"`
	DuplicatesDropped   int64 `json:"duplicates_dropped_total" yaml:"duplicates_dropped_total"`

	RecordsReceived  int64            `json:"records_received_total" yaml:"records_received_total"`
	RecordsPersisted int64            `json:"records_persisted_total" yaml:"records_persisted_total"`
	RecordsDropped   int64            `json:"records_dropped_total" yaml:"records_dropped_total"`
	DroppedByKind    map[string]int64 `json:"dropped_by_kind,omitempty" yaml:"dropped_by_kind,omitempty"`
	FlushTriggers    map[string]int64 `json:"flush_triggers,omitempty" yaml:"flush_triggers,omitempty"`

	LodeWriteSuccess int64 `json:"lode_write_success_total" yaml:"lode_write_success_total"`
	LodeWriteFailure int64 `json:"lode_write_failure_total" yaml:"lode_write_failure_total"`
	NotifySuccess    int64 `json:"notify_success_total" yaml:"notify_success_total"`
	NotifyFailure    int64 `json:"notify_failure_total" yaml:"notify_failure_total"`

	Policy         string `json:"policy" yaml:"policy"`
	Alphabet       string `json:"alphabet,omitempty" yaml:"alphabet,omitempty"`
	StorageBackend string `json:"storage_backend" yaml:"storage_backend"`
	RunID          string `json:"run_id" yaml:"run_id"`
	JobID          string `json:"job_id,omitempty" yaml:"job_id,omitempty"`
}

// ListRunsOptions filters list runs.
type ListRunsOptions struct {
	Source  string
	Outcome string
	Limit   int
}

// MetricsOptions selects the metrics record for stats metrics.
type MetricsOptions struct {
	RunID  string
	Source string
}

func (s RunSummary) row() []string {
	return []string{
		s.RunID,
		s.Label,
		s.Outcome,
		strconv.FormatInt(s.Length, 10),
		strconv.FormatFloat(s.E0Kcal, 'f', 1, 64),
		strconv.FormatInt(s.Structures, 10),
		strconv.FormatInt(s.Pseudoknotted, 10),
		s.Ts,
	}
}

func (s StructureView) row() []string {
	pk := ""
	switch {
	case s.NeedsReview:
		pk = "review"
	case s.Pseudoknotted:
		pk = "yes"
	}
	helix := s.Helix
	if s.Baseline {
		helix = "(baseline)"
	}
	return []string{
		strconv.Itoa(s.Rank),
		strconv.FormatFloat(s.EnergyKcal, 'f', 1, 64),
		pk,
		helix,
		s.DotBracket,
	}
}
