package config

import (
	"fmt"
	"time"

	"github.com/justapithecus/knotfold/rna"
)

// Config represents a knotfold.yaml configuration file.
// All values are optional and act as defaults for predict and batch flags.
// CLI flags always override config values.
type Config struct {
	Source   string        `yaml:"source"`
	Category string        `yaml:"category"`
	LogLevel string        `yaml:"log_level"`
	Engine   EngineConfig  `yaml:"engine"`
	Fold     FoldConfig    `yaml:"fold"`
	Probe    ProbeConfig   `yaml:"probe"`
	Output   OutputConfig  `yaml:"output"`
	Storage  StorageConfig `yaml:"storage"`
	Policy   PolicyConfig  `yaml:"policy"`
	Adapter  AdapterConfig `yaml:"adapter"`
}

// EngineConfig holds candidate search defaults.
// Pointers distinguish an explicit zero from an omitted key.
type EngineConfig struct {
	Threshold     *float64 `yaml:"threshold,omitempty"`
	MinHelix      int      `yaml:"min_helix"`
	MaxHelix      int      `yaml:"max_helix"`
	MaxCandidates *int     `yaml:"max_candidates,omitempty"`
	MaxTracebacks int      `yaml:"max_tracebacks"`
	Percent       *float64 `yaml:"percent,omitempty"`
	Window        int      `yaml:"window"`
	Parallel      int      `yaml:"parallel"`
}

// FoldConfig holds folding model defaults.
type FoldConfig struct {
	Alphabet string `yaml:"alphabet"`
	// Temperature is in Kelvin.
	Temperature float64 `yaml:"temperature"`
	// P1 and P2 are the pseudoknot penalty constants in kcal/mol.
	P1 *float64 `yaml:"p1,omitempty"`
	P2 *float64 `yaml:"p2,omitempty"`
}

// ProbeConfig holds chemical probing inputs.
type ProbeConfig struct {
	SHAPE           string   `yaml:"shape"`
	SHAPESlope      *float64 `yaml:"shape_slope,omitempty"`
	SHAPEIntercept  *float64 `yaml:"shape_intercept,omitempty"`
	DMS             string   `yaml:"dms"`
	DMSSlope        *float64 `yaml:"dms_slope,omitempty"`
	DMSIntercept    *float64 `yaml:"dms_intercept,omitempty"`
	DSHAPE          string   `yaml:"dshape"`
	DSHAPESlope     *float64 `yaml:"dshape_slope,omitempty"`
	DSHAPEIntercept *float64 `yaml:"dshape_intercept,omitempty"`
	Offsets         string   `yaml:"offsets"`
}

// OutputConfig holds output defaults.
type OutputConfig struct {
	MaxStructures int     `yaml:"max_structures"`
	Percent       float64 `yaml:"percent"`
	Window        int     `yaml:"window"`
	CT            string  `yaml:"ct"`
	Archive       string  `yaml:"archive"`
	Report        string  `yaml:"report"`
}

// StorageConfig holds storage defaults from the config file.
type StorageConfig struct {
	Dataset     string `yaml:"dataset"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// PolicyConfig holds policy defaults from the config file.
type PolicyConfig struct {
	Name          string `yaml:"name"`
	FlushMode     string `yaml:"flush_mode"`
	BufferRecords int    `yaml:"buffer_records"`
	FlushCount    int    `yaml:"flush_count"`
}

// AdapterConfig holds adapter defaults from the config file.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate checks the enumerated fields. Numeric ranges are left to the
// packages that consume them.
func (c *Config) Validate() error {
	if c.Fold.Alphabet != "" {
		if _, err := rna.ParseAlphabet(c.Fold.Alphabet); err != nil {
			return fmt.Errorf("fold.alphabet: %w", err)
		}
	}
	if err := oneOf("storage.backend", c.Storage.Backend, "fs", "s3"); err != nil {
		return err
	}
	if err := oneOf("policy.name", c.Policy.Name, "strict", "buffered", "noop"); err != nil {
		return err
	}
	if err := oneOf("policy.flush_mode", c.Policy.FlushMode, "at_least_once", "two_phase"); err != nil {
		return err
	}
	if err := oneOf("adapter.type", c.Adapter.Type, "redis", "webhook"); err != nil {
		return err
	}
	if c.Adapter.Type != "" && c.Adapter.URL == "" {
		return fmt.Errorf("adapter.url is required when adapter.type is %q", c.Adapter.Type)
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		return fmt.Errorf("adapter.retries must be >= 0, got %d", *c.Adapter.Retries)
	}
	return nil
}

// oneOf accepts an empty value or one of allowed.
func oneOf(field, value string, allowed ...string) error {
	if value == "" {
		return nil
	}
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s: unknown value %q (want one of %v)", field, value, allowed)
}
