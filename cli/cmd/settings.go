package cmd

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/justapithecus/knotfold/cli/config"
	"github.com/justapithecus/knotfold/fold"
	"github.com/justapithecus/knotfold/knot"
	"github.com/justapithecus/knotfold/lode"
	"github.com/justapithecus/knotfold/probe"
	"github.com/justapithecus/knotfold/rna"
)

// settings is the merged view of knotfold.yaml and the command line.
// Flags win over config values; config values win over built-in defaults.
type settings struct {
	source   string
	category string
	logLevel string

	engine knot.Config

	alphabet    rna.Alphabet
	temperature float64
	p1, p2      float64

	probe probeFiles

	ct      string
	archive string
	report  string

	storage storageChoice
	policy  policyChoice
	adapter adapterChoice
}

// probeFiles names the reactivity inputs. They are read once the
// sequence length is known.
type probeFiles struct {
	shape, dms, dshape, offsets string
	opts                        probe.Options
}

// storageChoice holds parsed Lode storage configuration.
type storageChoice struct {
	dataset   string
	backend   string // "fs" or "s3"
	path      string // fs: directory, s3: bucket/prefix
	region    string
	endpoint  string
	pathStyle bool
}

// policyChoice holds parsed policy configuration.
type policyChoice struct {
	name          string
	flushMode     string
	bufferRecords int
	flushCount    int
}

// adapterChoice holds parsed notification adapter configuration.
type adapterChoice struct {
	kind    string // "redis", "webhook" or empty
	url     string
	channel string
	headers map[string]string
	timeout time.Duration
	retries int
}

// loadConfigFile reads --config when set.
func loadConfigFile(c *cli.Context) (*config.Config, error) {
	path := c.String("config")
	if path == "" {
		return &config.Config{}, nil
	}
	return config.Load(path)
}

// resolveSettings merges defaults, the config file and flags.
func resolveSettings(c *cli.Context) (*settings, error) {
	cfg, err := loadConfigFile(c)
	if err != nil {
		return nil, err
	}

	s := &settings{
		source:      "default",
		category:    "default",
		logLevel:    "info",
		engine:      knot.DefaultConfig(),
		alphabet:    rna.AlphabetRNA,
		temperature: rna.DefaultTemperature,
		p1:          fold.DefaultP1,
		p2:          fold.DefaultP2,
		probe:       probeFiles{opts: probe.DefaultOptions()},
		storage:     storageChoice{dataset: lode.DefaultDataset, backend: "fs"},
		policy:      policyChoice{name: "strict", flushMode: "at_least_once"},
		adapter:     adapterChoice{retries: 3},
	}
	s.applyConfig(cfg)
	if err := s.applyFlags(c); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *settings) applyConfig(cfg *config.Config) {
	setString(&s.source, cfg.Source)
	setString(&s.category, cfg.Category)
	setString(&s.logLevel, cfg.LogLevel)

	e := cfg.Engine
	setFloat(&s.engine.Threshold, e.Threshold)
	setInt(&s.engine.MinHelix, e.MinHelix)
	setInt(&s.engine.MaxHelix, e.MaxHelix)
	if e.MaxCandidates != nil {
		s.engine.MaxCandidates = *e.MaxCandidates
	}
	setInt(&s.engine.MaxTracebacks, e.MaxTracebacks)
	setFloat(&s.engine.Percent, e.Percent)
	setInt(&s.engine.Window, e.Window)
	setInt(&s.engine.Parallel, e.Parallel)

	if cfg.Fold.Alphabet != "" {
		// Validated by config.Load.
		s.alphabet, _ = rna.ParseAlphabet(cfg.Fold.Alphabet)
	}
	if cfg.Fold.Temperature > 0 {
		s.temperature = cfg.Fold.Temperature
	}
	setFloat(&s.p1, cfg.Fold.P1)
	setFloat(&s.p2, cfg.Fold.P2)

	p := cfg.Probe
	setString(&s.probe.shape, p.SHAPE)
	setString(&s.probe.dms, p.DMS)
	setString(&s.probe.dshape, p.DSHAPE)
	setString(&s.probe.offsets, p.Offsets)
	setFloat(&s.probe.opts.SHAPESlope, p.SHAPESlope)
	setFloat(&s.probe.opts.SHAPEIntercept, p.SHAPEIntercept)
	setFloat(&s.probe.opts.DMSSlope, p.DMSSlope)
	setFloat(&s.probe.opts.DMSIntercept, p.DMSIntercept)
	setFloat(&s.probe.opts.DSHAPESlope, p.DSHAPESlope)
	setFloat(&s.probe.opts.DSHAPEIntercept, p.DSHAPEIntercept)

	setInt(&s.engine.Output.MaxStructures, cfg.Output.MaxStructures)
	if cfg.Output.Percent > 0 {
		s.engine.Output.Percent = cfg.Output.Percent
	}
	setInt(&s.engine.Output.Window, cfg.Output.Window)
	setString(&s.ct, cfg.Output.CT)
	setString(&s.archive, cfg.Output.Archive)
	setString(&s.report, cfg.Output.Report)

	st := cfg.Storage
	setString(&s.storage.dataset, st.Dataset)
	setString(&s.storage.backend, st.Backend)
	setString(&s.storage.path, st.Path)
	setString(&s.storage.region, st.Region)
	setString(&s.storage.endpoint, st.Endpoint)
	s.storage.pathStyle = s.storage.pathStyle || st.S3PathStyle

	setString(&s.policy.name, cfg.Policy.Name)
	setString(&s.policy.flushMode, cfg.Policy.FlushMode)
	setInt(&s.policy.bufferRecords, cfg.Policy.BufferRecords)
	setInt(&s.policy.flushCount, cfg.Policy.FlushCount)

	a := cfg.Adapter
	setString(&s.adapter.kind, a.Type)
	setString(&s.adapter.url, a.URL)
	setString(&s.adapter.channel, a.Channel)
	if len(a.Headers) > 0 {
		s.adapter.headers = a.Headers
	}
	if a.Timeout.Duration > 0 {
		s.adapter.timeout = a.Timeout.Duration
	}
	if a.Retries != nil {
		s.adapter.retries = *a.Retries
	}
}

func (s *settings) applyFlags(c *cli.Context) error {
	str := func(dst *string, name string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	integer := func(dst *int, name string) {
		if c.IsSet(name) {
			*dst = c.Int(name)
		}
	}
	float := func(dst *float64, name string) {
		if c.IsSet(name) {
			*dst = c.Float64(name)
		}
	}

	str(&s.source, "source")
	str(&s.category, "category")
	str(&s.logLevel, "log-level")

	float(&s.engine.Threshold, "threshold")
	integer(&s.engine.MinHelix, "min-helix")
	integer(&s.engine.MaxHelix, "max-helix")
	integer(&s.engine.MaxCandidates, "max-candidates")
	integer(&s.engine.MaxTracebacks, "max-tracebacks")
	float(&s.engine.Percent, "percent")
	integer(&s.engine.Window, "window")
	integer(&s.engine.Parallel, "parallel")
	integer(&s.engine.Output.MaxStructures, "max-structures")
	float(&s.engine.Output.Percent, "output-percent")
	integer(&s.engine.Output.Window, "output-window")

	if c.IsSet("dna") && c.Bool("dna") {
		s.alphabet = rna.AlphabetDNA
	}
	if c.IsSet("alphabet") {
		a, err := rna.ParseAlphabet(c.String("alphabet"))
		if err != nil {
			return err
		}
		s.alphabet = a
	}
	float(&s.temperature, "temperature")
	float(&s.p1, "p1")
	float(&s.p2, "p2")

	str(&s.probe.shape, "shape")
	str(&s.probe.dms, "dms")
	str(&s.probe.dshape, "dshape")
	str(&s.probe.offsets, "offsets")
	float(&s.probe.opts.SHAPESlope, "shape-slope")
	float(&s.probe.opts.SHAPEIntercept, "shape-intercept")
	float(&s.probe.opts.DMSSlope, "dms-slope")
	float(&s.probe.opts.DMSIntercept, "dms-intercept")
	float(&s.probe.opts.DSHAPESlope, "dshape-slope")
	float(&s.probe.opts.DSHAPEIntercept, "dshape-intercept")

	str(&s.ct, "ct")
	str(&s.archive, "archive")
	str(&s.report, "report")

	s.applyStorageFlags(c)

	str(&s.policy.name, "policy")
	str(&s.policy.flushMode, "flush-mode")
	integer(&s.policy.bufferRecords, "buffer-records")
	integer(&s.policy.flushCount, "flush-count")

	str(&s.adapter.kind, "adapter")
	str(&s.adapter.url, "adapter-url")
	str(&s.adapter.channel, "adapter-channel")
	if c.IsSet("adapter-timeout") {
		s.adapter.timeout = c.Duration("adapter-timeout")
	}
	integer(&s.adapter.retries, "adapter-retries")
	if c.IsSet("adapter-header") {
		headers, err := parseHeaders(c.StringSlice("adapter-header"))
		if err != nil {
			return err
		}
		s.adapter.headers = headers
	}
	return nil
}

func (s *settings) applyStorageFlags(c *cli.Context) {
	if c.IsSet("storage-dataset") {
		s.storage.dataset = c.String("storage-dataset")
	}
	if c.IsSet("storage-backend") {
		s.storage.backend = c.String("storage-backend")
	}
	if c.IsSet("storage-path") {
		s.storage.path = c.String("storage-path")
	}
	if c.IsSet("storage-region") {
		s.storage.region = c.String("storage-region")
	}
	if c.IsSet("storage-endpoint") {
		s.storage.endpoint = c.String("storage-endpoint")
	}
	if c.IsSet("storage-s3-path-style") {
		s.storage.pathStyle = c.Bool("storage-s3-path-style")
	}
}

// foldParams builds the energy model for the resolved alphabet.
func (s *settings) foldParams() (fold.Params, error) {
	params := fold.ForAlphabet(s.alphabet, s.temperature)
	params.P1 = s.p1
	params.P2 = s.p2
	if err := params.Validate(); err != nil {
		return fold.Params{}, err
	}
	return params, nil
}

// probeOptions reads the reactivity files for a sequence of length n.
func (s *settings) probeOptions(n int) (probe.Options, error) {
	opts := s.probe.opts
	var err error
	if s.probe.shape != "" {
		if opts.SHAPE, err = probe.ReadSeriesFile(s.probe.shape, n); err != nil {
			return opts, err
		}
	}
	if s.probe.dms != "" {
		if opts.DMS, err = probe.ReadSeriesFile(s.probe.dms, n); err != nil {
			return opts, err
		}
	}
	if s.probe.dshape != "" {
		if opts.DSHAPE, err = probe.ReadSeriesFile(s.probe.dshape, n); err != nil {
			return opts, err
		}
	}
	if s.probe.offsets != "" {
		if opts.Offsets, err = probe.ReadOffsetsFile(s.probe.offsets, n); err != nil {
			return opts, err
		}
	}
	return opts, nil
}

func parseHeaders(values []string) (map[string]string, error) {
	headers := make(map[string]string, len(values))
	for _, v := range values {
		name, value, ok := cutHeader(v)
		if !ok {
			return nil, fmt.Errorf("invalid --adapter-header %q (want Name: value)", v)
		}
		headers[name] = value
	}
	return headers, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
