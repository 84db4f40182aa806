package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/justapithecus/knotfold/adapter"
	"github.com/justapithecus/knotfold/adapter/redis"
	"github.com/justapithecus/knotfold/adapter/webhook"
	"github.com/justapithecus/knotfold/fold"
	"github.com/justapithecus/knotfold/lode"
	"github.com/justapithecus/knotfold/log"
	"github.com/justapithecus/knotfold/metrics"
	"github.com/justapithecus/knotfold/policy"
	"github.com/justapithecus/knotfold/rna"
	"github.com/justapithecus/knotfold/runtime"
	"github.com/justapithecus/knotfold/types"
)

// validatePolicyConfig rejects policy settings that cannot work together.
// Buffer flags given to a policy that ignores them produce a warning.
func validatePolicyConfig(choice policyChoice, warn io.Writer) error {
	switch choice.name {
	case "strict", "noop":
		if choice.bufferRecords > 0 || choice.flushCount > 0 {
			fmt.Fprintf(warn, "Warning: buffer/flush flags ignored for %s policy\n", choice.name)
		}
		return nil

	case "buffered":
		if choice.bufferRecords <= 0 {
			return fmt.Errorf("buffered policy requires --buffer-records > 0")
		}
		if choice.flushCount < 0 {
			return fmt.Errorf("--flush-count must be >= 0, got %d", choice.flushCount)
		}
		switch policy.FlushMode(choice.flushMode) {
		case policy.FlushAtLeastOnce, policy.FlushTwoPhase:
			return nil
		default:
			return fmt.Errorf("invalid flush-mode: %s", choice.flushMode)
		}

	default:
		return fmt.Errorf("invalid policy: %s (must be strict, buffered or noop)", choice.name)
	}
}

// validateStorage rejects an unknown backend before any run starts.
func validateStorage(st storageChoice) error {
	switch st.backend {
	case "fs", "":
		return nil
	case "s3":
		if st.path == "" {
			return fmt.Errorf("s3 storage requires --storage-path bucket[/prefix]")
		}
		return nil
	default:
		return fmt.Errorf("unknown storage-backend: %s (must be fs or s3)", st.backend)
	}
}

// storageBackendName is the backend recorded in metrics.
func storageBackendName(st storageChoice) string {
	if st.path == "" {
		return "none"
	}
	if st.backend == "" {
		return "fs"
	}
	return st.backend
}

// buildLodeClient opens the dataset partition for one run. A nil client
// with a nil error means storage is not configured.
func buildLodeClient(st storageChoice, cfg lode.Config) (*lode.LodeClient, error) {
	if st.path == "" {
		return nil, nil
	}
	switch st.backend {
	case "fs", "":
		return lode.NewLodeClient(cfg, st.path)
	case "s3":
		bucket, prefix := lode.ParseS3Path(st.path)
		return lode.NewLodeS3Client(cfg, lode.S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       st.region,
			Endpoint:     st.endpoint,
			UsePathStyle: st.pathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage-backend: %s (must be fs or s3)", st.backend)
	}
}

// buildPolicy wraps sink in the chosen persistence policy.
func buildPolicy(choice policyChoice, sink policy.Sink, logger *log.Logger) (policy.Policy, error) {
	switch choice.name {
	case "strict":
		return policy.NewStrictPolicy(sink), nil

	case "buffered":
		return policy.NewBufferedPolicy(sink, policy.BufferedConfig{
			MaxBufferRecords: choice.bufferRecords,
			FlushCount:       choice.flushCount,
			FlushMode:        policy.FlushMode(choice.flushMode),
			Logger:           logger,
		})

	case "noop":
		return policy.NewNoopPolicy(), nil

	default:
		return nil, fmt.Errorf("unknown policy: %s", choice.name)
	}
}

// buildSink writes through Lode, or discards records without a client.
func buildSink(client *lode.LodeClient, collector *metrics.Collector) policy.Sink {
	if client == nil {
		return policy.DiscardSink{}
	}
	return lode.NewInstrumentedSink(lode.NewSink(client), collector)
}

// buildAdapter creates the completion notifier. Nil when none is set.
func buildAdapter(choice adapterChoice) (adapter.Adapter, error) {
	switch choice.kind {
	case "":
		return nil, nil
	case "redis":
		return redis.New(redis.Config{
			URL:     choice.url,
			Channel: choice.channel,
			Timeout: choice.timeout,
			Retries: choice.retries,
		})
	case "webhook":
		return webhook.New(webhook.Config{
			URL:     choice.url,
			Headers: choice.headers,
			Timeout: choice.timeout,
			Retries: choice.retries,
		})
	default:
		return nil, fmt.Errorf("unknown adapter: %s (must be redis or webhook)", choice.kind)
	}
}

// buildFolder creates the Fold Service for one sequence. Probe files are
// read here because their length must match the sequence.
func buildFolder(s *settings, seq *rna.Sequence) (*fold.Service, error) {
	params, err := s.foldParams()
	if err != nil {
		return nil, err
	}
	opts, err := s.probeOptions(seq.Len())
	if err != nil {
		return nil, err
	}
	return fold.NewService(params, opts)
}

// preparedRun is a wired prediction plus the resources to release after it.
type preparedRun struct {
	config  *runtime.PredictionConfig
	policy  policy.Policy
	adapter adapter.Adapter
}

// Close releases the policy (and through it the Lode client) and the
// adapter.
func (p *preparedRun) Close() error {
	var firstErr error
	if p.policy != nil {
		if err := p.policy.Close(); err != nil {
			firstErr = err
		}
	}
	if p.adapter != nil {
		if err := p.adapter.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// prepareRun wires one prediction: folder, storage partition, policy,
// metrics and notifier. Input errors come back as *types.Error with an
// input code so callers can map them to the invalid-input exit code.
func prepareRun(s *settings, seq *rna.Sequence, meta *types.RunMeta, logOut io.Writer, startTime time.Time) (*preparedRun, error) {
	folder, err := buildFolder(s, seq)
	if err != nil {
		return nil, err
	}

	var jobID string
	if meta.JobID != nil {
		jobID = *meta.JobID
	}
	collector := metrics.NewCollector(s.policy.name, string(seq.Alphabet()), storageBackendName(s.storage), meta.RunID, jobID)
	logger := log.NewLoggerAt(meta, logOut, s.logLevel)

	lodeCfg := lode.Config{
		Dataset:  s.storage.dataset,
		Source:   s.source,
		Category: s.category,
		Day:      lode.DeriveDay(startTime),
		RunID:    meta.RunID,
		Policy:   s.policy.name,
	}
	client, err := buildLodeClient(s.storage, lodeCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Lode client: %w", err)
	}

	sink := buildSink(client, collector)
	if client == nil {
		logger.Debug("storage not configured, records are discarded", nil)
	}
	pol, err := buildPolicy(s.policy, sink, logger)
	if err != nil {
		_ = sink.Close()
		return nil, err
	}

	notifier, err := buildAdapter(s.adapter)
	if err != nil {
		_ = pol.Close()
		return nil, err
	}

	cfg := &runtime.PredictionConfig{
		RunMeta:     meta,
		Sequence:    seq,
		Folder:      folder,
		Engine:      s.engine,
		Policy:      pol,
		Adapter:     notifier,
		ArchivePath: s.archive,
		StoragePath: s.storage.path,
		Source:      s.source,
		Category:    s.category,
		Collector:   collector,
		Logger:      logger,
	}
	if client != nil {
		cfg.FileWriter = client
		cfg.MetricsWriter = client
	}
	return &preparedRun{config: cfg, policy: pol, adapter: notifier}, nil
}
