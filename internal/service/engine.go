package service

import (
	"context"
	"time"

	"github.com/MahmutEsadErman/HealthCareWristlet/internal/evaluator"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/metrics"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/models"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/notify"
	"github.com/MahmutEsadErman/HealthCareWristlet/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// IngestResult outcome of one ingested sample.
type IngestResult struct {
	Kind       models.SampleKind
	Alert      *models.Alert    // alert created by this sample, if any
	Suppressed bool             // a candidate was dropped by the dedup policy
	Candidate  models.AlertKind // kind of the suppressed candidate
}

// Raised reports whether the sample produced a new alert.
func (r *IngestResult) Raised() bool { return r != nil && r.Alert != nil }

type ingestSourceKey struct{}

// WithIngestSource tags ctx with the transport a sample arrived on (http, mqtt, stream).
func WithIngestSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, ingestSourceKey{}, source)
}

func ingestSource(ctx context.Context) string {
	if s, ok := ctx.Value(ingestSourceKey{}).(string); ok && s != "" {
		return s
	}
	return "direct"
}

// Ingester is what transports depend on.
type Ingester interface {
	Ingest(ctx context.Context, sample models.Sample) (*IngestResult, error)
}

// Engine alert generation and threshold evaluation.
//
// For every sample: validate, load the patient's thresholds, append history,
// evaluate, dedup and insert. History append and alert insert commit together.
// Writers of one (patient, kind) are serialized in-process by a keyed lock and
// across processes by the store's LockAlertKind.
type Engine struct {
	store     repository.Store
	evaluator *evaluator.Evaluator
	dedup     *evaluator.DedupPolicy
	locks     *KeyedLocker
	notifier  notify.AlertNotifier
	logger    *zap.Logger
	newID     func() string
}

// EngineOption customizes an Engine.
type EngineOption func(*Engine)

// WithNotifier post-commit alert notifier
func WithNotifier(n notify.AlertNotifier) EngineOption {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithIDGenerator overrides alert id generation (uuid v4 by default).
func WithIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) {
		if fn != nil {
			e.newID = fn
		}
	}
}

func NewEngine(store repository.Store, eval *evaluator.Evaluator, dedup *evaluator.DedupPolicy, logger *zap.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if dedup == nil {
		dedup = evaluator.NewDedupPolicy(evaluator.DefaultCooldown)
	}
	if eval == nil {
		eval = evaluator.NewEvaluator(evaluator.DefaultMotionThreshold, logger)
	}
	e := &Engine{
		store:     store,
		evaluator: eval,
		dedup:     dedup,
		locks:     NewKeyedLocker(),
		notifier:  notify.Nop{},
		logger:    logger,
		newID:     func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ingest processes one sample synchronously. A nil error means the sample was
// accepted, whether or not an alert was raised.
func (e *Engine) Ingest(ctx context.Context, sample models.Sample) (*IngestResult, error) {
	start := time.Now()
	source := ingestSource(ctx)

	if sample == nil {
		return nil, models.NewValidationError("sample is required")
	}
	kind := sample.Kind()
	if err := sample.Validate(); err != nil {
		metrics.ObserveIngest(source, string(kind), metrics.ResultRejected, time.Since(start))
		return nil, err
	}

	result := &IngestResult{Kind: kind}
	if err := e.serialized(ctx, sample, result); err != nil {
		outcome := metrics.ResultError
		if models.IsValidation(err) || models.IsNotFound(err) {
			outcome = metrics.ResultRejected
		}
		metrics.ObserveIngest(source, string(kind), outcome, time.Since(start))
		return nil, err
	}

	outcome := metrics.ResultNone
	switch {
	case result.Alert != nil:
		outcome = metrics.ResultRaised
		e.logger.Info("Alert raised",
			zap.String("alert_id", result.Alert.AlertID),
			zap.String("patient_id", result.Alert.PatientID),
			zap.String("kind", string(result.Alert.Kind)),
			zap.String("message", result.Alert.Message),
			zap.String("source", source),
		)
		if nerr := e.notifier.AlertRaised(ctx, *result.Alert); nerr != nil {
			e.logger.Warn("Post-commit alert notification failed",
				zap.String("alert_id", result.Alert.AlertID),
				zap.Error(nerr),
			)
		}
	case result.Suppressed:
		outcome = metrics.ResultSuppressed
		metrics.IncAlertSuppressed(string(result.Candidate))
		e.logger.Debug("Alert suppressed by dedup policy",
			zap.String("patient_id", sample.Owner()),
			zap.String("kind", string(result.Candidate)),
		)
	}
	metrics.ObserveIngest(source, string(kind), outcome, time.Since(start))

	return result, nil
}

// serialized runs ingestTx under the sample's patient/kind locks.
func (e *Engine) serialized(ctx context.Context, sample models.Sample, result *IngestResult) error {
	unlock := e.locks.Lock(lockKeys(sample)...)
	defer unlock()
	return e.store.WithinTx(ctx, func(ctx context.Context, repo repository.Repository) error {
		*result = IngestResult{Kind: result.Kind}
		return e.ingestTx(ctx, repo, sample, result)
	})
}

func (e *Engine) ingestTx(ctx context.Context, repo repository.Repository, sample models.Sample, result *IngestResult) error {
	cfg, err := repo.GetPatientConfig(ctx, sample.Owner())
	if err != nil {
		return err
	}

	switch s := sample.(type) {
	case models.HeartRateSample:
		s.At = s.At.UTC()
		if err := repo.AppendHeartRate(ctx, s); err != nil {
			return err
		}
	case models.MotionSample:
		s.At = s.At.UTC()
		if err := repo.AppendMotion(ctx, s); err != nil {
			return err
		}
	}

	candidates, err := e.evaluator.Evaluate(ctx, repo, sample, *cfg)
	if err != nil {
		return err
	}

	for _, c := range candidates {
		if !c.BypassDedup {
			if err := repo.LockAlertKind(ctx, c.PatientID, c.Kind); err != nil {
				return err
			}
			ok, err := e.dedup.ShouldRaise(ctx, repo, c.PatientID, c.Kind, c.At)
			if err != nil {
				return err
			}
			if !ok {
				result.Suppressed = true
				result.Candidate = c.Kind
				continue
			}
		}

		alert := c.Alert(e.newID())
		if err := repo.InsertAlert(ctx, alert); err != nil {
			return err
		}
		result.Alert = alert
	}
	return nil
}

// lockKeys (patient, alert kind) keys a sample may write.
func lockKeys(sample models.Sample) []string {
	kinds := sample.Kind().AlertKinds()
	keys := make([]string, 0, len(kinds))
	for _, k := range kinds {
		keys = append(keys, sample.Owner()+":"+string(k))
	}
	return keys
}
