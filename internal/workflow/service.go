package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/assetsync/internal/asset"
	"github.com/nerrad567/assetsync/internal/audit"
	"github.com/nerrad567/assetsync/internal/reconcile"
)

// Reconciler runs one reconciliation. Implemented by *reconcile.Orchestrator.
type Reconciler interface {
	Run(ctx context.Context, n asset.Normalized) reconcile.Report
}

// Auditor records a finished reconciliation. Implemented by *audit.Recorder.
type Auditor interface {
	Record(ctx context.Context, n asset.Normalized, rep reconcile.Report) audit.Outcome
}

// Observer is told about every handled event after it has been audited.
type Observer interface {
	Observe(ctx context.Context, n asset.Normalized, res Result)
}

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Result is the response for one change event.
type Result struct {
	Report              reconcile.Report `json:"report"`
	TrackingItemID      string           `json:"tracking_item_id,omitempty"`
	TrackingItemCreated bool             `json:"tracking_item_created"`
}

// Service handles change events one at a time per call. Concurrent calls
// share nothing but the downstream systems.
type Service struct {
	reconciler Reconciler
	auditor    Auditor
	observers  []Observer
	logger     Logger
}

// Option configures a Service.
type Option func(*Service)

// WithObservers adds observers notified after each event.
func WithObservers(obs ...Observer) Option {
	return func(s *Service) {
		for _, o := range obs {
			if o != nil {
				s.observers = append(s.observers, o)
			}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a Service.
func NewService(r Reconciler, a Auditor, opts ...Option) (*Service, error) {
	if r == nil {
		return nil, errors.New("workflow: reconciler is required")
	}
	if a == nil {
		return nil, errors.New("workflow: auditor is required")
	}
	s := &Service{reconciler: r, auditor: a, logger: noopLogger{}}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handle normalizes ev, reconciles it and records the outcome. The audit
// runs exactly once whatever happens during reconciliation, and it is not
// cut short by cancellation of ctx.
func (s *Service) Handle(ctx context.Context, ev asset.ChangeEvent) (res Result) {
	n := asset.Normalize(ev)
	s.logger.Info("change event received",
		"feature_id", ev.FeatureID,
		"serial", n.Serial,
		"previous_serial", n.PreviousSerial,
		"class", n.Class,
	)

	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("reconciliation panicked", "serial", n.Serial, "panic", p)
			res.Report = abandoned(n, p)
		}

		out := s.auditor.Record(context.WithoutCancel(ctx), n, res.Report)
		res.TrackingItemID = out.ItemID
		res.TrackingItemCreated = out.Created

		for _, o := range s.observers {
			s.notify(ctx, o, n, res)
		}

		s.logger.Info("change event handled",
			"run_id", res.Report.RunID,
			"serial", n.Serial,
			"status", res.Report.Status,
			"steps", len(res.Report.Steps),
			"failed_steps", res.Report.Failed(),
			"duration", res.Report.Duration(),
		)
	}()

	res.Report = s.reconciler.Run(ctx, n)
	return res
}

func (s *Service) notify(ctx context.Context, o Observer, n asset.Normalized, res Result) {
	defer func() {
		if p := recover(); p != nil {
			s.logger.Error("observer panicked", "serial", n.Serial, "panic", p)
		}
	}()
	o.Observe(ctx, n, res)
}

// abandoned is the report for a reconciliation that never returned one.
func abandoned(n asset.Normalized, p any) reconcile.Report {
	now := time.Now()
	return reconcile.Report{
		Serial:         n.Serial,
		PreviousSerial: n.PreviousSerial,
		Class:          n.Class,
		Status:         reconcile.StatusFailed,
		Reason:         fmt.Sprintf("%v: %v", reconcile.ErrPanic, p),
		Steps:          []reconcile.StepOutcome{},
		StartedAt:      now,
		FinishedAt:     now,
	}
}
