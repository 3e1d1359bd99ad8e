package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/nerrad567/assetsync/internal/asset"
	"github.com/nerrad567/assetsync/internal/fixture"
	"github.com/nerrad567/assetsync/internal/registry"
	"github.com/nerrad567/assetsync/internal/zone"
)

const tracerName = "github.com/nerrad567/assetsync/internal/reconcile"

// Logger defines the logging interface used by the Orchestrator.
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

// Deps holds the Orchestrator's collaborators.
type Deps struct {
	Registry registry.Registry
	Fixtures fixture.Store
	Zones    zone.Resolver
	Settings Settings

	// Optional.
	Logger   Logger
	Tracer   trace.Tracer
	Clock    func() time.Time
	NewRunID func() string
}

// Orchestrator runs one reconciliation per normalized event.
// It holds no per-event state and is safe for concurrent use.
type Orchestrator struct {
	reg      registry.Registry
	fixtures fixture.Store
	zones    zone.Resolver
	settings Settings
	logger   Logger
	tracer   trace.Tracer
	now      func() time.Time
	runID    func() string
}

// New validates deps and creates an Orchestrator.
func New(deps Deps) (*Orchestrator, error) {
	if deps.Registry == nil {
		return nil, errors.New("reconcile: registry is required")
	}
	if deps.Fixtures == nil {
		return nil, errors.New("reconcile: fixture store is required")
	}
	if deps.Zones == nil {
		return nil, errors.New("reconcile: zone resolver is required")
	}

	o := &Orchestrator{
		reg:      deps.Registry,
		fixtures: deps.Fixtures,
		zones:    deps.Zones,
		settings: deps.Settings,
		logger:   deps.Logger,
		tracer:   deps.Tracer,
		now:      deps.Clock,
		runID:    deps.NewRunID,
	}
	if o.logger == nil {
		o.logger = noopLogger{}
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer(tracerName)
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.runID == nil {
		o.runID = uuid.NewString
	}
	return o, nil
}

// Run reconciles one event and always returns a report. A panic in any
// collaborator is recovered into a failed report.
func (o *Orchestrator) Run(ctx context.Context, n asset.Normalized) (rep Report) {
	rep = Report{
		RunID:          o.runID(),
		Serial:         n.Serial,
		PreviousSerial: n.PreviousSerial,
		Class:          n.Class,
		Steps:          []StepOutcome{},
		StartedAt:      o.now(),
	}

	ctx, span := o.tracer.Start(ctx, "reconcile.run", trace.WithAttributes(
		attribute.String("asset.serial", n.Serial),
		attribute.String("asset.class", string(n.Class)),
		attribute.String("reconcile.run_id", rep.RunID),
	))

	established := false
	defer func() {
		if p := recover(); p != nil {
			established = false
			rep.addReason(fmt.Sprintf("%v: %v", ErrPanic, p))
			o.logger.Error("reconciliation panicked", "run_id", rep.RunID, "serial", n.Serial, "panic", p)
		}
		rep.finish(established, o.now())

		span.SetAttributes(attribute.String("reconcile.status", string(rep.Status)))
		if rep.Status == StatusFailed {
			span.SetStatus(codes.Error, rep.Reason)
		}
		span.End()
	}()

	switch n.Class {
	case asset.ClassNetworkAttached:
		established = o.runNetwork(ctx, n, &rep)
	case asset.ClassGatewayRouted:
		established = o.runGateway(ctx, n, &rep)
	default:
		rep.addReason(ErrUnknownClass.Error())
		o.logger.Warn("skipping unclassified asset", "run_id", rep.RunID, "serial", n.Serial)
	}
	return rep
}

// call runs fn inside a span and refuses to start once ctx is done.
func (o *Orchestrator) call(ctx context.Context, op Operation, serial string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("aborted: %w", err)
	}

	ctx, span := o.tracer.Start(ctx, "reconcile."+string(op), trace.WithAttributes(
		attribute.String("asset.serial", serial),
	))
	defer span.End()

	err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.logger.Warn("reconciliation step failed", "operation", op, "serial", serial, "error", err)
	} else {
		o.logger.Debug("reconciliation step succeeded", "operation", op, "serial", serial)
	}
	return err
}

// mirrorCreate creates the registry device, falling back to update when it
// already exists. It returns the operation that actually took effect.
func (o *Orchestrator) mirrorCreate(ctx context.Context, d registry.Device) (Operation, string, error) {
	var res registry.CreateResult
	err := o.call(ctx, OpRegistryCreate, d.Serial, func(ctx context.Context) error {
		res = o.reg.Create(ctx, d)
		return res.Err
	})
	if err != nil {
		return OpRegistryCreate, "", err
	}

	switch res.Status {
	case registry.CreateCreated:
		return OpRegistryCreate, "", nil
	case registry.CreateConflict:
		err := o.call(ctx, OpRegistryUpdate, d.Serial, func(ctx context.Context) error {
			return o.reg.Update(ctx, d.Serial, d)
		})
		return OpRegistryUpdate, "device already registered", err
	default:
		return OpRegistryCreate, "", fmt.Errorf("registry create: %s", res.Detail)
	}
}

// retireRegistry deletes the previous serial's device. A device that is
// already gone counts as retired.
func (o *Orchestrator) retireRegistry(ctx context.Context, serial string, rep *Report) {
	detail := ""
	err := o.call(ctx, OpRegistryDelete, serial, func(ctx context.Context) error {
		err := o.reg.Delete(ctx, serial)
		if errors.Is(err, registry.ErrDeviceNotFound) {
			detail = "already absent"
			return nil
		}
		return err
	})
	rep.record(OpRegistryDelete, serial, err, detail)
}
