package workflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/assetsync/internal/asset"
	"github.com/nerrad567/assetsync/internal/audit"
	"github.com/nerrad567/assetsync/internal/fixture"
	"github.com/nerrad567/assetsync/internal/reconcile"
	"github.com/nerrad567/assetsync/internal/registry"
)

// memRegistry is an in-memory registry.Registry.
type memRegistry struct {
	devices map[string]registry.Device
	calls   []string
}

func (r *memRegistry) Create(_ context.Context, d registry.Device) registry.CreateResult {
	r.calls = append(r.calls, "create "+d.Serial)
	if _, ok := r.devices[d.Serial]; ok {
		return registry.Conflict("exists")
	}
	r.devices[d.Serial] = d
	return registry.Created()
}

func (r *memRegistry) Update(_ context.Context, serial string, d registry.Device) error {
	r.calls = append(r.calls, "update "+serial)
	if _, ok := r.devices[serial]; !ok {
		return registry.ErrDeviceNotFound
	}
	r.devices[serial] = d
	return nil
}

func (r *memRegistry) Delete(_ context.Context, serial string) error {
	r.calls = append(r.calls, "delete "+serial)
	delete(r.devices, serial)
	return nil
}

func (r *memRegistry) AssociateToGroup(_ context.Context, serial string, groupID int) error {
	r.calls = append(r.calls, fmt.Sprintf("associate %s %d", serial, groupID))
	return nil
}

// memStore is an in-memory fixture.Store whose transactions apply on commit.
type memStore struct {
	rows    map[string]fixture.Row
	calls   []string
	commits int
}

func (s *memStore) Begin(context.Context) (fixture.Tx, error) {
	pending := make(map[string]fixture.Row, len(s.rows))
	for k, v := range s.rows {
		pending[k] = v
	}
	return &memTx{s: s, pending: pending}, nil
}

func (s *memStore) Delete(_ context.Context, name string) error {
	s.calls = append(s.calls, "delete "+name)
	if _, ok := s.rows[name]; !ok {
		return fixture.ErrNotFound
	}
	delete(s.rows, name)
	return nil
}

type memTx struct {
	s       *memStore
	pending map[string]fixture.Row
	done    bool
}

func (t *memTx) Exists(_ context.Context, name string) (bool, error) {
	_, ok := t.pending[name]
	return ok, nil
}

func (t *memTx) Insert(_ context.Context, row fixture.Row) (int64, error) {
	t.s.calls = append(t.s.calls, "insert "+row.Name)
	t.pending[row.Name] = row
	return int64(len(t.pending)), nil
}

func (t *memTx) Update(_ context.Context, row fixture.Row, name string) error {
	t.s.calls = append(t.s.calls, "update "+name)
	t.pending[name] = row
	return nil
}

func (t *memTx) Delete(_ context.Context, name string) error {
	delete(t.pending, name)
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return fixture.ErrTxDone
	}
	t.done = true
	t.s.commits++
	t.s.rows = t.pending
	return nil
}

func (t *memTx) Rollback() error {
	t.done = true
	return nil
}

type staticZone string

func (z staticZone) Resolve(float64, float64) (string, error) { return string(z), nil }

type recordingAuditor struct {
	calls   int
	reports []reconcile.Report
	ctxErr  error
}

func (a *recordingAuditor) Record(ctx context.Context, _ asset.Normalized, rep reconcile.Report) audit.Outcome {
	a.calls++
	a.reports = append(a.reports, rep)
	a.ctxErr = ctx.Err()
	return audit.Outcome{ItemID: "998877", Created: a.calls == 1, Logged: true}
}

type recordingObserver struct {
	results []Result
}

func (o *recordingObserver) Observe(_ context.Context, _ asset.Normalized, res Result) {
	o.results = append(o.results, res)
}

type panickingObserver struct{}

func (panickingObserver) Observe(context.Context, asset.Normalized, Result) { panic("observer bug") }

type panickingReconciler struct{}

func (panickingReconciler) Run(context.Context, asset.Normalized) reconcile.Report {
	panic("reconciler bug")
}

type env struct {
	reg      *memRegistry
	store    *memStore
	auditor  *recordingAuditor
	observer *recordingObserver
	svc      *Service
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		reg:      &memRegistry{devices: map[string]registry.Device{}},
		store:    &memStore{rows: map[string]fixture.Row{}},
		auditor:  &recordingAuditor{},
		observer: &recordingObserver{},
	}
	orch, err := reconcile.New(reconcile.Deps{
		Registry: e.reg,
		Fixtures: e.store,
		Zones:    staticZone("0621.1003"),
		Settings: reconcile.Settings{
			RegistryGatewayID: 14,
			FixtureGatewayID:  14,
			DeviceTypeID:      1,
			SwitchGroups:      map[string]int{"A": 301},
		},
	})
	require.NoError(t, err)

	e.svc, err = NewService(orch, e.auditor, WithObservers(e.observer, nil))
	require.NoError(t, err)
	return e
}

func change(serial, previous string) asset.ChangeEvent {
	return asset.ChangeEvent{
		FeatureID:         417,
		RawSerial:         serial,
		RawPreviousSerial: previous,
		Latitude:          32.0232,
		Longitude:         34.8567,
		Timestamp:         time.Date(2026, 2, 27, 10, 15, 0, 0, time.UTC),
	}
}

func TestNewService_Validates(t *testing.T) {
	_, err := NewService(nil, &recordingAuditor{})
	assert.Error(t, err)
	_, err = NewService(panickingReconciler{}, nil)
	assert.Error(t, err)
}

func TestHandle_Scenarios(t *testing.T) {
	t.Run("network create", func(t *testing.T) {
		e := newEnv(t)
		res := e.svc.Handle(context.Background(), change("103441045XYZ", ""))

		assert.Equal(t, reconcile.StatusPass, res.Report.Status)
		step, ok := res.Report.Step(reconcile.OpRegistryCreate, "103441045")
		require.True(t, ok)
		assert.Equal(t, reconcile.StepSuccess, step.Status)
		assert.Equal(t, "998877", res.TrackingItemID)
		assert.True(t, res.TrackingItemCreated)
	})

	t.Run("resend falls back to update", func(t *testing.T) {
		e := newEnv(t)
		e.svc.Handle(context.Background(), change("103441045", ""))
		res := e.svc.Handle(context.Background(), change("103441045", ""))

		assert.Equal(t, reconcile.StatusPass, res.Report.Status)
		_, ok := res.Report.Step(reconcile.OpRegistryUpdate, "103441045")
		assert.True(t, ok)
		assert.Len(t, e.reg.devices, 1)
		assert.False(t, res.TrackingItemCreated)
	})

	t.Run("gateway insert commits", func(t *testing.T) {
		e := newEnv(t)
		res := e.svc.Handle(context.Background(), change("402198765", ""))

		assert.Equal(t, reconcile.StatusPass, res.Report.Status)
		assert.Equal(t, 1, e.store.commits)
		assert.Equal(t, []string{"insert 402198765"}, e.store.calls)
		assert.Equal(t, []string{"create 402198765"}, e.reg.calls)
		assert.Equal(t, "0621.1003", e.store.rows["402198765"].ZoneIdent)
	})

	t.Run("previous serial retired in both systems", func(t *testing.T) {
		e := newEnv(t)
		e.store.rows["402000001"] = fixture.Row{Name: "402000001"}
		e.reg.devices["402000001"] = registry.Device{Serial: "402000001"}

		res := e.svc.Handle(context.Background(), change("402198765", "OLD-402000001"))

		assert.Equal(t, reconcile.StatusPass, res.Report.Status)
		assert.Equal(t, []string{"create 402198765", "delete 402000001"}, e.reg.calls)
		assert.Equal(t, []string{"insert 402198765", "delete 402000001"}, e.store.calls)
	})

	t.Run("unknown prefix has no side effects", func(t *testing.T) {
		e := newEnv(t)
		res := e.svc.Handle(context.Background(), change("999123456", ""))

		assert.Equal(t, reconcile.StatusFailed, res.Report.Status)
		assert.Equal(t, "asset class not recognized", res.Report.Reason)
		assert.Empty(t, e.reg.calls)
		assert.Empty(t, e.store.calls)
		require.Equal(t, 1, e.auditor.calls)
		assert.Equal(t, reconcile.StatusFailed, e.auditor.reports[0].Status)
	})
}

func TestHandle_AuditsExactlyOnce(t *testing.T) {
	for _, serial := range []string{"103441045", "402198765", "999123456", ""} {
		e := newEnv(t)
		res := e.svc.Handle(context.Background(), change(serial, ""))

		assert.Equal(t, 1, e.auditor.calls, serial)
		assert.Equal(t, res.Report.RunID, e.auditor.reports[0].RunID, serial)
		require.Len(t, e.observer.results, 1, serial)
		assert.Equal(t, res, e.observer.results[0], serial)
	}
}

func TestHandle_CancelledContextStillAudits(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := e.svc.Handle(ctx, change("103441045", ""))

	assert.Equal(t, reconcile.StatusFailed, res.Report.Status)
	assert.Empty(t, e.reg.calls)
	assert.Equal(t, 1, e.auditor.calls)
	assert.NoError(t, e.auditor.ctxErr, "audit is detached from cancellation")
}

func TestHandle_ReconcilerPanic(t *testing.T) {
	a := &recordingAuditor{}
	svc, err := NewService(panickingReconciler{}, a, WithObservers(panickingObserver{}))
	require.NoError(t, err)

	var res Result
	require.NotPanics(t, func() {
		res = svc.Handle(context.Background(), change("103441045", ""))
	})

	assert.Equal(t, reconcile.StatusFailed, res.Report.Status)
	assert.Contains(t, res.Report.Reason, reconcile.ErrPanic.Error())
	assert.Contains(t, res.Report.Reason, "reconciler bug")
	assert.Equal(t, 1, a.calls)
	assert.Equal(t, "103441045", a.reports[0].Serial)
}
