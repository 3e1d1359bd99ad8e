package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/assetsync/internal/asset"
	"github.com/nerrad567/assetsync/internal/fixture"
	"github.com/nerrad567/assetsync/internal/registry"
)

// runGateway applies the gateway-routed path and reports whether the fixture
// transaction committed.
func (o *Orchestrator) runGateway(ctx context.Context, n asset.Normalized, rep *Report) bool {
	p := planGateway(n, o.settings)

	err := o.withTx(ctx, n.Serial, rep, func(tx fixture.Tx) error {
		return o.establishFixture(ctx, tx, p, rep)
	})
	if err != nil {
		rep.addReason(err.Error())
		if p.retire != "" {
			rep.addReason(fmt.Sprintf("retirement of %s skipped", p.retire))
		}
		return false
	}

	if p.retire != "" {
		o.retireRegistry(ctx, p.retire, rep)
		o.retireFixture(ctx, p.retire, rep)
	}
	return true
}

// withTx runs fn inside a fixture transaction. Exactly one of Commit or
// Rollback is called on every exit path, panics included.
func (o *Orchestrator) withTx(ctx context.Context, serial string, rep *Report, fn func(fixture.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: aborted: %w", ErrTransaction, err)
	}

	tx, err := o.fixtures.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransaction, err)
	}

	committing := false
	defer func() {
		if committing {
			return
		}
		if err := tx.Rollback(); err != nil {
			o.logger.Error("fixture rollback failed", "serial", serial, "error", err)
		}
	}()

	if err := fn(tx); err != nil {
		return fmt.Errorf("%w: %w", ErrTransaction, err)
	}

	err = o.call(ctx, OpFixtureCommit, serial, func(context.Context) error {
		committing = true
		return tx.Commit()
	})
	rep.record(OpFixtureCommit, serial, err, "")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransaction, err)
	}
	return nil
}

// establishFixture writes the fixture row and its registry mirror inside tx.
func (o *Orchestrator) establishFixture(ctx context.Context, tx fixture.Tx, p gatewayPlan, rep *Report) error {
	serial := p.row.Name

	var ident string
	err := o.call(ctx, OpZoneResolve, serial, func(context.Context) error {
		var err error
		ident, err = o.zones.Resolve(p.row.Longitude, p.row.Latitude)
		return err
	})
	rep.record(OpZoneResolve, serial, err, ident)
	if err != nil {
		return err
	}
	p.row.ZoneIdent = ident

	exists, err := tx.Exists(ctx, serial)
	if err != nil {
		return err
	}
	w := decideFixtureWrite(exists)

	detail := ""
	err = o.call(ctx, w.fixtureOp, serial, func(ctx context.Context) error {
		if exists {
			return tx.Update(ctx, p.row, serial)
		}
		id, err := tx.Insert(ctx, p.row)
		if err == nil {
			detail = fmt.Sprintf("id %d", id)
		}
		return err
	})
	rep.record(w.fixtureOp, serial, err, detail)
	if err != nil {
		return err
	}

	if w.registryOp == OpRegistryCreate {
		op, detail, err := o.mirrorCreate(ctx, p.device)
		rep.record(op, serial, err, detail)
		return err
	}

	err = o.call(ctx, OpRegistryUpdate, serial, func(ctx context.Context) error {
		return o.reg.Update(ctx, serial, p.device)
	})
	if errors.Is(err, registry.ErrDeviceNotFound) {
		op, detail, err := o.mirrorCreate(ctx, p.device)
		if detail == "" {
			detail = "device missing from registry"
		}
		rep.record(op, serial, err, detail)
		return err
	}
	rep.record(OpRegistryUpdate, serial, err, "")
	return err
}

// retireFixture deletes the previous serial's row outside the committed
// transaction. A row that is already gone counts as retired.
func (o *Orchestrator) retireFixture(ctx context.Context, serial string, rep *Report) {
	detail := ""
	err := o.call(ctx, OpFixtureDelete, serial, func(ctx context.Context) error {
		err := o.fixtures.Delete(ctx, serial)
		if errors.Is(err, fixture.ErrNotFound) {
			detail = "already absent"
			return nil
		}
		return err
	})
	rep.record(OpFixtureDelete, serial, err, detail)
}
