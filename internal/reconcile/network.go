package reconcile

import (
	"context"
	"fmt"

	"github.com/nerrad567/assetsync/internal/asset"
)

// runNetwork applies the network-attached path and reports whether the new
// serial was established in the registry.
func (o *Orchestrator) runNetwork(ctx context.Context, n asset.Normalized, rep *Report) bool {
	p := planNetwork(n, o.settings)

	op, detail, err := o.mirrorCreate(ctx, p.device)
	rep.record(op, n.Serial, err, detail)
	if err != nil {
		rep.addReason(fmt.Sprintf("registry device %s not established", n.Serial))
		if p.retire != "" {
			rep.addReason(fmt.Sprintf("retirement of %s skipped", p.retire))
		}
		return false
	}

	associated := true
	if p.associate {
		err := o.call(ctx, OpAssociate, n.Serial, func(ctx context.Context) error {
			return o.reg.AssociateToGroup(ctx, n.Serial, p.groupID)
		})
		rep.record(OpAssociate, n.Serial, err, fmt.Sprintf("group %d", p.groupID))
		associated = err == nil
	} else if n.Event.SwitchType != "" {
		o.logger.Info("switch type has no relay group", "serial", n.Serial, "switch_type", n.Event.SwitchType)
	}

	if p.retire == "" {
		return true
	}
	if !associated {
		rep.addReason(fmt.Sprintf("retirement of %s skipped: association failed", p.retire))
		return true
	}
	o.retireRegistry(ctx, p.retire, rep)
	return true
}
