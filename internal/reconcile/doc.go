// Package reconcile brings the registry and the fixture store in line with
// one normalized asset change.
//
// The Orchestrator dispatches on device class:
//
//   - network_attached: registry create, falling back to update on conflict,
//     optional relay group association, then retirement of the previous serial
//   - gateway_routed: fixture insert or update mirrored into the registry
//     inside one fixture transaction, then retirement after commit
//   - unknown: nothing is touched and the report says so
//
// What to write is decided by pure planners (planNetwork, planGateway,
// decideFixtureWrite); the Orchestrator only applies the plan and records a
// StepOutcome for every side-effecting call. A previous serial is never
// retired unless the new serial was established first.
package reconcile
