// Package workflow is the per-event entry point: normalize, reconcile,
// audit, then notify observers.
package workflow
