// Package notify fans handled change events out to secondary sinks.
//
// Each type here implements workflow.Observer and is called after the
// tracking board has been updated:
//   - MQTT publishes the full result for downstream consumers
//   - Influx writes one "reconciliation" point per event
//   - Metrics updates Prometheus counters and histograms
//
// Observers never fail the event. Errors are logged and dropped.
package notify
