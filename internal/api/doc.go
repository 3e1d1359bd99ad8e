// Package api implements the HTTP intake server for assetsync.
//
// Endpoints:
//
//	POST /giscloud                  change event webhook (GIS layer)
//	POST /api/v1/events             same handler under the versioned prefix
//	GET  /api/v1/health             dependency health, 503 when degraded
//	GET  /api/v1/reconciliations    recorded runs, filterable by serial/status
//	GET  /metrics                   Prometheus exposition
//
// A change event is rejected with 400 only when its envelope is malformed.
// Anything that parses is reconciled and answered with 200 and the full
// result, including partial and failed runs.
//
// The middleware stack is request ID, logging, panic recovery, Prometheus
// instrumentation and a body size limit.
package api
