package notify

import (
	"context"
	"time"

	"github.com/nerrad567/assetsync/internal/asset"
	"github.com/nerrad567/assetsync/internal/infrastructure/mqtt"
	"github.com/nerrad567/assetsync/internal/workflow"
)

// Logger defines the logging interface used by observers.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

func orNoop(l Logger) Logger {
	if l == nil {
		return noopLogger{}
	}
	return l
}

// Publisher sends a JSON document to a topic. Implemented by *mqtt.Client.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// Message is the document published for each handled event.
type Message struct {
	FeatureID int64 `json:"feature_id"`
	workflow.Result
	PublishedAt time.Time `json:"published_at"`
}

// MQTT publishes every result to assetsync/reconcile/{class}/{serial}.
type MQTT struct {
	pub    Publisher
	logger Logger
	clock  func() time.Time
}

// NewMQTT creates an MQTT observer.
func NewMQTT(pub Publisher, logger Logger) *MQTT {
	return &MQTT{pub: pub, logger: orNoop(logger), clock: time.Now}
}

// Observe publishes res. Failures are logged; the event is already audited.
func (o *MQTT) Observe(_ context.Context, n asset.Normalized, res workflow.Result) {
	topic := mqtt.Topics{}.Reconcile(string(n.Class), n.Serial)
	msg := Message{FeatureID: n.Event.FeatureID, Result: res, PublishedAt: o.clock().UTC()}
	if err := o.pub.PublishJSON(topic, msg, false); err != nil {
		o.logger.Warn("publishing reconciliation report failed", "topic", topic, "error", err)
		return
	}
	o.logger.Debug("reconciliation report published", "topic", topic)
}

// PointWriter queues a time-series point. Implemented by *influxdb.Client.
type PointWriter interface {
	WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, ts time.Time)
}

// Measurement is the time-series measurement written per event.
const Measurement = "reconciliation"

// Influx writes one point per result.
type Influx struct {
	w PointWriter
}

// NewInflux creates an InfluxDB observer.
func NewInflux(w PointWriter) *Influx {
	return &Influx{w: w}
}

// Observe writes a point stamped with the run's finish time.
func (o *Influx) Observe(_ context.Context, n asset.Normalized, res workflow.Result) {
	rep := res.Report
	ts := rep.FinishedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	o.w.WritePointWithTime(Measurement,
		map[string]string{
			"class":  string(n.Class),
			"status": string(rep.Status),
		},
		map[string]any{
			"steps":                 len(rep.Steps),
			"failed_steps":          rep.Failed(),
			"duration_ms":           float64(rep.Duration().Microseconds()) / 1000,
			"tracking_item_created": res.TrackingItemCreated,
			"retired_previous":      n.RetiresPrevious(),
		},
		ts,
	)
}

// Recorder receives counters and histograms. Implemented by *metrics.Metrics.
type Recorder interface {
	ObserveReconciliation(class, status string, d time.Duration)
	ObserveStep(operation, status string)
	ObserveTrackingWrite(kind string)
}

// Metrics feeds Prometheus collectors.
type Metrics struct {
	r Recorder
}

// NewMetrics creates a Prometheus observer.
func NewMetrics(r Recorder) *Metrics {
	return &Metrics{r: r}
}

// Observe records the run, each step and the tracking write.
func (o *Metrics) Observe(_ context.Context, n asset.Normalized, res workflow.Result) {
	rep := res.Report
	o.r.ObserveReconciliation(string(n.Class), string(rep.Status), rep.Duration())
	for _, s := range rep.Steps {
		o.r.ObserveStep(string(s.Operation), string(s.Status))
	}

	switch {
	case res.TrackingItemID == "":
		o.r.ObserveTrackingWrite("none")
	case res.TrackingItemCreated:
		o.r.ObserveTrackingWrite("created")
	default:
		o.r.ObserveTrackingWrite("updated")
	}
}

var (
	_ workflow.Observer = (*MQTT)(nil)
	_ workflow.Observer = (*Influx)(nil)
	_ workflow.Observer = (*Metrics)(nil)
)
