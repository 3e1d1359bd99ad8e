// Package influxdb writes reconciliation metrics to InfluxDB v2.
//
// Each handled change event becomes one point in the "reconciliation"
// measurement, tagged by class and status. Writes are batched by the
// underlying client according to batch_size and flush_interval in
// config.yaml and never block the request path.
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if errors.Is(err, influxdb.ErrDisabled) {
//	    // metrics are optional
//	}
//	defer client.Close()
package influxdb
