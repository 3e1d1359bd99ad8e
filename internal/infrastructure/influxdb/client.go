package influxdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/assetsync/internal/infrastructure/config"
)

const (
	connectTimeout = 10 * time.Second
	pingTimeout    = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// Client is a write-only InfluxDB v2 sink for reconciliation points.
//
// Points are queued and written in batches by the underlying client, so
// WritePointWithTime never blocks the request path. Batch failures reach the
// SetOnError callback.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI

	open atomic.Bool

	errMu   sync.RWMutex
	onError func(err error)
}

// Connect pings the server and starts the batching writer for cfg.Org and
// cfg.Bucket. It returns ErrDisabled when InfluxDB is turned off in config.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	opts := influxdb2.DefaultOptions().
		SetBatchSize(uint(positive(cfg.BatchSize, defaultBatchSize))). // #nosec G115 -- positive
		SetFlushInterval(uint(flushInterval(cfg.FlushInterval).Milliseconds()))
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	switch {
	case err != nil:
		client.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.URL, err)
	case !healthy:
		client.Close()
		return nil, fmt.Errorf("%w: %s: server not ready", ErrConnectionFailed, cfg.URL)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
	}
	c.open.Store(true)
	go c.forwardErrors(c.writeAPI.Errors())
	return c, nil
}

func positive(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

// flushInterval converts the configured seconds.
func flushInterval(seconds int) time.Duration {
	if seconds <= 0 {
		return defaultFlushInterval
	}
	return time.Duration(seconds) * time.Second
}

func (c *Client) forwardErrors(errs <-chan error) {
	for err := range errs {
		c.errMu.RLock()
		cb := c.onError
		c.errMu.RUnlock()
		if cb != nil {
			cb(err)
		}
	}
}

// SetOnError sets the callback for failed batch writes.
func (c *Client) SetOnError(cb func(err error)) {
	c.errMu.Lock()
	c.onError = cb
	c.errMu.Unlock()
}

// WritePointWithTime queues one point. Tags should stay low-cardinality
// (class, status); counts and durations go in fields. Points are dropped
// once the client is closed.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]any, ts time.Time) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(measurement, tags, fields, ts))
}

// IsConnected reports whether the client still accepts points.
func (c *Client) IsConnected() bool {
	return c.open.Load()
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	healthy, err := c.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	if !healthy {
		return errors.New("influxdb health check: server not ready")
	}
	return nil
}

// Close stops accepting points, writes whatever is queued and releases the
// client. It is safe on a zero Client.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if !c.open.Swap(false) {
		return nil
	}
	c.writeAPI.Flush()
	c.client.Close()
	return nil
}
