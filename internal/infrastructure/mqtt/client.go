package mqtt

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/assetsync/internal/infrastructure/config"
)

// Client is a publish-only broker connection for reconciliation reports.
//
// It never subscribes. paho reconnects in the background; after each
// (re)connect the retained online status is published again so dashboards
// watching the status topic recover on their own.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	up atomic.Bool

	hooksMu      sync.RWMutex
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
}

// Logger receives connection loss warnings. logging.Logger satisfies it.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// Connect dials the broker with the offline LWT armed and blocks until the
// first connection succeeds or defaultConnectTimeout passes.
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := &Client{cfg: cfg}

	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.connected() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.lost(err) })

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: %s:%d: timeout after %v",
			ErrConnectionFailed, cfg.Broker.Host, cfg.Broker.Port, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %s:%d: %w", ErrConnectionFailed, cfg.Broker.Host, cfg.Broker.Port, err)
	}

	// The OnConnect handler may still be in flight.
	c.up.Store(true)
	return c, nil
}

func (c *Client) connected() {
	c.up.Store(true)
	c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true, buildOnlinePayload(c.cfg.Broker.ClientID))

	c.hooksMu.RLock()
	hook := c.onConnect
	c.hooksMu.RUnlock()
	if hook != nil {
		hook()
	}
}

func (c *Client) lost(err error) {
	c.up.Store(false)

	c.hooksMu.RLock()
	hook, logger := c.onDisconnect, c.logger
	c.hooksMu.RUnlock()

	if logger != nil {
		logger.Warn("MQTT connection lost", "error", err)
	}
	if hook != nil {
		hook(err)
	}
}

// Close replaces the retained status with a graceful offline message and
// disconnects. It is safe on a zero Client.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.IsConnected() {
		token := c.client.Publish(Topics{}.SystemStatus(), byte(c.cfg.QoS), true,
			buildOfflinePayload(c.cfg.Broker.ClientID))
		token.WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)
	c.up.Store(false)
	return nil
}

// HealthCheck fails while the broker link is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("mqtt health check: %w", err)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether reports can currently be published.
func (c *Client) IsConnected() bool {
	return c.client != nil && c.up.Load() && c.client.IsConnected()
}

// SetOnConnect registers a hook run after the first connect and every reconnect.
func (c *Client) SetOnConnect(hook func()) {
	c.hooksMu.Lock()
	c.onConnect = hook
	c.hooksMu.Unlock()
}

// SetOnDisconnect registers a hook run when the broker link drops.
func (c *Client) SetOnDisconnect(hook func(err error)) {
	c.hooksMu.Lock()
	c.onDisconnect = hook
	c.hooksMu.Unlock()
}

// SetLogger sets where connection loss is reported.
func (c *Client) SetLogger(logger Logger) {
	c.hooksMu.Lock()
	c.logger = logger
	c.hooksMu.Unlock()
}
