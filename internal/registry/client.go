package registry

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // The registry's password grant expects an MD5 hex digest.
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// maxErrorBody caps how much of an error response is kept in HTTPError.
const maxErrorBody = 1 << 10

// ClientConfig configures the HTTP registry client.
type ClientConfig struct {
	BaseURL  string
	Username string
	Password string
	ClientID string
	Site     string
	GroupID  int
	Timeout  time.Duration

	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Client is the LMS implementation of Registry.
//
// The bearer token is fetched once, either by Authenticate at startup or
// lazily on first use, and kept for the life of the process.
type Client struct {
	cfg    ClientConfig
	http   *http.Client
	logger Logger

	mu    sync.Mutex
	token string
}

var _ Registry = (*Client)(nil)

// NewClient creates a registry client. No network calls are made.
func NewClient(cfg ClientConfig) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{cfg: cfg, http: hc, logger: noopLogger{}}
}

// SetLogger sets the logger for the client.
func (c *Client) SetLogger(logger Logger) {
	c.logger = logger
}

// Authenticate obtains the bearer token with a password grant.
// Calling it again after success is a no-op.
func (c *Client) Authenticate(ctx context.Context) error {
	_, err := c.bearer(ctx)
	return err
}

func (c *Client) bearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}

	sum := md5.Sum([]byte(c.cfg.Password)) //nolint:gosec // Required by the token endpoint.
	form := url.Values{
		"grant_type": {"password"},
		"username":   {c.cfg.Username},
		"password":   {hex.EncodeToString(sum[:])},
		"client_id":  {c.cfg.ClientID},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, http.MethodPost, "/token"); err != nil {
		return "", err
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}
	if body.AccessToken == "" {
		return "", ErrNoToken
	}

	c.token = body.AccessToken
	c.logger.Info("registry token acquired", "user", c.cfg.Username)
	return c.token, nil
}

// OpenSession selects the configured site for subsequent device calls.
func (c *Client) OpenSession(ctx context.Context) error {
	path := "/led/sites/" + url.PathEscape(c.cfg.Site) + "/session"
	if _, err := c.do(ctx, http.MethodPost, path, nil); err != nil {
		return fmt.Errorf("opening session for site %q: %w", c.cfg.Site, err)
	}
	c.logger.Info("registry session opened", "site", c.cfg.Site)
	return nil
}

// HealthCheck verifies the registry is reachable with the current token.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.do(ctx, http.MethodGet, "/led/groups/"+strconv.Itoa(c.cfg.GroupID), nil); err != nil {
		return fmt.Errorf("registry health check failed: %w", err)
	}
	return nil
}

// Create adds a device to the configured group.
func (c *Client) Create(ctx context.Context, d Device) CreateResult {
	_, err := c.do(ctx, http.MethodPost, c.devicesPath(""), payloadFor(d))
	if err == nil {
		return Created()
	}

	var herr *HTTPError
	if errors.As(err, &herr) && herr.StatusCode == http.StatusConflict {
		return Conflict(herr.Body)
	}
	return Failed(err)
}

// Update replaces the attributes of the device registered under serial.
func (c *Client) Update(ctx context.Context, serial string, d Device) error {
	_, err := c.do(ctx, http.MethodPut, c.devicesPath(serial), payloadFor(d))
	return notFound(err, serial)
}

// Delete removes the device registered under serial.
func (c *Client) Delete(ctx context.Context, serial string) error {
	_, err := c.do(ctx, http.MethodDelete, c.devicesPath(serial), nil)
	return notFound(err, serial)
}

// AssociateToGroup adds the device to a relay group.
func (c *Client) AssociateToGroup(ctx context.Context, serial string, groupID int) error {
	path := "/led/groups/" + strconv.Itoa(groupID) + "/devices/" + url.PathEscape(serial) + "?associate=1"
	_, err := c.do(ctx, http.MethodPost, path, nil)
	return notFound(err, serial)
}

func (c *Client) devicesPath(serial string) string {
	p := "/led/groups/" + strconv.Itoa(c.cfg.GroupID) + "/devices"
	if serial != "" {
		p += "/" + url.PathEscape(serial)
	}
	return p
}

// devicePayload is the registry's JSON shape for a device.
type devicePayload struct {
	Pole         string  `json:"pole"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	SerialNumber string  `json:"serialNumber"`
	IDGateway    int     `json:"idGateway"`
	IDType       int     `json:"idType"`
}

func payloadFor(d Device) devicePayload {
	pole := d.Pole
	if pole == "" {
		pole = d.Serial
	}
	return devicePayload{
		Pole:         pole,
		Latitude:     d.Latitude,
		Longitude:    d.Longitude,
		SerialNumber: d.Serial,
		IDGateway:    d.GatewayID,
		IDType:       d.TypeID,
	}
}

// do sends an authenticated request and returns the response body.
func (c *Client) do(ctx context.Context, method, path string, body any) ([]byte, error) {
	token, err := c.bearer(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("registry call", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if err := checkStatus(resp, method, path); err != nil {
		return nil, err
	}

	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	return out, nil
}

func checkStatus(resp *http.Response, method, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody)) //nolint:errcheck // Body is diagnostic only
	return &HTTPError{
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(b)),
	}
}

// notFound maps a 404 to ErrDeviceNotFound, keeping the HTTP detail.
func notFound(err error, serial string) error {
	var herr *HTTPError
	if errors.As(err, &herr) && herr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s: %w", ErrDeviceNotFound, serial, err)
	}
	return err
}
