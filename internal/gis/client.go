// Package gis fetches asset photos from the GIS layer that reported the change.
package gis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxPictureBytes bounds a single photo download.
const maxPictureBytes = 20 << 20

var (
	// ErrNoPicture is returned when the event carries no picture reference.
	ErrNoPicture = errors.New("gis: no picture reference")

	// ErrPictureTooLarge is returned when a photo exceeds maxPictureBytes.
	ErrPictureTooLarge = errors.New("gis: picture too large")
)

// ImageSource fetches the photo attached to a feature.
type ImageSource interface {
	FetchBytes(ctx context.Context, layerID, featureID int64, fileName string) ([]byte, error)
}

// Config configures Client.
type Config struct {
	// PicturesURL is the REST root, e.g. https://editor.giscloud.com/rest/1.
	PicturesURL string
	APIKey      string
	Timeout     time.Duration

	HTTPClient *http.Client
}

// Client is the GIS Cloud implementation of ImageSource.
type Client struct {
	base   string
	apiKey string
	http   *http.Client
}

var _ ImageSource = (*Client)(nil)

// NewClient creates an image source client.
func NewClient(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		base:   strings.TrimRight(cfg.PicturesURL, "/"),
		apiKey: cfg.APIKey,
		http:   hc,
	}
}

// FetchBytes downloads layers/{layer}/features/{feature}/picture/{file}.
func (c *Client) FetchBytes(ctx context.Context, layerID, featureID int64, fileName string) ([]byte, error) {
	if fileName == "" {
		return nil, ErrNoPicture
	}

	u := c.base + "/layers/" + strconv.FormatInt(layerID, 10) +
		"/features/" + strconv.FormatInt(featureID, 10) +
		"/picture/" + url.PathEscape(fileName) +
		"?" + url.Values{"api_key": {c.apiKey}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building picture request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching picture %s: %w", fileName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching picture %s: status %d", fileName, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPictureBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading picture %s: %w", fileName, err)
	}
	if len(data) > maxPictureBytes {
		return nil, fmt.Errorf("%w: %s", ErrPictureTooLarge, fileName)
	}
	return data, nil
}
