// Package joe reads AEA JOE job posting exports.
package joe

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

const (
	DefaultURL       = "https://www.aeaweb.org/joe/listings/xls"
	DefaultUserAgent = "spigell/joe-enricher"

	contentEncoding = "gzip"
	downloadTimeout = 30 * time.Second
)

// Client downloads the JOE listings export.
type Client struct {
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	URL        string
}

// NewClient returns a client for the public export endpoint.
func NewClient(logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: downloadTimeout,
		},
		UserAgent: DefaultUserAgent,
		URL:       DefaultURL,
	}
}

// Download fetches the raw export.
func (c *Client) Download(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "build request for %s", c.URL)
	}
	c.setHeaders(req)

	resp, err := c.request(req)
	if err != nil {
		return nil, errors.Wrapf(err, "download %s", c.URL)
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == contentEncoding {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, errors.Wrap(err, "open gzip body")
		}
		defer gz.Close()
		reader = gz
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "read export body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("download %s: bad status: %s", c.URL, resp.Status)
	}

	c.logger.Info("downloaded job export", zap.String("url", c.URL), zap.Int("bytes", len(data)))
	return data, nil
}

func (c *Client) request(req *http.Request) (*http.Response, error) {
	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	return c.HTTPClient.Do(req)
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
}
