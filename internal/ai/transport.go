package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/spigell/joe-enricher/internal/utils"
)

const (
	// DefaultHTTPTimeout bounds raw HTTP exchanges when the caller has no client.
	DefaultHTTPTimeout = 120 * time.Second

	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second
)

var wait = utils.WaitFor

// StatusError is returned for non-2xx provider responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("provider returned status %d: %s", e.Code, body)
}

// Temporary reports whether retrying may help.
func (e *StatusError) Temporary() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= http.StatusInternalServerError
}

// Retry calls fn up to attempts times. Only temporary StatusErrors are
// retried, after a delay growing linearly with the attempt number. The last
// error is returned when attempts run out.
func Retry(ctx context.Context, attempts int, delay time.Duration, logger *zap.Logger, fn func() error) error {
	if attempts <= 0 {
		attempts = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var statusErr *StatusError
		if attempt >= attempts || !errors.As(err, &statusErr) || !statusErr.Temporary() {
			return err
		}

		backoff := delay * time.Duration(attempt)
		logger.Warn("provider request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("status", statusErr.Code),
			zap.Duration("delay", backoff),
		)
		if werr := wait(ctx, backoff); werr != nil {
			return errors.Wrap(werr, "waiting to retry provider request")
		}
	}
}

// PostJSON encodes body, posts it to url with the given headers, and decodes
// a 2xx response into out.
func PostJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, body, out any) error {
	if client == nil {
		client = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrapf(err, "post %s", url)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if resp.StatusCode/100 != 2 {
		return &StatusError{Code: resp.StatusCode, Body: string(raw)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
