package provider

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const maxResponseBytes = 512 * 1024

// ReadResponse maps an HTTP response onto the source error taxonomy and
// returns the (size-limited) body for 200 responses. It always drains and
// closes the body. id names the requested resource in ErrNotFound.
func ReadResponse(source SourceName, id string, resp *http.Response) ([]byte, error) {
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, &ErrSourceUnavailable{Source: source, Cause: fmt.Errorf("reading response: %w", err)}
		}
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ErrNotFound{Source: source, ID: id}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ErrRateLimited{Source: source, RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now())}
	case resp.StatusCode == http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ErrAuthExpired{Source: source}
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ErrSourceUnavailable{Source: source, Cause: fmt.Errorf("unexpected HTTP %d", resp.StatusCode)}
	}
}

// ParseRetryAfter reads a Retry-After header given either as seconds or as
// an HTTP date. It returns zero when the header is absent or unparseable.
func ParseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
