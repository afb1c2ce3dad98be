// Package feed fetches the remote filter list using the HTTP conditional
// request convention: validators from the previous fetch ride along as
// If-None-Match / If-Modified-Since, and a 304 means the local copy is
// current.
package feed

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/rulefeed/rulefeed/internal/rules/domain"
)

const (
	defaultTimeout = 30 * time.Second

	// maxBodySize bounds how much of a response body is read. Filter lists
	// are a few megabytes at most; anything larger is not a rule list.
	maxBodySize = 64 << 20
)

// Client issues conditional GETs against one fixed endpoint.
type Client struct {
	endpoint domain.Endpoint
	http     *http.Client
}

// Options configures a feed Client.
type Options struct {
	// Endpoint is required.
	Endpoint domain.Endpoint

	// Timeout bounds one fetch end to end. Defaults to 30s.
	Timeout time.Duration

	// Transport overrides the HTTP transport, for tests.
	Transport http.RoundTripper
}

// New creates a feed client for the given endpoint.
func New(opts Options) (*Client, error) {
	if opts.Endpoint.BaseURL == "" {
		return nil, fmt.Errorf("feed endpoint base URL is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Client{
		endpoint: opts.Endpoint,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
	}, nil
}

// Fetch performs one conditional GET. prior supplies the validators; a zero
// FetchMetadata produces an unconditional request. The request is the only
// suspending step in a refresh and honors ctx cancellation.
//
// Errors map onto the refresh taxonomy: transport failures wrap
// domain.ErrInvalidResponse, statuses outside {200, 304} become
// *domain.UnexpectedStatusError, and a 200 body that is not valid text wraps
// domain.ErrInvalidRulesData.
func (c *Client) Fetch(ctx context.Context, prior domain.FetchMetadata) (domain.FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint.URL(), nil)
	if err != nil {
		return domain.FetchResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidResponse, err)
	}

	for name, value := range c.endpoint.Headers {
		req.Header.Set(name, value)
	}
	if prior.ETag != nil {
		req.Header.Set("If-None-Match", *prior.ETag)
	}
	if prior.LastModified != nil {
		req.Header.Set("If-Modified-Since", *prior.LastModified)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// preserve cancellation so callers can distinguish it
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.FetchResult{}, ctxErr
		}
		return domain.FetchResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidResponse, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		if err != nil {
			return domain.FetchResult{}, fmt.Errorf("%w: read body: %v", domain.ErrInvalidResponse, err)
		}
		if !utf8.Valid(body) {
			return domain.FetchResult{}, fmt.Errorf("%w: body is not valid UTF-8", domain.ErrInvalidRulesData)
		}
		return domain.FetchResult{
			RulesText:    string(body),
			ETag:         headerValue(resp.Header, "ETag"),
			LastModified: headerValue(resp.Header, "Last-Modified"),
		}, nil

	case http.StatusNotModified:
		return domain.FetchResult{NotModified: true}, nil

	default:
		return domain.FetchResult{}, &domain.UnexpectedStatusError{Code: resp.StatusCode}
	}
}

// headerValue returns the header as an optional: nil when absent, so callers
// can tell "omitted" apart from "empty".
func headerValue(h http.Header, name string) *string {
	values := h.Values(name)
	if len(values) == 0 {
		return nil
	}
	return &values[0]
}
