package httpx

import (
	"context"
	"crypto/x509"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
)

// UserAgent is sent with every request.
const UserAgent = "buildpack/1.0"

var (
	DefaultTimeout = 30 * time.Second
	DefaultRetries = 3

	// net/http does not type these errors, so they are matched on text.
	redirectsErrorRe = regexp.MustCompile(`stopped after \d+ redirects\z`)
	schemeErrorRe    = regexp.MustCompile(`unsupported protocol scheme`)

	retryableStatusCodes = []int{
		http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusTooEarly,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
	}
)

// Client wraps a retrying HTTP client.
type Client struct {
	*retryablehttp.Client
}

// NewClient returns a client with the given per-request timeout and number of
// retries. retries == 0 disables retrying; the final response is always
// passed through to the caller instead of being replaced by an error.
func NewClient(timeout time.Duration, retries int) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if retries < 0 {
		retries = DefaultRetries
	}

	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.HTTPClient = &http.Client{
		Transport: cleanhttp.DefaultPooledTransport(),
		Timeout:   timeout,
	}
	rc.RetryMax = retries
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.CheckRetry = retryPolicy
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{Client: rc}
}

// Get issues a GET with the buildpack user agent.
func (c *Client) Get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	return c.Client.Do(req)
}

// retryPolicy is retryablehttp.DefaultRetryPolicy narrowed to the status
// codes that are worth retrying for artifact hosts.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	if err != nil {
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			if redirectsErrorRe.MatchString(urlErr.Error()) {
				return false, nil
			}
			if schemeErrorRe.MatchString(urlErr.Error()) {
				return false, nil
			}
			var unknownAuthority x509.UnknownAuthorityError
			if errors.As(urlErr.Err, &unknownAuthority) {
				return false, nil
			}
		}
		return true, nil
	}

	return slices.Contains(retryableStatusCodes, resp.StatusCode), nil
}
