package resolve

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strings"
	"time"

	"buildpack/internal/httpx"
)

// HTTPBackend queries a resolution service:
//
//	GET <base>/<tool>/<platform>/latest.txt?range=<constraint>
//
// answering "<version> <url>" on success.
type HTTPBackend struct {
	BaseURL  string
	Platform string
	Client   *httpx.Client
}

// NewHTTPBackend returns a backend for the current platform. Its client does
// not retry; Resolver owns the retry policy.
func NewHTTPBackend(baseURL string, timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Platform: Platform(),
		Client:   httpx.NewClient(timeout, 0),
	}
}

func (b *HTTPBackend) Resolve(ctx context.Context, tool, constraint string) (Version, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/latest.txt?range=%s",
		b.BaseURL, url.PathEscape(tool), url.PathEscape(b.Platform), url.QueryEscape(constraint))

	resp, err := b.Client.Get(ctx, endpoint)
	if err != nil {
		return Version{}, errorf(ReasonUnknown, "query %s: %v", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Version{}, errorf(ReasonUnknown, "read response from %s: %v", endpoint, err)
	}
	text := strings.TrimSpace(string(body))

	switch {
	case resp.StatusCode == http.StatusOK:
		return parseAnswer(text)
	case resp.StatusCode == http.StatusNotFound:
		return Version{}, errorf(ReasonNoMatch, NoResultMessage)
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return Version{}, errorf(ReasonInvalidConstraint, "%s %q: %s", ParseErrorPrefix, constraint, text)
	default:
		return Version{}, errorf(ReasonUnknown, "resolution service returned %s: %s", resp.Status, text)
	}
}

// parseAnswer reads a "<version> <url> [sha256]" line.
func parseAnswer(text string) (Version, error) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return Version{}, errorf(ReasonBackendData, "%s version from answer %q", FetchErrorPrefix, text)
	}
	v := Version{Number: strings.TrimPrefix(fields[0], "v"), URL: fields[1]}
	if len(fields) > 2 {
		v.Checksum = fields[2]
	}
	return v, nil
}

// Platform names the current OS/architecture the way Node.js distributions do,
// e.g. "linux-x64" or "darwin-arm64".
func Platform() string {
	arch := runtime.GOARCH
	switch arch {
	case "amd64":
		arch = "x64"
	case "386":
		arch = "x86"
	}
	return runtime.GOOS + "-" + arch
}
