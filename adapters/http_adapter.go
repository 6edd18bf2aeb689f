package adapters

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"

	"github.com/samber/oops"

	sessionbridge "github.com/opengovern/session-bridge"
)

// DefaultMaxResponseSize caps how much of a response body is read.
const DefaultMaxResponseSize = 10 * 1024 * 1024

// HTTPAdapter sends requests to the backend over HTTP. It keeps a cookie jar so
// the refresh cookie set at login is sent back on /logout.
type HTTPAdapter struct {
	BaseURL string
	Client  *http.Client
	// MaxResponseSize bounds response bodies; larger bodies fail the request.
	// Zero means DefaultMaxResponseSize.
	MaxResponseSize int64
}

// NewHTTPAdapter builds an adapter with its own client and cookie jar. Deadlines
// come from the request context, so the client itself has no timeout.
func NewHTTPAdapter(baseURL string) *HTTPAdapter {
	jar, _ := cookiejar.New(nil)
	return &HTTPAdapter{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Jar: jar},
	}
}

func (h *HTTPAdapter) ExecuteRequest(ctx context.Context, req *sessionbridge.NormalizedRequest) (*sessionbridge.NormalizedResponse, error) {
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	fullURL := h.BaseURL + req.Endpoint

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, fullURL, body)
	if err != nil {
		return nil, oops.Code("build_request").With("url", fullURL).Wrapf(err, "build http request")
	}
	for k, vals := range req.Headers {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	if httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	limit := h.MaxResponseSize
	if limit <= 0 {
		limit = DefaultMaxResponseSize
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, oops.Code("response_too_large").
			With("url", fullURL).
			With("status", resp.StatusCode).
			With("limit", limit).
			Errorf("response body exceeds %d bytes", limit)
	}

	return &sessionbridge.NormalizedResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header.Clone(),
		Data:       data,
	}, nil
}
