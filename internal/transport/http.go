package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// HTTPRequester sends authenticated JSON requests to the sync server. Token
// refresh is delegated to the oauth2 token source.
type HTTPRequester struct {
	baseURL  string
	http     *http.Client
	observer Observer
}

// NewHTTPRequester builds a requester. A nil token source sends unauthenticated
// requests; a nil observer discards call events.
func NewHTTPRequester(baseURL string, tokens oauth2.TokenSource, observer Observer) *HTTPRequester {
	if observer == nil {
		observer = NoopObserver{}
	}
	base := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 5 * time.Second,
		}).DialContext,
	}
	client := &http.Client{Transport: base, Timeout: 30 * time.Second}
	if tokens != nil {
		client.Transport = &oauth2.Transport{
			Source: oauth2.ReuseTokenSource(nil, tokens),
			Base:   base,
		}
	}
	return &HTTPRequester{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     client,
		observer: observer,
	}
}

// Request sends body (JSON-encoded when non-nil) and decodes the response into
// out when out is non-nil and the response has content.
func (r *HTTPRequester) Request(ctx context.Context, method, path string, body, out any) error {
	start := time.Now()
	status, err := r.do(ctx, method, path, body, out)
	r.observer.OnRequestComplete(RequestEvent{
		Method:    method,
		Path:      path,
		Status:    status,
		LatencyMs: time.Since(start).Milliseconds(),
		Err:       err,
	})
	return err
}

func (r *HTTPRequester) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return resp.StatusCode, fmt.Errorf("%s %s: %w", method, path, ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return resp.StatusCode, fmt.Errorf("%s %s: %w %d: %s", method, path, ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return resp.StatusCode, nil
	}
	if raw, ok := out.(*[]byte); ok {
		*raw = respBody
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decoding response: %w", err)
	}
	return resp.StatusCode, nil
}

// Steal asks the server to evict the current writer of bucket.
func (r *HTTPRequester) Steal(ctx context.Context, bucket string) error {
	return r.Request(ctx, http.MethodDelete, "/sync/steal/"+url.PathEscape(bucket), nil, nil)
}

// RegisterDevice registers a push token for this device.
func (r *HTTPRequester) RegisterDevice(ctx context.Context, token string) error {
	return r.Request(ctx, http.MethodPost, "/sync/device/"+url.PathEscape(token), nil, nil)
}

// FetchBucket returns the raw forest payload of bucket without claiming the
// writer slot.
func (r *HTTPRequester) FetchBucket(ctx context.Context, bucket string) ([]byte, error) {
	var raw []byte
	if err := r.Request(ctx, http.MethodGet, "/sync/bucket/"+url.PathEscape(bucket), nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// BucketStealer binds a requester to one bucket.
type BucketStealer struct {
	Requester *HTTPRequester
	Bucket    string
}

func (s BucketStealer) Steal(ctx context.Context) error {
	return s.Requester.Steal(ctx, s.Bucket)
}
