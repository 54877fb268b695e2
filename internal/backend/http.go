package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RequestTimeout bounds every outbound backend call. A timed-out call is a
// failed outcome; retry policy, if any, belongs to the caller.
const RequestTimeout = 3 * time.Second

// requester is the shared HTTP plumbing behind both vendor adapters.
// Proxy environment variables are ignored, matching the original clients.
type requester struct {
	base    string
	headers http.Header
	hc      *http.Client
	logger  *slog.Logger
}

func newRequester(baseURL string, headers http.Header) requester {
	if headers == nil {
		headers = http.Header{}
	}
	return requester{
		base:    strings.TrimRight(baseURL, "/"),
		headers: headers,
		hc: &http.Client{
			Timeout:   RequestTimeout,
			Transport: &http.Transport{Proxy: nil},
		},
		logger: slog.Default(),
	}
}

// do issues one request and returns the raw JSON body. Non-2xx statuses,
// transport errors and unreadable bodies all come back as a *RequestError;
// callers treat them uniformly as "no data".
func (r *requester) do(ctx context.Context, method, endpoint string, params url.Values, body any) (json.RawMessage, error) {
	u := r.base + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, &RequestError{Kind: FailureRejected, URL: u, Err: err}
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return nil, &RequestError{Kind: FailureTransport, URL: u, Err: err}
	}
	for k, vs := range r.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.hc.Do(req)
	if err != nil {
		r.logger.Error("backend request failed", "url", u, "error", err)
		return nil, &RequestError{Kind: FailureTransport, URL: u, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		r.logger.Error("backend rejected request", "url", u, "status", resp.StatusCode)
		return nil, &RequestError{Kind: FailureRejected, URL: u, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &RequestError{Kind: FailureTransport, URL: u, Err: err}
	}
	return raw, nil
}

// doObject decodes the response body into a generic object.
func (r *requester) doObject(ctx context.Context, method, endpoint string, params url.Values, body any) (map[string]any, error) {
	raw, err := r.do(ctx, method, endpoint, params, body)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &RequestError{Kind: FailureRejected, URL: r.base + endpoint, Err: err}
	}
	return out, nil
}

// doList decodes the response body into a list of generic objects.
func (r *requester) doList(ctx context.Context, method, endpoint string, params url.Values) ([]map[string]any, error) {
	raw, err := r.do(ctx, method, endpoint, params, nil)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &RequestError{Kind: FailureRejected, URL: r.base + endpoint, Err: err}
	}
	return out, nil
}
