package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Response is the transport-level result of a dispatched request.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the response body as JSON into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Transport performs one request against a concrete endpoint address.
// Any returned error is treated uniformly as a retryable failure by the
// dispatcher; timeouts, refused connections and bad statuses are not
// distinguished at this layer.
type Transport interface {
	Do(ctx context.Context, rawURL, method string, data any) (*Response, error)
}

// StatusError reports a non-2xx response status.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response status %d", e.StatusCode)
}

// HTTPTransport is the default Transport, backed by net/http. GET and
// DELETE requests encode data as query parameters; POST, PUT and PATCH
// send it as a JSON body.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates an HTTPTransport whose requests are bounded
// by the given timeout (in addition to any context deadline).
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPTransport{
		client: &http.Client{Timeout: timeout},
	}
}

func (t *HTTPTransport) Do(ctx context.Context, rawURL, method string, data any) (*Response, error) {
	var body io.Reader

	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodDelete:
		target, err := appendQuery(rawURL, data)
		if err != nil {
			return nil, err
		}
		rawURL = target

	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if data != nil {
			payload, err := json.Marshal(data)
			if err != nil {
				return nil, fmt.Errorf("encoding request body: %w", err)
			}
			body = bytes.NewReader(payload)
		}

	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), rawURL, body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	payload, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, &StatusError{StatusCode: res.StatusCode}
	}

	return &Response{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       payload,
	}, nil
}

// appendQuery merges data (a map[string]string) into the URL's query
// string. Other data types are rejected.
func appendQuery(rawURL string, data any) (string, error) {
	if data == nil {
		return rawURL, nil
	}

	params, ok := data.(map[string]string)
	if !ok {
		return "", fmt.Errorf("query data must be map[string]string, got %T", data)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	query := parsed.Query()
	for k, v := range params {
		query.Set(k, v)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}
