package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Options configures the HTTP transport shared by both service clients.
type Options struct {
	BaseURL        string
	Username       string
	Password       string
	RequestTimeout time.Duration
	ConnectTimeout time.Duration
	// HTTPClient overrides the default client (tests use httptest clients).
	HTTPClient *http.Client
}

// HTTPError is returned when the remote service answers with a non-2xx status.
type HTTPError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: remote status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: remote status %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsHTTPStatus reports whether err carries the given remote status code.
func IsHTTPStatus(err error, code int) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == code
}

type restClient struct {
	baseURL    string
	username   string
	password   string
	reqTimeout time.Duration
	httpClient *http.Client
}

func newRESTClient(o Options) *restClient {
	cli := o.HTTPClient
	if cli == nil {
		connectTimeout := o.ConnectTimeout
		if connectTimeout <= 0 {
			connectTimeout = 10 * time.Second
		}
		tr := &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   connectTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		}
		// Timeouts are carried by request contexts.
		cli = &http.Client{Transport: tr, Timeout: 0}
	}
	return &restClient{
		baseURL:    strings.TrimRight(o.BaseURL, "/"),
		username:   o.Username,
		password:   o.Password,
		reqTimeout: o.RequestTimeout,
		httpClient: cli,
	}
}

// do issues a request and decodes a JSON response into out (when non-nil).
// The raw body is returned as well for callers that pass it through.
func (c *restClient) do(ctx context.Context, op, method, path string, query url.Values, body io.Reader, contentType string, out any) ([]byte, error) {
	if c.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.reqTimeout)
		defer cancel()
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.username != "" || c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(raw) > 4096 {
			raw = raw[:4096]
		}
		return nil, &HTTPError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("%s: decode response: %w", op, err)
		}
	}
	return raw, nil
}

func (c *restClient) postJSON(ctx context.Context, op, path string, in, out any) ([]byte, error) {
	b, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", op, err)
	}
	return c.do(ctx, op, http.MethodPost, path, nil, bytes.NewReader(b), "application/json", out)
}

// postTraining uploads training data as multipart form data with a JSON
// metadata part, the shape both services accept for instance creation.
func (c *restClient) postTraining(ctx context.Context, op, path string, metadata any, data []byte, out any) error {
	meta, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("%s: encode metadata: %w", op, err)
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("training_metadata", string(meta)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	fw, err := mw.CreateFormFile("training_data", "training_data.csv")
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	_, err = c.do(ctx, op, http.MethodPost, path, nil, &buf, mw.FormDataContentType(), out)
	return err
}

// timestamp decodes the service's RFC 3339 creation times, tolerating empty
// values.
type timestamp struct{ time.Time }

func (t *timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}
