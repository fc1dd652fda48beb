// Package api implements the generic REST request helper for the HRMS front-end core.
//
// It handles URL construction (path parameters and query encoding), bearer
// authorization, JSON body serialization, and typed transport errors. All
// higher-level components (the session store, screens) talk to the backend
// through a Client.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/errors/v5"
	"github.com/gofrs/uuid"
	"go.opentelemetry.io/otel"
)

const name = "github.com/bontonsoft/hrmscore/api"

// Client issues requests against a single backend base URL.
type Client struct {
	baseURL     string
	doer        Doer
	credentials Credentials
}

// ClientOption defines a function signature for setting Client options.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client. (default: http.DefaultClient)
func WithHTTPClient(d Doer) ClientOption {
	return func(c *Client) {
		c.doer = d
	}
}

// WithCredentials sets the default credential source for outgoing requests.
func WithCredentials(creds Credentials) ClientOption {
	return func(c *Client) {
		c.credentials = creds
	}
}

// New creates a new Client for the given base URL.
func New(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		doer:    http.DefaultClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// RequestOptions carries the per-request inputs for Client.Do.
type RequestOptions struct {
	// Method defaults to GET.
	Method string

	// Query values are appended to the URL. Nil values are skipped, slices
	// repeat the key, and maps/structs are JSON-stringified.
	Query map[string]any

	// PathParams substitute ":key" and "{key}" placeholders in the path.
	PathParams map[string]any

	// Body is sent raw when it is an io.Reader, []byte, or string; any other
	// non-nil value is JSON encoded. GET and HEAD requests never send a body.
	Body any

	// Header entries are copied onto the request.
	Header http.Header

	// Credentials overrides the Client's credential source for this request.
	Credentials Credentials
}

// Response is a successful (2xx) backend response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the response body into v. An empty body decodes to the
// zero value.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return errors.Wrap(err, "json.Unmarshal()")
	}

	return nil
}

// Map returns the response body as a generic JSON object. Non-object bodies
// yield an empty map, so shape-sniffing callers can probe keys without
// error handling.
func (r *Response) Map() map[string]any {
	m := make(map[string]any)
	if len(r.Body) == 0 {
		return m
	}
	if err := json.Unmarshal(r.Body, &m); err != nil {
		return make(map[string]any)
	}

	return m
}

// Do executes a single request. Non-2xx responses are returned as *Error
// carrying the HTTP status and the parsed error body.
func (c *Client) Do(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	ctx, span := otel.Tracer(name).Start(ctx, "Client.Do()")
	defer span.End()

	if opts == nil {
		opts = &RequestOptions{}
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	u, err := BuildURL(c.resolve(path), opts.Query, opts.PathParams)
	if err != nil {
		return nil, errors.Wrap(err, "api.BuildURL()")
	}

	header := make(http.Header, len(opts.Header))
	for k, vals := range opts.Header {
		header[k] = append([]string(nil), vals...)
	}

	var body io.Reader
	if opts.Body != nil && method != http.MethodGet && method != http.MethodHead {
		switch b := opts.Body.(type) {
		case io.Reader:
			body = b
		case []byte:
			body = bytes.NewReader(b)
		case string:
			body = strings.NewReader(b)
		default:
			buf, err := json.Marshal(opts.Body)
			if err != nil {
				return nil, errors.Wrap(err, "json.Marshal()")
			}
			body = bytes.NewReader(buf)
			if header.Get("Content-Type") == "" {
				header.Set("Content-Type", "application/json")
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, errors.Wrap(err, "http.NewRequestWithContext()")
	}
	req.Header = header

	creds := opts.Credentials
	if creds == nil {
		creds = c.credentials
	}
	if creds != nil {
		if sessionID, token, ok := creds.BearerCredentials(); ok {
			if sessionID != "" {
				req.Header.Set("Authorization", "Bearer "+sessionID+" "+token)
			} else {
				req.Header.Set("Authorization", "Bearer "+token)
			}
		}
	}

	if id, err := uuid.NewV4(); err == nil {
		req.Header.Set("X-Request-Id", id.String())
	}

	resp, err := c.doer.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "api.Doer.Do()")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "io.ReadAll()")
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, newError(resp.StatusCode, resp.Status, raw)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       raw,
	}, nil
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	return c.Do(ctx, path, withMethod(opts, http.MethodGet, nil))
}

// Post issues a POST request with the given body.
func (c *Client) Post(ctx context.Context, path string, body any, opts *RequestOptions) (*Response, error) {
	return c.Do(ctx, path, withMethod(opts, http.MethodPost, body))
}

// Put issues a PUT request with the given body.
func (c *Client) Put(ctx context.Context, path string, body any, opts *RequestOptions) (*Response, error) {
	return c.Do(ctx, path, withMethod(opts, http.MethodPut, body))
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	return c.Do(ctx, path, withMethod(opts, http.MethodDelete, nil))
}

// resolve joins path onto the client's base URL. Absolute URLs pass through
// so callers can target endpoints outside the base.
func (c *Client) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	return c.baseURL + path
}

func withMethod(opts *RequestOptions, method string, body any) *RequestOptions {
	o := RequestOptions{}
	if opts != nil {
		o = *opts
	}
	o.Method = method
	if body != nil {
		o.Body = body
	}

	return &o
}
