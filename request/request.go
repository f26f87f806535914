package request

import (
	"context"
	"io"
	"net/http"
	"time"
)

// defaultTimeout applies when no client is injected with WithClient.
const defaultTimeout = 10 * time.Second

// RequestOptions holds the settings of a single request.
type RequestOptions struct {
	Body      io.Reader
	Headers   map[string]string
	Ctx       context.Context
	Client    *http.Client
	Username  string
	Password  string
	BasicAuth bool
}

// RequestOption applies a setting to RequestOptions.
type RequestOption func(*RequestOptions)

// WithBody sets the request body.
func WithBody(body io.Reader) RequestOption {
	return func(o *RequestOptions) {
		o.Body = body
	}
}

// WithHeader adds one header.
func WithHeader(key, value string) RequestOption {
	return func(o *RequestOptions) {
		if o.Headers == nil {
			o.Headers = make(map[string]string)
		}
		o.Headers[key] = value
	}
}

// WithContext sets the request context.
func WithContext(ctx context.Context) RequestOption {
	return func(o *RequestOptions) {
		if ctx != nil {
			o.Ctx = ctx
		}
	}
}

// WithClient sends the request through client instead of a fresh one.
func WithClient(client *http.Client) RequestOption {
	return func(o *RequestOptions) {
		o.Client = client
	}
}

// WithBasicAuth attaches basic auth credentials. Empty credentials are ignored.
func WithBasicAuth(username, password string) RequestOption {
	return func(o *RequestOptions) {
		if username == "" && password == "" {
			return
		}
		o.Username = username
		o.Password = password
		o.BasicAuth = true
	}
}

// Do executes an HTTP request with the given options.
func Do(method, url string, opts ...RequestOption) (*http.Response, error) {
	options := &RequestOptions{
		Ctx: context.Background(),
	}

	for _, opt := range opts {
		opt(options)
	}

	client := options.Client
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}

	req, err := http.NewRequestWithContext(options.Ctx, method, url, options.Body)
	if err != nil {
		return nil, err
	}

	for k, v := range options.Headers {
		req.Header.Set(k, v)
	}

	if options.BasicAuth {
		req.SetBasicAuth(options.Username, options.Password)
	}

	return client.Do(req)
}
