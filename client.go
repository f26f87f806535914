package transmission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jfxdev/go-transmission/request"
)

const (
	resultSuccess   = "success"
	resultDuplicate = "duplicate torrent"

	// maxErrorBody bounds how much of an unexpected response is kept in errors.
	maxErrorBody = 4 << 10
)

// New creates a client. No request is sent until the first call.
func New(config Config) (*Client, error) {
	cfg := config.withDefaults()

	rpcURL, err := cfg.rpcURL()
	if err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	logger := zerolog.Nop()
	switch {
	case cfg.Logger != nil:
		logger = *cfg.Logger
	case cfg.Debug:
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Str("component", "transmission").Logger().Level(zerolog.DebugLevel)
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst)
	}

	return &Client{
		config:  cfg,
		baseURL: rpcURL,
		client:  httpClient,
		logger:  logger,
		limiter: limiter,
	}, nil
}

// Config returns a copy of the normalized configuration.
func (c *Client) Config() Config {
	cfg := c.config
	cfg.Fields = append([]string(nil), c.config.Fields...)
	return cfg
}

// URL returns the RPC endpoint the client talks to.
func (c *Client) URL() string {
	return c.baseURL
}

// Token returns the cached session token, or "" before the first handshake.
func (c *Client) Token() string {
	c.tokenMu.RLock()
	defer c.tokenMu.RUnlock()
	return c.token
}

// ResetToken drops the cached session token; the next call handshakes again.
func (c *Client) ResetToken() {
	c.setToken("")
}

func (c *Client) setToken(token string) {
	c.tokenMu.Lock()
	c.token = token
	c.tokenMu.Unlock()
}

// invalidateToken clears the cached token only if it is still the one the
// daemon rejected, so a token renewed by a concurrent caller survives.
func (c *Client) invalidateToken(rejected string) {
	c.tokenMu.Lock()
	if c.token == rejected {
		c.token = ""
	}
	c.tokenMu.Unlock()
}

// Handshake probes the endpoint for a fresh session token and caches it.
// Concurrent callers share a single probe; each one stops waiting on its own
// ctx only.
func (c *Client) Handshake(ctx context.Context) (string, error) {
	ch := c.flight.DoChan("session-token", func() (any, error) {
		// the probe outlives the caller that started it, bounded by RequestTimeout
		probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.config.RequestTimeout)
		defer cancel()
		return c.acquireToken(probeCtx)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ClassifyError(ctx.Err())
	}
}

// sessionToken returns the cached token, handshaking when there is none.
func (c *Client) sessionToken(ctx context.Context) (string, error) {
	if token := c.Token(); token != "" {
		return token, nil
	}
	return c.Handshake(ctx)
}

// acquireToken sends the bare probe. The daemon answers 409 with the token
// header; that conflict is the success path.
func (c *Client) acquireToken(ctx context.Context) (string, error) {
	resp, err := request.Do(http.MethodGet, c.baseURL,
		request.WithContext(ctx),
		request.WithClient(c.client),
		request.WithBasicAuth(c.config.Username, c.config.Password),
	)
	if err != nil {
		c.logger.Debug().Err(err).Msg("session handshake failed")
		return "", ClassifyError(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusConflict:
		_, _ = io.Copy(io.Discard, resp.Body)
		token := resp.Header.Get(c.config.SessionHeader)
		if token == "" {
			return "", &ProtocolError{Message: "missing session token header"}
		}
		c.setToken(token)
		c.logger.Debug().Str("header", c.config.SessionHeader).Msg("session token acquired")
		return token, nil

	case http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, resp.Body)
		c.setToken("")
		return "", &AuthError{Message: "invalid credentials"}

	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", classifyHTTPStatusCode(resp.StatusCode, string(body))
	}
}

type exchangeStatus int

const (
	exchangeOK exchangeStatus = iota
	// exchangeTokenRejected is a 409 on the POST: the cached token went stale.
	exchangeTokenRejected
)

type exchange struct {
	status exchangeStatus
	body   []byte
}

func (c *Client) post(ctx context.Context, token string, payload []byte) (exchange, error) {
	resp, err := request.Do(http.MethodPost, c.baseURL,
		request.WithContext(ctx),
		request.WithClient(c.client),
		request.WithBody(bytes.NewReader(payload)),
		request.WithHeader("Content-Type", "application/json"),
		request.WithHeader(c.config.SessionHeader, token),
		request.WithBasicAuth(c.config.Username, c.config.Password),
	)
	if err != nil {
		return exchange{}, ClassifyError(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusConflict:
		_, _ = io.Copy(io.Discard, resp.Body)
		return exchange{status: exchangeTokenRejected}, nil
	case resp.StatusCode == http.StatusUnauthorized:
		_, _ = io.Copy(io.Discard, resp.Body)
		return exchange{}, &AuthError{Message: "invalid credentials"}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return exchange{}, classifyHTTPStatusCode(resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return exchange{}, ClassifyError(errors.Wrap(err, "reading response body"))
	}

	return exchange{status: exchangeOK, body: body}, nil
}

// Call sends one RPC and returns the arguments object of a successful
// response. A stale session token is renewed and the call retried once.
func (c *Client) Call(ctx context.Context, method string, args Arguments) (json.RawMessage, error) {
	if method == "" {
		return nil, &ProtocolError{Message: "empty method name"}
	}
	if args == nil {
		args = Arguments{}
	}

	logger := c.logger.With().Str("method", method).Str("call_id", uuid.NewString()).Logger()
	start := time.Now()

	result, err := c.call(ctx, logger, method, args)
	if err != nil {
		logger.Debug().Err(err).Dur("duration", time.Since(start)).Msg("rpc call failed")
		return nil, err
	}

	logger.Debug().Dur("duration", time.Since(start)).Msg("rpc call")
	return result, nil
}

func (c *Client) call(ctx context.Context, logger zerolog.Logger, method string, args Arguments) (json.RawMessage, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(err, "waiting for rate limiter")
		}
	}

	payload, err := json.Marshal(rpcRequest{Method: method, Arguments: args})
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s request", method)
	}

	token, err := c.sessionToken(ctx)
	if err != nil {
		return nil, err
	}

	ex, err := c.post(ctx, token, payload)
	if err != nil {
		return nil, err
	}

	if ex.status == exchangeTokenRejected {
		logger.Info().Msg("session token rejected, renewing")
		c.invalidateToken(token)

		if token, err = c.sessionToken(ctx); err != nil {
			return nil, err
		}

		if ex, err = c.post(ctx, token, payload); err != nil {
			return nil, err
		}
		if ex.status == exchangeTokenRejected {
			c.invalidateToken(token)
			return nil, &ProtocolError{Message: "session token rejected after re-handshake"}
		}
	}

	return decodeResult(method, ex.body)
}

func decodeResult(method string, body []byte) (json.RawMessage, error) {
	var resp rpcResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &ProtocolError{Message: fmt.Sprintf("malformed %s response", method), Err: err}
	}

	switch resp.Result {
	case resultSuccess:
		if len(resp.Arguments) == 0 || string(resp.Arguments) == "null" {
			return json.RawMessage("{}"), nil
		}
		return resp.Arguments, nil
	case resultDuplicate:
		return nil, &DuplicateTorrentError{}
	case "":
		return nil, &ProtocolError{Message: fmt.Sprintf("%s response carries no result", method)}
	default:
		return nil, &ProtocolError{Message: resp.Result}
	}
}

// CallInto is Call followed by decoding the arguments object into out.
func (c *Client) CallInto(ctx context.Context, method string, args Arguments, out any) error {
	raw, err := c.Call(ctx, method, args)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ProtocolError{Message: fmt.Sprintf("decoding %s arguments", method), Err: err}
	}
	return nil
}

// Close releases idle connections held by the underlying HTTP client.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
