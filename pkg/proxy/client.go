package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	cemerrors "github.com/matzehuels/cem/pkg/errors"
	"github.com/matzehuels/cem/pkg/httputil"
	cemio "github.com/matzehuels/cem/pkg/io"
	"github.com/matzehuels/cem/pkg/observability"
	"github.com/matzehuels/cem/pkg/store"
)

// Client calls a remote [Server].
type Client struct {
	base   *url.URL
	http   *http.Client
	policy httputil.Policy
}

// ClientOption configures a [Client].
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// WithRetryPolicy replaces [httputil.DefaultPolicy].
func WithRetryPolicy(p httputil.Policy) ClientOption {
	return func(c *Client) { c.policy = p }
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if err := cemerrors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, cemerrors.Wrap(cemerrors.ErrCodeInvalidInput, err, "server url")
	}
	c := &Client{
		base:   u,
		http:   &http.Client{Timeout: 10 * time.Minute},
		policy: httputil.DefaultPolicy,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Health fetches the server's build information.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var out HealthResponse
	err := c.do(ctx, http.MethodGet, PathHealth, nil, decodeJSON(&out))
	return out, err
}

// Solve computes the form of a topology remotely.
func (c *Client) Solve(ctx context.Context, req cemio.SolveRequest) (SolveResponse, error) {
	var out SolveResponse
	err := c.do(ctx, http.MethodPost, PathSolve, req, decodeJSON(&out))
	return out, err
}

// Optimize runs an optimization remotely.
func (c *Client) Optimize(ctx context.Context, req cemio.OptimizeRequest) (OptimizeResponse, error) {
	var out OptimizeResponse
	err := c.do(ctx, http.MethodPost, PathOptimize, req, decodeJSON(&out))
	return out, err
}

// Render draws a form remotely and returns the raw artifact.
func (c *Client) Render(ctx context.Context, req RenderRequest) ([]byte, error) {
	var out []byte
	err := c.do(ctx, http.MethodPost, PathRender, req, func(r io.Reader) error {
		var err error
		out, err = io.ReadAll(r)
		return err
	})
	return out, err
}

// Runs lists recorded runs, newest first.
func (c *Client) Runs(ctx context.Context, limit int) ([]store.Run, error) {
	path := PathRuns
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out RunsResponse
	err := c.do(ctx, http.MethodGet, path, nil, decodeJSON(&out))
	return out.Runs, err
}

// Run fetches one recorded run.
func (c *Client) Run(ctx context.Context, id string) (*store.Run, error) {
	var out store.Run
	if err := c.do(ctx, http.MethodGet, PathRuns+"/"+url.PathEscape(id), nil, decodeJSON(&out)); err != nil {
		return nil, err
	}
	return &out, nil
}

func decodeJSON(v any) func(io.Reader) error {
	return func(r io.Reader) error { return json.NewDecoder(r).Decode(v) }
}

// do sends one request, retrying transient failures, and hands a 2xx body
// to read. All attempts share one request ID.
func (c *Client) do(ctx context.Context, method, path string, in any, read func(io.Reader) error) error {
	var body []byte
	if in != nil {
		var err error
		if body, err = json.Marshal(in); err != nil {
			return cemerrors.Wrap(cemerrors.ErrCodeInvalidInput, err, "encode request")
		}
	}
	target, err := c.base.Parse(c.base.Path + path)
	if err != nil {
		return cemerrors.Wrap(cemerrors.ErrCodeInvalidPath, err, "request path")
	}
	id := uuid.NewString()
	hooks := observability.HTTP()

	return httputil.Retry(ctx, c.policy, func() error {
		req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set(HeaderRequestID, id)
		req.Header.Set("Accept", "application/json")
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		hooks.OnRequest(ctx, method, target.Host, target.Path)
		start := time.Now()
		resp, err := c.http.Do(req)
		if err != nil {
			hooks.OnError(ctx, method, target.Host, target.Path, err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return httputil.Retryable(cemerrors.Wrap(cemerrors.ErrCodeNetwork, err, "%s %s", method, path))
		}
		defer resp.Body.Close()
		hooks.OnResponse(ctx, method, target.Host, target.Path, resp.StatusCode, time.Since(start))

		if err := httputil.CheckResponse(resp); err != nil {
			return remoteError(err)
		}
		return read(resp.Body)
	})
}

// remoteError restores the coded error carried by an error response,
// keeping the retry marking of err.
func remoteError(err error) error {
	var se *httputil.StatusError
	if !errors.As(err, &se) {
		return err
	}
	var body ErrorResponse
	if jerr := json.Unmarshal([]byte(se.Body), &body); jerr != nil || body.Error.Code == "" {
		return fmt.Errorf("server: %w", err)
	}
	coded := &cemerrors.Error{Code: body.Error.Code, Message: body.Error.Message, Cause: se}
	if httputil.IsRetryable(err) {
		return httputil.Retryable(coded)
	}
	return coded
}
