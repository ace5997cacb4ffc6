package proxy

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/cem/pkg/buildinfo"
	"github.com/matzehuels/cem/pkg/cache"
	cemerrors "github.com/matzehuels/cem/pkg/errors"
	"github.com/matzehuels/cem/pkg/httputil"
	cemio "github.com/matzehuels/cem/pkg/io"
	"github.com/matzehuels/cem/pkg/pipeline"
	"github.com/matzehuels/cem/pkg/store"
)

func pendulumDoc() cemio.TopologyDoc {
	length := 1.0
	return cemio.TopologyDoc{
		Nodes: []cemio.NodeDoc{
			{ID: 0},
			{ID: 1, Position: [3]float64{0.2, 0, -1}},
		},
		Edges:    []cemio.EdgeDoc{{Kind: "trail", U: 0, V: 1, Length: &length}},
		Loads:    []cemio.LoadDoc{{Node: 1, Vector: [3]float64{0, 0, -1}}},
		Supports: []cemio.SupportDoc{{Node: 0}},
	}
}

var fastRetry = httputil.Policy{Attempts: 3, Delay: time.Millisecond}

func newTestServer(t *testing.T) (*Client, *pipeline.Runner) {
	t.Helper()
	runner := pipeline.NewRunner(cache.NewNullCache(), nil, log.New(io.Discard))
	runner.Store = store.NewMemoryStore()
	srv := httptest.NewServer(NewServer(runner, nil, ServerOptions{}))
	t.Cleanup(srv.Close)

	c, err := NewClient(srv.URL, WithRetryPolicy(fastRetry))
	require.NoError(t, err)
	return c, runner
}

func TestHealth(t *testing.T) {
	c, _ := newTestServer(t)
	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, buildinfo.Version, h.Build.Version)
}

func TestSolve(t *testing.T) {
	c, _ := newTestServer(t)
	resp, err := c.Solve(context.Background(), cemio.SolveRequest{Topology: pendulumDoc()})
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	assert.True(t, resp.Form.Status.Converged)

	f, err := resp.Form.Diagram()
	require.NoError(t, err)
	p, ok := f.Position(1)
	require.True(t, ok)
	assert.InDelta(t, -1, p.Z, 1e-9)
}

func TestSolveTopologyError(t *testing.T) {
	c, _ := newTestServer(t)
	doc := pendulumDoc()
	doc.Supports = nil

	_, err := c.Solve(context.Background(), cemio.SolveRequest{Topology: doc})
	require.Error(t, err)
	assert.True(t, cemerrors.Is(err, cemerrors.ErrCodeTopology), "got %v", err)

	var se *httputil.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusUnprocessableEntity, se.StatusCode)
}

func TestOptimizeAndRuns(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestServer(t)
	req := cemio.OptimizeRequest{
		Topology:    pendulumDoc(),
		Constraints: []cemio.ConstraintDoc{{Type: "point", Node: 1, Target: &[3]float64{0, 0, -1.5}}},
		Parameters:  []cemio.ParameterDoc{{Type: "trail_length", Edge: 0, Low: 1, Up: 1}},
		Options:     cemio.OptionsDoc{Iters: 50},
	}

	resp, err := c.Optimize(ctx, req)
	require.NoError(t, err)
	require.Len(t, resp.Result.Values, 1)
	assert.InDelta(t, 1.5, resp.Result.Values[0], 1e-2)

	runs, err := c.Runs(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	run, err := c.Run(ctx, runs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, resp.Result.Objective, run.Result.Objective)
	assert.Equal(t, req.Constraints, run.Request.Constraints)

	_, err = c.Run(ctx, "nope")
	assert.True(t, cemerrors.Is(err, cemerrors.ErrCodeNotFound), "got %v", err)
}

func TestRender(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestServer(t)
	solved, err := c.Solve(ctx, cemio.SolveRequest{Topology: pendulumDoc()})
	require.NoError(t, err)

	dot, err := c.Render(ctx, RenderRequest{Form: solved.Form, Format: "dot", View: "xz"})
	require.NoError(t, err)
	assert.Contains(t, string(dot), "graph G {")

	_, err = c.Render(ctx, RenderRequest{Form: solved.Form, Format: "gif"})
	assert.True(t, cemerrors.Is(err, cemerrors.ErrCodeInvalidFormat), "got %v", err)
}

func TestBadRequests(t *testing.T) {
	c, _ := newTestServer(t)
	srvURL := c.base.String()

	tests := []struct {
		name        string
		path        string
		contentType string
		body        string
		wantStatus  int
	}{
		{"malformed json", PathSolve, "application/json", "{", http.StatusBadRequest},
		{"unknown field", PathSolve, "application/json", `{"topology":{},"extra":1}`, http.StatusBadRequest},
		{"wrong content type", PathSolve, "text/plain", "{}", http.StatusUnsupportedMediaType},
		{"bad algorithm", PathOptimize, "application/json", `{"topology":{},"constraints":[],"parameters":[],"options":{"algorithm":"simplex"}}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srvURL+tt.path, tt.contentType, strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			_, err = uuid.Parse(resp.Header.Get(HeaderRequestID))
			assert.NoError(t, err)
		})
	}
}

func TestRequestIDPropagation(t *testing.T) {
	c, _ := newTestServer(t)
	id := uuid.NewString()
	req, err := http.NewRequest(http.MethodGet, c.base.String()+PathHealth, nil)
	require.NoError(t, err)
	req.Header.Set(HeaderRequestID, id)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, id, resp.Header.Get(HeaderRequestID))
}

func TestRunsWithoutStore(t *testing.T) {
	runner := pipeline.NewRunner(nil, nil, log.New(io.Discard))
	srv := httptest.NewServer(NewServer(runner, nil, ServerOptions{}))
	defer srv.Close()
	c, err := NewClient(srv.URL, WithRetryPolicy(fastRetry))
	require.NoError(t, err)

	_, err = c.Runs(context.Background(), 0)
	assert.True(t, cemerrors.Is(err, cemerrors.ErrCodeNotFound))
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: ErrorBody{Code: cemerrors.ErrCodeInternal, Message: "busy"}})
			return
		}
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithRetryPolicy(fastRetry))
	require.NoError(t, err)
	h, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
	assert.EqualValues(t, 3, calls.Load())
}

func TestClientDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorBody{Code: cemerrors.ErrCodeInvalidInput, Message: "no"}})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, WithRetryPolicy(fastRetry))
	require.NoError(t, err)
	_, err = c.Health(context.Background())
	assert.True(t, cemerrors.Is(err, cemerrors.ErrCodeInvalidInput))
	assert.EqualValues(t, 1, calls.Load())
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("ftp://example.com")
	assert.Error(t, err)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{cemerrors.New(cemerrors.ErrCodeInvalidFormat, "x"), http.StatusBadRequest},
		{cemerrors.New(cemerrors.ErrCodeInvalidAlgorithm, "x"), http.StatusBadRequest},
		{cemerrors.New(cemerrors.ErrCodeTopology, "x"), http.StatusUnprocessableEntity},
		{cemerrors.Wrap(cemerrors.ErrCodeOptimization, cemerrors.New(cemerrors.ErrCodeParameter, "p"), "setup"), http.StatusUnprocessableEntity},
		{cemerrors.New(cemerrors.ErrCodeOptimization, "x"), http.StatusInternalServerError},
		{store.ErrNotFound, http.StatusNotFound},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusFor(tt.err); got != tt.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestErrorBody(t *testing.T) {
	b := errorBody(cemerrors.New(cemerrors.ErrCodeTopology, "node 3 has no trail"))
	assert.Equal(t, cemerrors.ErrCodeTopology, b.Code)
	assert.Equal(t, "node 3 has no trail", b.Message)

	assert.Equal(t, cemerrors.ErrCodeInternal, errorBody(errors.New("x")).Code)
	assert.Equal(t, cemerrors.ErrCodeNotFound, errorBody(store.ErrNotFound).Code)
}
