package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/cem/pkg/buildinfo"
	cemerrors "github.com/matzehuels/cem/pkg/errors"
	cemio "github.com/matzehuels/cem/pkg/io"
	"github.com/matzehuels/cem/pkg/pipeline"
	"github.com/matzehuels/cem/pkg/render/nodelink"
)

// ServerOptions configures a [Server].
type ServerOptions struct {
	// MaxBody caps request bodies in bytes. Zero means 8 MiB.
	MaxBody int64
	// Timeout caps the time spent on one request. Zero means 5 minutes.
	Timeout time.Duration
	// DefaultRunLimit is the page size of GET /v1/runs. Zero means 20.
	DefaultRunLimit int
}

func (o ServerOptions) withDefaults() ServerOptions {
	if o.MaxBody == 0 {
		o.MaxBody = 8 << 20
	}
	if o.Timeout == 0 {
		o.Timeout = 5 * time.Minute
	}
	if o.DefaultRunLimit == 0 {
		o.DefaultRunLimit = 20
	}
	return o
}

// Server serves a [pipeline.Runner] over HTTP.
type Server struct {
	runner *pipeline.Runner
	logger *log.Logger
	opts   ServerOptions
	router chi.Router
}

// NewServer builds the routes for runner. A nil logger uses the runner's.
func NewServer(runner *pipeline.Runner, logger *log.Logger, opts ServerOptions) *Server {
	if logger == nil {
		logger = runner.Logger
	}
	s := &Server{runner: runner, logger: logger, opts: opts.withDefaults()}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get(PathHealth, s.health)
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.opts.Timeout))
		r.With(middleware.AllowContentType("application/json")).Post(PathSolve, s.solve)
		r.With(middleware.AllowContentType("application/json")).Post(PathOptimize, s.optimize)
		r.With(middleware.AllowContentType("application/json")).Post(PathRender, s.render)
		r.Get(PathRuns, s.listRuns)
		r.Get(PathRuns+"/{id}", s.getRun)
	})
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.router.ServeHTTP(w, r) }

// ListenAndServe serves h on addr until ctx is done, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, logger *log.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Build: buildinfo.Get()})
}

func (s *Server) solve(w http.ResponseWriter, r *http.Request) {
	var req cemio.SolveRequest
	if !s.decode(w, r, &req) {
		return
	}
	topo, err := req.Topology.Diagram()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	f, hit, err := s.runner.SolveWithCacheInfo(r.Context(), topo, pipeline.SolveOptions{Solver: req.Solver.Options()})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SolveResponse{Form: cemio.EncodeForm(f), Cached: hit})
}

func (s *Server) optimize(w http.ResponseWriter, r *http.Request) {
	var req cemio.OptimizeRequest
	if !s.decode(w, r, &req) {
		return
	}
	doc, hit, err := s.runner.OptimizeWithCacheInfo(r.Context(), req, pipeline.OptimizeOptions{})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OptimizeResponse{Result: doc, Cached: hit})
}

func (s *Server) render(w http.ResponseWriter, r *http.Request) {
	var req RenderRequest
	if !s.decode(w, r, &req) {
		return
	}
	f, err := req.Form.Diagram()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	opts := pipeline.RenderOptions{
		Options: nodelink.Options{View: nodelink.View(req.View), Labels: req.Labels, Scale: req.Scale},
		Format:  req.Format,
	}
	data, err := s.runner.Render(r.Context(), f, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", contentType(opts.Format))
	_, _ = w.Write(data)
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if s.runner.Store == nil {
		s.fail(w, r, cemerrors.New(cemerrors.ErrCodeNotFound, "run store not configured"))
		return
	}
	limit := s.opts.DefaultRunLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.fail(w, r, cemerrors.New(cemerrors.ErrCodeInvalidInput, "limit must be a positive integer, got %q", v))
			return
		}
		limit = n
	}
	runs, err := s.runner.Store.List(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RunsResponse{Runs: runs})
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	if s.runner.Store == nil {
		s.fail(w, r, cemerrors.New(cemerrors.ErrCodeNotFound, "run store not configured"))
		return
	}
	run, err := s.runner.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// decode reads a JSON body into v, writing the error response itself on
// failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.opts.MaxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.fail(w, r, cemerrors.Wrap(cemerrors.ErrCodeInvalidFormat, err, "decode request"))
		return false
	}
	return true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	id := RequestID(r.Context())
	if status >= 500 {
		s.logger.Error("request failed", "id", id, "path", r.URL.Path, "error", err)
	} else {
		s.logger.Debug("request rejected", "id", id, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Error: errorBody(err), RequestID: id})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func contentType(format string) string {
	switch format {
	case nodelink.FormatPNG:
		return "image/png"
	case nodelink.FormatDOT:
		return "text/vnd.graphviz"
	default:
		return "image/svg+xml"
	}
}
