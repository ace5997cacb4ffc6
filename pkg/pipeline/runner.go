package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/cem/pkg/cache"
	"github.com/matzehuels/cem/pkg/equilibrium"
	cemerrors "github.com/matzehuels/cem/pkg/errors"
	"github.com/matzehuels/cem/pkg/form"
	cemio "github.com/matzehuels/cem/pkg/io"
	"github.com/matzehuels/cem/pkg/observability"
	"github.com/matzehuels/cem/pkg/render/nodelink"
	"github.com/matzehuels/cem/pkg/store"
	"github.com/matzehuels/cem/pkg/topology"
)

// Runner executes jobs with caching.
//
// The Runner holds no job state, so one Runner can serve concurrent
// requests with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Store, when set, records every optimization run that was not served
	// from cache.
	Store store.Store

	// TTL, when set, replaces the per-kind cache lifetimes.
	TTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
	}
}

// SolveWithCacheInfo computes the form of a built topology and reports
// whether it came from the cache.
func (r *Runner) SolveWithCacheInfo(ctx context.Context, topo *topology.Diagram, opts SolveOptions) (*form.Diagram, bool, error) {
	if !topo.Built() {
		return nil, false, cemerrors.Wrap(cemerrors.ErrCodeTopology, equilibrium.ErrNotDecomposed, "solve")
	}
	if err := opts.Solver.Validate(); err != nil {
		return nil, false, err
	}
	if opts.Solver.Logger == nil {
		opts.Solver.Logger = r.Logger
	}

	topoHash, err := cache.HashJSON(cemio.EncodeTopology(topo))
	if err != nil {
		return nil, false, fmt.Errorf("hash topology: %w", err)
	}
	key := r.Keyer.FormKey(topoHash, cache.FormKeyOpts{Eta: opts.Solver.Eta, Tmax: opts.Solver.Tmax})

	if !opts.Refresh {
		var doc cemio.FormDoc
		if r.lookup(ctx, "form", key, &doc) {
			if f, err := doc.Diagram(); err == nil {
				return f, true, nil
			}
		}
	}

	start := time.Now()
	f, err := equilibrium.StaticEquilibrium(ctx, topo, opts.Solver)
	if err != nil {
		return nil, false, err
	}
	st := f.Status()
	r.Logger.Info("solved form",
		"nodes", topo.NodeCount(),
		"trails", topo.TrailCount(),
		"iterations", st.Iterations,
		"converged", st.Converged,
		"duration", time.Since(start))

	r.store(ctx, "form", key, cemio.EncodeForm(f), cache.TTLForm)
	return f, false, nil
}

// Solve is a convenience wrapper that calls SolveWithCacheInfo and discards the cache hit info.
func (r *Runner) Solve(ctx context.Context, topo *topology.Diagram, opts SolveOptions) (*form.Diagram, error) {
	f, _, err := r.SolveWithCacheInfo(ctx, topo, opts)
	return f, err
}

// RequestHash is the cache identity of an optimization request. The
// concurrency setting does not change results and is left out.
func RequestHash(req cemio.OptimizeRequest) (string, error) {
	req.Options.Concurrent = 0
	return cache.HashJSON(req)
}

// OptimizeWithCacheInfo runs an optimization request and reports whether
// the result came from the cache.
func (r *Runner) OptimizeWithCacheInfo(ctx context.Context, req cemio.OptimizeRequest, opts OptimizeOptions) (cemio.ResultDoc, bool, error) {
	topo, opt, optOpts, err := req.Problem()
	if err != nil {
		return cemio.ResultDoc{}, false, err
	}

	reqHash, err := RequestHash(req)
	if err != nil {
		return cemio.ResultDoc{}, false, fmt.Errorf("hash request: %w", err)
	}
	key := r.Keyer.ResultKey(reqHash)

	if !opts.Refresh {
		var doc cemio.ResultDoc
		if r.lookup(ctx, "result", key, &doc) {
			return doc, true, nil
		}
	}

	optOpts.Logger = r.Logger
	optOpts.Callback = opts.Callback
	res, err := opt.Solve(ctx, topo, optOpts)
	if err != nil {
		return cemio.ResultDoc{}, false, err
	}
	doc := cemio.EncodeResult(res)

	r.store(ctx, "result", key, doc, cache.TTLResult)
	if r.Store != nil {
		run := store.NewRun(req, reqHash, doc, optOpts.Algorithm.String())
		if err := r.Store.Save(ctx, run); err != nil {
			r.Logger.Warn("failed to record run", "error", err)
		} else {
			r.Logger.Debug("recorded run", "id", run.ID)
		}
	}
	return doc, false, nil
}

// Optimize is a convenience wrapper that calls OptimizeWithCacheInfo and discards the cache hit info.
func (r *Runner) Optimize(ctx context.Context, req cemio.OptimizeRequest, opts OptimizeOptions) (cemio.ResultDoc, error) {
	doc, _, err := r.OptimizeWithCacheInfo(ctx, req, opts)
	return doc, err
}

// RenderWithCacheInfo draws a form diagram and reports whether the artifact
// came from the cache.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, f *form.Diagram, opts RenderOptions) ([]byte, bool, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, false, err
	}

	formHash, err := cache.HashJSON(cemio.EncodeForm(f))
	if err != nil {
		return nil, false, fmt.Errorf("hash form: %w", err)
	}
	key := r.Keyer.RenderKey(formHash, cache.RenderKeyOpts{
		Format: opts.Format,
		View:   string(opts.View),
		Labels: opts.Labels,
		Scale:  opts.Scale,
	})

	if !opts.Refresh {
		if data, hit, err := r.Cache.Get(ctx, key); err == nil && hit {
			observability.Cache().OnCacheHit(ctx, "render")
			return data, true, nil
		}
		observability.Cache().OnCacheMiss(ctx, "render")
	}

	data, err := nodelink.Render(ctx, nodelink.FormDOT(f, opts.Options), opts.Format)
	if err != nil {
		return nil, false, err
	}
	if err := r.Cache.Set(ctx, key, data, r.ttl(cache.TTLRender)); err != nil {
		r.Logger.Warn("cache write failed", "kind", "render", "error", err)
	} else {
		observability.Cache().OnCacheSet(ctx, "render", len(data))
	}
	return data, false, nil
}

// Render is a convenience wrapper that calls RenderWithCacheInfo and discards the cache hit info.
func (r *Runner) Render(ctx context.Context, f *form.Diagram, opts RenderOptions) ([]byte, error) {
	data, _, err := r.RenderWithCacheInfo(ctx, f, opts)
	return data, err
}

// RenderTopology draws a topology diagram at its input positions. Topology
// drawings are cheap and are not cached.
func (r *Runner) RenderTopology(ctx context.Context, topo *topology.Diagram, opts RenderOptions) ([]byte, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return nodelink.Render(ctx, nodelink.TopologyDOT(topo, opts.Options), opts.Format)
}

// Close releases resources held by the runner.
func (r *Runner) Close(ctx context.Context) error {
	var err error
	if r.Cache != nil {
		err = r.Cache.Close()
	}
	if r.Store != nil {
		if serr := r.Store.Close(ctx); err == nil {
			err = serr
		}
	}
	return err
}

// lookup decodes a cached JSON document into v. Undecodable entries count
// as misses.
func (r *Runner) lookup(ctx context.Context, kind, key string, v any) bool {
	hooks := observability.Cache()
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "kind", kind, "error", err)
	}
	if err != nil || !hit {
		hooks.OnCacheMiss(ctx, kind)
		return false
	}
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		r.Logger.Debug("discarding cache entry", "kind", kind, "error", err)
		hooks.OnCacheMiss(ctx, kind)
		return false
	}
	hooks.OnCacheHit(ctx, kind)
	r.Logger.Debug("cache hit", "kind", kind)
	return true
}

func (r *Runner) store(ctx context.Context, kind, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		r.Logger.Warn("cache encode failed", "kind", kind, "error", err)
		return
	}
	if err := r.Cache.Set(ctx, key, data, r.ttl(ttl)); err != nil {
		r.Logger.Warn("cache write failed", "kind", kind, "error", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, kind, len(data))
}

func (r *Runner) ttl(def time.Duration) time.Duration {
	if r.TTL > 0 {
		return r.TTL
	}
	return def
}
