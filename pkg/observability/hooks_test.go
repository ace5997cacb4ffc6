package observability

import (
	"context"
	"testing"
	"time"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	s := NoopSolverHooks{}
	s.OnSolveStart(ctx, 3, 2)
	s.OnSolveComplete(ctx, 12, true, time.Millisecond, nil)

	o := NoopOptimizerHooks{}
	o.OnOptimizeStart(ctx, "lbfgs", 2, 1)
	o.OnEvaluation(ctx, 0.5)
	o.OnOptimizeComplete(ctx, "success", 40, time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "form")
	c.OnCacheMiss(ctx, "form")
	c.OnCacheSet(ctx, "form", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "POST", "localhost:8080", "/v1/solve")
	h.OnResponse(ctx, "POST", "localhost:8080", "/v1/solve", 200, time.Second)
	h.OnError(ctx, "POST", "localhost:8080", "/v1/solve", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()

	if _, ok := Solver().(NoopSolverHooks); !ok {
		t.Error("Solver() should return NoopSolverHooks by default")
	}
	if _, ok := Optimizer().(NoopOptimizerHooks); !ok {
		t.Error("Optimizer() should return NoopOptimizerHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customSolver := &testSolverHooks{}
	SetSolverHooks(customSolver)
	if Solver() != customSolver {
		t.Error("SetSolverHooks should set custom hooks")
	}

	customOptimizer := &testOptimizerHooks{}
	SetOptimizerHooks(customOptimizer)
	if Optimizer() != customOptimizer {
		t.Error("SetOptimizerHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	Reset()
	if _, ok := Solver().(NoopSolverHooks); !ok {
		t.Error("Reset() should restore NoopSolverHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testSolverHooks{}
	SetSolverHooks(custom)
	SetSolverHooks(nil)

	if Solver() != custom {
		t.Error("SetSolverHooks(nil) should be ignored")
	}

	Reset()
}

type testSolverHooks struct{ NoopSolverHooks }
type testOptimizerHooks struct{ NoopOptimizerHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
