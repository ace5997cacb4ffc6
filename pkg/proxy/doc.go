// Package proxy runs form-finding jobs across an HTTP boundary.
//
// [Server] exposes a [pipeline.Runner] over JSON:
//
//	GET  /healthz        build information
//	POST /v1/solve       cemio.SolveRequest     → SolveResponse
//	POST /v1/optimize    cemio.OptimizeRequest  → OptimizeResponse
//	POST /v1/render      RenderRequest          → SVG, PNG or DOT bytes
//	GET  /v1/runs        recorded optimization runs, newest first
//	GET  /v1/runs/{id}   one recorded run
//
// Every response carries an X-Request-ID header. Failures are returned as
// an [ErrorResponse] whose code is the [cemerrors.Code] of the failure, and
// [Client] turns them back into coded errors, so callers can test a remote
// failure with cemerrors.Is exactly as they would a local one.
//
// [Client] retries network errors and 429/5xx responses with backoff. Both
// solve and optimize are deterministic, so retrying them is safe.
//
// [cemerrors.Code]: github.com/matzehuels/cem/pkg/errors
// [pipeline.Runner]: github.com/matzehuels/cem/pkg/pipeline
package proxy
