package proxy

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/matzehuels/cem/pkg/buildinfo"
	cemerrors "github.com/matzehuels/cem/pkg/errors"
	cemio "github.com/matzehuels/cem/pkg/io"
	"github.com/matzehuels/cem/pkg/store"
)

// Routes.
const (
	PathHealth   = "/healthz"
	PathSolve    = "/v1/solve"
	PathOptimize = "/v1/optimize"
	PathRender   = "/v1/render"
	PathRuns     = "/v1/runs"
)

// HeaderRequestID carries the request ID in both directions.
const HeaderRequestID = "X-Request-ID"

type HealthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

type SolveResponse struct {
	Form   cemio.FormDoc `json:"form"`
	Cached bool          `json:"cached"`
}

type OptimizeResponse struct {
	Result cemio.ResultDoc `json:"result"`
	Cached bool            `json:"cached"`
}

// RenderRequest asks for a drawing of a solved form. Zero fields keep the
// renderer defaults.
type RenderRequest struct {
	Form   cemio.FormDoc `json:"form"`
	Format string        `json:"format,omitempty"`
	View   string        `json:"view,omitempty"`
	Labels bool          `json:"labels,omitempty"`
	Scale  float64       `json:"scale,omitempty"`
}

type RunsResponse struct {
	Runs []store.Run `json:"runs"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     ErrorBody `json:"error"`
	RequestID string    `json:"request_id,omitempty"`
}

type ErrorBody struct {
	Code    cemerrors.Code `json:"code"`
	Message string         `json:"message"`
}

// StatusFor maps an error to the HTTP status reported for it.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded), cemerrors.Has(err, cemerrors.ErrCodeTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrNotFound), cemerrors.Has(err, cemerrors.ErrCodeNotFound):
		return http.StatusNotFound
	case cemerrors.Has(err, cemerrors.ErrCodeTopology), cemerrors.Has(err, cemerrors.ErrCodeParameter):
		return http.StatusUnprocessableEntity
	}
	switch cemerrors.GetCode(err) {
	case cemerrors.ErrCodeInvalidInput, cemerrors.ErrCodeInvalidFormat,
		cemerrors.ErrCodeInvalidAlgorithm, cemerrors.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case cemerrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// errorBody builds the wire form of err. Errors without a code are
// reported as internal errors.
func errorBody(err error) ErrorBody {
	code := cemerrors.GetCode(err)
	switch {
	case errors.Is(err, store.ErrNotFound):
		code = cemerrors.ErrCodeNotFound
	case errors.Is(err, context.DeadlineExceeded):
		code = cemerrors.ErrCodeTimeout
	case code == "":
		code = cemerrors.ErrCodeInternal
	}
	return ErrorBody{Code: code, Message: strings.TrimPrefix(err.Error(), string(code)+": ")}
}
