package httputil

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of an error response is kept.
const maxErrorBody = 4 << 10

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("http %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// RetryableStatus reports whether a response with this status is worth
// retrying: 429 and every 5xx except 501.
func RetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests ||
		(code >= 500 && code != http.StatusNotImplemented)
}

// CheckResponse returns nil for a 2xx response. Otherwise it reads up to
// 4 KiB of the body into a [StatusError], marked retryable when
// [RetryableStatus] allows it. The body is not closed.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	err := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	if RetryableStatus(resp.StatusCode) {
		return Retryable(err)
	}
	return err
}
