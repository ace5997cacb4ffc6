// Package httputil provides retry and response helpers for HTTP clients.
//
// [Retry] repeats an operation with exponential backoff while it fails with
// a [RetryableError]. [CheckResponse] turns non-2xx responses into a
// [StatusError] and marks 429 and 5xx responses as retryable, so the two
// compose:
//
//	err := httputil.RetryWithBackoff(ctx, func() error {
//	    resp, err := client.Do(req)
//	    if err != nil {
//	        return httputil.Retryable(err)
//	    }
//	    defer resp.Body.Close()
//	    if err := httputil.CheckResponse(resp); err != nil {
//	        return err
//	    }
//	    return json.NewDecoder(resp.Body).Decode(&out)
//	})
package httputil
