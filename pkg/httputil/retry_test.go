package httputil

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	fast := Policy{Attempts: 3, Delay: time.Millisecond}
	permanent := errors.New("bad request")

	tests := []struct {
		name      string
		errs      []error
		wantCalls int
		wantErr   error
	}{
		{"success", []error{nil}, 1, nil},
		{"permanent", []error{permanent}, 1, permanent},
		{"recovers", []error{Retryable(errors.New("x")), nil}, 2, nil},
		{"exhausted", []error{Retryable(permanent), Retryable(permanent), Retryable(permanent)}, 3, permanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			err := Retry(context.Background(), fast, func() error {
				err := tt.errs[calls]
				calls++
				return err
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRetryCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, Policy{Attempts: 5, Delay: time.Hour}, func() error {
		return Retryable(errors.New("down"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestRetryableNil(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should be nil")
	}
	if IsRetryable(errors.New("x")) {
		t.Error("plain error reported retryable")
	}
}

func TestCheckResponse(t *testing.T) {
	tests := []struct {
		code      int
		wantErr   bool
		retryable bool
	}{
		{200, false, false},
		{204, false, false},
		{400, true, false},
		{404, true, false},
		{429, true, true},
		{500, true, true},
		{501, true, false},
		{503, true, true},
	}
	for _, tt := range tests {
		resp := &http.Response{StatusCode: tt.code, Body: io.NopCloser(strings.NewReader(" boom \n"))}
		err := CheckResponse(resp)
		if (err != nil) != tt.wantErr {
			t.Errorf("CheckResponse(%d) error = %v, wantErr %v", tt.code, err, tt.wantErr)
			continue
		}
		if err == nil {
			continue
		}
		if IsRetryable(err) != tt.retryable {
			t.Errorf("CheckResponse(%d) retryable = %v, want %v", tt.code, IsRetryable(err), tt.retryable)
		}
		var se *StatusError
		if !errors.As(err, &se) || se.StatusCode != tt.code || se.Body != "boom" {
			t.Errorf("CheckResponse(%d) = %#v", tt.code, err)
		}
	}
}
