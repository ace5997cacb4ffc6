package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// syncBuffer guards a bytes.Buffer written by the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinnerDrawsAndUpdates(t *testing.T) {
	var out syncBuffer
	s := newSpinnerTo(context.Background(), &out, "Solving...")
	s.Start()
	time.Sleep(120 * time.Millisecond)
	s.Update("iteration 3")
	time.Sleep(120 * time.Millisecond)
	s.Stop()

	got := out.String()
	assert.Contains(t, got, "Solving...")
	assert.Contains(t, got, "iteration 3")
	assert.True(t, strings.HasSuffix(got, "\r"), "Stop clears the line")
	assert.False(t, s.Cancelled())
}

func TestSpinnerStopIsIdempotent(t *testing.T) {
	var out syncBuffer
	s := newSpinnerTo(context.Background(), &out, "Testing...")
	s.Start()
	s.Stop()
	s.Stop()
	s.Stop()
}

func TestSpinnerCancelledByContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var out syncBuffer
	s := newSpinnerTo(ctx, &out, "Testing with timeout...")
	s.Start()
	time.Sleep(100 * time.Millisecond)
	assert.True(t, s.Cancelled())
	s.Stop()
}
