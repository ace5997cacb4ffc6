// Package store persists optimization runs.
//
// A [Run] records one optimization request together with its result and a
// few summary fields for listing. [MongoStore] keeps runs in a MongoDB
// collection for `cem serve`; [MemoryStore] keeps them in process.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	cemio "github.com/matzehuels/cem/pkg/io"
)

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// Run is a stored optimization run.
type Run struct {
	ID          string    `bson:"_id" json:"id"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	RequestHash string    `bson:"request_hash" json:"request_hash"`

	Algorithm  string  `bson:"algorithm" json:"algorithm"`
	Status     string  `bson:"status" json:"status"`
	Objective  float64 `bson:"objective" json:"objective"`
	Evals      int     `bson:"evals" json:"evals"`
	Iterations int     `bson:"iterations" json:"iterations"`
	DurationMS int64   `bson:"duration_ms" json:"duration_ms"`

	Request cemio.OptimizeRequest `bson:"request" json:"request"`
	Result  cemio.ResultDoc       `bson:"result" json:"result"`
}

// NewRun builds a run with a fresh ID from a request and its result.
func NewRun(req cemio.OptimizeRequest, requestHash string, res cemio.ResultDoc, algorithm string) *Run {
	return &Run{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
		RequestHash: requestHash,
		Algorithm:   algorithm,
		Status:      res.Status,
		Objective:   res.Objective,
		Evals:       res.Evals,
		Iterations:  res.Iterations,
		DurationMS:  res.DurationMS,
		Request:     req,
		Result:      res,
	}
}

// Store saves and retrieves runs. List returns the newest runs first.
type Store interface {
	Save(ctx context.Context, run *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, limit int) ([]Run, error)
	Close(ctx context.Context) error
}
