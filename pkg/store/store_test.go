package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	cemio "github.com/matzehuels/cem/pkg/io"
)

func sampleRun(t *testing.T, objective float64) *Run {
	t.Helper()
	length := 1.0
	req := cemio.OptimizeRequest{
		Topology: cemio.TopologyDoc{
			Nodes:    []cemio.NodeDoc{{ID: 0}, {ID: 1, Position: [3]float64{0, 0, -1}}},
			Edges:    []cemio.EdgeDoc{{Kind: "trail", U: 0, V: 1, Length: &length}},
			Loads:    []cemio.LoadDoc{{Node: 1, Vector: [3]float64{0, 0, -1}}},
			Supports: []cemio.SupportDoc{{Node: 0}},
		},
		Constraints: []cemio.ConstraintDoc{{Type: "point", Node: 1, Target: &[3]float64{0, 0, -2}}},
		Parameters:  []cemio.ParameterDoc{{Type: "trail_length", Edge: 0, Low: 1, Up: 1}},
	}
	res := cemio.ResultDoc{Objective: objective, Evals: 12, Iterations: 3, Status: "success", Values: []float64{2}}
	return NewRun(req, "hash", res, "SLSQP")
}

func TestNewRun(t *testing.T) {
	r := sampleRun(t, 0.5)
	_, err := uuid.Parse(r.ID)
	require.NoError(t, err)
	assert.Equal(t, "success", r.Status)
	assert.Equal(t, 12, r.Evals)
	assert.Equal(t, 0.5, r.Objective)
	assert.False(t, r.CreatedAt.IsZero())
}

func TestRunDocumentMapping(t *testing.T) {
	r := sampleRun(t, 0.25)

	raw, err := bson.Marshal(r)
	require.NoError(t, err)

	var fields bson.M
	require.NoError(t, bson.Unmarshal(raw, &fields))
	assert.Equal(t, r.ID, fields["_id"])
	assert.Contains(t, fields, "created_at")
	assert.Contains(t, fields, "request_hash")
	assert.Contains(t, fields, "request")

	var back Run
	require.NoError(t, bson.Unmarshal(raw, &back))
	assert.Equal(t, r.ID, back.ID)
	assert.True(t, r.CreatedAt.Equal(back.CreatedAt))
	assert.Equal(t, r.Request, back.Request)
	assert.Equal(t, r.Result.Values, back.Result.Values)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("CEM_MONGO_URI")
	if uri == "" {
		t.Skip("CEM_MONGO_URI not set")
	}
	ctx := context.Background()
	s, err := NewMongoStore(ctx, uri, "cem_test_"+uuid.NewString()[:8])
	require.NoError(t, err)
	defer func() {
		_ = s.runs.Database().Drop(ctx)
		_ = s.Close(ctx)
	}()
	exerciseStore(t, s)
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	older := sampleRun(t, 1)
	older.CreatedAt = older.CreatedAt.Add(-time.Minute)
	newer := sampleRun(t, 2)
	require.NoError(t, s.Save(ctx, older))
	require.NoError(t, s.Save(ctx, newer))

	got, err := s.Get(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, older.Objective, got.Objective)
	assert.Equal(t, older.Request, got.Request)

	_, err = s.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	runs, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Empty(t, runs[0].Request.Constraints)

	runs, err = s.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}
