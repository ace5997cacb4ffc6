// Package cache stores solved forms, optimization results and rendered
// artifacts behind a small byte-oriented interface.
//
// Three backends are provided:
//
//   - [FileCache]: one JSON file per entry, for the CLI
//   - [RedisCache]: a shared Redis instance, for `cem serve`
//   - [NullCache]: never stores anything
//
// Keys come from a [Keyer], which hashes the inputs that determine a value
// (the topology, the solver options, the render format), so equal inputs
// hit the same entry regardless of how they were produced.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with per-entry expiry. Get reports a miss as
// (nil, false, nil); errors are reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Default lifetimes per entry type.
const (
	TTLForm   = 7 * 24 * time.Hour
	TTLResult = 7 * 24 * time.Hour
	TTLRender = 24 * time.Hour
)

// FormKeyOpts are the solver settings that change a solved form.
type FormKeyOpts struct {
	Eta  float64 `json:"eta"`
	Tmax int     `json:"tmax"`
}

// RenderKeyOpts are the settings that change a rendered artifact.
type RenderKeyOpts struct {
	Format string  `json:"format"`
	View   string  `json:"view"`
	Labels bool    `json:"labels"`
	Scale  float64 `json:"scale"`
}

// Keyer builds cache keys.
type Keyer interface {
	// FormKey is the key of the form solved from a topology.
	FormKey(topologyHash string, opts FormKeyOpts) string
	// ResultKey is the key of an optimization result.
	ResultKey(requestHash string) string
	// RenderKey is the key of a rendered form diagram.
	RenderKey(formHash string, opts RenderKeyOpts) string
}

// DefaultKeyer hashes the key inputs into "<kind>:<sha256>" keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns a [DefaultKeyer].
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

func (DefaultKeyer) FormKey(topologyHash string, opts FormKeyOpts) string {
	return hashKey("form", topologyHash, opts)
}

func (DefaultKeyer) ResultKey(requestHash string) string {
	return hashKey("result", requestHash)
}

func (DefaultKeyer) RenderKey(formHash string, opts RenderKeyOpts) string {
	return hashKey("render", formHash, opts)
}
