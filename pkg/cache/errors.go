package cache

import (
	"context"
	"errors"
	"fmt"

	cemerrors "github.com/matzehuels/cem/pkg/errors"
)

// ErrUnknownBackend is returned by [Open] for an unsupported backend name.
var ErrUnknownBackend = errors.New("unknown cache backend")

// Backend names accepted by [Open].
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Options selects and configures a backend for [Open].
type Options struct {
	Backend   string
	Dir       string // file backend
	RedisAddr string // redis backend
}

// Open creates the cache described by opts. The redis backend is pinged
// before it is returned.
func Open(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case BackendFile:
		c, err := NewFileCache(opts.Dir)
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendRedis:
		c, err := NewRedisCache(ctx, RedisOptions{Addr: opts.RedisAddr})
		if err != nil {
			return nil, err
		}
		return c, nil
	case BackendNone, "":
		return NewNullCache(), nil
	default:
		return nil, cemerrors.Wrap(cemerrors.ErrCodeInvalidInput,
			fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend), "open cache")
	}
}
