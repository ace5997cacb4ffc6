// Package config loads cem settings from a TOML file.
//
// The file lives at $XDG_CONFIG_HOME/cem/config.toml (falling back to
// ~/.config/cem/config.toml). Every key is optional; missing keys keep the
// values of [Default]:
//
//	[solver]
//	eta = 1e-6
//	tmax = 100
//
//	[optimizer]
//	algorithm = "slsqp"
//	iters = 100
//	eps = 1e-8
//	concurrent = 0
//
//	[cache]
//	backend = "file"        # file, redis or none
//	dir = ""                # defaults to $XDG_CACHE_HOME/cem
//	redis_addr = "localhost:6379"
//	ttl = "24h"
//
//	[server]
//	addr = ":8080"
//
//	[store]
//	mongo_uri = ""          # empty disables the run store
//	database = "cem"
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/cem/pkg/equilibrium"
	cemerrors "github.com/matzehuels/cem/pkg/errors"
	"github.com/matzehuels/cem/pkg/optimization"
)

const appName = "cem"

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

type Config struct {
	Solver    Solver    `toml:"solver"`
	Optimizer Optimizer `toml:"optimizer"`
	Cache     Cache     `toml:"cache"`
	Server    Server    `toml:"server"`
	Store     Store     `toml:"store"`
}

type Solver struct {
	Eta  float64 `toml:"eta"`
	Tmax int     `toml:"tmax"`
}

type Optimizer struct {
	Algorithm  string   `toml:"algorithm"`
	Iters      int      `toml:"iters"`
	Eps        *float64 `toml:"eps"`
	Concurrent int      `toml:"concurrent"`
}

type Cache struct {
	Backend   string   `toml:"backend"`
	Dir       string   `toml:"dir"`
	RedisAddr string   `toml:"redis_addr"`
	TTL       Duration `toml:"ttl"`
	// Scope prefixes every cache key, e.g. "bridge-a:". Entries under
	// different scopes never collide on a shared backend.
	Scope string `toml:"scope"`
}

type Server struct {
	Addr string `toml:"addr"`
}

type Store struct {
	MongoURI string `toml:"mongo_uri"`
	Database string `toml:"database"`
}

// Duration is a time.Duration written as a string such as "90m".
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Solver: Solver{Eta: equilibrium.DefaultEta, Tmax: equilibrium.DefaultTmax},
		Optimizer: Optimizer{
			Algorithm: optimization.SLSQP.String(),
			Iters:     100,
		},
		Cache: Cache{
			Backend:   BackendFile,
			RedisAddr: "localhost:6379",
			TTL:       Duration{24 * time.Hour},
		},
		Server: Server{Addr: ":8080"},
		Store:  Store{Database: appName},
	}
}

// Load reads path on top of [Default]. An empty path loads the default
// location and treats a missing file as empty.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	_, err := toml.DecodeFile(path, &cfg)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist) && !explicit:
		return cfg, nil
	case errors.Is(err, os.ErrNotExist):
		return cfg, cemerrors.Wrap(cemerrors.ErrCodeFileNotFound, err, "config %s", path)
	default:
		return cfg, cemerrors.Wrap(cemerrors.ErrCodeInvalidFormat, err, "config %s", path)
	}
	return cfg, cfg.Validate()
}

// Validate checks the values that Load cannot type-check.
func (c Config) Validate() error {
	if _, err := optimization.ParseAlgorithm(c.Optimizer.Algorithm); err != nil {
		return err
	}
	switch c.Cache.Backend {
	case BackendFile, BackendRedis, BackendNone:
	default:
		return cemerrors.New(cemerrors.ErrCodeInvalidInput, "unknown cache backend %q", c.Cache.Backend)
	}
	if err := c.SolverOptions().Validate(); err != nil {
		return err
	}
	opts, err := c.OptimizerOptions()
	if err != nil {
		return err
	}
	return opts.Validate()
}

// SolverOptions returns the configured solver options.
func (c Config) SolverOptions() equilibrium.Options {
	o := equilibrium.DefaultOptions()
	o.Eta, o.Tmax = c.Solver.Eta, c.Solver.Tmax
	return o
}

// OptimizerOptions returns the configured optimizer options. Solver
// settings are shared with [Config.SolverOptions].
func (c Config) OptimizerOptions() (optimization.Options, error) {
	o := optimization.DefaultOptions()
	a, err := optimization.ParseAlgorithm(c.Optimizer.Algorithm)
	if err != nil {
		return o, err
	}
	o.Algorithm = a
	o.Iters = c.Optimizer.Iters
	o.Eps = c.Optimizer.Eps
	o.Concurrent = c.Optimizer.Concurrent
	o.Eta, o.Tmax = c.Solver.Eta, c.Solver.Tmax
	return o, nil
}

// Path returns the default config file location.
func Path() (string, error) {
	if home := os.Getenv("XDG_CONFIG_HOME"); home != "" {
		return filepath.Join(home, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// CacheDir returns the cache directory: Cache.Dir if set, else
// $XDG_CACHE_HOME/cem or ~/.cache/cem.
func (c Config) CacheDir() (string, error) {
	if c.Cache.Dir != "" {
		return c.Cache.Dir, nil
	}
	if home := os.Getenv("XDG_CACHE_HOME"); home != "" {
		return filepath.Join(home, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
