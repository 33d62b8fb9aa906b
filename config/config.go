// Copyright © 2025-2026 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

// Initial reference and motivation taken from the environment-variable
// credential resolution idiom in values/mongo.go: look up a variable,
// falling back to a documented default when unset.

package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/go-core-stack/tokenpool/errors"
)

const (
	// EnvDatabaseURL is the store connection string; dialect is chosen
	// from its scheme ("postgres://..." vs "sqlite://"/"file:").
	EnvDatabaseURL = "DATABASE_URL"

	// EnvPort is the listen port of the (external) HTTP transport.
	EnvPort = "PORT"

	// EnvNodes is the number of nodes to ensure at seed time.
	EnvNodes = "NODES"

	// EnvNodeBudget is the per-node capacity at seed time.
	EnvNodeBudget = "NODE_BUDGET"

	// EnvAllocStrategy is the initial placement strategy.
	EnvAllocStrategy = "ALLOC_STRATEGY"

	// EnvLargeRequestRatio is the large-request override threshold,
	// expressed as a ratio of NODE_BUDGET.
	EnvLargeRequestRatio = "LARGE_REQUEST_RATIO"

	// EnvRateLimitEnabled toggles the admission-control rate limiter.
	EnvRateLimitEnabled = "RATE_LIMIT_ENABLED"

	// EnvRateLimitCapacity is the per-key token bucket burst size.
	EnvRateLimitCapacity = "RATE_LIMIT_CAPACITY"

	// EnvRateLimitRPS is the per-key token bucket refill rate.
	EnvRateLimitRPS = "RATE_LIMIT_RPS"

	// EnvRateLimitMaxKeys bounds how many distinct client keys the rate
	// limiter tracks at once before evicting the least-recently-used one.
	EnvRateLimitMaxKeys = "RATE_LIMIT_MAX_KEYS"

	// EnvDBPoolSize is the production dialect's connection pool size.
	EnvDBPoolSize = "DB_POOL_SIZE"

	// EnvDBMaxOverflow is the production dialect's pool overflow budget.
	EnvDBMaxOverflow = "DB_MAX_OVERFLOW"

	// EnvDBPoolTimeout is the production dialect's pool timeout, in
	// seconds: the idle lifetime of a pooled connection and the timeout
	// of the startup ping.
	EnvDBPoolTimeout = "DB_POOL_TIMEOUT"
)

const (
	defaultPort                = 3000
	defaultNodes               = 2
	defaultNodeBudget          = 300
	defaultAllocStrategy       = "best"
	defaultLargeRequestRatio   = 0.5
	defaultRateLimitEnabled    = true
	defaultRateLimitCapacity   = 20
	defaultRateLimitRPS        = 5.0
	defaultRateLimitMaxKeys    = 10000
	defaultDBPoolSize          = 10
	defaultDBMaxOverflow       = 5
	defaultDBPoolTimeoutSecond = 30
)

// Settings is the fully resolved, typed configuration for the allocation
// service. It is materialized once at process start by Resolve and passed
// explicitly to the components that need it; nothing in this package
// reads the environment after Resolve returns.
type Settings struct {
	DatabaseURL string
	Port        int

	Nodes      int
	NodeBudget int

	AllocStrategy     string
	LargeRequestRatio float64

	RateLimitEnabled  bool
	RateLimitCapacity int64
	RateLimitRPS      float64
	RateLimitMaxKeys  int

	DBPoolSize    int
	DBMaxOverflow int
	DBPoolTimeout int
}

// Resolve materializes a Settings value from the process environment.
// DATABASE_URL has no default: it is left empty when unset, and Resolve
// does not reject that (store.DialectFromURL does). Every other field
// falls back to a documented default.
func Resolve() (*Settings, error) {
	s := &Settings{
		DatabaseURL: os.Getenv(EnvDatabaseURL),
		Port:        envInt(EnvPort, defaultPort),

		Nodes:      envInt(EnvNodes, defaultNodes),
		NodeBudget: envInt(EnvNodeBudget, defaultNodeBudget),

		AllocStrategy:     envString(EnvAllocStrategy, defaultAllocStrategy),
		LargeRequestRatio: envFloat(EnvLargeRequestRatio, defaultLargeRequestRatio),

		RateLimitEnabled:  envBool(EnvRateLimitEnabled, defaultRateLimitEnabled),
		RateLimitCapacity: int64(envInt(EnvRateLimitCapacity, defaultRateLimitCapacity)),
		RateLimitRPS:      envFloat(EnvRateLimitRPS, defaultRateLimitRPS),
		RateLimitMaxKeys:  envInt(EnvRateLimitMaxKeys, defaultRateLimitMaxKeys),

		DBPoolSize:    envInt(EnvDBPoolSize, defaultDBPoolSize),
		DBMaxOverflow: envInt(EnvDBMaxOverflow, defaultDBMaxOverflow),
		DBPoolTimeout: envInt(EnvDBPoolTimeout, defaultDBPoolTimeoutSecond),
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Settings) validate() error {
	if s.Nodes <= 0 {
		return errors.Wrapf(errors.InvalidArgument, "NODES must be positive, got %d", s.Nodes)
	}
	if s.NodeBudget <= 0 {
		return errors.Wrapf(errors.InvalidArgument, "NODE_BUDGET must be positive, got %d", s.NodeBudget)
	}
	switch s.AllocStrategy {
	case "best", "largest":
	default:
		return errors.Wrapf(errors.InvalidArgument, "ALLOC_STRATEGY must be %q or %q, got %q", "best", "largest", s.AllocStrategy)
	}
	if s.LargeRequestRatio <= 0 || s.LargeRequestRatio > 1 {
		return errors.Wrapf(errors.InvalidArgument, "LARGE_REQUEST_RATIO must be in (0, 1], got %v", s.LargeRequestRatio)
	}
	return nil
}

// LargeRequestThreshold returns the absolute token count, derived from
// LargeRequestRatio and NodeBudget, at or above which the fragmentation
// override applies.
func (s *Settings) LargeRequestThreshold() int {
	return int(s.LargeRequestRatio * float64(s.NodeBudget))
}

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envBool(key string, fallback bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
