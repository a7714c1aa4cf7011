package cache

import (
	"context"
	"fmt"
	"net/http"
)

// Config carries just the fields factory.New needs to pick and build a backend.
type Config struct {
	Mode         string // "direct" or "http"
	RedisAddr    string
	HTTPURL      string
	HTTPToken    string
	HTTPClient   *http.Client
}

// Backend constructors are injected so this package never imports the
// concrete redisstore/httpstore packages (they import cache for the
// Interface, so a direct import back would cycle).
type (
	DirectCtor func(ctx context.Context, addr string) (Interface, error)
	HTTPCtor   func(baseURL, token string, client *http.Client) (Interface, error)
)

// New selects a backend per spec §4.1: direct if requested and an address
// is configured, otherwise HTTP. Failure to initialize either backend is
// an explicit error from New, so main can decide whether to run degraded
// (operations will then surface absent-on-read/error-on-write per spec).
func New(ctx context.Context, cfg Config, direct DirectCtor, httpBackend HTTPCtor) (Interface, error) {
	wantDirect := cfg.Mode == "direct" && cfg.RedisAddr != ""
	if wantDirect {
		c, err := direct(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("cache: direct backend: %w", err)
		}
		return c, nil
	}
	if cfg.HTTPURL == "" {
		return nil, fmt.Errorf("cache: no direct redis address and no http cache url configured")
	}
	c, err := httpBackend(cfg.HTTPURL, cfg.HTTPToken, cfg.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("cache: http backend: %w", err)
	}
	return c, nil
}
