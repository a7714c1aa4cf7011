// Package source loads JSON-declared collectors (spec §3 "Source
// declaration", §4.6, §9 "Generic source declarations"): a typed
// config struct validated eagerly at startup, one file at a time, so a
// malformed declaration is rejected and logged before its first tick
// instead of failing silently later — without taking every other
// declared source (or the worker's built-in collectors) down with it.
package source

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const schemaFileName = "schema.json"

type FetchDecl struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Timeout int               `json:"timeout"`
}

type ScheduleDecl struct {
	IntervalMs int `json:"intervalMs"`
	TTLSeconds int `json:"ttlSeconds"`
}

type RedisDecl struct {
	Key string `json:"key"`
}

type TransformDecl struct {
	DataPath string            `json:"dataPath"`
	Fields   map[string]string `json:"fields"`
	Filter   map[string]any    `json:"filter"`
}

type AuthType string

const (
	AuthNone   AuthType = ""
	AuthBearer AuthType = "bearer"
	AuthBasic  AuthType = "basic"
	AuthAPIKey AuthType = "apikey"
)

type AuthDecl struct {
	Type   AuthType `json:"type"`
	EnvVar string   `json:"envVar"`
	Header string   `json:"header"`
}

// Declaration is one JSON file's worth of generic-collector config.
type Declaration struct {
	Name      string        `json:"name"`
	Enabled   *bool         `json:"enabled"`
	Fetch     FetchDecl     `json:"fetch"`
	Schedule  ScheduleDecl  `json:"schedule"`
	Redis     RedisDecl     `json:"redis"`
	Transform TransformDecl `json:"transform"`
	Auth      *AuthDecl     `json:"auth"`

	file string
}

func (d Declaration) IsEnabled() bool {
	return d.Enabled == nil || *d.Enabled
}

func (d Declaration) Interval() time.Duration {
	return time.Duration(d.Schedule.IntervalMs) * time.Millisecond
}

func (d Declaration) TTL() time.Duration {
	return time.Duration(d.Schedule.TTLSeconds) * time.Second
}

func (d Declaration) FetchTimeout() time.Duration {
	if d.Fetch.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(d.Fetch.Timeout) * time.Millisecond
}

// Load enumerates the JSON files in dir (skipping schema.json) and
// parses + validates each one. A malformed declaration is logged and
// skipped rather than aborting the scan, so one bad file doesn't take
// down every other source (or the worker's unrelated collectors,
// which never even touch this directory). Only a directory-level
// failure (missing permissions, not a directory) is returned as an
// error.
func Load(dir string, log zerolog.Logger) ([]Declaration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("source: read dir %q: %w", dir, err)
	}

	var out []Declaration
	for _, e := range entries {
		if e.IsDir() || e.Name() == schemaFileName || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("source: failed to read declaration, skipping")
			continue
		}
		var d Declaration
		if err := json.Unmarshal(raw, &d); err != nil {
			log.Warn().Err(err).Str("file", path).Msg("source: failed to parse declaration, skipping")
			continue
		}
		d.file = path
		if err := validate(d); err != nil {
			log.Warn().Err(err).Str("file", path).Msg("source: invalid declaration, skipping")
			continue
		}
		if !d.IsEnabled() {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func validate(d Declaration) error {
	if d.Name == "" {
		return fmt.Errorf("missing name")
	}
	if d.Fetch.URL == "" {
		return fmt.Errorf("missing fetch.url")
	}
	if d.Redis.Key == "" {
		return fmt.Errorf("missing redis.key")
	}
	if d.Schedule.IntervalMs <= 0 {
		return fmt.Errorf("schedule.intervalMs must be positive")
	}
	if d.Schedule.TTLSeconds <= 0 {
		return fmt.Errorf("schedule.ttlSeconds must be positive")
	}
	if float64(d.Schedule.TTLSeconds) < 1.5*float64(d.Schedule.IntervalMs)/1000 {
		return fmt.Errorf("ttlSeconds must be >= 1.5x intervalMs/1000")
	}
	if d.Auth != nil {
		switch d.Auth.Type {
		case AuthBearer, AuthBasic:
			if d.Auth.EnvVar == "" {
				return fmt.Errorf("auth.envVar required for type %q", d.Auth.Type)
			}
		case AuthAPIKey:
			if d.Auth.EnvVar == "" || d.Auth.Header == "" {
				return fmt.Errorf("auth.envVar and auth.header required for type apikey")
			}
		default:
			return fmt.Errorf("unknown auth.type %q", d.Auth.Type)
		}
	}
	for out, path := range d.Transform.Fields {
		if out == "" || path == "" {
			return fmt.Errorf("transform.fields has an empty key or path")
		}
	}
	return nil
}
