// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads sinkgraph settings from YAML or TOML files.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig indicates a setting failed validation.
var ErrInvalidConfig = errors.New("invalid config")

// Defaults.
const (
	DefaultLogLevel       = "warn"
	DefaultMaxFileSize    = 10 * 1024 * 1024
	DefaultIndent         = "  "
	DefaultServerAddr     = ":8080"
	DefaultRequestTimeout = 2 * time.Minute
	DefaultNeo4jBatchSize = 500
)

// DiscoveryNames are the file names Discover looks for, in order.
var DiscoveryNames = []string{"sinkgraph.yaml", "sinkgraph.yml", "sinkgraph.toml"}

// Config holds all sinkgraph settings.
//
// Description:
//
//	All fields are optional. Zero values are replaced by defaults after
//	load. Command-line flags override file values.
//
// Thread Safety: Safe for concurrent reads after Load returns.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging" toml:"logging" json:"logging"`
	Parser   ParserConfig   `yaml:"parser" toml:"parser" json:"parser"`
	Hooks    HooksConfig    `yaml:"hooks" toml:"hooks" json:"hooks"`
	Output   OutputConfig   `yaml:"output" toml:"output" json:"output"`
	Snapshot SnapshotConfig `yaml:"snapshot" toml:"snapshot" json:"snapshot"`
	Neo4j    Neo4jConfig    `yaml:"neo4j" toml:"neo4j" json:"neo4j"`
	Server   ServerConfig   `yaml:"server" toml:"server" json:"server"`
}

// LoggingConfig controls the stderr logger.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error. Default: warn.
	Level string `yaml:"level" toml:"level" json:"level"`
}

// ParserConfig controls Java parsing.
type ParserConfig struct {
	// MaxFileSize is the largest parsed file in bytes. Default: 10MB.
	MaxFileSize int64 `yaml:"max_file_size" toml:"max_file_size" json:"max_file_size"`

	// Workers bounds concurrent parses. Zero means GOMAXPROCS.
	Workers int `yaml:"workers" toml:"workers" json:"workers"`
}

// HooksConfig controls sink matching.
type HooksConfig struct {
	// Catalogue is an optional catalogue file replacing the built-in one.
	Catalogue string `yaml:"catalogue" toml:"catalogue" json:"catalogue"`

	// IncludeConstructors extends the scan to constructor bodies.
	IncludeConstructors bool `yaml:"include_constructors" toml:"include_constructors" json:"include_constructors"`
}

// OutputConfig controls graph rendering.
type OutputConfig struct {
	// Indent is the per-level indentation. Default: two spaces.
	Indent string `yaml:"indent" toml:"indent" json:"indent"`

	// Compact renders without indentation, overriding Indent.
	Compact bool `yaml:"compact" toml:"compact" json:"compact"`

	// Validate checks the output against the schema before writing.
	Validate bool `yaml:"validate" toml:"validate" json:"validate"`

	// MergeUnknown folds partially unresolved nodes into resolved ones.
	MergeUnknown bool `yaml:"merge_unknown" toml:"merge_unknown" json:"merge_unknown"`
}

// SnapshotConfig controls the snapshot store.
type SnapshotConfig struct {
	// Dir is the Badger directory. Empty disables snapshots.
	Dir string `yaml:"dir" toml:"dir" json:"dir"`

	// Label is attached to saved snapshots.
	Label string `yaml:"label" toml:"label" json:"label"`
}

// Neo4jConfig controls graph export. Export is disabled when URI is empty.
type Neo4jConfig struct {
	URI       string `yaml:"uri" toml:"uri" json:"uri"`
	User      string `yaml:"user" toml:"user" json:"user"`
	Password  string `yaml:"password" toml:"password" json:"-"`
	Database  string `yaml:"database" toml:"database" json:"database"`
	Clean     bool   `yaml:"clean" toml:"clean" json:"clean"`
	BatchSize int    `yaml:"batch_size" toml:"batch_size" json:"batch_size"`
}

// ServerConfig controls the HTTP service.
type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr" json:"addr"`

	// RequestTimeout bounds one graph request. Default: 2m.
	RequestTimeout time.Duration `yaml:"request_timeout" toml:"request_timeout" json:"request_timeout"`

	// RateLimit caps graph requests per second. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit" toml:"rate_limit" json:"rate_limit"`

	// RateBurst is the limiter bucket size. Default: 1 when limiting.
	RateBurst int `yaml:"rate_burst" toml:"rate_burst" json:"rate_burst"`
}

// Default returns a Config with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads a config file. The format follows the extension: .yaml and
// .yml use YAML, .toml uses TOML. An empty path returns Default().
//
// Outputs:
//   - *Config: The loaded config with defaults applied and validated.
//   - error: A read or decode error, or ErrInvalidConfig.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var c Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), &c)
		if err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: %s: unknown key %s", ErrInvalidConfig, path, undecoded[0])
		}
	default:
		return nil, fmt.Errorf("%w: unsupported config extension %q", ErrInvalidConfig, ext)
	}

	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

// Discover returns the first of DiscoveryNames present in dir, or "" when
// none exists.
func Discover(dir string) string {
	for _, name := range DiscoveryNames {
		p := filepath.Join(dir, name)
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return p
		}
	}
	return ""
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Parser.MaxFileSize == 0 {
		c.Parser.MaxFileSize = DefaultMaxFileSize
	}
	if c.Output.Indent == "" {
		c.Output.Indent = DefaultIndent
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultServerAddr
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = DefaultRequestTimeout
	}
	if c.Neo4j.BatchSize == 0 {
		c.Neo4j.BatchSize = DefaultNeo4jBatchSize
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst == 0 {
		c.Server.RateBurst = 1
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	switch {
	case c.Parser.MaxFileSize < 0:
		return fmt.Errorf("%w: parser.max_file_size must not be negative", ErrInvalidConfig)
	case c.Parser.Workers < 0:
		return fmt.Errorf("%w: parser.workers must not be negative", ErrInvalidConfig)
	case c.Server.RequestTimeout < 0:
		return fmt.Errorf("%w: server.request_timeout must not be negative", ErrInvalidConfig)
	case c.Server.RateLimit < 0 || c.Server.RateBurst < 0:
		return fmt.Errorf("%w: server rate limit must not be negative", ErrInvalidConfig)
	case c.Neo4j.BatchSize < 0:
		return fmt.Errorf("%w: neo4j.batch_size must not be negative", ErrInvalidConfig)
	case strings.TrimSpace(c.Output.Indent) != "":
		return fmt.Errorf("%w: output.indent must be whitespace", ErrInvalidConfig)
	}
	return nil
}

// RenderIndent returns the indentation to render with, empty for compact.
func (c *Config) RenderIndent() string {
	if c.Output.Compact {
		return ""
	}
	return c.Output.Indent
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, s)
}
