// Package config loads the json-repair configuration file used by the
// batch and serve commands.
//
// The file is JSON, but it is passed through the repairing parser before
// decoding, so comments, single quotes and trailing commas are accepted.
// Unknown fields and trailing documents are rejected.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/lattice-substrate/json-repair/internal/log"
	"github.com/lattice-substrate/json-repair/jrfile"
	"github.com/lattice-substrate/json-repair/repair"
)

// Defaults applied before the file is decoded.
const (
	DefaultSuffix       = ".repaired.json"
	DefaultAddr         = "127.0.0.1:8080"
	DefaultReadTimeout  = 10 * time.Second
	DefaultMaxBodyBytes = 8 * 1024 * 1024

	// maxConfigSize bounds the config file itself.
	maxConfigSize = 1024 * 1024
)

// Config is the top-level configuration document.
type Config struct {
	LogLevel     string `json:"log_level"`
	MaxDepth     int    `json:"max_depth"`
	MaxInputSize int    `json:"max_input_size"`
	Batch        Batch  `json:"batch"`
	Server       Server `json:"server"`
}

// Batch configures the batch command.
type Batch struct {
	// Workers is the pool size; 0 means one worker per CPU.
	Workers int `json:"workers"`
	// Suffix replaces the input extension to name the output file.
	Suffix    string `json:"suffix"`
	Overwrite bool   `json:"overwrite"`
}

// Server configures the HTTP service.
type Server struct {
	Addr string `json:"addr"`
	// AllowedOrigins lists CORS origins; empty allows all.
	AllowedOrigins []string `json:"allowed_origins"`
	ReadTimeout    Duration `json:"read_timeout"`
	MaxBodyBytes   int      `json:"max_body_bytes"`
}

// Duration is a time.Duration written as a Go duration string ("10s").
type Duration time.Duration

// UnmarshalJSON accepts a duration string.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"10s\": %w", err)
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalJSON writes the duration string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: log.LevelInfo,
		Batch: Batch{
			Suffix: DefaultSuffix,
		},
		Server: Server{
			Addr:         DefaultAddr,
			ReadTimeout:  Duration(DefaultReadTimeout),
			MaxBodyBytes: DefaultMaxBodyBytes,
		},
	}
}

// Load reads, repairs, decodes, and validates a configuration file.
// Fields missing from the file keep their Default values.
//
//nolint:gosec // config path is explicit operator input.
func Load(path string) (*Config, error) {
	data, err := jrfile.ReadFile(path, maxConfigSize)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse is Load for an in-memory document.
func Parse(data []byte) (*Config, error) {
	data, err := jrfile.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	repaired, err := repair.RepairBytes(data, nil)
	if err != nil {
		return nil, fmt.Errorf("repair config: %w", err)
	}

	c := Default()
	dec := json.NewDecoder(bytes.NewReader(repaired))
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return nil, fmt.Errorf("decode config json: %w", err)
	}
	if err := ensureSingleJSONDocument(dec); err != nil {
		return nil, fmt.Errorf("decode config json: %w", err)
	}
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

func ensureSingleJSONDocument(dec *json.Decoder) error {
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		if err == nil {
			return fmt.Errorf("unexpected trailing json content")
		}
		return fmt.Errorf("decode trailing json token: %w", err)
	}
	return nil
}

// Validate checks field ranges and combinations.
func Validate(c *Config) error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if !log.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level %q (want debug, info, warn or error)", c.LogLevel)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth cannot be negative")
	}
	if c.MaxInputSize < 0 {
		return fmt.Errorf("max_input_size cannot be negative")
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers cannot be negative")
	}
	if !c.Batch.Overwrite {
		if c.Batch.Suffix == "" {
			return fmt.Errorf("batch.suffix is required unless batch.overwrite is set")
		}
		if strings.ContainsRune(c.Batch.Suffix, filepath.Separator) || strings.ContainsRune(c.Batch.Suffix, '/') {
			return fmt.Errorf("batch.suffix %q must not contain a path separator", c.Batch.Suffix)
		}
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Server.ReadTimeout < 0 {
		return fmt.Errorf("server.read_timeout cannot be negative")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive")
	}
	for i, o := range c.Server.AllowedOrigins {
		if o == "" {
			return fmt.Errorf("server.allowed_origins[%d] is empty", i)
		}
	}
	return nil
}

// RepairOptions returns the parser limits configured by c.
func (c *Config) RepairOptions() *repair.Options {
	return &repair.Options{MaxDepth: c.MaxDepth, MaxInputSize: c.MaxInputSize}
}
