// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package config

import (
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/tochemey/emustate/internal/compression"
	"github.com/tochemey/emustate/internal/manifest"
	"github.com/tochemey/emustate/internal/validation"
	"github.com/tochemey/emustate/log"
	"github.com/tochemey/emustate/serialization"
)

const (
	// DefaultBaseDir is the persistence root used when none is configured
	DefaultBaseDir = "/persisted-data"
	// DefaultFlushInterval is the period between two flushes of dirty services
	DefaultFlushInterval = 10 * time.Second
	// DefaultLoadConcurrency bounds the number of services loaded at once on startup
	DefaultLoadConcurrency = 4

	defaultServiceKey = "default"
)

// Config represents the persistence configuration
type Config struct {
	// Specifies the directory under which every service persists its state.
	// The default value is /persisted-data
	BaseDir string
	// Specifies the encodings written on every save, in declaration order.
	// The default value is [json]
	Formats []serialization.Format
	// Specifies the compression applied to the binary encoding.
	// The default value is none
	Compression compression.Algorithm
	// Specifies how often dirty services are flushed. The default value is 10s
	FlushInterval time.Duration
	// Specifies how many services are loaded concurrently on startup.
	// The default value is 4
	LoadConcurrency int
	// Specifies the services explicitly enabled or disabled, keyed by
	// normalised service name
	Services map[string]bool
	// Specifies whether services absent from Services are persisted.
	// The default value is true
	DefaultEnabled bool
	// Specifies the logger to use
	Logger log.Logger
}

// New creates an instance of Config
func New(opts ...Option) (*Config, error) {
	config := defaultConfig()
	for _, opt := range opts {
		opt.Apply(config)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Default returns the default configuration
func Default() *Config {
	return defaultConfig()
}

func defaultConfig() *Config {
	return &Config{
		BaseDir:         DefaultBaseDir,
		Formats:         []serialization.Format{serialization.FormatJSON},
		Compression:     compression.None,
		FlushInterval:   DefaultFlushInterval,
		LoadConcurrency: DefaultLoadConcurrency,
		Services:        make(map[string]bool),
		DefaultEnabled:  true,
		Logger:          log.DefaultLogger,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	return validation.New(validation.AllErrors()).
		AddValidator(validation.NewDirectoryValidator(c.BaseDir)).
		AddAssertion(len(c.Formats) > 0, "at least one serialization format is required").
		AddAssertion(c.FlushInterval > 0, "flush interval must be positive").
		AddAssertion(c.LoadConcurrency > 0, "load concurrency must be positive").
		AddAssertion(c.Logger != nil, "logger is required").
		Validate()
}

// Enabled reports whether the given service is persisted
func (c *Config) Enabled(service string) bool {
	if enabled, ok := c.Services[NormalizeServiceName(service)]; ok {
		return enabled
	}
	return c.DefaultEnabled
}

// ServiceDir returns the directory holding the persisted state of service
func (c *Config) ServiceDir(service string) string {
	return filepath.Join(c.BaseDir, service)
}

// ObjectsDir returns the root of the blob store of service
func (c *Config) ObjectsDir(service string) string {
	return filepath.Join(c.ServiceDir(service), "objects")
}

// AssetDir returns the mirror of the named asset directory of service
func (c *Config) AssetDir(service, name string) string {
	return filepath.Join(c.ServiceDir(service), "assets", name)
}

// ManifestPath returns the location of the write manifest
func (c *Config) ManifestPath() string {
	return filepath.Join(c.BaseDir, manifest.FileName)
}

// NormalizeServiceName lower-cases the name and strips whitespace, hyphens
// and underscores. elasticsearch is an alias of es.
func NormalizeServiceName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.NewReplacer("_", "", "-", "").Replace(normalized)
	if normalized == "elasticsearch" {
		return "es"
	}
	return normalized
}

func (c *Config) setService(name string, enabled bool) {
	name = NormalizeServiceName(name)
	if name == defaultServiceKey {
		c.DefaultEnabled = enabled
		return
	}
	if c.Services == nil {
		c.Services = make(map[string]bool)
	}
	c.Services[name] = enabled
}

func (c *Config) addFormats(formats ...serialization.Format) {
	for _, format := range formats {
		if !slices.Contains(c.Formats, format) {
			c.Formats = append(c.Formats, format)
		}
	}
}
