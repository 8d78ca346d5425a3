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
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/tochemey/emustate/internal/compression"
	"github.com/tochemey/emustate/serialization"
)

const envPrefix = "persist_"

// DependencyResolver returns the services the given service depends on.
// Enabling a service through the environment enables its dependencies
// unless they are configured explicitly.
type DependencyResolver func(service string) []string

// settings holds the scalar environment keys
type settings struct {
	BaseDir         string        `mapstructure:"base_dir"`
	Formats         []string      `mapstructure:"format"`
	Compression     string        `mapstructure:"compression"`
	FlushInterval   time.Duration `mapstructure:"flush_interval"`
	LoadConcurrency int           `mapstructure:"load_concurrency"`
}

var settingKeys = map[string]struct{}{
	"base_dir":         {},
	"format":           {},
	"compression":      {},
	"flush_interval":   {},
	"load_concurrency": {},
}

// FromEnv builds a configuration from environment entries in KEY=value form,
// usually os.Environ(). Keys are matched case-insensitively:
//
//	PERSIST_BASE_DIR=/data
//	PERSIST_FORMAT=json,binary
//	PERSIST_COMPRESSION=zstd
//	PERSIST_FLUSH_INTERVAL=30s
//	PERSIST_LOAD_CONCURRENCY=8
//	PERSIST_<SERVICE>=1|0|true|false
//	PERSIST_DEFAULT=0
//
// Options are applied first; environment values override them. Invalid
// values are logged and ignored. deps may be nil.
func FromEnv(environ []string, deps DependencyResolver, opts ...Option) (*Config, error) {
	config := defaultConfig()
	for _, opt := range opts {
		opt.Apply(config)
	}

	explicit := make(map[string]struct{})
	var implied []string
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(strings.ToLower(key), envPrefix) || strings.TrimSpace(value) == "" {
			continue
		}

		name := strings.ToLower(key[len(envPrefix):])
		if _, ok := settingKeys[name]; ok {
			config.applySetting(key, name, value)
			continue
		}

		enabled, ok := parseSwitch(value)
		if !ok {
			config.Logger.Warnf("environment variable %s has invalid value '%s', it will be ignored", key, value)
			continue
		}

		service := NormalizeServiceName(name)
		explicit[service] = struct{}{}
		config.setService(service, enabled)
		if enabled && deps != nil && service != defaultServiceKey {
			implied = append(implied, deps(service)...)
		}
	}

	for _, dependency := range implied {
		dependency = NormalizeServiceName(dependency)
		if _, ok := explicit[dependency]; ok {
			continue
		}
		if _, ok := config.Services[dependency]; !ok {
			config.Services[dependency] = true
		}
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// applySetting decodes a single scalar key so that one invalid value does
// not discard the others.
func (c *Config) applySetting(key, name, value string) {
	var decoded settings
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &decoded,
	})
	if err != nil {
		c.Logger.Warnf("environment variable %s cannot be decoded: %v", key, err)
		return
	}
	if err := decoder.Decode(map[string]any{name: strings.TrimSpace(value)}); err != nil {
		c.Logger.Warnf("environment variable %s has invalid value '%s', it will be ignored: %v", key, value, err)
		return
	}

	switch name {
	case "base_dir":
		c.BaseDir = decoded.BaseDir
	case "format":
		formats := make([]serialization.Format, 0, len(decoded.Formats))
		for _, raw := range decoded.Formats {
			format, err := serialization.ParseFormat(strings.TrimSpace(raw))
			if err != nil {
				c.Logger.Warnf("environment variable %s has invalid value '%s', it will be ignored", key, raw)
				continue
			}
			formats = append(formats, format)
		}
		if len(formats) > 0 {
			c.Formats = nil
			c.addFormats(formats...)
		}
	case "compression":
		algorithm, err := compression.Parse(decoded.Compression)
		if err != nil {
			c.Logger.Warnf("environment variable %s has invalid value '%s', it will be ignored", key, value)
			return
		}
		c.Compression = algorithm
	case "flush_interval":
		if decoded.FlushInterval <= 0 {
			c.Logger.Warnf("environment variable %s has invalid value '%s', it will be ignored", key, value)
			return
		}
		c.FlushInterval = decoded.FlushInterval
	case "load_concurrency":
		if decoded.LoadConcurrency <= 0 {
			c.Logger.Warnf("environment variable %s has invalid value '%s', it will be ignored", key, value)
			return
		}
		c.LoadConcurrency = decoded.LoadConcurrency
	}
}

func parseSwitch(value string) (enabled, ok bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true":
		return true, true
	case "0", "false":
		return false, true
	default:
		return false, false
	}
}
