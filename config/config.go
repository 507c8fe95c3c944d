//
// Copyright (c) SAS Institute Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultIndexFile      = "new_indexes.xml"
	defaultInterval       = 15 * time.Minute
	defaultArchiveTimeout = 30 * time.Second
	defaultWorkers        = 4
	defaultListen         = ":8080"
	defaultExchange       = "indexd.catalog"
	defaultShutdown       = 30 * time.Second
)

var (
	Version = "unknown" // set by main
	Commit  = "unknown" // set by main
)

type IndexesConfig struct {
	Root           string        // Directory holding the downloadable packages (required)
	IndexFile      string        `yaml:"index_file,omitempty"`      // Catalog file name, written under Root
	Interval       time.Duration `yaml:",omitempty"`                // Delay between periodic regenerations
	ArchiveTimeout time.Duration `yaml:"archive_timeout,omitempty"` // Upper bound on reading one archive
	Workers        int           `yaml:",omitempty"`                // Archives inspected in parallel
}

type ServerConfig struct {
	Listen          string        // Address to listen for plain HTTP (and h2c) connections
	LogLevel        string        `yaml:"log_level,omitempty"`
	LogFile         string        `yaml:"log_file,omitempty"`         // "" for console, "-" for JSON on stderr
	Disabled        bool          `yaml:",omitempty"`                 // Always report unhealthy
	TrustedProxies  []string      `yaml:"trusted_proxies,omitempty"`  // IPs or networks allowed to set X-Forwarded-For
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty"` // Grace period for in-flight requests
}

type NotifyConfig struct {
	URL        string // AMQP broker, amqp:// or amqps://
	Exchange   string `yaml:",omitempty"`
	RoutingKey string `yaml:"routing_key,omitempty"`
	CaCert     string `yaml:"ca_cert,omitempty"`
}

type Config struct {
	Indexes *IndexesConfig
	Server  *ServerConfig `yaml:",omitempty"`
	Notify  *NotifyConfig `yaml:",omitempty"`

	path string
}

func ReadFile(path string) (*Config, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config, err := Parse(blob)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	config.path = path
	return config, nil
}

func Parse(blob []byte) (*Config, error) {
	config := new(Config)
	if err := yaml.Unmarshal(blob, config); err != nil {
		return nil, err
	}
	if config.Indexes == nil {
		config.Indexes = new(IndexesConfig)
	}
	return config, nil
}

// Path returns the file the configuration was read from, if any
func (config *Config) Path() string {
	return config.path
}

// Normalize fills in defaults and checks for required values. It must be
// called after any command-line overrides have been applied.
func (config *Config) Normalize() error {
	var e []error
	if config.Indexes == nil {
		config.Indexes = new(IndexesConfig)
	}
	ic := config.Indexes
	if ic.Root == "" {
		e = append(e, errors.New("indexes.root is required"))
	} else {
		ic.Root = filepath.Clean(ic.Root)
	}
	if ic.IndexFile == "" {
		ic.IndexFile = defaultIndexFile
	} else if filepath.Base(ic.IndexFile) != ic.IndexFile {
		e = append(e, fmt.Errorf("indexes.index_file %q must be a bare file name", ic.IndexFile))
	}
	if ic.Interval <= 0 {
		ic.Interval = defaultInterval
	}
	if ic.ArchiveTimeout <= 0 {
		ic.ArchiveTimeout = defaultArchiveTimeout
	}
	if ic.Workers <= 0 {
		ic.Workers = defaultWorkers
	}
	if config.Server == nil {
		config.Server = new(ServerConfig)
	}
	if config.Server.Listen == "" {
		config.Server.Listen = defaultListen
	}
	if config.Server.ShutdownTimeout <= 0 {
		config.Server.ShutdownTimeout = defaultShutdown
	}
	if n := config.Notify; n != nil {
		if n.URL == "" {
			e = append(e, errors.New("notify.url is required when notify is configured"))
		}
		if n.Exchange == "" {
			n.Exchange = defaultExchange
		}
	}
	return errors.Join(e...)
}

// CatalogPath returns the canonical catalog location
func (ic *IndexesConfig) CatalogPath() string {
	return filepath.Join(ic.Root, ic.IndexFile)
}
