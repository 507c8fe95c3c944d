/*
 * Copyright (c) SAS Institute Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package shared

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/osmandapp/indexd/catalog"
	"github.com/osmandapp/indexd/config"
	"github.com/osmandapp/indexd/internal/logrotate"
	"github.com/osmandapp/indexd/internal/notify"
	"github.com/osmandapp/indexd/internal/zhttp"
)

// LogWriter is set when logging goes to a file, so it can be reopened
var LogWriter *logrotate.Writer

// InitConfig loads the configuration file, applies command-line overrides and
// sets up logging. Without --config the default location is optional as long
// as --root is given.
func InitConfig() error {
	if CurrentConfig != nil {
		return nil
	}
	usedDefault := false
	if ArgConfig == "" {
		ArgConfig = config.DefaultConfig()
		usedDefault = true
	}
	var cfg *config.Config
	var err error
	if ArgConfig != "" {
		cfg, err = config.ReadFile(ArgConfig)
	}
	switch {
	case err == nil && cfg != nil:
	case usedDefault && (ArgConfig == "" || errors.Is(err, os.ErrNotExist)):
		if ArgRoot == "" {
			return fmt.Errorf("--config not specified and default config at %s does not exist", ArgConfig)
		}
		cfg, _ = config.Parse(nil)
	default:
		return err
	}
	if ArgRoot != "" {
		cfg.Indexes.Root = ArgRoot
	}
	if err := cfg.Normalize(); err != nil {
		return err
	}
	LogWriter, err = zhttp.SetupLogging(cfg.Server.LogLevel, cfg.Server.LogFile)
	if err != nil {
		return err
	}
	CurrentConfig = cfg
	return nil
}

// NewController builds a catalog controller from the current configuration
func NewController() *catalog.Controller {
	ic := CurrentConfig.Indexes
	scanner := catalog.NewScanner()
	scanner.Workers = ic.Workers
	scanner.ArchiveTimeout = ic.ArchiveTimeout
	scanner.Logger = log.Logger
	opts := []catalog.Option{
		catalog.WithIndexFile(ic.IndexFile),
		catalog.WithScanner(scanner),
		catalog.WithLogger(log.Logger),
	}
	if CurrentConfig.Notify != nil {
		opts = append(opts, catalog.WithNotifier(notify.New(CurrentConfig.Notify)))
	}
	return catalog.New(ic.Root, opts...)
}

func Fail(err error) error {
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(70)
	}
	return err
}
