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

package catalog

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Source pairs a directory under the download root with the type of package
// found there
type Source struct {
	Dir  string
	Type DownloadType
}

// DefaultSources is the standard layout of the download root. Maps are
// collected from both "indexes" and the root itself and are not deduplicated.
var DefaultSources = []Source{
	{"indexes", Map},
	{".", Map},
	{"indexes", Voice},
	{"indexes/fonts", Fonts},
	{"indexes/inapp/depth", Depth},
	{"wiki", WikiMap},
	{"wikivoyage", Wikivoyage},
	{"road-indexes", RoadMap},
	{"srtm-countries", SrtmMap},
	{"hillshade", Hillshade},
}

const (
	defaultWorkers        = 4
	defaultArchiveTimeout = 30 * time.Second
)

// Scanner walks the download root and builds package descriptors
type Scanner struct {
	Sources        []Source
	Workers        int           // archives read in parallel
	ArchiveTimeout time.Duration // upper bound on reading one archive
	// Logger is shared by the archive workers, so its writer must be safe
	// for concurrent use. Wrap plain buffers with zerolog.SyncWriter.
	Logger         zerolog.Logger
}

func NewScanner() *Scanner {
	return &Scanner{
		Sources:        DefaultSources,
		Workers:        defaultWorkers,
		ArchiveTimeout: defaultArchiveTimeout,
		Logger:         log.Logger,
	}
}

// Scan lists every source directory under root and returns the valid
// packages, ordered by source and then by file name. Problems with individual
// directories or files are logged and skipped. An error is returned only if
// ctx is cancelled.
func (s *Scanner) Scan(ctx context.Context, root string) ([]*Descriptor, error) {
	var candidates []*Descriptor
	for _, src := range s.Sources {
		candidates = append(candidates, s.list(root, src)...)
	}
	if err := s.resolve(ctx, candidates); err != nil {
		return nil, err
	}
	valid := make([]*Descriptor, 0, len(candidates))
	for _, d := range candidates {
		if d.Valid() {
			valid = append(valid, d)
		} else if d.resolved {
			s.Logger.Warn().Str("file", d.Path).Msg("skipping package with empty name or size")
		}
	}
	return valid, nil
}

func (s *Scanner) list(root string, src Source) []*Descriptor {
	dir := filepath.Join(root, src.Dir)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		s.Logger.Debug().Str("dir", dir).Msg("package directory does not exist")
		return nil
	} else if err != nil {
		s.Logger.Err(&ScanError{Dir: dir, Err: err}).Msg("skipping package directory")
		return nil
	}
	var descs []*Descriptor
	for _, entry := range entries {
		if !src.Type.Accepts(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			s.Logger.Err(err).Str("file", path).Msg("skipping package")
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		descs = append(descs, newDescriptor(path, info, src.Type))
	}
	return descs
}

// resolve fills in the content size of each descriptor. Each worker writes
// only to its own descriptor so the slice order is untouched.
func (s *Scanner) resolve(ctx context.Context, descs []*Descriptor) error {
	eg, ctx := errgroup.WithContext(ctx)
	workers := s.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	eg.SetLimit(workers)
	for _, d := range descs {
		if !d.IsArchive() {
			d.SetContentSize(uint64(d.FileSize))
			continue
		}
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			size, err := s.archiveSize(ctx, d.Path)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				metricArchiveErrors.Inc()
				s.Logger.Err(err).Str("type", d.Type.String()).Msg("skipping unreadable archive")
				return nil
			}
			d.SetContentSize(size)
			return nil
		})
	}
	return eg.Wait()
}

func (s *Scanner) archiveSize(ctx context.Context, path string) (uint64, error) {
	timeout := s.ArchiveTimeout
	if timeout <= 0 {
		timeout = defaultArchiveTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return archiveSizeContext(ctx, path)
}
