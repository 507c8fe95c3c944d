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
	"archive/zip"
	"context"
)

// ArchiveSize sums the declared uncompressed size of every entry in a zip
// file. The archive is closed before returning on every path.
func ArchiveSize(path string) (size uint64, err error) {
	zrc, err := zip.OpenReader(path)
	if err != nil {
		return 0, &ArchiveError{Path: path, Err: err}
	}
	defer zrc.Close()
	for _, f := range zrc.File {
		size += f.UncompressedSize64
	}
	return size, nil
}

type sizeResult struct {
	size uint64
	err  error
}

// archiveSizeContext runs ArchiveSize but gives up waiting once ctx is done.
// The read itself can't be interrupted, so an abandoned goroutine finishes in
// the background and closes its own handle.
func archiveSizeContext(ctx context.Context, path string) (uint64, error) {
	ch := make(chan sizeResult, 1)
	go func() {
		size, err := ArchiveSize(path)
		ch <- sizeResult{size, err}
	}()
	select {
	case res := <-ch:
		return res.size, res.err
	case <-ctx.Done():
		return 0, &ArchiveError{Path: path, Err: ctx.Err()}
	}
}
