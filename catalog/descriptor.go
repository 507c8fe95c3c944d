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
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Descriptor is one downloadable package found during a scan
type Descriptor struct {
	Name        string       // Display name derived from the file name
	Path        string       // Location of the backing file
	Type        DownloadType // Classification of the file
	FileSize    int64        // Size of the backing file on disk
	ModTime     time.Time    // Modification time of the backing file
	ContentSize uint64       // Unpacked size of the package

	resolved bool
}

// DisplayName derives a package name from a file name by cutting at the first
// '.' and replacing underscores with spaces.
func DisplayName(filename string) string {
	if i := strings.IndexByte(filename, '.'); i >= 0 {
		filename = filename[:i]
	}
	return strings.ReplaceAll(filename, "_", " ")
}

func newDescriptor(path string, info os.FileInfo, tp DownloadType) *Descriptor {
	return &Descriptor{
		Name:     DisplayName(info.Name()),
		Path:     path,
		Type:     tp,
		FileSize: info.Size(),
		ModTime:  info.ModTime(),
	}
}

// FileName returns the base name of the backing file
func (d *Descriptor) FileName() string {
	return filepath.Base(d.Path)
}

// IsArchive reports whether the content size comes from a zip directory
func (d *Descriptor) IsArchive() bool {
	return IsArchive(d.Path)
}

// Title returns the default description for this package's type
func (d *Descriptor) Title() string {
	return d.Type.DefaultTitle(d.Name)
}

// SetContentSize records the unpacked size. Only the first call has any
// effect.
func (d *Descriptor) SetContentSize(size uint64) {
	if d.resolved {
		return
	}
	d.ContentSize = size
	d.resolved = true
}

// Valid reports whether the package can be published: it needs a name and a
// resolved, non-zero content size.
func (d *Descriptor) Valid() bool {
	return d.Name != "" && d.resolved && d.ContentSize > 0
}
