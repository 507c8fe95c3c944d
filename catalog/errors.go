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

import "fmt"

// ScanError reports a package directory that exists but could not be listed
type ScanError struct {
	Dir string
	Err error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scanning %s: %s", e.Dir, e.Err)
}

func (e *ScanError) Unwrap() error { return e.Err }

// ArchiveError reports an archive whose directory could not be read
type ArchiveError struct {
	Path string
	Err  error
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("reading archive %s: %s", e.Path, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// SerializeError reports a failure rendering or writing the catalog document
type SerializeError struct {
	Err error
}

func (e *SerializeError) Error() string {
	return "writing catalog: " + e.Err.Error()
}

func (e *SerializeError) Unwrap() error { return e.Err }

// CompressError reports a failure producing the compressed catalog
type CompressError struct {
	Err error
}

func (e *CompressError) Error() string {
	return "compressing catalog: " + e.Err.Error()
}

func (e *CompressError) Unwrap() error { return e.Err }
