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

package atomicfile

import (
	"errors"
	"io"
	"os"
	"path/filepath"
)

// AtomicFile collects writes in a temporary file next to the destination and
// renames it into place on Commit. Closing without committing discards the
// temporary file and leaves the destination untouched.
type AtomicFile interface {
	io.WriteCloser
	// Name returns the path of the temporary file holding the pending content
	Name() string
	Commit() error
}

type atomicFile struct {
	name     string
	perm     os.FileMode
	tempfile *os.File
}

var errClosed = errors.New("file is closed")

func New(name string, perm os.FileMode) (AtomicFile, error) {
	tempfile, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+".tmp*")
	if err != nil {
		return nil, err
	}
	return &atomicFile{name: name, perm: perm, tempfile: tempfile}, nil
}

func (f *atomicFile) Write(d []byte) (int, error) {
	if f.tempfile == nil {
		return 0, errClosed
	}
	return f.tempfile.Write(d)
}

func (f *atomicFile) Name() string {
	if f.tempfile == nil {
		return ""
	}
	return f.tempfile.Name()
}

func (f *atomicFile) Close() error {
	if f.tempfile == nil {
		return nil
	}
	f.tempfile.Close()
	os.Remove(f.tempfile.Name())
	f.tempfile = nil
	return nil
}

func (f *atomicFile) Commit() error {
	if f.tempfile == nil {
		return errClosed
	}
	if err := f.tempfile.Chmod(f.perm); err != nil {
		f.Close()
		return err
	}
	if err := f.tempfile.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.tempfile.Close(); err != nil {
		os.Remove(f.tempfile.Name())
		f.tempfile = nil
		return err
	}
	// rename replaces the old file in one step so readers see either version
	if err := os.Rename(f.tempfile.Name(), f.name); err != nil {
		os.Remove(f.tempfile.Name())
		f.tempfile = nil
		return err
	}
	f.tempfile = nil
	return nil
}
