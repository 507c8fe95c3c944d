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
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/beevik/etree"
)

const (
	RootElement   = "osmand_regions"
	SchemaVersion = "1"
	dateFormat    = "02.01.2006"
)

// FormatGenTime renders a generation duration in seconds with one decimal
func FormatGenTime(elapsed time.Duration) string {
	return fmt.Sprintf("%.1f", elapsed.Seconds())
}

// Document builds the catalog for the given packages. Child elements appear in
// the same order as descs.
func Document(descs []*Descriptor, elapsed time.Duration) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(RootElement)
	root.CreateAttr("mapversion", SchemaVersion)
	root.CreateAttr("gentime", FormatGenTime(elapsed))
	for _, d := range descs {
		el := root.CreateElement(d.Type.Tag())
		el.CreateAttr("type", d.Type.String())
		el.CreateAttr("name", d.Name)
		el.CreateAttr("file", d.FileName())
		el.CreateAttr("size", strconv.FormatUint(d.ContentSize, 10))
		el.CreateAttr("containerSize", strconv.FormatInt(d.FileSize, 10))
		el.CreateAttr("contentSize", strconv.FormatUint(d.ContentSize, 10))
		el.CreateAttr("timestamp", strconv.FormatInt(d.ModTime.UnixMilli(), 10))
		el.CreateAttr("date", d.ModTime.UTC().Format(dateFormat))
		el.CreateAttr("description", d.Title())
	}
	doc.IndentTabs()
	return doc
}

// Serialize writes the catalog document to w. Nothing is written until the
// whole document has been built.
func Serialize(w io.Writer, descs []*Descriptor, elapsed time.Duration) error {
	doc := Document(descs, elapsed)
	if _, err := doc.WriteTo(w); err != nil {
		return &SerializeError{Err: err}
	}
	return nil
}
