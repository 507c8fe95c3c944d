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

package server

import (
	"net/http"
	"os"
	"path"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/osmandapp/indexd/catalog"
	"github.com/osmandapp/indexd/internal/zhttp"
)

const encodingGzip = "gzip"

// acceptsGzip reports whether an Accept-Encoding header lists gzip with a
// nonzero quality
func acceptsGzip(acceptEncoding string) bool {
	for _, encoding := range strings.Split(acceptEncoding, ",") {
		fields := strings.Split(encoding, ";")
		if strings.TrimSpace(fields[0]) != encodingGzip {
			continue
		}
		for _, param := range fields[1:] {
			v, ok := strings.CutPrefix(strings.TrimSpace(param), "q=")
			if !ok {
				continue
			}
			q, err := strconv.ParseFloat(v, 64)
			return err == nil && q > 0
		}
		return true
	}
	return false
}

func (s *Server) serveCatalog(rw http.ResponseWriter, req *http.Request) error {
	q := req.URL.Query()
	force, err := boolParam(q, "update")
	if err != nil {
		return err
	}
	explicit, err := boolParam(q, "gzip")
	if err != nil {
		return err
	}
	encode := !explicit && acceptsGzip(req.Header.Get("Accept-Encoding"))
	filename, err := s.Controller.Catalog(req.Context(), force, explicit || encode)
	if err != nil {
		return err
	}
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	h := rw.Header()
	h.Set("Vary", "Accept-Encoding")
	switch {
	case explicit:
		h.Set("Content-Type", "application/gzip")
		h.Set("Content-Disposition", `attachment; filename="`+path.Base(CatalogRoute)+catalog.CompressedSuffix+`"`)
	case encode:
		h.Set("Content-Type", "application/xml")
		h.Set("Content-Encoding", encodingGzip)
	default:
		h.Set("Content-Type", "application/xml")
	}
	zhttp.AppendAccessLog(req, func(e *zerolog.Event) {
		e.Bool("update", force)
		e.Bool("gzip", explicit || encode)
	})
	http.ServeContent(rw, req, "", info.ModTime(), f)
	return nil
}
