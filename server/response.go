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
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/osmandapp/indexd/catalog"
	"github.com/osmandapp/indexd/internal/httperror"
	"github.com/osmandapp/indexd/internal/zhttp"
)

func handleFunc(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(rw http.ResponseWriter, req *http.Request) {
		ctx := req.Context()
		if srv, ok := ctx.Value(http.ServerContextKey).(*http.Server); ok && srv.WriteTimeout > 0 {
			// timeout request context when WriteTimeout is reached
			ctx, cancel := context.WithTimeout(req.Context(), srv.WriteTimeout)
			defer cancel()
			req = req.WithContext(ctx)
		}
		err := f(rw, req)
		if err == nil {
			return
		}
		if resp, ok := err.(http.Handler); ok {
			resp.ServeHTTP(rw, req)
		} else if h := errToProblem(req, err); h != nil {
			h.ServeHTTP(rw, req)
		} else {
			zhttp.WriteUnhandledError(rw, req, err, "")
		}
	}
}

// errToProblem maps a failed regeneration to a 503. Cancellation of the
// request itself is left to WriteUnhandledError.
func errToProblem(req *http.Request, err error) http.Handler {
	if req.Context().Err() != nil {
		return nil
	}
	var (
		scanErr      *catalog.ScanError
		serializeErr *catalog.SerializeError
		compressErr  *catalog.CompressError
	)
	if errors.As(err, &scanErr) || errors.As(err, &serializeErr) || errors.As(err, &compressErr) {
		zhttp.AppendAccessLog(req, func(e *zerolog.Event) {
			e.AnErr("error", err)
		})
		return httperror.ErrCatalogUnavailable
	}
	return nil
}

// boolParam parses an optional boolean query parameter
func boolParam(q url.Values, name string) (bool, error) {
	v := q.Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, httperror.BadParameterError(name, err)
	}
	return b, nil
}
