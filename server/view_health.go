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

	"github.com/rs/zerolog"

	"github.com/osmandapp/indexd/internal/httperror"
	"github.com/osmandapp/indexd/internal/zhttp"
)

// Healthy reports whether this instance should receive traffic
func (s *Server) Healthy() bool {
	if s.Config.Server.Disabled {
		return false
	}
	return s.Controller.Available()
}

func (s *Server) serveHealth(rw http.ResponseWriter, req *http.Request) {
	if s.Config.Server.Disabled {
		httperror.ErrServiceDisabled.ServeHTTP(rw, req)
		return
	}
	if !s.Controller.Available() {
		status := s.Controller.Status()
		zhttp.AppendAccessLog(req, func(e *zerolog.Event) {
			e.Stringer("state", status.State)
		})
		httperror.ErrCatalogUnavailable.ServeHTTP(rw, req)
		return
	}
	rw.Header().Set("Content-Type", "text/plain")
	_, _ = rw.Write([]byte("OK\r\n"))
}
