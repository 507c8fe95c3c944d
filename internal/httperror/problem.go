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

package httperror

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/osmandapp/indexd/internal/zhttp"
)

// Problem implements a RFC 7807 HTTP "problem" response
type Problem struct {
	Status int    `json:"status"`
	Type   string `json:"type"`

	Title    string `json:"title,omitempty"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// error-specific
	Param string `json:"param,omitempty"`
}

func (e Problem) Error() string {
	title := e.Title
	if title == "" {
		title = "[" + e.Type + "]"
	}
	m := fmt.Sprintf("HTTP %d %s", e.Status, title)
	if e.Detail != "" {
		m += ": " + e.Detail
	}
	return m
}

func (e Problem) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	if e.Type != "" {
		zhttp.AppendAccessLog(req, func(ev *zerolog.Event) {
			ev.Str("problem", e.Type)
		})
	}
	blob, _ := json.MarshalIndent(e, "", "  ")
	rw.Header().Set("Content-Type", "application/problem+json")
	if e.Status == http.StatusServiceUnavailable {
		rw.Header().Set("Retry-After", "60")
	}
	rw.WriteHeader(e.Status)
	_, _ = rw.Write(blob)
}

const ProblemBase = "https://indexd.osmand.net/problems/"

var (
	ErrCatalogUnavailable = &Problem{
		Status: http.StatusServiceUnavailable,
		Type:   ProblemBase + "catalog-unavailable",
		Title:  "Catalog Unavailable",
		Detail: "The package catalog has not been generated yet and could not be produced",
	}
	ErrServiceDisabled = &Problem{
		Status: http.StatusServiceUnavailable,
		Type:   ProblemBase + "service-disabled",
		Detail: "This instance has been taken out of rotation",
	}
)

func BadParameterError(param string, err error) Problem {
	return Problem{
		Status: http.StatusBadRequest,
		Type:   ProblemBase + "bad-parameter",
		Detail: "Parameter " + param + " is invalid: " + err.Error(),
		Param:  param,
	}
}
