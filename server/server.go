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
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/osmandapp/indexd/catalog"
	"github.com/osmandapp/indexd/config"
	"github.com/osmandapp/indexd/internal/realip"
	"github.com/osmandapp/indexd/internal/zhttp"
)

const (
	CatalogRoute = "/download/indexes.xml"
	HealthRoute  = "/health"
	MetricsRoute = "/metrics"
)

type Server struct {
	Config     *config.Config
	Controller *catalog.Controller
	Logger     zerolog.Logger
	realIP     func(http.Handler) http.Handler
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.realIP)
	r.Use(zhttp.LoggingMiddleware(s.Logger, HealthRoute, MetricsRoute))
	r.Use(zhttp.RecoveryMiddleware)
	r.Get(HealthRoute, s.serveHealth)
	r.Get(MetricsRoute, promhttp.Handler().ServeHTTP)
	r.Get(CatalogRoute, handleFunc(s.serveCatalog))
	return r
}

func New(config *config.Config, controller *catalog.Controller) (*Server, error) {
	realIP, err := realip.Middleware(config.Server.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("configuring proxies: %w", err)
	}
	return &Server{
		Config:     config,
		Controller: controller,
		Logger:     log.Logger,
		realIP:     realIP,
	}, nil
}
