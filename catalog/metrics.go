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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricScans = promauto.NewCounter(prometheus.CounterOpts{
		Name: "indexd_scans_total",
		Help: "Number of full scans of the download directory",
	})
	metricRegenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "indexd_regenerations_total",
			Help: "Catalog regeneration cycles by outcome",
		},
		[]string{"result"},
	)
	metricDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "indexd_regeneration_seconds",
		Help:    "A histogram of catalog regeneration latencies",
		Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	})
	metricPackages = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "indexd_packages",
			Help: "Packages published in the current catalog",
		},
		[]string{"type"},
	)
	metricArchiveErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "indexd_archive_errors_total",
		Help: "Archives skipped because they could not be read",
	})
)

func observePackages(descs []*Descriptor) {
	counts := make(map[DownloadType]int)
	for _, d := range descs {
		counts[d.Type]++
	}
	for _, tp := range AllTypes() {
		metricPackages.WithLabelValues(tp.String()).Set(float64(counts[tp]))
	}
}
