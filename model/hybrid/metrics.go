// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hybrid

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FitEpochsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gorse",
		Subsystem: "hybrid",
		Name:      "fit_epochs_total",
	})
	FitSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gorse",
		Subsystem: "hybrid",
		Name:      "fit_seconds",
	})
	CacheFeaturesSeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gorse",
		Subsystem: "hybrid",
		Name:      "cache_features_seconds",
	})
	ScoredItemsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gorse",
		Subsystem: "hybrid",
		Name:      "scored_items_total",
	})
	ModelIntercept = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gorse",
		Subsystem: "hybrid",
		Name:      "model_intercept",
	})
)
