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

import "math"

const (
	BaselineFeature   = "baseline"
	PopularityFeature = "popularity"
)

// Estimate is an optional score. Valid is false if the recommender has no opinion.
type Estimate struct {
	Value float64
	Valid bool
}

// BuildFeatures creates the feature vector of a user-item pair:
//
//	[0]   baseline = μ + b_u + b_i
//	[1]   popularity = log10(n_i), or 0 if the item has no ratings
//	[2+k] score_k - baseline, or 0 if recommender k has no score
//
// Training and serving must both build features here.
func BuildFeatures(userId, itemId string, bias BiasModel, summary RatingSummary, estimates []Estimate) []float64 {
	features := make([]float64, 2+len(estimates))
	features[0] = baseline(userId, itemId, bias)
	features[1] = popularity(summary.ItemRatingCount(itemId))
	for k, estimate := range estimates {
		if estimate.Valid {
			features[2+k] = estimate.Value - features[0]
		}
	}
	return features
}

// FeatureNames returns names of features in vector order.
func FeatureNames(recommenders *RecommenderList) []string {
	return append([]string{BaselineFeature, PopularityFeature}, recommenders.Names()...)
}

func baseline(userId, itemId string, bias BiasModel) float64 {
	return bias.Intercept() + bias.UserBias(userId) + bias.ItemBias(itemId)
}

func popularity(count int) float64 {
	if count > 0 {
		return math.Log10(float64(count))
	}
	return 0
}
