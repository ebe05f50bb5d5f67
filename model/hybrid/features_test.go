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
	"testing"

	"github.com/gorse-io/hybrid/model/bias"
	"github.com/stretchr/testify/assert"
)

func TestBuildFeatures(t *testing.T) {
	b := bias.NewModel(1.5, map[string]float64{"1": 0.25}, map[string]float64{"1": 0.25})
	summary := mockSummary{"1": 100}
	// baseline = 2, popularity = log10(100) = 2, delta = 3 - 2 = 1
	features := BuildFeatures("1", "1", b, summary, []Estimate{{Value: 3, Valid: true}})
	assert.Len(t, features, 3)
	assert.Equal(t, 2.0, features[0])
	assert.InDelta(t, 2.0, features[1], 1e-12)
	assert.InDelta(t, 1.0, features[2], 1e-12)
	p, err := NewZeroModel(3).Evaluate(1, features)
	assert.NoError(t, err)
	assert.Equal(t, 0.5, p)
}

func TestBuildFeatures_Length(t *testing.T) {
	b := bias.NewModel(0, nil, nil)
	for k := 0; k < 5; k++ {
		features := BuildFeatures("1", "1", b, mockSummary{}, make([]Estimate, k))
		assert.Len(t, features, 2+k)
	}
}

func TestBuildFeatures_MissingScore(t *testing.T) {
	b := bias.NewModel(1, map[string]float64{"1": 0.5}, map[string]float64{"1": 0.5})
	summary := mockSummary{"1": 1}
	estimates := []Estimate{
		{Value: 4, Valid: true},
		{Value: 4},
		{Value: 0, Valid: true},
	}
	features := BuildFeatures("1", "1", b, summary, estimates)
	assert.Equal(t, []float64{2, 0, 2, 0, -2}, features)
	// a valid zero score is not a missing score
	assert.NotZero(t, features[4])
}

func TestBuildFeatures_UnknownItem(t *testing.T) {
	b := bias.NewModel(1, map[string]float64{"1": 0.5}, map[string]float64{"1": 0.5})
	summary := mockSummary{"1": 10}
	features := BuildFeatures("1", "2", b, summary, []Estimate{{}})
	assert.Equal(t, []float64{1.5, 0, 0}, features)
	// unknown user and item
	features = BuildFeatures("2", "2", b, summary, nil)
	assert.Equal(t, []float64{1, 0}, features)
}

func TestPopularity(t *testing.T) {
	assert.Zero(t, popularity(0))
	assert.Zero(t, popularity(-1))
	assert.Zero(t, popularity(1))
	assert.InDelta(t, 3.0, popularity(1000), 1e-12)
}

func TestFeatureNames(t *testing.T) {
	recommenders := NewRecommenderList(newMockRecommender("bpr", nil), newMockRecommender("als", nil))
	assert.Equal(t, []string{"baseline", "popularity", "bpr", "als"}, FeatureNames(recommenders))
	assert.Equal(t, 2, recommenders.Count())
	assert.Len(t, recommenders.Recommenders(), 2)
	assert.Equal(t, []string{"baseline", "popularity"}, FeatureNames(NewRecommenderList()))
}
