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
	"context"

	"github.com/gorse-io/hybrid/dataset"
	"go.uber.org/atomic"
)

type mockSummary map[string]int

func (s mockSummary) ItemRatingCount(itemId string) int {
	return s[itemId]
}

type mockSplit []dataset.TrainingExample

func (s mockSplit) TuneExamples() []dataset.TrainingExample {
	return s
}

// mockRecommender scores items from a table of user -> item -> score.
type mockRecommender struct {
	name       string
	scores     map[string]map[string]float64
	err        error
	scoreCalls atomic.Int64
	batchCalls atomic.Int64
}

func newMockRecommender(name string, scores map[string]map[string]float64) *mockRecommender {
	return &mockRecommender{name: name, scores: scores}
}

func (r *mockRecommender) Name() string {
	return r.name
}

func (r *mockRecommender) Score(_ context.Context, userId, itemId string) (float64, bool, error) {
	r.scoreCalls.Inc()
	if r.err != nil {
		return 0, false, r.err
	}
	score, ok := r.scores[userId][itemId]
	return score, ok, nil
}

func (r *mockRecommender) ScoreBatch(_ context.Context, userId string, itemIds []string) (map[string]float64, error) {
	r.batchCalls.Inc()
	if r.err != nil {
		return nil, r.err
	}
	scores := make(map[string]float64)
	for _, itemId := range itemIds {
		if score, ok := r.scores[userId][itemId]; ok {
			scores[itemId] = score
		}
	}
	return scores, nil
}
