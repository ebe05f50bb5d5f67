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
	"github.com/juju/errors"
)

// BiasModel estimates the baseline rating of a user-item pair. Unknown users and
// items have zero bias.
type BiasModel interface {
	Intercept() float64
	UserBias(userId string) float64
	ItemBias(itemId string) float64
}

// RatingSummary counts ratings of items. Unknown items have zero ratings.
type RatingSummary interface {
	ItemRatingCount(itemId string) int
}

// TrainingSplit provides labelled examples held out from the recommenders. Labels are
// used as the targets of gradient steps without conversion, so the split decides
// their domain (+1/-1 for the data store).
type TrainingSplit interface {
	TuneExamples() []dataset.TrainingExample
}

// Recommender is a subsidiary recommender blended by the model. Implementations must
// be safe for concurrent reads.
type Recommender interface {
	Name() string
	// Score returns the score of an item. The second value is false if the
	// recommender has no opinion on the item.
	Score(ctx context.Context, userId, itemId string) (float64, bool, error)
	// ScoreBatch returns scores of items. Items without opinion are absent.
	ScoreBatch(ctx context.Context, userId string, itemIds []string) (map[string]float64, error)
}

// RecommenderList is a fixed ordered list of recommenders. The position of a
// recommender is the position of its feature.
type RecommenderList struct {
	recommenders []Recommender
}

func NewRecommenderList(recommenders ...Recommender) *RecommenderList {
	return &RecommenderList{recommenders: append([]Recommender(nil), recommenders...)}
}

func (l *RecommenderList) Count() int {
	return len(l.recommenders)
}

func (l *RecommenderList) Recommenders() []Recommender {
	return append([]Recommender(nil), l.recommenders...)
}

func (l *RecommenderList) Names() []string {
	names := make([]string, len(l.recommenders))
	for i, recommender := range l.recommenders {
		names[i] = recommender.Name()
	}
	return names
}

// estimates queries every recommender for a single item.
func (l *RecommenderList) estimates(ctx context.Context, userId, itemId string) ([]Estimate, error) {
	estimates := make([]Estimate, len(l.recommenders))
	for k, recommender := range l.recommenders {
		score, ok, err := recommender.Score(ctx, userId, itemId)
		if err != nil {
			return nil, errors.Annotatef(err, "recommender %s", recommender.Name())
		}
		estimates[k] = Estimate{Value: score, Valid: ok}
	}
	return estimates, nil
}
