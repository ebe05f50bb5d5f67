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

	"github.com/juju/errors"
)

// Scorer predicts scores of items for users with a trained model. It is safe for
// concurrent use if the collaborators are.
type Scorer struct {
	model        *LogisticModel
	bias         BiasModel
	recommenders *RecommenderList
	summary      RatingSummary
}

func NewScorer(model *LogisticModel, bias BiasModel, recommenders *RecommenderList, summary RatingSummary) (*Scorer, error) {
	if model.Len() != 2+recommenders.Count() {
		return nil, errors.NotValidf("model with %d weights for %d recommenders", model.Len(), recommenders.Count())
	}
	return &Scorer{
		model:        model,
		bias:         bias,
		recommenders: recommenders,
		summary:      summary,
	}, nil
}

func (s *Scorer) Model() *LogisticModel {
	return s.model
}

func (s *Scorer) Recommenders() *RecommenderList {
	return s.recommenders
}

// ScoreBatch scores items for a user. Every recommender is queried once for the
// whole batch.
func (s *Scorer) ScoreBatch(ctx context.Context, userId string, itemIds []string) (map[string]float64, error) {
	if len(itemIds) == 0 {
		return map[string]float64{}, nil
	}
	recommenders := s.recommenders.Recommenders()
	batches := make([]map[string]float64, len(recommenders))
	for k, recommender := range recommenders {
		scores, err := recommender.ScoreBatch(ctx, userId, itemIds)
		if err != nil {
			return nil, errors.Annotatef(err, "recommender %s", recommender.Name())
		}
		batches[k] = scores
	}
	results := make(map[string]float64, len(itemIds))
	estimates := make([]Estimate, len(recommenders))
	for _, itemId := range itemIds {
		for k, scores := range batches {
			score, ok := scores[itemId]
			estimates[k] = Estimate{Value: score, Valid: ok}
		}
		features := BuildFeatures(userId, itemId, s.bias, s.summary, estimates)
		results[itemId] = s.model.evaluate(1, features)
	}
	ScoredItemsTotal.Add(float64(len(itemIds)))
	return results, nil
}

// Score scores a single item for a user.
func (s *Scorer) Score(ctx context.Context, userId, itemId string) (float64, error) {
	estimates, err := s.recommenders.estimates(ctx, userId, itemId)
	if err != nil {
		return 0, errors.Trace(err)
	}
	features := BuildFeatures(userId, itemId, s.bias, s.summary, estimates)
	ScoredItemsTotal.Inc()
	return s.model.evaluate(1, features), nil
}
