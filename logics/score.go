// Copyright 2025 gorse Project Authors
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

package logics

import (
	"context"
	"time"

	"github.com/gorse-io/hybrid/base"
	"github.com/gorse-io/hybrid/base/log"
	"github.com/gorse-io/hybrid/common/parallel"
	"github.com/gorse-io/hybrid/dataset"
	"github.com/gorse-io/hybrid/model"
	"github.com/gorse-io/hybrid/model/hybrid"
	"github.com/gorse-io/hybrid/storage/cache"
	"github.com/gorse-io/hybrid/storage/data"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// NewRecommenderList creates cached recommenders in the order of names.
func NewRecommenderList(names []string, cacheClient cache.Database, limiter parallel.RateLimiter) *hybrid.RecommenderList {
	recommenders := make([]hybrid.Recommender, len(names))
	for i, name := range names {
		recommenders[i] = NewCachedRecommender(name, cacheClient, limiter)
	}
	return hybrid.NewRecommenderList(recommenders...)
}

// Train loads the dataset from the data store, fits the blend and returns a scorer
// sharing the collaborators used in training.
func Train(ctx context.Context, dataStore data.Database, recommenders *hybrid.RecommenderList,
	params model.Params, observer hybrid.Observer) (*hybrid.Scorer, error) {
	dataSet, err := dataset.LoadDataFromDatabase(ctx, dataStore)
	if err != nil {
		return nil, errors.Trace(err)
	}
	rng := base.NewRandomGenerator(params.GetInt64(model.RandomState, 0))
	trainer := hybrid.NewTrainer(dataSet, dataSet.BiasModel(), recommenders, dataSet, rng, params)
	if observer != nil {
		trainer.SetObserver(observer)
	}
	m, err := trainer.Fit(ctx)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return hybrid.NewScorer(m, dataSet.BiasModel(), recommenders, dataSet)
}

// ScoreUsers scores the same items for many users concurrently. Results follow the
// order of userIds.
func ScoreUsers(ctx context.Context, scorer *hybrid.Scorer, userIds, itemIds []string, jobs int) ([]map[string]float64, error) {
	start := time.Now()
	results := make([]map[string]float64, len(userIds))
	err := parallel.Parallel(ctx, len(userIds), jobs, func(_, jobId int) error {
		scores, err := scorer.ScoreBatch(ctx, userIds[jobId], itemIds)
		if err != nil {
			return errors.Annotatef(err, "user %s", userIds[jobId])
		}
		results[jobId] = scores
		return nil
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	log.Logger().Debug("score users",
		zap.Int("n_users", len(userIds)),
		zap.Int("n_items", len(itemIds)),
		zap.Duration("used_time", time.Since(start)))
	return results, nil
}
