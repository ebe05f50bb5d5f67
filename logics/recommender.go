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

	"github.com/gorse-io/hybrid/common/parallel"
	"github.com/gorse-io/hybrid/storage/cache"
	"github.com/juju/errors"
)

// CachedRecommender serves scores precomputed by a recommender from the cache store.
type CachedRecommender struct {
	name    string
	cache   cache.Database
	limiter parallel.RateLimiter
}

func NewCachedRecommender(name string, cacheClient cache.Database, limiter parallel.RateLimiter) *CachedRecommender {
	if limiter == nil {
		limiter = &parallel.Unlimited{}
	}
	return &CachedRecommender{name: name, cache: cacheClient, limiter: limiter}
}

func (r *CachedRecommender) Name() string {
	return r.name
}

func (r *CachedRecommender) Score(ctx context.Context, userId, itemId string) (float64, bool, error) {
	if err := r.wait(ctx); err != nil {
		return 0, false, errors.Trace(err)
	}
	score, ok, err := r.cache.GetScore(ctx, r.name, userId, itemId)
	if err != nil {
		return 0, false, errors.Trace(err)
	}
	return score, ok, nil
}

// ScoreBatch reads scores of all items in one request.
func (r *CachedRecommender) ScoreBatch(ctx context.Context, userId string, itemIds []string) (map[string]float64, error) {
	if err := r.wait(ctx); err != nil {
		return nil, errors.Trace(err)
	}
	scores, err := r.cache.GetScores(ctx, r.name, userId, itemIds)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return scores, nil
}

func (r *CachedRecommender) wait(ctx context.Context) error {
	delay := r.limiter.Take(1)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
