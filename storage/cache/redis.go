// Copyright 2020 gorse Project Authors
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

package cache

import (
	"context"

	"github.com/gorse-io/hybrid/storage"
	"github.com/juju/errors"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
)

// Redis cache storage.
type Redis struct {
	storage.TablePrefix
	client *redis.Client
}

// Close redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Init nothing.
func (r *Redis) Init() error {
	return nil
}

func (r *Redis) Ping() error {
	return r.client.Ping(context.Background()).Err()
}

// Purge deletes all keys under the table prefix.
func (r *Redis) Purge() error {
	ctx := context.Background()
	var cursor uint64
	for {
		var (
			keys []string
			err  error
		)
		keys, cursor, err = r.client.Scan(ctx, cursor, string(r.TablePrefix)+"*", 100).Result()
		if err != nil {
			return errors.Trace(err)
		}
		if len(keys) > 0 {
			if err = r.client.Del(ctx, keys...).Err(); err != nil {
				return errors.Trace(err)
			}
		}
		if cursor == 0 {
			return nil
		}
	}
}

// SetScores adds scores to the sorted set of a recommender and a user.
func (r *Redis) SetScores(ctx context.Context, recommender, userId string, scores []Score) error {
	if len(scores) == 0 {
		return nil
	}
	members := lo.Map(scores, func(score Score, _ int) redis.Z {
		return redis.Z{Member: score.Id, Score: score.Score}
	})
	return errors.Trace(r.client.ZAdd(ctx, r.Key(Key(recommender, userId)), members...).Err())
}

// GetScore returns the score of an item. The second value is false if the item has no score.
func (r *Redis) GetScore(ctx context.Context, recommender, userId, itemId string) (float64, bool, error) {
	score, err := r.client.ZScore(ctx, r.Key(Key(recommender, userId)), itemId).Result()
	if err == redis.Nil {
		return 0, false, nil
	} else if err != nil {
		return 0, false, errors.Trace(err)
	}
	return score, true, nil
}

// GetScores returns scores of items in one round trip. Items without scores are absent from the result.
func (r *Redis) GetScores(ctx context.Context, recommender, userId string, itemIds []string) (map[string]float64, error) {
	if len(itemIds) == 0 {
		return map[string]float64{}, nil
	}
	key := r.Key(Key(recommender, userId))
	p := r.client.Pipeline()
	results := lo.Map(itemIds, func(itemId string, _ int) *redis.FloatCmd {
		return p.ZScore(ctx, key, itemId)
	})
	_, err := p.Exec(ctx)
	if err != nil && err != redis.Nil {
		return nil, errors.Trace(err)
	}
	scores := make(map[string]float64, len(itemIds))
	for i, result := range results {
		score, err := result.Result()
		if err == redis.Nil {
			continue
		} else if err != nil {
			return nil, errors.Trace(err)
		}
		scores[itemIds[i]] = score
	}
	return scores, nil
}
