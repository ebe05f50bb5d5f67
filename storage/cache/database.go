// Copyright 2021 gorse Project Authors
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
	"strings"

	"github.com/gorse-io/hybrid/base/log"
	"github.com/gorse-io/hybrid/storage"
	"github.com/juju/errors"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Score is the score of an item estimated by a recommender.
type Score struct {
	Id    string  `json:"Id"`
	Score float64 `json:"Score"`
}

// Key of the sorted set holding scores of a recommender for a user.
func Key(recommender, userId string) string {
	return recommender + "/" + userId
}

// Database stores precomputed scores of subsidiary recommenders.
type Database interface {
	Init() error
	Ping() error
	Close() error
	Purge() error
	SetScores(ctx context.Context, recommender, userId string, scores []Score) error
	GetScore(ctx context.Context, recommender, userId, itemId string) (float64, bool, error)
	GetScores(ctx context.Context, recommender, userId string, itemIds []string) (map[string]float64, error)
}

// Open a connection to a database.
func Open(path, tablePrefix string) (Database, error) {
	if strings.HasPrefix(path, storage.RedisPrefix) || strings.HasPrefix(path, storage.RedissPrefix) {
		opt, err := redis.ParseURL(path)
		if err != nil {
			return nil, errors.Trace(err)
		}
		database := new(Redis)
		database.client = redis.NewClient(opt)
		database.TablePrefix = storage.TablePrefix(tablePrefix)
		if err = redisotel.InstrumentTracing(database.client); err != nil {
			log.Logger().Error("failed to add tracing for redis", zap.Error(err))
			return nil, errors.Trace(err)
		}
		return database, nil
	}
	return nil, errors.Errorf("Unknown database: %s", log.RedactDBURL(path))
}
