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
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorse-io/hybrid/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type RedisTestSuite struct {
	suite.Suite
	Database
	server *miniredis.Miniredis
}

func (suite *RedisTestSuite) SetupSuite() {
	var err error
	suite.server, err = miniredis.Run()
	suite.NoError(err)
	suite.Database, err = Open(storage.RedisPrefix+suite.server.Addr(), "gorse_")
	suite.NoError(err)
	suite.NoError(suite.Database.Init())
}

func (suite *RedisTestSuite) TearDownSuite() {
	suite.NoError(suite.Database.Close())
	suite.server.Close()
}

func (suite *RedisTestSuite) SetupTest() {
	suite.NoError(suite.Database.Ping())
	suite.NoError(suite.Database.Purge())
}

func (suite *RedisTestSuite) TestScores() {
	ctx := context.Background()
	err := suite.SetScores(ctx, "bpr", "1", []Score{{Id: "1", Score: 0.5}, {Id: "2", Score: -1.5}})
	suite.NoError(err)
	err = suite.SetScores(ctx, "bpr", "1", nil)
	suite.NoError(err)
	// stored under the prefixed key
	suite.True(suite.server.Exists("gorse_bpr/1"))

	score, ok, err := suite.GetScore(ctx, "bpr", "1", "2")
	suite.NoError(err)
	suite.True(ok)
	suite.Equal(-1.5, score)
	_, ok, err = suite.GetScore(ctx, "bpr", "1", "3")
	suite.NoError(err)
	suite.False(ok)
	_, ok, err = suite.GetScore(ctx, "bpr", "2", "1")
	suite.NoError(err)
	suite.False(ok)

	scores, err := suite.GetScores(ctx, "bpr", "1", []string{"1", "2", "3"})
	suite.NoError(err)
	suite.Equal(map[string]float64{"1": 0.5, "2": -1.5}, scores)
	scores, err = suite.GetScores(ctx, "bpr", "1", nil)
	suite.NoError(err)
	suite.Empty(scores)
	scores, err = suite.GetScores(ctx, "als", "1", []string{"1"})
	suite.NoError(err)
	suite.Empty(scores)

	// overwrite
	err = suite.SetScores(ctx, "bpr", "1", []Score{{Id: "1", Score: 2}})
	suite.NoError(err)
	score, ok, err = suite.GetScore(ctx, "bpr", "1", "1")
	suite.NoError(err)
	suite.True(ok)
	suite.Equal(2.0, score)
}

func (suite *RedisTestSuite) TestPurge() {
	ctx := context.Background()
	suite.NoError(suite.server.Set("other", "value"))
	for i := 0; i < 300; i++ {
		suite.NoError(suite.SetScores(ctx, "bpr", string(rune('a'+i%26))+string(rune('a'+i/26)), []Score{{Id: "1", Score: 1}}))
	}
	suite.NoError(suite.Purge())
	suite.Equal([]string{"other"}, suite.server.Keys())
}

func TestRedis(t *testing.T) {
	suite.Run(t, new(RedisTestSuite))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "bpr/1", Key("bpr", "1"))
}

func TestOpen(t *testing.T) {
	_, err := Open("redis://localhost:port", "")
	assert.Error(t, err)
	_, err = Open("mongodb://127.0.0.1:27017/", "")
	assert.Error(t, err)
}
