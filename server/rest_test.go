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


package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/gorse-io/hybrid/config"
	"github.com/gorse-io/hybrid/logics"
	"github.com/gorse-io/hybrid/model/bias"
	"github.com/gorse-io/hybrid/model/hybrid"
	"github.com/gorse-io/hybrid/storage"
	"github.com/gorse-io/hybrid/storage/cache"
	"github.com/gorse-io/hybrid/storage/data"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/suite"
)

const apiKey = "test_api_key"

type ServerTestSuite struct {
	suite.Suite
	*Server
	redis     *miniredis.Miniredis
	cache     cache.Database
	dataStore data.Database
	handler   *restful.Container
}

func (suite *ServerTestSuite) SetupTest() {
	var err error
	ctx := context.Background()
	suite.redis, err = miniredis.Run()
	suite.NoError(err)
	suite.cache, err = cache.Open(storage.RedisPrefix+suite.redis.Addr(), "")
	suite.NoError(err)
	suite.dataStore, err = data.Open(fmt.Sprintf("sqlite://%s/data.db", suite.T().TempDir()), "")
	suite.NoError(err)
	suite.NoError(suite.dataStore.Init())
	suite.NoError(suite.dataStore.BatchInsertExamples(ctx, []data.Example{
		{Id: 1, UserId: "1", ItemId: "1", Label: 1},
		{Id: 2, UserId: "1", ItemId: "2", Label: -1},
		{Id: 3, UserId: "2", ItemId: "1", Label: -1},
	}))
	suite.NoError(suite.dataStore.BatchInsertRatings(ctx, []data.Rating{{UserId: "3", ItemId: "1", Rating: 5}}))
	suite.NoError(suite.cache.SetScores(ctx, "bpr", "1", []cache.Score{{Id: "1", Score: 0.9}, {Id: "2", Score: 0.1}}))

	cfg := config.GetDefaultConfig()
	cfg.Server.APIKey = apiKey
	cfg.Blend.NEpochs = 3
	suite.Server = NewServer(cfg, suite.dataStore, logics.NewRecommenderList([]string{"bpr"}, suite.cache, nil))
	suite.CreateWebService()
	suite.handler = restful.NewContainer()
	suite.handler.Add(suite.WebService)
}

func (suite *ServerTestSuite) TearDownTest() {
	suite.NoError(suite.cache.Close())
	suite.NoError(suite.dataStore.Close())
	suite.redis.Close()
}

func (suite *ServerTestSuite) marshal(v interface{}) string {
	s, err := json.Marshal(v)
	suite.NoError(err)
	return string(s)
}

func (suite *ServerTestSuite) TestAuth() {
	t := suite.T()
	apitest.New().
		Handler(suite.handler).
		Get("/api/progress").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/progress").
		Header("X-API-Key", "wrong_key").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/progress").
		Header("X-API-Key", apiKey).
		Expect(t).
		Status(http.StatusOK).
		Body(`[]`).
		End()
	// authentication is disabled without api key
	suite.Config.Server.APIKey = ""
	apitest.New().
		Handler(suite.handler).
		Get("/api/progress").
		Expect(t).
		Status(http.StatusOK).
		End()
}

func (suite *ServerTestSuite) TestNotTrained() {
	t := suite.T()
	for _, path := range []string{"/api/score/1", "/api/score/1/1", "/api/model"} {
		apitest.New().
			Handler(suite.handler).
			Get(path).
			Header("X-API-Key", apiKey).
			Expect(t).
			Status(http.StatusServiceUnavailable).
			End()
	}
}

func (suite *ServerTestSuite) TestScore() {
	t := suite.T()
	suite.NoError(suite.Train(context.Background()))
	scorer := suite.Scorer()
	suite.NotNil(scorer)
	ctx := context.Background()
	expected, err := scorer.ScoreBatch(ctx, "1", []string{"1", "2", "3"})
	suite.NoError(err)

	apitest.New().
		Handler(suite.handler).
		Get("/api/score/1").
		Header("X-API-Key", apiKey).
		QueryCollection(map[string][]string{"item": {"2", "1", "2", "3"}}).
		Expect(t).
		Status(http.StatusOK).
		HeaderPresent("X-Request-ID").
		Body(suite.marshal([]ItemScore{
			{Id: "2", Score: expected["2"]},
			{Id: "1", Score: expected["1"]},
			{Id: "3", Score: expected["3"]},
		})).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/score/1").
		Header("X-API-Key", apiKey).
		Expect(t).
		Status(http.StatusOK).
		Body(`[]`).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/score/1").
		Header("X-API-Key", apiKey).
		Query("item", "").
		Expect(t).
		Status(http.StatusBadRequest).
		End()
	apitest.New().
		Handler(suite.handler).
		Get("/api/score/1/1").
		Header("X-API-Key", apiKey).
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(ItemScore{Id: "1", Score: expected["1"]})).
		End()
}

func (suite *ServerTestSuite) TestScoreError() {
	t := suite.T()
	suite.NoError(suite.Train(context.Background()))
	suite.redis.SetError("server is down")
	defer suite.redis.SetError("")
	apitest.New().
		Handler(suite.handler).
		Get("/api/score/1").
		Header("X-API-Key", apiKey).
		Query("item", "1").
		Expect(t).
		Status(http.StatusInternalServerError).
		End()
}

func (suite *ServerTestSuite) TestModel() {
	t := suite.T()
	m := hybrid.NewLogisticModel(0.5, []float64{1, 2, 3})
	scorer, err := hybrid.NewScorer(m, bias.NewModel(0, nil, nil), suite.recommenders, &mockSummary{})
	suite.NoError(err)
	suite.SetScorer(scorer)
	suite.Equal(0.5, testutil.ToFloat64(hybrid.ModelIntercept))
	apitest.New().
		Handler(suite.handler).
		Get("/api/model").
		Header("X-API-Key", apiKey).
		Expect(t).
		Status(http.StatusOK).
		Body(suite.marshal(Model{
			Intercept: 0.5,
			Weights: []hybrid.FeatureWeight{
				{Name: "baseline", Weight: 1},
				{Name: "popularity", Weight: 2},
				{Name: "bpr", Weight: 3},
			},
		})).
		End()
}

func (suite *ServerTestSuite) TestProgress() {
	suite.NoError(suite.Train(context.Background()))
	list := suite.Tracer.List()
	suite.NotEmpty(list)
	suite.Equal("Train", list[0].Name)
	names := make([]string, len(list))
	for i, p := range list {
		names[i] = p.Name
	}
	suite.Contains(names, "LoadDataFromDatabase")
	suite.Contains(names, "CacheFeatures")
	suite.Contains(names, "FitLogisticModel")
}

func TestServer(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

type mockSummary struct{}

func (mockSummary) ItemRatingCount(string) int {
	return 0
}
