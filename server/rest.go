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


package server

import (
	"fmt"
	"net/http"

	mapset "github.com/deckarep/golang-set/v2"
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/google/uuid"
	"github.com/gorse-io/hybrid/base/log"
	"github.com/gorse-io/hybrid/base/progress"
	"github.com/gorse-io/hybrid/config"
	"github.com/gorse-io/hybrid/model/hybrid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/emicklei/go-restful/otelrestful"
	"go.uber.org/zap"
)

// RestServer implements a REST-ful API server.
type RestServer struct {
	scorerHolder
	Config     *config.Config
	Tracer     *progress.Tracer
	WebService *restful.WebService
}

type ItemScore struct {
	Id    string
	Score float64
}

type Model struct {
	Intercept float64
	Weights   []hybrid.FeatureWeight
}

// CreateWebService creates web service.
func (s *RestServer) CreateWebService() {
	// Create a server
	ws := s.WebService
	ws.Consumes(restful.MIME_JSON).Produces(restful.MIME_JSON)
	ws.Path("/api/")
	ws.Filter(otelrestful.OTelFilter("gorse-hybrid"))
	ws.Filter(RequestIdFilter)
	ws.Filter(LogFilter)
	ws.Filter(s.authFilter)

	ws.Route(ws.GET("/score/{user-id}").To(s.getScores).
		Doc("Score items for a user with the blended model.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"score"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("string")).
		Param(ws.QueryParameter("item", "identifiers of items").DataType("string").AllowMultiple(true)).
		Returns(http.StatusOK, "OK", []ItemScore{}).
		Writes([]ItemScore{}))
	ws.Route(ws.GET("/score/{user-id}/{item-id}").To(s.getScore).
		Doc("Score an item for a user with the blended model.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"score"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Param(ws.PathParameter("user-id", "identifier of the user").DataType("string")).
		Param(ws.PathParameter("item-id", "identifier of the item").DataType("string")).
		Returns(http.StatusOK, "OK", ItemScore{}).
		Writes(ItemScore{}))
	ws.Route(ws.GET("/model").To(s.getModel).
		Doc("Get the intercept and weights of the blended model.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"model"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Returns(http.StatusOK, "OK", Model{}).
		Writes(Model{}))
	ws.Route(ws.GET("/progress").To(s.getProgress).
		Doc("Get progress of training.").
		Metadata(restfulspec.KeyOpenAPITags, []string{"model"}).
		Param(ws.HeaderParameter("X-API-Key", "secret key for RESTful API")).
		Returns(http.StatusOK, "OK", []progress.Progress{}).
		Writes([]progress.Progress{}))
}

func (s *RestServer) getScores(request *restful.Request, response *restful.Response) {
	scorer := s.Scorer()
	if scorer == nil {
		ServiceUnavailable(response, fmt.Errorf("model is not trained"))
		return
	}
	userId := request.PathParameter("user-id")
	// remove duplicated items and keep the order
	seen := mapset.NewThreadUnsafeSet[string]()
	var itemIds []string
	for _, itemId := range request.QueryParameters("item") {
		if itemId == "" {
			BadRequest(response, fmt.Errorf("empty item id"))
			return
		}
		if seen.Add(itemId) {
			itemIds = append(itemIds, itemId)
		}
	}
	scores, err := scorer.ScoreBatch(request.Request.Context(), userId, itemIds)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	results := make([]ItemScore, len(itemIds))
	for i, itemId := range itemIds {
		results[i] = ItemScore{Id: itemId, Score: scores[itemId]}
	}
	Ok(response, results)
}

func (s *RestServer) getScore(request *restful.Request, response *restful.Response) {
	scorer := s.Scorer()
	if scorer == nil {
		ServiceUnavailable(response, fmt.Errorf("model is not trained"))
		return
	}
	userId := request.PathParameter("user-id")
	itemId := request.PathParameter("item-id")
	score, err := scorer.Score(request.Request.Context(), userId, itemId)
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, ItemScore{Id: itemId, Score: score})
}

func (s *RestServer) getModel(_ *restful.Request, response *restful.Response) {
	scorer := s.Scorer()
	if scorer == nil {
		ServiceUnavailable(response, fmt.Errorf("model is not trained"))
		return
	}
	weights, err := scorer.Model().Named(hybrid.FeatureNames(scorer.Recommenders()))
	if err != nil {
		InternalServerError(response, err)
		return
	}
	Ok(response, Model{Intercept: scorer.Model().Intercept(), Weights: weights})
}

func (s *RestServer) getProgress(_ *restful.Request, response *restful.Response) {
	progressList := s.Tracer.List()
	if progressList == nil {
		progressList = []progress.Progress{}
	}
	Ok(response, progressList)
}

// RequestIdFilter tags requests and responses with a request id.
func RequestIdFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	requestId := req.Request.Header.Get("X-Request-ID")
	if requestId == "" {
		requestId = uuid.New().String()
		req.Request.Header.Set("X-Request-ID", requestId)
	}
	resp.Header().Set("X-Request-ID", requestId)
	chain.ProcessFilter(req, resp)
}

func LogFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	chain.ProcessFilter(req, resp)
	log.ResponseLogger(resp).Info(fmt.Sprintf("%s %s", req.Request.Method, req.Request.URL),
		zap.Int("status_code", resp.StatusCode()))
}

func (s *RestServer) authFilter(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
	if s.Config.Server.APIKey == "" {
		chain.ProcessFilter(req, resp)
		return
	}
	apikey := req.HeaderParameter("X-API-Key")
	if apikey == s.Config.Server.APIKey {
		chain.ProcessFilter(req, resp)
		return
	}
	log.ResponseLogger(resp).Error("unauthorized", zap.String("X-API-Key", apikey))
	if err := resp.WriteError(http.StatusUnauthorized, fmt.Errorf("unauthorized")); err != nil {
		log.ResponseLogger(resp).Error("failed to write error", zap.Error(err))
	}
}

// BadRequest returns a bad request error.
func BadRequest(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("bad request", zap.Error(err))
	if err = response.WriteError(http.StatusBadRequest, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// InternalServerError returns a internal server error.
func InternalServerError(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	log.ResponseLogger(response).Error("internal server error", zap.Error(err))
	if err = response.WriteError(http.StatusInternalServerError, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// ServiceUnavailable returns a service unavailable error.
func ServiceUnavailable(response *restful.Response, err error) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err = response.WriteError(http.StatusServiceUnavailable, err); err != nil {
		log.ResponseLogger(response).Error("failed to write error", zap.Error(err))
	}
}

// Ok sends the content as JSON to the client.
func Ok(response *restful.Response, content interface{}) {
	response.Header().Set("Access-Control-Allow-Origin", "*")
	if err := response.WriteAsJson(content); err != nil {
		log.ResponseLogger(response).Error("failed to write json", zap.Error(err))
	}
}
