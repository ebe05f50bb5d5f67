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
	"context"
	"fmt"
	"net/http"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/gorse-io/hybrid/base/log"
	"github.com/gorse-io/hybrid/base/progress"
	"github.com/gorse-io/hybrid/config"
	"github.com/gorse-io/hybrid/logics"
	"github.com/gorse-io/hybrid/model/hybrid"
	"github.com/gorse-io/hybrid/storage/data"
	"github.com/juju/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Server trains the blend in the background and serves scores of the latest model.
type Server struct {
	RestServer
	dataStore    data.Database
	recommenders *hybrid.RecommenderList
}

func NewServer(cfg *config.Config, dataStore data.Database, recommenders *hybrid.RecommenderList) *Server {
	return &Server{
		RestServer: RestServer{
			Config:     cfg,
			Tracer:     progress.NewTracer("hybrid"),
			WebService: new(restful.WebService),
		},
		dataStore:    dataStore,
		recommenders: recommenders,
	}
}

// Train fits a model and publishes its scorer.
func (s *Server) Train(ctx context.Context) error {
	ctx, span := s.Tracer.Start(ctx, "Train", 1)
	defer span.End()
	scorer, err := logics.Train(ctx, s.dataStore, s.recommenders, s.Config.Blend.GetParams(), nil)
	if err != nil {
		span.Fail(err)
		return errors.Trace(err)
	}
	s.SetScorer(scorer)
	return nil
}

// Serve trains a model in the background and starts the HTTP server.
func (s *Server) Serve(ctx context.Context) error {
	go func() {
		if err := s.Train(ctx); err != nil {
			log.Logger().Error("failed to train logistic model", zap.Error(err))
		}
	}()

	container := restful.NewContainer()
	s.CreateWebService()
	container.Add(s.WebService)
	container.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices: container.RegisteredWebServices(),
		APIPath:     "/apidocs.json",
	}))
	container.Handle("/apidocs/", v5emb.New("gorse-hybrid", "/apidocs.json", "/apidocs/"))
	container.Handle("/metrics", promhttp.Handler())

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)
	server := &http.Server{Addr: addr, Handler: container}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Logger().Error("failed to shutdown http server", zap.Error(err))
		}
	}()
	log.Logger().Info("start http server", zap.String("url", fmt.Sprintf("http://%s", addr)))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Trace(err)
	}
	return nil
}

// scorerHolder publishes scorers atomically.
type scorerHolder struct {
	scorer atomic.Pointer[hybrid.Scorer]
}

func (h *scorerHolder) SetScorer(scorer *hybrid.Scorer) {
	h.scorer.Store(scorer)
	hybrid.ModelIntercept.Set(scorer.Model().Intercept())
}

// Scorer returns the latest scorer, nil if no model has been trained.
func (h *scorerHolder) Scorer() *hybrid.Scorer {
	return h.scorer.Load()
}
