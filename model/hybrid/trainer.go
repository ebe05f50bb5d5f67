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
	"time"

	"github.com/gorse-io/hybrid/base"
	"github.com/gorse-io/hybrid/base/log"
	"github.com/gorse-io/hybrid/base/progress"
	"github.com/gorse-io/hybrid/dataset"
	"github.com/gorse-io/hybrid/model"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const (
	DefaultLr      = 0.00005
	DefaultNEpochs = 100
)

// Observer is notified after every epoch of training.
type Observer interface {
	OnEpoch(epoch, nEpochs int, model *LogisticModel)
}

// Trainer fits the logistic blend by stochastic gradient descent on held-out examples.
type Trainer struct {
	split        TrainingSplit
	bias         BiasModel
	recommenders *RecommenderList
	summary      RatingSummary
	rng          base.RandomGenerator
	observer     Observer
	// hyper-parameters
	lr      float64
	nEpochs int
}

func NewTrainer(split TrainingSplit, bias BiasModel, recommenders *RecommenderList, summary RatingSummary,
	rng base.RandomGenerator, params model.Params) *Trainer {
	return &Trainer{
		split:        split,
		bias:         bias,
		recommenders: recommenders,
		summary:      summary,
		rng:          rng,
		lr:           params.GetFloat64(model.Lr, DefaultLr),
		nEpochs:      params.GetInt(model.NEpochs, DefaultNEpochs),
	}
}

func (t *Trainer) SetObserver(observer Observer) {
	t.observer = observer
}

// Fit caches features of every example and then runs the epochs. The model after
// the last step of the last epoch is returned.
func (t *Trainer) Fit(ctx context.Context) (*LogisticModel, error) {
	examples := t.split.TuneExamples()
	log.Logger().Info("fit logistic model",
		zap.Int("n_examples", len(examples)),
		zap.Strings("recommenders", t.recommenders.Names()),
		zap.Float64("lr", t.lr),
		zap.Int("n_epochs", t.nEpochs))
	features, err := t.cacheFeatures(ctx, examples)
	if err != nil {
		return nil, errors.Trace(err)
	}
	return t.fit(ctx, examples, features)
}

// cacheFeatures builds features keyed by example id. Examples sharing an id keep the
// features of the last one.
func (t *Trainer) cacheFeatures(ctx context.Context, examples []dataset.TrainingExample) (map[int64][]float64, error) {
	start := time.Now()
	_, span := progress.Start(ctx, "CacheFeatures", len(examples))
	defer span.End()
	features := make(map[int64][]float64, len(examples))
	for _, example := range examples {
		estimates, err := t.recommenders.estimates(ctx, example.UserId, example.ItemId)
		if err != nil {
			span.Fail(err)
			return nil, errors.Trace(err)
		}
		features[example.Id] = BuildFeatures(example.UserId, example.ItemId, t.bias, t.summary, estimates)
		span.Add(1)
	}
	CacheFeaturesSeconds.Set(time.Since(start).Seconds())
	log.Logger().Debug("cache features", zap.Int("n_features", len(features)), zap.Duration("used_time", time.Since(start)))
	return features, nil
}

func (t *Trainer) fit(ctx context.Context, examples []dataset.TrainingExample, features map[int64][]float64) (*LogisticModel, error) {
	start := time.Now()
	_, span := progress.Start(ctx, "FitLogisticModel", t.nEpochs)
	defer span.End()
	current := NewZeroModel(2 + t.recommenders.Count())
	order := append([]dataset.TrainingExample(nil), examples...)
	for epoch := 1; epoch <= t.nEpochs; epoch++ {
		if err := ctx.Err(); err != nil {
			span.Fail(err)
			return nil, errors.Trace(err)
		}
		fitStart := time.Now()
		base.Permute(t.rng, order)
		for _, example := range order {
			x, ok := features[example.Id]
			if !ok {
				err := errors.NotFoundf("features of example %d", example.Id)
				span.Fail(err)
				return nil, err
			}
			if len(x) != current.Len() {
				err := errors.NotValidf("features of example %d with length %d", example.Id, len(x))
				span.Fail(err)
				return nil, err
			}
			current = current.step(t.lr, example.Label, x)
		}
		span.Add(1)
		FitEpochsTotal.Inc()
		log.Logger().Debug("fit logistic model",
			zap.Int("epoch", epoch),
			zap.Int("n_epochs", t.nEpochs),
			zap.Float64("intercept", current.intercept),
			zap.Duration("used_time", time.Since(fitStart)))
		if t.observer != nil {
			t.observer.OnEpoch(epoch, t.nEpochs, current)
		}
	}
	FitSeconds.Set(time.Since(start).Seconds())
	log.Logger().Info("fit logistic model complete",
		zap.String("model", current.String()),
		zap.Duration("used_time", time.Since(start)))
	return current, nil
}

// step returns the model after one gradient step on features x with label y.
func (m *LogisticModel) step(lr, y float64, x []float64) *LogisticModel {
	step := lr * y * m.evaluate(-y, x)
	weights := make([]float64, len(m.weights))
	for j, w := range m.weights {
		weights[j] = w + step*x[j]
	}
	return &LogisticModel{intercept: m.intercept + step, weights: weights}
}
