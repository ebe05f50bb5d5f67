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

package dataset

import (
	"context"
	"time"

	"github.com/gorse-io/hybrid/base/log"
	"github.com/gorse-io/hybrid/base/progress"
	"github.com/gorse-io/hybrid/model/bias"
	"github.com/gorse-io/hybrid/storage/data"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

// TrainingExample is a labelled user-item pair. Label is +1 for positive and -1 for negative.
type TrainingExample struct {
	Id     int64
	UserId string
	ItemId string
	Label  float64
}

type Dataset struct {
	examples []TrainingExample
	itemDict *FreqDict
	bias     *bias.Model
}

func NewDataset(exampleCount int) *Dataset {
	return &Dataset{
		examples: make([]TrainingExample, 0, exampleCount),
		itemDict: NewFreqDict(),
		bias:     bias.NewModel(0, nil, nil),
	}
}

// TuneExamples returns the held-out examples used to tune the blend.
func (d *Dataset) TuneExamples() []TrainingExample {
	return d.examples
}

func (d *Dataset) CountExamples() int {
	return len(d.examples)
}

// CountItems returns the number of distinct rated items.
func (d *Dataset) CountItems() int {
	return d.itemDict.Count()
}

// ItemRatingCount returns the number of ratings of an item, zero for unknown items.
func (d *Dataset) ItemRatingCount(itemId string) int {
	return d.itemDict.FreqOf(itemId)
}

func (d *Dataset) BiasModel() *bias.Model {
	return d.bias
}

func (d *Dataset) SetBiasModel(m *bias.Model) {
	d.bias = m
}

func (d *Dataset) AddExample(example TrainingExample) {
	d.examples = append(d.examples, example)
}

// AddRatings counts n ratings of an item.
func (d *Dataset) AddRatings(itemId string, n int) {
	d.itemDict.Add(itemId, n)
}

// LoadDataFromDatabase loads examples, item rating counts and biases from the data store.
func LoadDataFromDatabase(ctx context.Context, database data.Database) (*Dataset, error) {
	ctx, span := progress.Start(ctx, "LoadDataFromDatabase", 3)
	defer span.End()
	start := time.Now()

	examples, err := database.GetExamples(ctx)
	if err != nil {
		span.Fail(err)
		return nil, errors.Trace(err)
	}
	dataset := NewDataset(len(examples))
	for _, example := range examples {
		dataset.AddExample(TrainingExample{
			Id:     example.Id,
			UserId: example.UserId,
			ItemId: example.ItemId,
			Label:  example.Label,
		})
	}
	span.Add(1)

	counts, err := database.CountItemRatings(ctx)
	if err != nil {
		span.Fail(err)
		return nil, errors.Trace(err)
	}
	for itemId, count := range counts {
		dataset.AddRatings(itemId, count)
	}
	span.Add(1)

	biases, err := database.GetBiases(ctx)
	if err != nil {
		span.Fail(err)
		return nil, errors.Trace(err)
	}
	var intercept float64
	userBias := make(map[string]float64)
	itemBias := make(map[string]float64)
	for _, b := range biases {
		switch b.Kind {
		case data.GlobalBias:
			intercept = b.Bias
		case data.UserBias:
			userBias[b.Id] = b.Bias
		case data.ItemBias:
			itemBias[b.Id] = b.Bias
		default:
			log.Logger().Warn("unknown bias kind", zap.String("kind", string(b.Kind)), zap.String("id", b.Id))
		}
	}
	dataset.SetBiasModel(bias.NewModel(intercept, userBias, itemBias))
	span.Add(1)

	log.Logger().Info("load dataset from database",
		zap.Int("n_examples", dataset.CountExamples()),
		zap.Int("n_rated_items", dataset.CountItems()),
		zap.Int("n_user_biases", len(userBias)),
		zap.Int("n_item_biases", len(itemBias)),
		zap.Duration("used_time", time.Since(start)))
	return dataset, nil
}
