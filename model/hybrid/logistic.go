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
	"math"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

// LogisticModel is an immutable logistic regression over feature vectors. Updates
// create new instances, so a model can be shared between goroutines freely.
type LogisticModel struct {
	intercept float64
	weights   []float64
}

// NewLogisticModel creates a model. The weights are copied.
func NewLogisticModel(intercept float64, weights []float64) *LogisticModel {
	return &LogisticModel{
		intercept: intercept,
		weights:   append([]float64(nil), weights...),
	}
}

// NewZeroModel creates a model with n zero weights and a zero intercept.
func NewZeroModel(n int) *LogisticModel {
	return &LogisticModel{weights: make([]float64, n)}
}

func (m *LogisticModel) Intercept() float64 {
	return m.intercept
}

// Weights returns a copy of the weights.
func (m *LogisticModel) Weights() []float64 {
	return append([]float64(nil), m.weights...)
}

// Len returns the number of weights.
func (m *LogisticModel) Len() int {
	return len(m.weights)
}

// Evaluate computes
//
//	1 / (1 + exp(coefficient * (intercept + Σ w_j x_j)))
//
// The prediction of the model is Evaluate(1, x), and Evaluate(-y, x) is the
// multiplier of the gradient for label y.
func (m *LogisticModel) Evaluate(coefficient float64, features []float64) (float64, error) {
	if len(features) != len(m.weights) {
		return 0, errors.NotValidf("feature vector of length %d for model with %d weights", len(features), len(m.weights))
	}
	return m.evaluate(coefficient, features), nil
}

func (m *LogisticModel) evaluate(coefficient float64, features []float64) float64 {
	z := m.intercept
	for j, w := range m.weights {
		z += w * features[j]
	}
	return 1 / (1 + math.Exp(coefficient*z))
}

func (m *LogisticModel) String() string {
	var builder strings.Builder
	builder.WriteString("LogisticModel(intercept=")
	builder.WriteString(strconv.FormatFloat(m.intercept, 'g', -1, 64))
	builder.WriteString(", weights=[")
	for j, w := range m.weights {
		if j > 0 {
			builder.WriteString(", ")
		}
		builder.WriteString(strconv.FormatFloat(w, 'g', -1, 64))
	}
	builder.WriteString("])")
	return builder.String()
}

// FeatureWeight is the weight of a named feature.
type FeatureWeight struct {
	Name   string
	Weight float64
}

// Named pairs weights with feature names in feature order.
func (m *LogisticModel) Named(names []string) ([]FeatureWeight, error) {
	if len(names) != len(m.weights) {
		return nil, errors.NotValidf("%d names for model with %d weights", len(names), len(m.weights))
	}
	named := make([]FeatureWeight, len(names))
	for j, name := range names {
		named[j] = FeatureWeight{Name: name, Weight: m.weights[j]}
	}
	return named, nil
}
