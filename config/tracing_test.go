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

package config

import (
	"context"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
)

func TestNewTracerProvider(t *testing.T) {
	// disabled
	cfg := GetDefaultConfig().Tracing
	tp, err := cfg.NewTracerProvider()
	assert.NoError(t, err)
	_, ok := tp.(*tracesdk.TracerProvider)
	assert.False(t, ok)

	// zipkin with ratio sampler
	cfg.EnableTracing = true
	cfg.Exporter = "zipkin"
	cfg.CollectorEndpoint = "http://localhost:9411/api/v2/spans"
	cfg.Sampler = "ratio"
	cfg.Ratio = 0.5
	tp, err = cfg.NewTracerProvider()
	assert.NoError(t, err)
	sdkProvider, ok := tp.(*tracesdk.TracerProvider)
	if assert.True(t, ok) {
		assert.NoError(t, sdkProvider.Shutdown(context.Background()))
	}

	// unknown sampler
	cfg.Sampler = "sometimes"
	_, err = cfg.NewTracerProvider()
	assert.True(t, errors.Is(err, errors.NotSupported))
}
