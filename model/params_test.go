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

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParams_GetInt(t *testing.T) {
	p := Params{}
	// Empty case
	assert.Equal(t, -1, p.GetInt(NEpochs, -1))
	// Normal case
	p[NEpochs] = 100
	assert.Equal(t, 100, p.GetInt(NEpochs, -1))
	// Wrong type case
	p[NEpochs] = "hello"
	assert.Equal(t, -1, p.GetInt(NEpochs, -1))
}

func TestParams_GetInt64(t *testing.T) {
	p := Params{}
	// Empty case
	assert.Equal(t, int64(-1), p.GetInt64(RandomState, -1))
	// Normal case
	p[RandomState] = int64(100)
	assert.Equal(t, int64(100), p.GetInt64(RandomState, -1))
	// Int case
	p[RandomState] = 100
	assert.Equal(t, int64(100), p.GetInt64(RandomState, -1))
	// Wrong type case
	p[RandomState] = "hello"
	assert.Equal(t, int64(-1), p.GetInt64(RandomState, -1))
}

func TestParams_GetFloat64(t *testing.T) {
	p := Params{}
	// Empty case
	assert.Equal(t, -1.0, p.GetFloat64(Lr, -1))
	// Normal case
	p[Lr] = 1.0
	assert.Equal(t, 1.0, p.GetFloat64(Lr, -1))
	// Float32 case
	p[Lr] = float32(0.5)
	assert.Equal(t, 0.5, p.GetFloat64(Lr, -1))
	// Int case
	p[Lr] = 1
	assert.Equal(t, 1.0, p.GetFloat64(Lr, -1))
	// Wrong type case
	p[Lr] = "hello"
	assert.Equal(t, -1.0, p.GetFloat64(Lr, -1))
}
