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

package bias

import "maps"

// Model holds the terms of a baseline estimate
//
//	b_{ui} = μ + b_u + b_i
//
// If user u is unknown, then the bias b_u is assumed to be zero. The same
// applies for item i with b_i. Terms are fitted elsewhere and never change
// after construction, so a Model is safe for concurrent reads.
type Model struct {
	intercept float64            // mu
	userBias  map[string]float64 // b_u
	itemBias  map[string]float64 // b_i
}

// NewModel creates a bias model. Maps are copied.
func NewModel(intercept float64, userBias, itemBias map[string]float64) *Model {
	m := &Model{
		intercept: intercept,
		userBias:  make(map[string]float64, len(userBias)),
		itemBias:  make(map[string]float64, len(itemBias)),
	}
	maps.Copy(m.userBias, userBias)
	maps.Copy(m.itemBias, itemBias)
	return m
}

func (m *Model) Intercept() float64 {
	return m.intercept
}

func (m *Model) UserBias(userId string) float64 {
	return m.userBias[userId]
}

func (m *Model) ItemBias(itemId string) float64 {
	return m.itemBias[itemId]
}

func (m *Model) CountUsers() int {
	return len(m.userBias)
}

func (m *Model) CountItems() int {
	return len(m.itemBias)
}
