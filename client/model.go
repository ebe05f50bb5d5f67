// Copyright 2022 gorse Project Authors
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

package client

import "fmt"

// ErrorMessage is returned when the server answers with a non-200 status.
type ErrorMessage struct {
	StatusCode int
	Message    string
}

func (e ErrorMessage) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Message)
}

type ItemScore struct {
	Id    string  `json:"Id"`
	Score float64 `json:"Score"`
}

type FeatureWeight struct {
	Name   string  `json:"Name"`
	Weight float64 `json:"Weight"`
}

type Model struct {
	Intercept float64         `json:"Intercept"`
	Weights   []FeatureWeight `json:"Weights"`
}
