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

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/juju/errors"
)

// HybridClient calls the RESTful API of a blend server.
type HybridClient struct {
	entryPoint string
	apiKey     string
	httpClient http.Client
}

func NewHybridClient(entryPoint, apiKey string) *HybridClient {
	return &HybridClient{
		entryPoint: strings.TrimSuffix(entryPoint, "/"),
		apiKey:     apiKey,
	}
}

// Score scores items for a user. Duplicated items are scored once.
func (c *HybridClient) Score(ctx context.Context, userId string, itemIds []string) ([]ItemScore, error) {
	query := url.Values{"item": itemIds}
	result := make([]ItemScore, 0)
	err := c.get(ctx, "/api/score/"+url.PathEscape(userId)+"?"+query.Encode(), &result)
	return result, err
}

func (c *HybridClient) ScoreOne(ctx context.Context, userId, itemId string) (*ItemScore, error) {
	var result ItemScore
	if err := c.get(ctx, "/api/score/"+url.PathEscape(userId)+"/"+url.PathEscape(itemId), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetModel returns the intercept and the named weights of the serving model.
func (c *HybridClient) GetModel(ctx context.Context) (*Model, error) {
	var result Model
	if err := c.get(ctx, "/api/model", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HybridClient) get(ctx context.Context, path string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.entryPoint+path, nil)
	if err != nil {
		return errors.Trace(err)
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Trace(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Trace(err)
	}
	if resp.StatusCode != http.StatusOK {
		return ErrorMessage{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return errors.Trace(json.Unmarshal(body, result))
}
