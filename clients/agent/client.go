// Copyright 2024 The Dataforge Authors <dev@dataforge.dev>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package agent is the REST client for a running automation agent.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/dataforge/dataforge/services/agent/journal"
)

type Client struct {
	rest *resty.Client
}

func NewClient(baseURL string) *Client {
	rest := resty.New()
	rest.SetBaseURL(strings.TrimSuffix(baseURL, "/"))
	return &Client{rest: rest}
}

// RestClient exposes the underlying resty client, tests install mock
// transports through it.
func (c *Client) RestClient() *resty.Client {
	return c.rest
}

type Info struct {
	Message     string `json:"message"`
	Version     string `json:"version"`
	VersionHash string `json:"version_hash"`
}

func (c *Client) Info(ctx context.Context) (Info, error) {
	info := Info{}
	resp, err := c.rest.R().SetContext(ctx).SetResult(&info).Get("/")
	if err != nil {
		return Info{}, err
	}
	if resp.IsError() {
		return Info{}, statusError(resp)
	}
	return info, nil
}

type Status struct {
	Status  string   `json:"status"`
	Port    uint     `json:"port"`
	DataDir string   `json:"data_dir"`
	Tools   []string `json:"tools"`
	Runs    int      `json:"runs"`
}

func (c *Client) Status(ctx context.Context) (Status, error) {
	status := Status{}
	resp, err := c.rest.R().SetContext(ctx).SetResult(&status).Get("/status")
	if err != nil {
		return Status{}, err
	}
	if resp.IsError() {
		return Status{}, statusError(resp)
	}
	return status, nil
}

type RunReply struct {
	Status   string                 `json:"status"`
	Message  string                 `json:"message"`
	RunID    uint64                 `json:"run_id"`
	Category string                 `json:"category"`
	Result   map[string]interface{} `json:"result"`
}

func (c *Client) RunTask(ctx context.Context, task string) (RunReply, error) {
	reply := RunReply{}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("task", task).
		SetResult(&reply).
		Post("/run")
	if err != nil {
		return RunReply{}, err
	}
	if resp.IsError() {
		return RunReply{}, statusError(resp)
	}
	return reply, nil
}

func (c *Client) History(ctx context.Context, count uint) ([]journal.Record, error) {
	reply := struct {
		Runs []journal.Record `json:"runs"`
	}{}
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("count", strconv.FormatUint(uint64(count), 10)).
		SetResult(&reply).
		Get("/runs")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, statusError(resp)
	}
	return reply.Runs, nil
}

func (c *Client) ReadFile(ctx context.Context, path string) ([]byte, error) {
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParam("path", path).
		Get("/read")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, statusError(resp)
	}
	return resp.Body(), nil
}

func statusError(resp *resty.Response) error {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Message != "" {
		return fmt.Errorf("agent error (status %d): %s", resp.StatusCode(), body.Message)
	}
	return fmt.Errorf("agent error (status %d)", resp.StatusCode())
}
