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

package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultURL            = "http://aiproxy.sanand.workers.dev/openai/v1"
	DefaultModel          = "gpt-4o-mini"
	DefaultEmbeddingModel = "text-embedding-3-small"
)

// Client talks to an OpenAI-compatible API through the AI proxy.
type Client struct {
	rest           *resty.Client
	model          string
	embeddingModel string
}

func NewClient(baseURL string, token string) *Client {
	rest := resty.New()
	rest.SetBaseURL(strings.TrimSuffix(baseURL, "/"))
	rest.SetHeader("Authorization", "Bearer "+token)
	rest.SetHeader("Content-Type", "application/json")

	return &Client{
		rest:           rest,
		model:          DefaultModel,
		embeddingModel: DefaultEmbeddingModel,
	}
}

// RestClient exposes the underlying resty client, used to tune transport
// settings and to install mock transports in tests.
func (c *Client) RestClient() *resty.Client {
	return c.rest
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
}

// Complete sends a single user prompt and returns the model's reply, trimmed.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	var result chatResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model:    c.model,
			Messages: []chatMessage{{Role: "user", Content: prompt}},
		}).
		SetResult(&result).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("llm request failed: %w", err)
	}
	if resp.IsError() {
		return "", apiStatusError(resp)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("llm response contains no choices")
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// CompleteJSON sends a prompt expected to yield a JSON document and decodes
// the reply into out.
func (c *Client) CompleteJSON(ctx context.Context, prompt string, out interface{}) error {
	reply, err := c.Complete(ctx, prompt)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(reply), out); err != nil {
		return fmt.Errorf("llm reply is not valid JSON: %w", err)
	}
	return nil
}

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
	Error *apiError `json:"error,omitempty"`
}

// Embed returns one embedding vector per input, in input order.
func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float64, error) {
	var result embeddingsResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetBody(embeddingsRequest{Model: c.embeddingModel, Input: inputs}).
		SetResult(&result).
		Post("/embeddings")
	if err != nil {
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}
	if resp.IsError() {
		return nil, apiStatusError(resp)
	}
	if len(result.Data) != len(inputs) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(inputs), len(result.Data))
	}

	embeddings := make([][]float64, len(result.Data))
	for i, item := range result.Data {
		embeddings[i] = item.Embedding
	}
	return embeddings, nil
}

type transcriptionResponse struct {
	Text  string    `json:"text"`
	Error *apiError `json:"error,omitempty"`
}

// Transcribe posts an audio payload to the transcription endpoint.
func (c *Client) Transcribe(ctx context.Context, fileName string, audio []byte) (string, error) {
	var result transcriptionResponse
	resp, err := c.rest.R().
		SetContext(ctx).
		SetHeader("Content-Type", "").
		SetFileReader("file", fileName, strings.NewReader(string(audio))).
		SetFormData(map[string]string{"model": "whisper-1"}).
		SetResult(&result).
		Post("/audio/transcriptions")
	if err != nil {
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	if resp.IsError() {
		return "", apiStatusError(resp)
	}
	return strings.TrimSpace(result.Text), nil
}

func apiStatusError(resp *resty.Response) error {
	var body struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Error != nil && body.Error.Message != "" {
		return fmt.Errorf("llm api error (status %d): %s", resp.StatusCode(), body.Error.Message)
	}
	return fmt.Errorf("llm api error (status %d)", resp.StatusCode())
}
