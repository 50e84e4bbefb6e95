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
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockedClient(t *testing.T) *Client {
	client := NewClient("http://aiproxy.test/openai/v1", "a_token")
	httpmock.ActivateNonDefault(client.rest.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return client
}

func TestComplete(t *testing.T) {
	client := newMockedClient(t)

	httpmock.RegisterResponder(
		"POST",
		"http://aiproxy.test/openai/v1/chat/completions",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "Bearer a_token", req.Header.Get("Authorization"))
			return httpmock.NewJsonResponse(http.StatusOK, map[string]interface{}{
				"choices": []map[string]interface{}{
					{"message": map[string]string{"role": "assistant", "content": " A3 \n"}},
				},
			})
		},
	)

	reply, err := client.Complete(context.Background(), "classify this")
	require.NoError(t, err)
	assert.Equal(t, "A3", reply)
}

func TestCompleteAPIError(t *testing.T) {
	client := newMockedClient(t)

	httpmock.RegisterResponder(
		"POST",
		"http://aiproxy.test/openai/v1/chat/completions",
		httpmock.NewStringResponder(
			http.StatusUnauthorized,
			`{"error":{"message":"invalid token"}}`,
		),
	)

	_, err := client.Complete(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token")
	assert.Contains(t, err.Error(), "401")
}

func TestCompleteNoChoices(t *testing.T) {
	client := newMockedClient(t)

	httpmock.RegisterResponder(
		"POST",
		"http://aiproxy.test/openai/v1/chat/completions",
		httpmock.NewStringResponder(http.StatusOK, `{"choices":[]}`),
	)

	_, err := client.Complete(context.Background(), "anything")
	assert.Error(t, err)
}

func TestCompleteJSON(t *testing.T) {
	client := newMockedClient(t)

	httpmock.RegisterResponder(
		"POST",
		"http://aiproxy.test/openai/v1/chat/completions",
		httpmock.NewStringResponder(
			http.StatusOK,
			`{"choices":[{"message":{"content":"{\"input\":\"dates.txt\",\"output\":\"count.txt\"}"}}]}`,
		).HeaderSet(http.Header{"Content-Type": []string{"application/json"}}),
	)

	var params struct {
		Input  string `json:"input"`
		Output string `json:"output"`
	}
	require.NoError(t, client.CompleteJSON(context.Background(), "extract files", &params))
	assert.Equal(t, "dates.txt", params.Input)
	assert.Equal(t, "count.txt", params.Output)
}

func TestCompleteJSONMalformed(t *testing.T) {
	client := newMockedClient(t)

	httpmock.RegisterResponder(
		"POST",
		"http://aiproxy.test/openai/v1/chat/completions",
		httpmock.NewStringResponder(
			http.StatusOK,
			`{"choices":[{"message":{"content":"not json"}}]}`,
		),
	)

	var out map[string]interface{}
	err := client.CompleteJSON(context.Background(), "extract", &out)
	assert.Error(t, err)
}

func TestEmbed(t *testing.T) {
	client := newMockedClient(t)

	httpmock.RegisterResponder(
		"POST",
		"http://aiproxy.test/openai/v1/embeddings",
		httpmock.NewStringResponder(
			http.StatusOK,
			`{"data":[{"embedding":[1,0]},{"embedding":[0,1]}]}`,
		).HeaderSet(http.Header{"Content-Type": []string{"application/json"}}),
	)

	embeddings, err := client.Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, embeddings, 2)
	assert.Equal(t, []float64{1, 0}, embeddings[0])
	assert.Equal(t, []float64{0, 1}, embeddings[1])
}

func TestEmbedCountMismatch(t *testing.T) {
	client := newMockedClient(t)

	httpmock.RegisterResponder(
		"POST",
		"http://aiproxy.test/openai/v1/embeddings",
		httpmock.NewStringResponder(http.StatusOK, `{"data":[{"embedding":[1,0]}]}`),
	)

	_, err := client.Embed(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestTranscribe(t *testing.T) {
	client := newMockedClient(t)

	httpmock.RegisterResponder(
		"POST",
		"http://aiproxy.test/openai/v1/audio/transcriptions",
		httpmock.NewStringResponder(http.StatusOK, `{"text":"hello world"}`).
			HeaderSet(http.Header{"Content-Type": []string{"application/json"}}),
	)

	text, err := client.Transcribe(context.Background(), "note.mp3", []byte{0x01})
	require.NoError(t, err)
	assert.Equal(t, "hello world", text)
}
