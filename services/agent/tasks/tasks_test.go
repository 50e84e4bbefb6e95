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

package tasks

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/dataforge/dataforge/services/agent/llm"
	"github.com/dataforge/dataforge/services/agent/sandbox"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLLMURL = "http://aiproxy.test/openai/v1"

func newTestRunner(t *testing.T) *Runner {
	box, err := sandbox.New(t.TempDir())
	require.NoError(t, err)
	client := llm.NewClient(testLLMURL, "test-token")
	runner := NewRunner(client, box)
	// resty carries its own transport, the default one is not enough
	httpmock.ActivateNonDefault(client.RestClient().GetClient())
	httpmock.ActivateNonDefault(runner.rest.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)
	return runner
}

// registerChatResponder maps a prompt prefix to the canned model reply.
func registerChatResponder(replies map[string]string) {
	httpmock.RegisterResponder(
		"POST",
		testLLMURL+"/chat/completions",
		func(req *http.Request) (*http.Response, error) {
			payload := struct {
				Messages []struct {
					Content string `json:"content"`
				} `json:"messages"`
			}{}
			if err := json.NewDecoder(req.Body).Decode(&payload); err != nil || len(payload.Messages) == 0 {
				return httpmock.NewStringResponse(400, "bad request"), nil
			}
			prompt := payload.Messages[0].Content
			for prefix, reply := range replies {
				if len(prompt) >= len(prefix) && prompt[:len(prefix)] == prefix {
					return httpmock.NewJsonResponse(200, map[string]interface{}{
						"choices": []map[string]interface{}{
							{"message": map[string]interface{}{"role": "assistant", "content": reply}},
						},
					})
				}
			}
			return httpmock.NewStringResponse(500, "unexpected prompt"), nil
		},
	)
}

const (
	classifyPrefix = "Classify this task"
	extractPrefix  = "Extract parameters"
	businessPrefix = "Analyze this task"
)

func TestRunnerHandlerCategories(t *testing.T) {
	runner := newTestRunner(t)
	for _, category := range []string{"A1", "A2", "A3", "A4", "A5", "A6", "A7", "A8", "A9", "A10"} {
		assert.Contains(t, runner.handlers, category)
	}
}

func TestExecuteEmptyTask(t *testing.T) {
	runner := newTestRunner(t)

	_, _, err := runner.Execute(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, IsInvalidTask(err))
}

func TestExecuteRejectsPathTraversal(t *testing.T) {
	runner := newTestRunner(t)

	_, _, err := runner.Execute(context.Background(), "delete ../etc/passwd")
	require.Error(t, err)
	assert.True(t, IsInvalidTask(err))
}

func TestExecuteCountWeekdays(t *testing.T) {
	runner := newTestRunner(t)
	require.NoError(t, runner.box.WriteFile(
		"dates.txt",
		[]byte("2024-01-03\n2024-01-04\n\n2024-01-10\n"),
	))
	registerChatResponder(map[string]string{
		classifyPrefix: "A3",
		extractPrefix:  `{"input_file": "dates.txt", "output_file": "dates-count.txt"}`,
	})

	category, result, err := runner.Execute(
		context.Background(),
		"Count the Wednesdays in dates.txt and write the count to dates-count.txt",
	)
	require.NoError(t, err)
	assert.Equal(t, "A3", category)
	assert.Equal(t, 2, result["count"])

	data, err := runner.box.ReadFile("dates-count.txt")
	require.NoError(t, err)
	assert.Equal(t, "2", string(data))
}

func TestExecuteCountWeekdaysInvalidDate(t *testing.T) {
	runner := newTestRunner(t)
	require.NoError(t, runner.box.WriteFile("dates.txt", []byte("not-a-date\n")))
	registerChatResponder(map[string]string{
		classifyPrefix: "A3",
		extractPrefix:  `{"input_file": "dates.txt", "output_file": "dates-count.txt"}`,
	})

	_, _, err := runner.Execute(context.Background(), "Count the Wednesdays in dates.txt")
	assert.Error(t, err)
}

func TestExecuteSortContacts(t *testing.T) {
	runner := newTestRunner(t)
	require.NoError(t, runner.box.WriteJSON("contacts.json", []map[string]string{
		{"first_name": "Zoe", "last_name": "Baker"},
		{"first_name": "Zoe", "last_name": "Adams"},
		{"first_name": "Amy", "last_name": "Adams"},
	}))
	registerChatResponder(map[string]string{classifyPrefix: "A4"})

	category, _, err := runner.Execute(context.Background(), "Sort the contacts by last then first name")
	require.NoError(t, err)
	assert.Equal(t, "A4", category)

	var sorted []map[string]string
	require.NoError(t, runner.box.ReadJSON("contacts-sorted.json", &sorted))
	require.Len(t, sorted, 3)
	assert.Equal(t, "Amy", sorted[0]["first_name"])
	assert.Equal(t, "Zoe", sorted[1]["first_name"])
	assert.Equal(t, "Baker", sorted[2]["last_name"])
}

func TestExecuteBusinessFallbackOnUnknownCategory(t *testing.T) {
	runner := newTestRunner(t)
	registerChatResponder(map[string]string{
		classifyPrefix: "SOMETHING ELSE",
		businessPrefix: `{"type": "teleport", "parameters": {}}`,
	})

	_, _, err := runner.Execute(context.Background(), "do something unclassifiable")
	require.Error(t, err)
	assert.True(t, IsInvalidTask(err))
}

func TestExecuteClassificationFailure(t *testing.T) {
	runner := newTestRunner(t)
	httpmock.RegisterResponder(
		"POST",
		testLLMURL+"/chat/completions",
		httpmock.NewStringResponder(500, `{"error": {"message": "boom"}}`),
	)

	_, _, err := runner.Execute(context.Background(), "count the Wednesdays")
	require.Error(t, err)
	assert.False(t, IsInvalidTask(err))
}
