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

// Package tasks classifies plain-English task descriptions and executes them
// inside the data-directory sandbox.
package tasks

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/dataforge/dataforge/services/agent/llm"
	"github.com/dataforge/dataforge/services/agent/sandbox"
	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("component", "tasks")

// Result is the JSON payload a handler returns.
type Result map[string]interface{}

type handlerFunc func(ctx context.Context, task string) (Result, error)

// Runner routes a task description to the matching handler.
type Runner struct {
	llm      *llm.Client
	box      *sandbox.Sandbox
	rest     *resty.Client
	handlers map[string]handlerFunc
}

func NewRunner(llmClient *llm.Client, box *sandbox.Sandbox) *Runner {
	runner := &Runner{
		llm:  llmClient,
		box:  box,
		rest: resty.New(),
	}
	runner.handlers = map[string]handlerFunc{
		"A1":  runner.handleDatagen,
		"A2":  runner.handleFormatMarkdown,
		"A3":  runner.handleCountWeekdays,
		"A4":  runner.handleSortContacts,
		"A5":  runner.handleRecentLogs,
		"A6":  runner.handleMarkdownIndex,
		"A7":  runner.handleExtractEmail,
		"A8":  runner.handleExtractCard,
		"A9":  runner.handleSimilarComments,
		"A10": runner.handleTicketSales,
	}
	return runner
}

const classifyPromptTemplate = `Classify this task into one of these categories:
A1: datagen.py installation/running
A2: markdown formatting
A3: counting weekdays
A4: sorting contacts
A5: log file processing
A6: markdown indexing
A7: email extraction
A8: credit card extraction
A9: comment similarity
A10: ticket sales calculation
B3-B10: custom business tasks

Task: %s

Return only the category (e.g. 'A1', 'B3').`

var categoryRegex = regexp.MustCompile(`^[AB]\d{1,2}$`)

func (r *Runner) classify(ctx context.Context, task string) (string, error) {
	reply, err := r.llm.Complete(ctx, fmt.Sprintf(classifyPromptTemplate, task))
	if err != nil {
		return "", err
	}
	return strings.ToUpper(strings.TrimSpace(reply)), nil
}

// Execute validates, classifies and runs a task. It returns the resolved
// category alongside the handler result.
func (r *Runner) Execute(ctx context.Context, task string) (string, Result, error) {
	if strings.TrimSpace(task) == "" {
		return "", nil, NewInvalidTaskError("empty task description")
	}
	// Path traversal in the description itself is rejected up front, every
	// extracted path is checked again by the sandbox.
	if strings.Contains(task, "..") {
		return "", nil, NewInvalidTaskError("invalid path access")
	}

	category, err := r.classify(ctx, task)
	if err != nil {
		return "", nil, err
	}
	if !categoryRegex.MatchString(category) {
		log.WithField("category", category).Debug("unrecognized category, using the business dispatcher")
	}

	if handler, ok := r.handlers[category]; ok {
		result, err := handler(ctx, task)
		return category, result, err
	}

	// B3-B10 and anything the classifier could not pin down
	result, err := r.handleBusinessTask(ctx, task)
	return category, result, err
}

const extractParametersPromptTemplate = `Extract parameters from this task:
%s

Return as JSON with these fields:
- input_file: input file path if any
- output_file: output file path if any`

type fileParameters struct {
	InputFile  string `json:"input_file"`
	OutputFile string `json:"output_file"`
}

// extractParameters asks the LLM for the input/output files a task refers to.
func (r *Runner) extractParameters(ctx context.Context, task string) (fileParameters, error) {
	params := fileParameters{}
	err := r.llm.CompleteJSON(ctx, fmt.Sprintf(extractParametersPromptTemplate, task), &params)
	if err != nil {
		return fileParameters{}, fmt.Errorf("error extracting parameters: %w", err)
	}
	return params, nil
}
