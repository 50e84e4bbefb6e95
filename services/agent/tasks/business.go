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
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dataforge/dataforge/launcher"
	"github.com/yuin/goldmark"
)

const businessPromptTemplate = `Analyze this task and return:
{
    "type": "api_fetch|git|sql|scraping|image|audio|markdown|csv",
    "parameters": {...task specific parameters...}
}

Task: %s`

type businessTask struct {
	Type       string          `json:"type"`
	Parameters json.RawMessage `json:"parameters"`
}

// handleBusinessTask covers B3-B10: the LLM extracts a task type and its
// parameters, then the matching handler runs.
func (r *Runner) handleBusinessTask(ctx context.Context, task string) (Result, error) {
	info := businessTask{}
	if err := r.llm.CompleteJSON(ctx, fmt.Sprintf(businessPromptTemplate, task), &info); err != nil {
		return nil, err
	}

	decode := func(out interface{}) error {
		if len(info.Parameters) == 0 {
			return NewInvalidTaskError("task parameters missing")
		}
		if err := json.Unmarshal(info.Parameters, out); err != nil {
			return fmt.Errorf("invalid task parameters: %w", err)
		}
		return nil
	}

	switch info.Type {
	case "api_fetch":
		return r.handleAPIFetch(ctx, decode)
	case "git":
		return r.handleGitOperations(ctx, decode)
	case "sql":
		return r.handleSQLQuery(ctx, decode)
	case "scraping":
		return r.handleWebScraping(ctx, decode)
	case "image":
		return r.handleImageProcessing(ctx, decode)
	case "audio":
		return r.handleAudioTranscription(ctx, decode)
	case "markdown":
		return r.handleMarkdownConversion(ctx, decode)
	case "csv":
		return r.handleCSVFiltering(ctx, decode)
	default:
		return nil, NewInvalidTaskError("unsupported task type %q", info.Type)
	}
}

type decodeFunc func(out interface{}) error

// B3: fetch an API response and persist it
func (r *Runner) handleAPIFetch(ctx context.Context, decode decodeFunc) (Result, error) {
	params := struct {
		URL        string            `json:"url"`
		Method     string            `json:"method"`
		Headers    map[string]string `json:"headers"`
		OutputFile string            `json:"output_file"`
	}{}
	if err := decode(&params); err != nil {
		return nil, err
	}
	if params.Method == "" {
		params.Method = "GET"
	}

	resp, err := r.rest.R().
		SetContext(ctx).
		SetHeaders(params.Headers).
		Execute(strings.ToUpper(params.Method), params.URL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("api fetch failed (status %d)", resp.StatusCode())
	}

	if strings.HasPrefix(resp.Header().Get("Content-Type"), "application/json") {
		var body interface{}
		if err := json.Unmarshal(resp.Body(), &body); err != nil {
			return nil, fmt.Errorf("api returned invalid JSON: %w", err)
		}
		if err := r.box.WriteJSON(params.OutputFile, body); err != nil {
			return nil, err
		}
	} else if err := r.box.WriteFile(params.OutputFile, resp.Body()); err != nil {
		return nil, err
	}

	return Result{"output_file": params.OutputFile}, nil
}

// B4: clone or commit the repository under <data>/repo using the provisioned
// git tool
func (r *Runner) handleGitOperations(ctx context.Context, decode decodeFunc) (Result, error) {
	params := struct {
		RepoURL       string `json:"repo_url"`
		Operation     string `json:"operation"`
		Branch        string `json:"branch"`
		CommitMessage string `json:"commit_message"`
	}{}
	if err := decode(&params); err != nil {
		return nil, err
	}

	repoPath, err := r.box.Resolve("repo")
	if err != nil {
		return nil, err
	}

	switch params.Operation {
	case "clone":
		args := []string{"git", "clone"}
		if params.Branch != "" {
			args = append(args, "--branch", params.Branch)
		}
		args = append(args, params.RepoURL, repoPath)
		if _, err := launcher.Output(ctx, "", args...); err != nil {
			return nil, err
		}
	case "commit":
		if _, err := launcher.Output(ctx, repoPath, "git", "add", "-A"); err != nil {
			return nil, err
		}
		// the container carries no global git identity
		if _, err := launcher.Output(ctx, repoPath,
			"git",
			"-c", "user.email=agent@dataforge.dev",
			"-c", "user.name=Dataforge Agent",
			"commit", "-m", params.CommitMessage,
		); err != nil {
			return nil, err
		}
		if _, err := launcher.Output(ctx, repoPath, "git", "push", "origin"); err != nil {
			return nil, err
		}
	default:
		return nil, NewInvalidTaskError("unsupported git operation %q", params.Operation)
	}

	return Result{"operation": params.Operation}, nil
}

// B5: run a query against an SQLite database and persist the rows
func (r *Runner) handleSQLQuery(ctx context.Context, decode decodeFunc) (Result, error) {
	params := struct {
		DatabaseFile string `json:"database_file"`
		Query        string `json:"query"`
		OutputFile   string `json:"output_file"`
	}{}
	if err := decode(&params); err != nil {
		return nil, err
	}

	dbPath, err := r.box.Resolve(params.DatabaseFile)
	if err != nil {
		return nil, err
	}

	columns, rows, err := queryRecords(ctx, dbPath, params.Query)
	if err != nil {
		return nil, err
	}

	if filepath.Ext(params.OutputFile) == ".json" {
		records := make([]map[string]interface{}, 0, len(rows))
		for _, row := range rows {
			record := make(map[string]interface{}, len(columns))
			for i, column := range columns {
				record[column] = row[i]
			}
			records = append(records, record)
		}
		if err := r.box.WriteJSON(params.OutputFile, records); err != nil {
			return nil, err
		}
	} else {
		var sb strings.Builder
		writer := csv.NewWriter(&sb)
		_ = writer.Write(columns)
		for _, row := range rows {
			fields := make([]string, len(row))
			for i, value := range row {
				fields[i] = fmt.Sprintf("%v", value)
			}
			_ = writer.Write(fields)
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return nil, err
		}
		if err := r.box.WriteFile(params.OutputFile, []byte(sb.String())); err != nil {
			return nil, err
		}
	}

	return Result{"rows": len(rows), "output_file": params.OutputFile}, nil
}

func queryRecords(ctx context.Context, dbPath string, query string) ([]string, [][]interface{}, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	records := [][]interface{}{}
	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, nil, err
		}
		for i, value := range values {
			// sqlite returns TEXT as []byte through database/sql
			if raw, ok := value.([]byte); ok {
				values[i] = string(raw)
			}
		}
		records = append(records, values)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	return columns, records, nil
}

// B6: scrape selector matches out of a web page
func (r *Runner) handleWebScraping(ctx context.Context, decode decodeFunc) (Result, error) {
	params := struct {
		URL        string   `json:"url"`
		Selectors  []string `json:"selectors"`
		OutputFile string   `json:"output_file"`
	}{}
	if err := decode(&params); err != nil {
		return nil, err
	}

	resp, err := r.rest.R().SetContext(ctx).Get(params.URL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("page fetch failed (status %d)", resp.StatusCode())
	}

	results := map[string][]string{}
	for _, selector := range params.Selectors {
		matches, err := scrapeSelector(resp.Body(), selector)
		if err != nil {
			return nil, err
		}
		results[selector] = matches
	}

	if err := r.box.WriteJSON(params.OutputFile, results); err != nil {
		return nil, err
	}

	return Result{"output_file": params.OutputFile}, nil
}

// B8: transcribe an audio file
func (r *Runner) handleAudioTranscription(ctx context.Context, decode decodeFunc) (Result, error) {
	params := struct {
		AudioPath  string `json:"audio_path"`
		OutputPath string `json:"output_path"`
	}{}
	if err := decode(&params); err != nil {
		return nil, err
	}

	audio, err := r.box.ReadFile(params.AudioPath)
	if err != nil {
		return nil, err
	}

	text, err := r.llm.Transcribe(ctx, filepath.Base(params.AudioPath), audio)
	if err != nil {
		return nil, err
	}

	if err := r.box.WriteFile(params.OutputPath, []byte(text)); err != nil {
		return nil, err
	}

	return Result{"output_path": params.OutputPath}, nil
}

// B9: render a markdown file to HTML
func (r *Runner) handleMarkdownConversion(_ context.Context, decode decodeFunc) (Result, error) {
	params := struct {
		InputPath  string `json:"input_path"`
		OutputPath string `json:"output_path"`
	}{}
	if err := decode(&params); err != nil {
		return nil, err
	}

	source, err := r.box.ReadFile(params.InputPath)
	if err != nil {
		return nil, err
	}

	var html strings.Builder
	if err := goldmark.Convert(source, &html); err != nil {
		return nil, fmt.Errorf("markdown conversion failed: %w", err)
	}

	if err := r.box.WriteFile(params.OutputPath, []byte(html.String())); err != nil {
		return nil, err
	}

	return Result{"output_path": params.OutputPath}, nil
}

// B10: keep the CSV rows matching every filter condition
func (r *Runner) handleCSVFiltering(_ context.Context, decode decodeFunc) (Result, error) {
	params := struct {
		CSVPath          string            `json:"csv_path"`
		FilterConditions map[string]string `json:"filter_conditions"`
		OutputPath       string            `json:"output_path"`
	}{}
	if err := decode(&params); err != nil {
		return nil, err
	}

	data, err := r.box.ReadFile(params.CSVPath)
	if err != nil {
		return nil, err
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("invalid CSV file: %w", err)
	}
	if len(records) == 0 {
		return nil, NewInvalidTaskError("CSV file %q is empty", params.CSVPath)
	}

	header := records[0]
	columnIndex := map[string]int{}
	for i, name := range header {
		columnIndex[name] = i
	}
	for column := range params.FilterConditions {
		if _, ok := columnIndex[column]; !ok {
			return nil, NewInvalidTaskError("unknown CSV column %q", column)
		}
	}

	kept := [][]string{header}
	for _, row := range records[1:] {
		matches := true
		for column, expected := range params.FilterConditions {
			if row[columnIndex[column]] != expected {
				matches = false
				break
			}
		}
		if matches {
			kept = append(kept, row)
		}
	}

	var sb strings.Builder
	writer := csv.NewWriter(&sb)
	if err := writer.WriteAll(kept); err != nil {
		return nil, err
	}
	if err := r.box.WriteFile(params.OutputPath, []byte(sb.String())); err != nil {
		return nil, err
	}

	return Result{"rows": len(kept) - 1, "output_path": params.OutputPath}, nil
}
