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
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dataforge/dataforge/launcher"

	_ "modernc.org/sqlite"
)

const datagenURL = "https://raw.githubusercontent.com/sanand0/tools-in-data-science-public/" +
	"tds-2025-01/project-1/datagen.py"

// A1: install and run datagen.py against the email found in the task
func (r *Runner) handleDatagen(ctx context.Context, task string) (Result, error) {
	email, err := r.llm.Complete(ctx, "Extract only the email address from: "+task)
	if err != nil {
		return nil, err
	}

	resp, err := r.rest.R().SetContext(ctx).Get(datagenURL)
	if err != nil {
		return nil, fmt.Errorf("failed to download script: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to download script (status %d)", resp.StatusCode())
	}

	scriptFile, err := os.CreateTemp("", "datagen-*.py")
	if err != nil {
		return nil, err
	}
	defer os.Remove(scriptFile.Name())
	if _, err := scriptFile.Write(resp.Body()); err != nil {
		scriptFile.Close()
		return nil, err
	}
	if err := scriptFile.Close(); err != nil {
		return nil, err
	}

	output, err := launcher.Output(ctx, "", "python3", scriptFile.Name(), email)
	if err != nil {
		return nil, err
	}

	return Result{"output": output}, nil
}

var prettierVersionRegex = regexp.MustCompile(`prettier@([\d.]+)`)

const defaultPrettierVersion = "3.4.2"

// A2: format format.md with the prettier version the task asks for
func (r *Runner) handleFormatMarkdown(ctx context.Context, task string) (Result, error) {
	version := defaultPrettierVersion
	if match := prettierVersionRegex.FindStringSubmatch(task); match != nil {
		version = match[1]
	}

	target, err := r.box.Resolve("format.md")
	if err != nil {
		return nil, err
	}

	if _, err := launcher.Output(ctx, "", "npm", "install", "-g", "prettier@"+version); err != nil {
		return nil, err
	}
	if _, err := launcher.Output(ctx, "", "prettier", "--write", target); err != nil {
		return nil, err
	}

	return Result{"formatted": "format.md", "prettier_version": version}, nil
}

// A3: count Wednesdays in a file of YYYY-MM-DD dates
func (r *Runner) handleCountWeekdays(ctx context.Context, task string) (Result, error) {
	params, err := r.extractParameters(ctx, task)
	if err != nil {
		return nil, err
	}

	data, err := r.box.ReadFile(params.InputFile)
	if err != nil {
		return nil, err
	}

	count := 0
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		date, err := time.Parse("2006-01-02", line)
		if err != nil {
			return nil, fmt.Errorf("invalid date %q: %w", line, err)
		}
		if date.Weekday() == time.Wednesday {
			count++
		}
	}

	if err := r.box.WriteFile(params.OutputFile, []byte(strconv.Itoa(count))); err != nil {
		return nil, err
	}

	return Result{"count": count}, nil
}

// A4: sort contacts.json by last then first name
func (r *Runner) handleSortContacts(_ context.Context, _ string) (Result, error) {
	var contacts []map[string]interface{}
	if err := r.box.ReadJSON("contacts.json", &contacts); err != nil {
		return nil, err
	}

	field := func(contact map[string]interface{}, name string) string {
		value, _ := contact[name].(string)
		return value
	}
	sort.SliceStable(contacts, func(i, j int) bool {
		if last := strings.Compare(field(contacts[i], "last_name"), field(contacts[j], "last_name")); last != 0 {
			return last < 0
		}
		return field(contacts[i], "first_name") < field(contacts[j], "first_name")
	})

	if err := r.box.WriteJSON("contacts-sorted.json", contacts); err != nil {
		return nil, err
	}

	return Result{"sorted": len(contacts)}, nil
}

// A5: first line of the 10 most recent .log files, newest first
func (r *Runner) handleRecentLogs(_ context.Context, _ string) (Result, error) {
	logDir, err := r.box.Resolve("logs")
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return nil, fmt.Errorf("unable to read the logs directory: %w", err)
	}

	type logFile struct {
		name    string
		modTime time.Time
	}
	logFiles := []logFile{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		logFiles = append(logFiles, logFile{name: entry.Name(), modTime: info.ModTime()})
	}
	sort.Slice(logFiles, func(i, j int) bool {
		return logFiles[i].modTime.After(logFiles[j].modTime)
	})
	if len(logFiles) > 10 {
		logFiles = logFiles[:10]
	}

	firstLines := make([]string, 0, len(logFiles))
	for _, file := range logFiles {
		data, err := r.box.ReadFile(filepath.Join("logs", file.name))
		if err != nil {
			return nil, err
		}
		line, _, _ := strings.Cut(string(data), "\n")
		firstLines = append(firstLines, strings.TrimSpace(line))
	}

	if err := r.box.WriteFile("logs-recent.txt", []byte(strings.Join(firstLines, "\n"))); err != nil {
		return nil, err
	}

	return Result{"files": len(firstLines)}, nil
}

var markdownH1Regex = regexp.MustCompile(`(?m)^#\s+(.+)$`)

// A6: map each docs/**/*.md file to its first H1
func (r *Runner) handleMarkdownIndex(_ context.Context, _ string) (Result, error) {
	docsDir, err := r.box.Resolve("docs")
	if err != nil {
		return nil, err
	}

	index := map[string]string{}
	err = filepath.WalkDir(docsDir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			return nil
		}

		data, err := r.box.ReadFile(path)
		if err != nil {
			return err
		}
		if match := markdownH1Regex.FindStringSubmatch(string(data)); match != nil {
			relPath, err := filepath.Rel(docsDir, path)
			if err != nil {
				return err
			}
			index[filepath.ToSlash(relPath)] = match[1]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := r.box.WriteJSON(filepath.Join("docs", "index.json"), index); err != nil {
		return nil, err
	}

	return Result{"index": index}, nil
}

// A7: extract the sender address from email.txt
func (r *Runner) handleExtractEmail(ctx context.Context, _ string) (Result, error) {
	emailContent, err := r.box.ReadFile("email.txt")
	if err != nil {
		return nil, err
	}

	address, err := r.llm.Complete(
		ctx,
		"Extract only the sender's email address from this email:\n\n"+string(emailContent),
	)
	if err != nil {
		return nil, err
	}

	if err := r.box.WriteFile("email-sender.txt", []byte(address)); err != nil {
		return nil, err
	}

	return Result{"email": address}, nil
}

// A8: extract the card number from credit-card.png
func (r *Runner) handleExtractCard(ctx context.Context, _ string) (Result, error) {
	imageData, err := r.box.ReadFile("credit-card.png")
	if err != nil {
		return nil, err
	}

	imageBase64 := base64.StdEncoding.EncodeToString(imageData)
	cardNumber, err := r.llm.Complete(
		ctx,
		"Extract only the credit card number from this image:\n"+imageBase64,
	)
	if err != nil {
		return nil, err
	}
	cardNumber = strings.Join(strings.Fields(cardNumber), "")

	if err := r.box.WriteFile("credit-card.txt", []byte(cardNumber)); err != nil {
		return nil, err
	}

	return Result{"card_number": cardNumber}, nil
}

// A9: find the most similar pair of comments by embedding dot product
func (r *Runner) handleSimilarComments(ctx context.Context, _ string) (Result, error) {
	data, err := r.box.ReadFile("comments.txt")
	if err != nil {
		return nil, err
	}

	comments := []string{}
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			comments = append(comments, line)
		}
	}
	if len(comments) < 2 {
		return nil, NewInvalidTaskError("comments.txt contains fewer than two comments")
	}

	embeddings, err := r.llm.Embed(ctx, comments)
	if err != nil {
		return nil, err
	}

	maxSimilarity := 0.0
	bestI, bestJ := -1, -1
	for i := 0; i < len(comments); i++ {
		for j := i + 1; j < len(comments); j++ {
			similarity := dot(embeddings[i], embeddings[j])
			if bestI < 0 || similarity > maxSimilarity {
				maxSimilarity = similarity
				bestI, bestJ = i, j
			}
		}
	}

	pair := comments[bestI] + "\n" + comments[bestJ]
	if err := r.box.WriteFile("comments-similar.txt", []byte(pair)); err != nil {
		return nil, err
	}

	return Result{"similar_comments": []string{comments[bestI], comments[bestJ]}}, nil
}

func dot(a, b []float64) float64 {
	sum := 0.0
	for i := 0; i < len(a) && i < len(b); i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// A10: total Gold ticket sales from ticket-sales.db
func (r *Runner) handleTicketSales(ctx context.Context, _ string) (Result, error) {
	dbPath, err := r.box.Resolve("ticket-sales.db")
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var totalSales sql.NullFloat64
	row := db.QueryRowContext(
		ctx,
		"SELECT SUM(units * price) AS total_sales FROM tickets WHERE type = 'Gold'",
	)
	if err := row.Scan(&totalSales); err != nil {
		return nil, fmt.Errorf("ticket sales query failed: %w", err)
	}

	formatted := strconv.FormatFloat(totalSales.Float64, 'f', -1, 64)
	if err := r.box.WriteFile("ticket-sales-gold.txt", []byte(formatted)); err != nil {
		return nil, err
	}

	return Result{"total_sales": totalSales.Float64}, nil
}
