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

// Package agent wires the automation agent together: provisioning, the task
// runner, the run journal and the HTTP API.
package agent

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dataforge/dataforge/services/agent/httpserver"
	"github.com/dataforge/dataforge/services/agent/journal"
	"github.com/dataforge/dataforge/services/agent/llm"
	"github.com/dataforge/dataforge/services/agent/provision"
	"github.com/dataforge/dataforge/services/agent/sandbox"
	"github.com/dataforge/dataforge/services/agent/tasks"
)

type Options struct {
	Port        uint
	DataDir     string
	LLMURL      string
	LLMToken    string
	JournalFile string
}

var DefaultOptions = Options{
	Port:        8000,
	DataDir:     "/data",
	LLMURL:      llm.DefaultURL,
	LLMToken:    "",
	JournalFile: "",
}

// journalFile defaults to a hidden directory inside the data dir so that a
// stock container needs no extra volume.
func (options Options) journalFile() string {
	if options.JournalFile != "" {
		return options.JournalFile
	}
	return filepath.Join(options.DataDir, ".dataforge", "journal.db")
}

func Run(ctx context.Context, options Options) error {
	if options.LLMToken == "" {
		return fmt.Errorf("missing LLM token, set AIPROXY_TOKEN")
	}

	if err := provision.Run(options.DataDir, options.Port); err != nil {
		return err
	}

	box, err := sandbox.New(options.DataDir)
	if err != nil {
		return err
	}

	runJournal, err := journal.Open(options.journalFile())
	if err != nil {
		return err
	}
	defer runJournal.Close()

	runner := tasks.NewRunner(llm.NewClient(options.LLMURL, options.LLMToken), box)

	httpServer := httpserver.New(options.Port, runner, box, runJournal)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.WithField("port", options.Port).Info("http server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		log.Info("Gracefully stopping")

		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(stopCtx); err != nil {
			log.WithField("error", err).Warning("Error while stopping")
		}
		return ctx.Err()
	})

	return group.Wait()
}
