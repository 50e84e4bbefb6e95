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

// Package httpserver exposes the agent's JSON HTTP API: task execution, file
// reads confined to the data directory, and the run journal.
package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/dataforge/dataforge/services/agent/journal"
	"github.com/dataforge/dataforge/services/agent/provision"
	"github.com/dataforge/dataforge/services/agent/sandbox"
	"github.com/dataforge/dataforge/services/agent/tasks"
	"github.com/dataforge/dataforge/version"
)

const defaultRunsCount = 20

type Server struct {
	http.Server
	port    uint
	runner  *tasks.Runner
	box     *sandbox.Sandbox
	journal *journal.Journal

	gin *gin.Engine
}

func New(port uint, runner *tasks.Runner, box *sandbox.Sandbox, runJournal *journal.Journal) *Server {
	gin.SetMode(gin.ReleaseMode)

	ginEngine := gin.New()

	server := &Server{
		Server: http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: ginEngine,
		},
		port:    port,
		runner:  runner,
		box:     box,
		journal: runJournal,
		gin:     ginEngine,
	}

	server.gin.HandleMethodNotAllowed = true

	// Allows all origins
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true

	server.gin.Use(cors.New(corsConfig))
	server.gin.Use(ginErrorHandlerMiddleware)
	server.gin.Use(ginLoggerMiddleware)

	// Recovery middleware recovers from any panics and writes a 500 if there was one.
	server.gin.Use(gin.Recovery())

	server.gin.GET("/", server.getInfo)
	server.gin.GET("/status", server.getStatus)
	server.gin.POST("/run", server.runTask)
	server.gin.GET("/read", server.readFile)
	server.gin.GET("/runs", server.listRuns)

	server.gin.NoRoute(func(c *gin.Context) {
		_ = c.AbortWithError(http.StatusNotFound, fmt.Errorf("not found"))
	})

	server.gin.NoMethod(func(c *gin.Context) {
		_ = c.AbortWithError(http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	})

	return server
}

// abort attaches an error to the context, the error middleware renders it.
func (server *Server) abort(c *gin.Context, statusCode int, err error) {
	_ = c.Error(wrapError(statusCode, err))
	c.Status(statusCode)
}

type infoResponse struct {
	Message     string `json:"message"`
	Version     string `json:"version"`
	VersionHash string `json:"version_hash"`
}

func (server *Server) getInfo(c *gin.Context) {
	c.JSON(http.StatusOK, infoResponse{
		Message:     "This is the Dataforge automation agent",
		Version:     version.Version,
		VersionHash: version.Hash,
	})
}

func (server *Server) getStatus(c *gin.Context) {
	runCount, err := server.journal.Count()
	if err != nil {
		server.abort(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"port":     server.port,
		"data_dir": server.box.Root(),
		"tools":    provision.RequiredTools,
		"runs":     runCount,
	})
}

type runResponse struct {
	Status   string       `json:"status"`
	Message  string       `json:"message"`
	RunID    uint64       `json:"run_id"`
	Category string       `json:"category"`
	Result   tasks.Result `json:"result,omitempty"`
}

func (server *Server) runTask(c *gin.Context) {
	task := c.Query("task")
	if strings.TrimSpace(task) == "" {
		server.abort(c, http.StatusBadRequest, fmt.Errorf("missing 'task' query parameter"))
		return
	}

	log.WithField("task", task).Info("executing task")

	startedAt := time.Now()
	category, result, err := server.runner.Execute(c.Request.Context(), task)

	record := journal.Record{
		Task:      task,
		Category:  category,
		Status:    journal.StatusSuccess,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
	}
	if err != nil {
		record.Status = journal.StatusError
		record.Error = err.Error()
	}
	runID, journalErr := server.journal.Append(record)
	if journalErr != nil {
		log.WithField("error", journalErr).Warn("unable to record the run")
	}

	if err != nil {
		if tasks.IsInvalidTask(err) {
			server.abort(c, http.StatusBadRequest, err)
		} else {
			server.abort(c, http.StatusInternalServerError, err)
		}
		return
	}

	log.WithFields(logrus.Fields{
		"run_id":   runID,
		"category": category,
	}).Info("task succeeded")

	c.JSON(http.StatusOK, runResponse{
		Status:   journal.StatusSuccess,
		Message:  fmt.Sprintf("Task executed (category %s)", category),
		RunID:    runID,
		Category: category,
		Result:   result,
	})
}

func (server *Server) readFile(c *gin.Context) {
	path := c.Query("path")
	if path == "" {
		server.abort(c, http.StatusBadRequest, fmt.Errorf("missing 'path' query parameter"))
		return
	}

	data, err := server.box.ReadFile(path)
	switch {
	case err == nil:
		c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
	case errors.Is(err, sandbox.ErrNotFound):
		server.abort(c, http.StatusNotFound, err)
	case errors.Is(err, sandbox.ErrOutsideRoot),
		errors.Is(err, sandbox.ErrIsDirectory),
		errors.Is(err, sandbox.ErrTooLarge):
		server.abort(c, http.StatusBadRequest, err)
	default:
		server.abort(c, http.StatusInternalServerError, err)
	}
}

func (server *Server) listRuns(c *gin.Context) {
	count := defaultRunsCount
	if countParam := c.Query("count"); countParam != "" {
		parsed, err := strconv.Atoi(countParam)
		if err != nil || parsed <= 0 {
			server.abort(c, http.StatusBadRequest, fmt.Errorf("invalid 'count' query parameter %q", countParam))
			return
		}
		count = parsed
	}

	records, err := server.journal.Recent(count)
	if err != nil {
		server.abort(c, http.StatusInternalServerError, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": records})
}
