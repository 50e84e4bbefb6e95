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

package httpserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ginLoggerMiddleware logs one entry per request. Task executions carry the
// task description so a run can be traced back from the access log.
func ginLoggerMiddleware(c *gin.Context) {
	start := time.Now()
	c.Next()
	latency := time.Since(start)

	statusCode := c.Writer.Status()
	bodySize := c.Writer.Size()
	if bodySize < 0 {
		bodySize = 0
	}

	fields := logrus.Fields{
		"method":    c.Request.Method,
		"path":      c.Request.URL.Path,
		"status":    statusCode,
		"latency":   latency.Round(time.Microsecond).String(),
		"client_ip": c.ClientIP(),
		"body_size": bodySize,
	}
	if task := c.Query("task"); task != "" {
		fields["task"] = task
	}
	entry := log.WithFields(fields)

	switch {
	case statusCode >= http.StatusInternalServerError:
		entry.Error("request failed")
	case statusCode >= http.StatusBadRequest:
		entry.Warn("request rejected")
	default:
		entry.Debug("request served")
	}
}

// ginErrorHandlerMiddleware renders the last error attached to the context as
// a JSON body, matching the status code the handler set.
func ginErrorHandlerMiddleware(c *gin.Context) {
	c.Next()

	if len(c.Errors) == 0 {
		return
	}

	statusCode := c.Writer.Status()
	entry := log.WithField("status", statusCode)
	for _, err := range c.Errors {
		if statusCode >= http.StatusInternalServerError {
			entry.Error(err)
		} else {
			entry.Debug(err)
		}
	}

	body := gin.H{"message": c.Errors.Last().Error()}
	if len(c.Errors) > 1 {
		body["errors"] = c.Errors
	}
	c.JSON(statusCode, body)
}
