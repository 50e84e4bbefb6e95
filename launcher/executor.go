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

package launcher

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"
	"sync"

	"github.com/dataforge/dataforge/utils"
)

type executor struct {
	ctx           context.Context
	folder        string
	environment   []string
	outputEnabled bool
	readyRegex    *regexp.Regexp
	ready         *utils.SingleEvent
}

func (exe *executor) streamOut(out func(args ...interface{}), src *io.PipeReader, wg *sync.WaitGroup) {
	defer wg.Done()

	scanner := bufio.NewScanner(src)
	for scanner.Scan() {
		text := scanner.Text()

		if exe.readyRegex != nil && !exe.ready.IsSet() && exe.readyRegex.MatchString(text) {
			exe.ready.Set()
		}

		if exe.outputEnabled {
			out(text)
		}
	}
}

func (exe *executor) execute(cmdDesc string, cmdArgs []string) error {
	logger := log.WithField("cmd", cmdDesc)

	if exe.readyRegex == nil {
		exe.ready.Set()
	}

	if len(cmdArgs) == 0 || cmdArgs[0] == "" {
		logger.Trace("Empty command ignored")
		return nil
	}

	cmd := exec.CommandContext(exe.ctx, cmdArgs[0], cmdArgs[1:]...)
	cmd.Dir = exe.folder
	cmd.Env = exe.environment

	if exe.outputEnabled || !exe.ready.IsSet() {
		errReader, errWriter := io.Pipe()
		outReader, outWriter := io.Pipe()
		cmd.Stderr = errWriter
		cmd.Stdout = outWriter

		logWg := new(sync.WaitGroup)
		logWg.Add(2)

		go exe.streamOut(logger.Info, outReader, logWg)
		go exe.streamOut(logger.Warn, errReader, logWg)
		defer func() {
			errWriter.Close()
			outWriter.Close()
			logWg.Wait()
		}()
	}

	logger.WithField("", strings.Join(cmdArgs, " ")).Trace("Launch")

	if err := cmd.Start(); err != nil {
		logger.WithField("error", err).Debug("Failed to start")
		return err
	}

	if err := cmd.Wait(); err != nil {
		if strings.HasPrefix(err.Error(), "signal: ") {
			// Happens when the context is cancelled (CTRL-C or another script
			// of the group failing).
			logger.Debug(err.Error())
			return errScriptCancelled
		}
		logger.WithField("error", err).Debug("Failed")
		return err
	}

	logger.Trace("Completed")

	return nil
}

// Output runs a single command and returns its combined output. Used by task
// handlers that shell out to provisioned tools (git, npm, python3).
func Output(ctx context.Context, folder string, cmdArgs ...string) (string, error) {
	if len(cmdArgs) == 0 {
		return "", fmt.Errorf("empty command")
	}

	cmd := exec.CommandContext(ctx, cmdArgs[0], cmdArgs[1:]...)
	cmd.Dir = folder

	output, err := cmd.CombinedOutput()
	if err != nil {
		return string(output), fmt.Errorf(
			"command %q failed: %w (%s)",
			strings.Join(cmdArgs, " "),
			err,
			strings.TrimSpace(string(output)),
		)
	}
	return string(output), nil
}
