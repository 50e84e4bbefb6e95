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

package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	agentClient "github.com/dataforge/dataforge/clients/agent"
)

// runCmd represents the `dataforge client run` command
var runCmd = &cobra.Command{
	Use:   "run <task description>",
	Short: "Execute a task on the agent",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(_cmd *cobra.Command, args []string) error {
		consoleOutputFormat, err := retrieveConsoleOutputFormat()
		if err != nil {
			return err
		}

		client := agentClient.NewClient(clientViper.GetString(clientURLKey))

		ctx, cancel := context.WithTimeout(context.Background(), clientViper.GetDuration(clientTimeoutKey))
		defer cancel()

		reply, err := client.RunTask(ctx, strings.Join(args, " "))
		if err != nil {
			if err == context.DeadlineExceeded {
				return fmt.Errorf("timeout (%v) exceeded", clientViper.GetDuration(clientTimeoutKey))
			}
			return err
		}

		switch consoleOutputFormat {
		case text:
			fmt.Println(reply.Message)
			fmt.Printf("run id: %d\n", reply.RunID)
			for key, value := range reply.Result {
				fmt.Printf("%s: %v\n", key, value)
			}
		case json:
			if err := renderJSON(reply); err != nil {
				return err
			}
		}
		return nil
	},
}
