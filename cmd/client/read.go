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
	"os"

	"github.com/spf13/cobra"

	agentClient "github.com/dataforge/dataforge/clients/agent"
)

// readCmd represents the `dataforge client read` command
var readCmd = &cobra.Command{
	Use:   "read <path>",
	Short: "Read a file from the agent's data directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(_cmd *cobra.Command, args []string) error {
		client := agentClient.NewClient(clientViper.GetString(clientURLKey))

		ctx, cancel := context.WithTimeout(context.Background(), clientViper.GetDuration(clientTimeoutKey))
		defer cancel()

		data, err := client.ReadFile(ctx, args[0])
		if err != nil {
			if err == context.DeadlineExceeded {
				return fmt.Errorf("timeout (%v) exceeded", clientViper.GetDuration(clientTimeoutKey))
			}
			return err
		}

		_, err = os.Stdout.Write(data)
		return err
	},
}
