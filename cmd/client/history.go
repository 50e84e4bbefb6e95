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

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	agentClient "github.com/dataforge/dataforge/clients/agent"
)

// historyViper represents the configuration of the `dataforge client history` command
var historyViper = viper.New()

const historyCountKey = "count"

func init() {
	historyViper.SetDefault(historyCountKey, 10)
	historyCmd.Flags().Uint(
		historyCountKey,
		historyViper.GetUint(historyCountKey),
		"Maximum number of runs to retrieve",
	)

	// Don't sort alphabetically, keep insertion order
	historyCmd.Flags().SortFlags = false

	// Bind "cobra" flags defined in the CLI with viper
	_ = historyViper.BindPFlags(historyCmd.Flags())
}

// historyCmd represents the `dataforge client history` command
var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"runs"},
	Short:   "List the most recent task runs",
	Args:    cobra.NoArgs,
	RunE: func(_cmd *cobra.Command, _args []string) error {
		consoleOutputFormat, err := retrieveConsoleOutputFormat()
		if err != nil {
			return err
		}

		runsCount := historyViper.GetUint(historyCountKey)
		if runsCount == 0 {
			return fmt.Errorf(
				"invalid argument \"--%s\" specified, expected a strictly positive number",
				historyCountKey,
			)
		}

		client := agentClient.NewClient(clientViper.GetString(clientURLKey))

		ctx, cancel := context.WithTimeout(context.Background(), clientViper.GetDuration(clientTimeoutKey))
		defer cancel()

		runs, err := client.History(ctx, runsCount)
		if err != nil {
			if err == context.DeadlineExceeded {
				return fmt.Errorf("timeout (%v) exceeded", clientViper.GetDuration(clientTimeoutKey))
			}
			return err
		}

		switch consoleOutputFormat {
		case text:
			table := tablewriter.NewWriter(os.Stdout)
			table.SetBorder(false)
			table.SetHeader([]string{
				"run id",
				"category",
				"status",
				"started",
				"duration",
				"error",
			})
			for _, run := range runs {
				table.Append([]string{
					fmt.Sprintf("%d", run.ID),
					run.Category,
					run.Status,
					humanize.Time(run.StartedAt),
					run.Duration.String(),
					run.Error,
				})
			}
			table.SetCaption(true, fmt.Sprintf("%d runs retrieved", len(runs)))

			table.Render()
		case json:
			if err := renderJSON(runs); err != nil {
				return err
			}
		}
		return nil
	},
}
