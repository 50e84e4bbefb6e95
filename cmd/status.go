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

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	agentClient "github.com/dataforge/dataforge/clients/agent"
)

const (
	statusURLKey     = "url"
	statusURLEnv     = "DATAFORGE_AGENT_URL"
	statusTimeoutKey = "timeout"

	defaultAgentURL      = "http://localhost:8000"
	defaultStatusTimeout = 30 * time.Second
)

var statusViper = viper.New()

var statusCmd = &cobra.Command{
	Use:          "status",
	Short:        "Request status from a running agent",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, _args []string) error {
		client := agentClient.NewClient(statusViper.GetString(statusURLKey))

		ctx, cancel := context.WithTimeout(context.Background(), statusViper.GetDuration(statusTimeoutKey))
		defer cancel()

		info, err := client.Info(ctx)
		if err != nil {
			return err
		}
		status, err := client.Status(ctx)
		if err != nil {
			return err
		}

		fmt.Printf("version: %s\n", info.Version)
		fmt.Printf("status: %s\n", status.Status)
		fmt.Printf("data directory: %s\n", status.DataDir)
		fmt.Printf("recorded runs: %d\n", status.Runs)
		return nil
	},
}

func init() {
	statusViper.SetDefault(statusURLKey, defaultAgentURL)
	_ = statusViper.BindEnv(statusURLKey, statusURLEnv)
	statusCmd.Flags().String(
		statusURLKey,
		statusViper.GetString(statusURLKey),
		"Base URL of the agent to query",
	)

	statusViper.SetDefault(statusTimeoutKey, defaultStatusTimeout)
	statusCmd.Flags().Duration(
		statusTimeoutKey,
		statusViper.GetDuration(statusTimeoutKey),
		"Timeout for the request",
	)

	// Don't sort alphabetically, keep insertion order
	statusCmd.Flags().SortFlags = false

	// Bind "cobra" flags defined in the CLI with viper
	_ = statusViper.BindPFlags(statusCmd.Flags())
}
