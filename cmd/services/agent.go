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

package services

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dataforge/dataforge/cmd/services/utils"
	"github.com/dataforge/dataforge/services/agent"
	"github.com/dataforge/dataforge/version"
)

// agentViper represents the configuration of the agent command
var agentViper = viper.New()

const agentPortKey = "port"
const agentPortEnv = "DATAFORGE_AGENT_PORT"
const agentDataDirKey = "data_dir"
const agentDataDirEnv = "DATAFORGE_DATA_DIR"
const agentLLMURLKey = "llm_url"
const agentLLMURLEnv = "AIPROXY_URL"
const agentLLMTokenKey = "llm_token"
const agentLLMTokenEnv = "AIPROXY_TOKEN"
const agentJournalFileKey = "journal_file"
const agentJournalFileEnv = "DATAFORGE_JOURNAL_FILE"

// agentCmd represents the automation agent
var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the automation agent",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _args []string) error {
		err := configureLog(servicesViper)
		if err != nil {
			return err
		}

		log.WithFields(logrus.Fields{
			"version": version.Version,
			"hash":    version.Hash,
		}).Info("starting the automation agent")

		options := agent.Options{
			Port:        agentViper.GetUint(agentPortKey),
			DataDir:     agentViper.GetString(agentDataDirKey),
			LLMURL:      agentViper.GetString(agentLLMURLKey),
			LLMToken:    agentViper.GetString(agentLLMTokenKey),
			JournalFile: agentViper.GetString(agentJournalFileKey),
		}

		ctx := utils.ContextWithUserTermination(context.Background())

		err = agent.Run(ctx, options)
		if err != nil {
			if err == context.Canceled {
				log.Info("interrupted by user")
				return nil
			}
			return err
		}
		return nil
	},
}

func init() {
	agentViper.SetDefault(agentPortKey, agent.DefaultOptions.Port)
	_ = agentViper.BindEnv(agentPortKey, agentPortEnv)
	agentCmd.Flags().Uint(
		agentPortKey,
		agentViper.GetUint(agentPortKey),
		"The http port to listen on",
	)

	agentViper.SetDefault(agentDataDirKey, agent.DefaultOptions.DataDir)
	_ = agentViper.BindEnv(agentDataDirKey, agentDataDirEnv)
	agentCmd.Flags().String(
		agentDataDirKey,
		agentViper.GetString(agentDataDirKey),
		"Directory holding every file the agent reads and writes",
	)

	agentViper.SetDefault(agentLLMURLKey, agent.DefaultOptions.LLMURL)
	_ = agentViper.BindEnv(agentLLMURLKey, agentLLMURLEnv)
	agentCmd.Flags().String(
		agentLLMURLKey,
		agentViper.GetString(agentLLMURLKey),
		"Base URL of the OpenAI-compatible API",
	)

	agentViper.SetDefault(agentLLMTokenKey, agent.DefaultOptions.LLMToken)
	_ = agentViper.BindEnv(agentLLMTokenKey, agentLLMTokenEnv)
	agentCmd.Flags().String(
		agentLLMTokenKey,
		agentViper.GetString(agentLLMTokenKey),
		"Authentication token for the OpenAI-compatible API",
	)

	agentViper.SetDefault(agentJournalFileKey, agent.DefaultOptions.JournalFile)
	_ = agentViper.BindEnv(agentJournalFileKey, agentJournalFileEnv)
	agentCmd.Flags().String(
		agentJournalFileKey,
		agentViper.GetString(agentJournalFileKey),
		"File backing the run journal, defaults to '.dataforge/journal.db' inside the data directory",
	)

	// Don't sort alphabetically, keep insertion order
	agentCmd.Flags().SortFlags = false

	// Bind "cobra" flags defined in the CLI with viper
	_ = agentViper.BindPFlags(agentCmd.Flags())
}
