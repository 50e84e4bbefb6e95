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
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/dataforge/dataforge/launcher"
)

// launchViper represents the configuration of the launch command
var launchViper = viper.New()

const launchQuietKey = "quiet"

// launchCmd runs every script of a launch definition file
var launchCmd = &cobra.Command{
	Use:   "launch <filename> [args...]",
	Short: "Launch processes defined in a YAML definition file",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		quietLevel := launchViper.GetInt(launchQuietKey)
		return launcher.Launch(args, quietLevel)
	},
}

func init() {
	launchCmd.Flags().CountP(
		launchQuietKey,
		"q",
		"Decrease the launcher output verbosity, repeat for a quieter output",
	)

	// Don't sort alphabetically, keep insertion order
	launchCmd.Flags().SortFlags = false

	// Bind "cobra" flags defined in the CLI with viper
	_ = launchViper.BindPFlags(launchCmd.Flags())
}
