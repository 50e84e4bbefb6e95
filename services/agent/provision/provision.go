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

// Package provision prepares the agent's runtime environment before the API
// comes up: the data directory, the external tools the task handlers shell
// out to, and the listen port.
package provision

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/dataforge/dataforge/services/utils"
)

var log = logrus.WithField("component", "provision")

// RequiredTools are the executables the task handlers depend on.
var RequiredTools = []string{"node", "npm", "git", "python3"}

// EnsureDataDir creates the data directory if needed and verifies it is
// writable with a probe file.
func EnsureDataDir(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("unable to create data directory %q: %w", dataDir, err)
	}

	probe := filepath.Join(dataDir, ".write-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
		return fmt.Errorf("data directory %q is not writable: %w", dataDir, err)
	}
	if err := os.Remove(probe); err != nil {
		return fmt.Errorf("data directory %q is not writable: %w", dataDir, err)
	}

	log.WithField("data_dir", dataDir).Debug("data directory ready")
	return nil
}

// CheckTools verifies every required executable is reachable through PATH.
func CheckTools(tools []string) error {
	for _, tool := range tools {
		path, err := exec.LookPath(tool)
		if err != nil {
			return fmt.Errorf("required tool %q not found in PATH: %w", tool, err)
		}
		log.WithFields(logrus.Fields{"tool": tool, "path": path}).Debug("tool found")
	}
	return nil
}

// CheckPort verifies the agent's port can be bound.
func CheckPort(port uint) error {
	if err := utils.CheckTCPPort(port); err != nil {
		return fmt.Errorf("port %d is not available: %w", port, err)
	}
	return nil
}

// Run performs every provisioning step in order and stops at the first
// failure.
func Run(dataDir string, port uint) error {
	if err := EnsureDataDir(dataDir); err != nil {
		return err
	}
	if err := CheckTools(RequiredTools); err != nil {
		return err
	}
	return CheckPort(port)
}
