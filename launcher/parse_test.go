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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeDefinition(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "launch.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseFile(t *testing.T) {
	path := writeDefinition(t, `
global:
  environment:
    GREETING: hello
scripts:
  web:
    environment:
      MESSAGE: "{{.GREETING}} world"
    commands:
      - ["echo", "{{.MESSAGE}}"]
`)

	def, err := parseFile(path, nil)
	require.NoError(t, err)
	require.Len(t, def.processes, 1)

	proc := def.processes[0]
	assert.Equal(t, "web", proc.Name)
	require.Len(t, proc.Commands, 1)
	assert.Equal(t, []string{"echo", "hello world"}, proc.Commands[0])
	assert.Contains(t, proc.Environment, "MESSAGE=hello world")
}

func TestParseFileCliArgs(t *testing.T) {
	path := writeDefinition(t, `
scripts:
  main:
    commands:
      - ["echo", "{{.__1}}", "{{.__2}}"]
`)

	def, err := parseFile(path, []string{"first"})
	require.NoError(t, err)
	require.Len(t, def.processes, 1)
	assert.Equal(t, []string{"echo", "first", ""}, def.processes[0].Commands[0])
}

func TestParseFileDependencies(t *testing.T) {
	path := writeDefinition(t, `
scripts:
  api:
    depends_on: [db]
    commands:
      - ["true"]
  db:
    ready_output: "ready"
    commands:
      - ["true"]
`)

	def, err := parseFile(path, nil)
	require.NoError(t, err)
	require.Len(t, def.processes, 2)

	// processes are sorted by name: api then db
	api := def.processes[0]
	assert.Equal(t, "api", api.Name)
	assert.Equal(t, []int{1}, api.Dependency)
	assert.NotNil(t, def.processes[1].ReadyRegex)
}

func TestParseFileUnknownDependency(t *testing.T) {
	path := writeDefinition(t, `
scripts:
  api:
    depends_on: [ghost]
    commands:
      - ["true"]
`)

	_, err := parseFile(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestParseFileDependencyCycle(t *testing.T) {
	path := writeDefinition(t, `
scripts:
  a:
    depends_on: [b]
    commands:
      - ["true"]
  b:
    depends_on: [a]
    commands:
      - ["true"]
`)

	_, err := parseFile(path, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle")
}

func TestParseFileSelfDependency(t *testing.T) {
	path := writeDefinition(t, `
scripts:
  a:
    depends_on: [a]
    commands:
      - ["true"]
`)

	_, err := parseFile(path, nil)
	assert.Error(t, err)
}

func TestParseFileNoScripts(t *testing.T) {
	path := writeDefinition(t, `
global:
  folder: .
`)

	_, err := parseFile(path, nil)
	assert.Error(t, err)
}

func TestParseFileInvalidReadyRegex(t *testing.T) {
	path := writeDefinition(t, `
scripts:
  main:
    ready_output: "["
    commands:
      - ["true"]
`)

	_, err := parseFile(path, nil)
	assert.Error(t, err)
}
