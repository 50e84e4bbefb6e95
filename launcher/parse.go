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
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"text/template"

	"github.com/dataforge/dataforge/utils"
	"gopkg.in/yaml.v2"
)

// Internal representation of a definition file (pre-processed)
type launchDefinition struct {
	processes []launchProcess
}

type launchProcess struct {
	Name        string
	Folder      string
	Environment []string
	Quiet       bool
	ReadyRegex  *regexp.Regexp
	Dependency  []int

	Commands [][]string
	Ready    *utils.SingleEvent
}

// YAML definition file descriptor structures
type yamlFile struct {
	Global  yamlGlobal
	Scripts map[string]yamlScript
}

type yamlScript struct {
	Folder      string
	Environment yaml.MapSlice
	Quiet       bool
	ReadyOutput string   `yaml:"ready_output"`
	DependsOn   []string `yaml:"depends_on"`
	Commands    [][]string
}

type yamlGlobal struct {
	Environment yaml.MapSlice
	Folder      string
}

func loadYaml(fileName string) (*yamlFile, error) {
	yamlContent, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}

	var result yamlFile
	if err := yaml.Unmarshal(yamlContent, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func parseString(text string, dictionary map[string]string) (string, error) {
	parseTemplate, err := template.New("tmp").Parse(text)
	if err != nil {
		return "", err
	}

	var resultBytes bytes.Buffer
	if err := parseTemplate.Execute(&resultBytes, dictionary); err != nil {
		return "", err
	}

	return resultBytes.String(), nil
}

func copyStrMap(src map[string]string) map[string]string {
	result := make(map[string]string, len(src))
	for name, value := range src {
		result[name] = value
	}
	return result
}

func parseScript(
	script *yamlScript,
	scriptName string,
	baseDict map[string]string,
	globalEnv []string,
	basePath string,
) (launchProcess, error) {
	proc := launchProcess{
		Name:  scriptName,
		Quiet: script.Quiet,
		Ready: utils.MakeSingleEvent(),
	}

	if script.Folder != "" {
		if filepath.IsAbs(script.Folder) {
			proc.Folder = script.Folder
		} else {
			proc.Folder = filepath.Join(basePath, script.Folder)
		}
	} else {
		proc.Folder = basePath
	}

	scriptDict := copyStrMap(baseDict)
	proc.Environment = append(proc.Environment, globalEnv...)

	for _, item := range script.Environment {
		name := fmt.Sprintf("%v", item.Key)
		var value string
		if item.Value != nil {
			value = fmt.Sprintf("%v", item.Value)
		}

		parsedValue, err := parseString(value, scriptDict)
		if err != nil {
			return launchProcess{}, fmt.Errorf(
				"script [%s]: environment variable substitution failed: %w", scriptName, err,
			)
		}
		scriptDict[name] = parsedValue
		proc.Environment = append(proc.Environment, fmt.Sprintf("%v=%v", name, parsedValue))
	}

	if script.ReadyOutput != "" {
		parsedRegex, err := parseString(script.ReadyOutput, scriptDict)
		if err != nil {
			return launchProcess{}, fmt.Errorf(
				"script [%s]: ready_output substitution failed: %w", scriptName, err,
			)
		}
		compiledRegex, err := regexp.Compile(parsedRegex)
		if err != nil {
			return launchProcess{}, fmt.Errorf(
				"script [%s]: invalid ready_output regex %q: %w", scriptName, parsedRegex, err,
			)
		}
		proc.ReadyRegex = compiledRegex
	}

	proc.Commands = make([][]string, 0, len(script.Commands))
	for _, cmd := range script.Commands {
		parsedCmd := make([]string, 0, len(cmd))
		for _, arg := range cmd {
			parsedArg, err := parseString(arg, scriptDict)
			if err != nil {
				return launchProcess{}, fmt.Errorf(
					"script [%s]: command substitution failed: %w", scriptName, err,
				)
			}
			parsedCmd = append(parsedCmd, parsedArg)
		}
		proc.Commands = append(proc.Commands, parsedCmd)
	}

	return proc, nil
}

// parseDependencies resolves depends_on names to process indices and rejects
// unknown names and cycles.
func parseDependencies(def launchDefinition, file *yamlFile) error {
	nameIndex := make(map[string]int)
	for index, proc := range def.processes {
		nameIndex[proc.Name] = index
	}

	for index, proc := range def.processes {
		for _, depName := range file.Scripts[proc.Name].DependsOn {
			depIndex, ok := nameIndex[depName]
			if !ok {
				return fmt.Errorf("unknown dependency [%s] in script [%s]", depName, proc.Name)
			}
			if depIndex == index {
				return fmt.Errorf("script [%s] depends on itself", proc.Name)
			}
			def.processes[index].Dependency = append(def.processes[index].Dependency, depIndex)
		}
	}

	// cycle detection, depth first
	const (
		unvisited = iota
		visiting
		visited
	)
	state := make([]int, len(def.processes))
	var visit func(int) error
	visit = func(index int) error {
		switch state[index] {
		case visiting:
			return fmt.Errorf("dependency cycle through script [%s]", def.processes[index].Name)
		case visited:
			return nil
		}
		state[index] = visiting
		for _, depIndex := range def.processes[index].Dependency {
			if err := visit(depIndex); err != nil {
				return err
			}
		}
		state[index] = visited
		return nil
	}
	for index := range def.processes {
		if err := visit(index); err != nil {
			return err
		}
	}

	return nil
}

func parseFile(filename string, cliArgs []string) (launchDefinition, error) {
	yamlDef, err := loadYaml(filename)
	if err != nil {
		return launchDefinition{}, err
	}
	if len(yamlDef.Scripts) == 0 {
		return launchDefinition{}, fmt.Errorf("no script defined")
	}

	baseDict := make(map[string]string)
	for _, str := range os.Environ() {
		index := strings.IndexRune(str, '=')
		baseDict[str[:index]] = str[index+1:]
	}

	// __1 to __9 are always defined
	for argNo := 1; argNo <= 9; argNo++ {
		value := ""
		if argNo <= len(cliArgs) {
			value = cliArgs[argNo-1]
		}
		baseDict[fmt.Sprintf("__%d", argNo)] = value
	}

	globalEnv := os.Environ()
	for _, item := range yamlDef.Global.Environment {
		name := fmt.Sprintf("%v", item.Key)
		var value string
		if item.Value != nil {
			value = fmt.Sprintf("%v", item.Value)
		}

		parsedValue, err := parseString(value, baseDict)
		if err != nil {
			return launchDefinition{}, fmt.Errorf(
				"global environment variable substitution failed: %w", err,
			)
		}
		baseDict[name] = parsedValue
		globalEnv = append(globalEnv, fmt.Sprintf("%v=%v", name, parsedValue))
	}

	var basePath string
	if filepath.IsAbs(yamlDef.Global.Folder) {
		basePath = yamlDef.Global.Folder
	} else {
		basePath = filepath.Join(filepath.Dir(filename), yamlDef.Global.Folder)
	}

	// Stable process order, scripts are a YAML map
	scriptNames := make([]string, 0, len(yamlDef.Scripts))
	for scriptName := range yamlDef.Scripts {
		if scriptName == "" {
			return launchDefinition{}, fmt.Errorf("empty script name")
		}
		scriptNames = append(scriptNames, scriptName)
	}
	sort.Strings(scriptNames)

	result := launchDefinition{
		processes: make([]launchProcess, 0, len(yamlDef.Scripts)),
	}
	for _, scriptName := range scriptNames {
		script := yamlDef.Scripts[scriptName]
		proc, err := parseScript(&script, scriptName, baseDict, globalEnv, basePath)
		if err != nil {
			return launchDefinition{}, err
		}
		result.processes = append(result.processes, proc)
	}

	if err := parseDependencies(result, yamlDef); err != nil {
		return launchDefinition{}, err
	}

	return result, nil
}
