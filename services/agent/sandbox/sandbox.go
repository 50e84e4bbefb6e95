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

package sandbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize caps the size of a single file read.
const MaxFileSize = 10 * 1024 * 1024

var (
	ErrOutsideRoot = errors.New("path outside the data directory")
	ErrNotFound    = errors.New("file not found")
	ErrIsDirectory = errors.New("path is a directory")
	ErrTooLarge    = fmt.Errorf("file larger than %d bytes", MaxFileSize)
)

// Sandbox confines every file operation of the agent to a single root
// directory. Task handlers never touch the filesystem directly.
type Sandbox struct {
	root string
}

func New(root string) (*Sandbox, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Sandbox{root: filepath.Clean(absRoot)}, nil
}

func (s *Sandbox) Root() string {
	return s.root
}

// Resolve validates a path against the sandbox root and returns its absolute
// form. Relative paths are resolved against the root. A path is rejected when
// it contains a ".." component or when its cleaned form escapes the root.
func (s *Sandbox) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: empty path", ErrOutsideRoot)
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", ErrOutsideRoot, path)
		}
	}

	resolved := path
	if !filepath.IsAbs(resolved) {
		resolved = filepath.Join(s.root, resolved)
	}
	resolved = filepath.Clean(resolved)

	if resolved != s.root && !strings.HasPrefix(resolved, s.root+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrOutsideRoot, path)
	}
	return resolved, nil
}

// Contains reports whether the path would resolve inside the sandbox.
func (s *Sandbox) Contains(path string) bool {
	_, err := s.Resolve(path)
	return err == nil
}

func (s *Sandbox) ReadFile(path string) ([]byte, error) {
	resolved, err := s.Resolve(path)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(resolved)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %q", ErrIsDirectory, path)
	}
	if info.Size() > MaxFileSize {
		return nil, ErrTooLarge
	}

	f, err := os.Open(resolved)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, MaxFileSize))
}

func (s *Sandbox) WriteFile(path string, data []byte) error {
	resolved, err := s.Resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return err
	}
	return os.WriteFile(resolved, data, 0o644)
}

func (s *Sandbox) ReadJSON(path string, out interface{}) error {
	data, err := s.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid JSON file %q: %w", path, err)
	}
	return nil
}

func (s *Sandbox) WriteJSON(path string, value interface{}) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	return s.WriteFile(path, data)
}
