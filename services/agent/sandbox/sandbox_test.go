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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRelative(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	resolved, err := s.Resolve("logs/app.log")
	assert.NoError(t, err)
	assert.Equal(t, filepath.Join(s.Root(), "logs", "app.log"), resolved)
}

func TestResolveAbsoluteInsideRoot(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	inside := filepath.Join(s.Root(), "contacts.json")
	resolved, err := s.Resolve(inside)
	assert.NoError(t, err)
	assert.Equal(t, inside, resolved)
}

func TestResolveRejectsTraversal(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	for _, path := range []string{
		"../etc/passwd",
		"logs/../../outside",
		filepath.Join(s.Root(), "..", "outside"),
		"",
	} {
		_, err := s.Resolve(path)
		assert.ErrorIs(t, err, ErrOutsideRoot, "path %q", path)
	}
}

func TestResolveRejectsAbsoluteOutsideRoot(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.Resolve("/etc/passwd")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestResolveRejectsSiblingPrefix(t *testing.T) {
	root := t.TempDir()
	s, err := New(filepath.Join(root, "data"))
	require.NoError(t, err)

	// "dataplus" shares the "data" prefix but is a sibling directory
	_, err = s.Resolve(filepath.Join(root, "dataplus", "x"))
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestReadWriteRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.WriteFile("docs/nested/readme.md", []byte("# hello")))

	data, err := s.ReadFile("docs/nested/readme.md")
	require.NoError(t, err)
	assert.Equal(t, "# hello", string(data))
}

func TestReadMissingFile(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = s.ReadFile("nope.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReadDirectory(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(s.Root(), "logs"), 0o755))

	_, err = s.ReadFile("logs")
	assert.ErrorIs(t, err, ErrIsDirectory)
}

func TestJSONRoundTrip(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)

	type contact struct {
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	}
	in := []contact{{FirstName: "Ada", LastName: "Lovelace"}}
	require.NoError(t, s.WriteJSON("contacts.json", in))

	var out []contact
	require.NoError(t, s.ReadJSON("contacts.json", &out))
	assert.Equal(t, in, out)
}

func TestReadInvalidJSON(t *testing.T) {
	s, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, s.WriteFile("broken.json", []byte("{")))

	var out map[string]interface{}
	err = s.ReadJSON("broken.json", &out)
	assert.Error(t, err)
}
