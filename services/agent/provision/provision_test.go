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

package provision

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/dataforge/dataforge/services/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDataDirCreates(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "nested", "data")

	require.NoError(t, EnsureDataDir(dataDir))

	info, err := os.Stat(dataDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestEnsureDataDirExisting(t *testing.T) {
	assert.NoError(t, EnsureDataDir(t.TempDir()))
}

func TestCheckToolsFound(t *testing.T) {
	// ls is present on any unix PATH
	assert.NoError(t, CheckTools([]string{"ls"}))
}

func TestCheckToolsMissing(t *testing.T) {
	err := CheckTools([]string{"definitely-not-a-real-tool-xyz"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "definitely-not-a-real-tool-xyz")
}

func TestCheckPortBusy(t *testing.T) {
	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer listener.Close()
	port, err := utils.ExtractPort(listener.Addr().String())
	require.NoError(t, err)

	assert.Error(t, CheckPort(port))
}

func TestCheckPortFree(t *testing.T) {
	listener, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	port, err := utils.ExtractPort(listener.Addr().String())
	require.NoError(t, err)
	require.NoError(t, listener.Close())

	assert.NoError(t, CheckPort(port))
}
