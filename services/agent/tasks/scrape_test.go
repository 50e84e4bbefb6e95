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

package tasks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scrapeTestPage = `<html><body>
	<h1>Main Title</h1>
	<p class="lead intro">Leading paragraph</p>
	<p>Plain paragraph</p>
	<div id="sidebar"><span>Nested</span> content</div>
</body></html>`

func TestScrapeSelectorTag(t *testing.T) {
	matches, err := scrapeSelector([]byte(scrapeTestPage), "p")
	require.NoError(t, err)
	assert.Equal(t, []string{"Leading paragraph", "Plain paragraph"}, matches)
}

func TestScrapeSelectorClass(t *testing.T) {
	matches, err := scrapeSelector([]byte(scrapeTestPage), ".lead")
	require.NoError(t, err)
	assert.Equal(t, []string{"Leading paragraph"}, matches)
}

func TestScrapeSelectorID(t *testing.T) {
	matches, err := scrapeSelector([]byte(scrapeTestPage), "#sidebar")
	require.NoError(t, err)
	assert.Equal(t, []string{"Nested content"}, matches)
}

func TestScrapeSelectorNoMatch(t *testing.T) {
	matches, err := scrapeSelector([]byte(scrapeTestPage), ".missing")
	require.NoError(t, err)
	assert.Empty(t, matches)
}
