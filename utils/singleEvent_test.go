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

package utils

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSingleEventSet(t *testing.T) {
	event := MakeSingleEvent()
	assert.False(t, event.IsSet())

	var wg sync.WaitGroup
	results := make([]bool, 4)
	for i := 0; i < len(results); i++ {
		index := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[index] = event.Wait()
		}()
	}

	event.Set()
	wg.Wait()

	assert.True(t, event.IsSet())
	for _, result := range results {
		assert.True(t, result)
	}
}

func TestSingleEventDisable(t *testing.T) {
	event := MakeSingleEvent()
	event.Disable()

	assert.False(t, event.Wait())
	assert.False(t, event.IsSet())
}

func TestSingleEventSetTwice(t *testing.T) {
	event := MakeSingleEvent()
	event.Set()
	event.Set()
	assert.True(t, event.Wait())
}
