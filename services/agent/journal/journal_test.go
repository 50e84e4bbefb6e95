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

package journal

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestJournal(t *testing.T) *Journal {
	j, err := Open(filepath.Join(t.TempDir(), ".dataforge", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestAppendAssignsSequentialIDs(t *testing.T) {
	j := openTestJournal(t)

	first, err := j.Append(Record{Task: "count weekdays", Category: "A3", Status: StatusSuccess})
	require.NoError(t, err)
	second, err := j.Append(Record{Task: "sort contacts", Category: "A4", Status: StatusSuccess})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(2), second)
}

func TestRecentNewestFirst(t *testing.T) {
	j := openTestJournal(t)

	for i := 0; i < 5; i++ {
		_, err := j.Append(Record{
			Task:      fmt.Sprintf("task %d", i),
			Category:  "A1",
			Status:    StatusSuccess,
			StartedAt: time.Now().UTC(),
			Duration:  time.Duration(i) * time.Millisecond,
		})
		require.NoError(t, err)
	}

	records, err := j.Recent(3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "task 4", records[0].Task)
	assert.Equal(t, "task 3", records[1].Task)
	assert.Equal(t, "task 2", records[2].Task)
}

func TestRecentMoreThanStored(t *testing.T) {
	j := openTestJournal(t)

	_, err := j.Append(Record{Task: "only one", Category: "B5", Status: StatusError, Error: "boom"})
	require.NoError(t, err)

	records, err := j.Recent(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "boom", records[0].Error)
}

func TestRecordsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	j, err := Open(path)
	require.NoError(t, err)
	_, err = j.Append(Record{Task: "persisted", Category: "A2", Status: StatusSuccess})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	count, err := reopened.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	records, err := reopened.Recent(1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "persisted", records[0].Task)
}
