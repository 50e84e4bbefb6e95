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
	"bytes"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Run statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Record is a single task execution entry.
type Record struct {
	ID        uint64        `json:"id"`
	Task      string        `json:"task"`
	Category  string        `json:"category"`
	Status    string        `json:"status"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Bucket structure is
//	runs > {run_id} > {journal.Record}
var runsBucketName = []byte("runs")

// Journal is an append-only, file-backed log of task runs.
type Journal struct {
	db       *bolt.DB
	filePath string
}

func Open(filePath string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("unable to create the journal directory: %w", err)
	}

	db, err := bolt.Open(filePath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("unable to open the journal database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(runsBucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to create the runs bucket: %w", err)
	}

	return &Journal{db: db, filePath: filePath}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

func (j *Journal) FilePath() string {
	return j.filePath
}

func serializeRunID(id uint64) []byte {
	// Hex representation of a fixed length of 16 characters, so that the
	// lexicographic bucket order matches the run order.
	return []byte(fmt.Sprintf("%016x", id))
}

func serializeRecord(record *Record) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(*record); err != nil {
		return nil, fmt.Errorf("unable to serialize run record: %w", err)
	}
	return buf.Bytes(), nil
}

func deserializeRecord(v []byte) (*Record, error) {
	record := &Record{}
	if err := gob.NewDecoder(bytes.NewReader(v)).Decode(record); err != nil {
		return nil, fmt.Errorf("unable to deserialize run record: %w", err)
	}
	return record, nil
}

// Append stores a record and returns its assigned id.
func (j *Journal) Append(record Record) (uint64, error) {
	var id uint64
	err := j.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(runsBucketName)

		var err error
		id, err = bucket.NextSequence()
		if err != nil {
			return err
		}
		record.ID = id

		value, err := serializeRecord(&record)
		if err != nil {
			return err
		}
		return bucket.Put(serializeRunID(id), value)
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Recent returns up to count records, newest first.
func (j *Journal) Recent(count int) ([]Record, error) {
	records := []Record{}
	err := j.db.View(func(tx *bolt.Tx) error {
		cursor := tx.Bucket(runsBucketName).Cursor()
		for k, v := cursor.Last(); k != nil && len(records) < count; k, v = cursor.Prev() {
			record, err := deserializeRecord(v)
			if err != nil {
				return err
			}
			records = append(records, *record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Count returns the total number of recorded runs.
func (j *Journal) Count() (int, error) {
	count := 0
	err := j.db.View(func(tx *bolt.Tx) error {
		count = tx.Bucket(runsBucketName).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
