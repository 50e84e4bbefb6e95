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
	"errors"
	"fmt"
)

// InvalidTaskError marks a task that was rejected before execution: empty
// descriptions, path escapes, unsupported task types.
type InvalidTaskError struct {
	message string
}

func NewInvalidTaskError(format string, args ...interface{}) *InvalidTaskError {
	return &InvalidTaskError{message: fmt.Sprintf(format, args...)}
}

func (e *InvalidTaskError) Error() string {
	return e.message
}

func IsInvalidTask(err error) bool {
	target := &InvalidTaskError{}
	return errors.As(err, &target)
}
