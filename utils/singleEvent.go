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

import "sync"

// SingleEvent is a one-shot broadcast: it is either set once, after which every
// waiter (past and future) is released with true, or disabled, releasing waiters
// with false. Set after Disable is a no-op.
type SingleEvent struct {
	mu       sync.Mutex
	done     chan struct{}
	set      bool
	disabled bool
}

func MakeSingleEvent() *SingleEvent {
	return &SingleEvent{done: make(chan struct{})}
}

func (se *SingleEvent) IsSet() bool {
	se.mu.Lock()
	defer se.mu.Unlock()
	return se.set
}

func (se *SingleEvent) Set() {
	se.mu.Lock()
	defer se.mu.Unlock()
	if se.set || se.disabled {
		return
	}
	se.set = true
	close(se.done)
}

func (se *SingleEvent) Disable() {
	se.mu.Lock()
	defer se.mu.Unlock()
	if se.set || se.disabled {
		return
	}
	se.disabled = true
	close(se.done)
}

// Wait blocks until the event is set or disabled, returns whether it was set.
func (se *SingleEvent) Wait() bool {
	<-se.done
	se.mu.Lock()
	defer se.mu.Unlock()
	return se.set
}
