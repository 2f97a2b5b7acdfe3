// Licensed to the Apache Software Foundation (ASF) under one or more
// contributor license agreements.  See the NOTICE file distributed with
// this work for additional information regarding copyright ownership.
// The ASF licenses this file to You under the Apache License, Version 2.0
// (the "License"); you may not use this file except in compliance with
// the License.  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package exec contains the task-side invocation contract: adapters that let
// a runner drive surviving graph nodes as mappers and reducers. Invocation
// order for a task is Setup, then Map or Reduce per record, then Cleanup;
// the emitter may be called any number of times during each call.
package exec

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/driftdata/drift/internal/errors"
)

// Status is the lifecycle state of an executor.
type Status int

// Valid statuses.
const (
	Initializing Status = iota
	Up
	Broken
	Down
)

func (s Status) String() string {
	switch s {
	case Initializing:
		return "Initializing"
	case Up:
		return "Up"
	case Broken:
		return "Broken"
	case Down:
		return "Down"
	default:
		return fmt.Sprintf("Status(%v)", int(s))
	}
}

// callNoPanic calls the given function and converts any panic into an error.
// User element functions run under this guard; their ordinary errors pass
// through unmodified.
func callNoPanic(ctx context.Context, f func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v %s", r, debug.Stack())
		}
	}()
	return f(ctx)
}
