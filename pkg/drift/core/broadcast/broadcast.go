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

// Package broadcast contains the environment machinery for value nodes: a
// bound environment publishes a single computed value into the distributed
// execution environment and worker-side code pulls it back through the same
// binding. The distribution mechanism itself is behind the Context
// capability; this package only handles coding and the binding discipline.
package broadcast

import (
	"context"

	"github.com/driftdata/drift/pkg/drift/core/graph/coder"
	"github.com/driftdata/drift/internal/errors"
)

// Context is the capability a runner supplies for moving broadcast values.
// Implementations must be concurrency safe. Publishing the same tag twice
// must keep the first value.
type Context interface {
	// Publish makes data available to every task under the given tag.
	Publish(ctx context.Context, tag string, data []byte) error

	// Fetch returns the data previously published under the given tag.
	Fetch(ctx context.Context, tag string) ([]byte, error)
}

// Env is a bound broadcast environment for a single value node. It is
// created at most once per node instance and reused for the node's lifetime.
type Env struct {
	tag string
	c   *coder.Coder
	bc  Context
}

// NewEnv binds an environment for the given tag, coder and context.
func NewEnv(tag string, c *coder.Coder, bc Context) *Env {
	return &Env{tag: tag, c: c, bc: bc}
}

// Tag returns the tag the environment publishes under.
func (e *Env) Tag() string {
	return e.tag
}

// Push serializes value with the node's coder and publishes it.
func (e *Env) Push(ctx context.Context, value any) error {
	data, err := e.c.Encode(value)
	if err != nil {
		return errors.WithContextf(err, "pushing environment %v", e.tag)
	}
	return e.bc.Publish(ctx, e.tag, data)
}

// Pull fetches the published value and decodes it with the node's coder.
func (e *Env) Pull(ctx context.Context) (any, error) {
	data, err := e.bc.Fetch(ctx, e.tag)
	if err != nil {
		return nil, errors.WithContextf(err, "pulling environment %v", e.tag)
	}
	return e.c.Decode(data)
}
