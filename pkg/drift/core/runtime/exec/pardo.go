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

package exec

import (
	"context"
	"fmt"

	"github.com/driftdata/drift/pkg/drift/core/broadcast"
	"github.com/driftdata/drift/pkg/drift/core/graph"
	"github.com/driftdata/drift/pkg/drift/core/typex"
	"github.com/driftdata/drift/internal/errors"
)

// ParDo executes the element function of a ParallelDo node. Setup pulls the
// node's environment through the broadcast binding before running the
// function's own setup.
type ParDo struct {
	Node *graph.ParallelDo
	BC   broadcast.Context

	status Status
}

// NewParDo returns an executor for the given node and broadcast context.
func NewParDo(n *graph.ParallelDo, bc broadcast.Context) *ParDo {
	return &ParDo{Node: n, BC: bc}
}

// Setup pulls the environment and initializes the element function.
func (p *ParDo) Setup(ctx context.Context) error {
	if p.status != Initializing {
		return errors.Errorf("invalid status for pardo %v: %v, want Initializing", p.Node.ID(), p.status)
	}

	env, err := p.Node.Env().Environment(ctx, p.BC)
	if err != nil {
		return p.fail(err)
	}
	value, err := env.Pull(ctx)
	if err != nil {
		return p.fail(errors.WithContextf(err, "setting up pardo %v", p.Node.ID()))
	}
	if err := callNoPanic(ctx, func(ctx context.Context) error {
		return p.Node.Fn().Setup(ctx, value)
	}); err != nil {
		return p.fail(err)
	}
	p.status = Up
	return nil
}

// Map feeds one record through the element function. Emissions invoke emit
// synchronously, in order.
func (p *ParDo) Map(ctx context.Context, elm any, emit graph.EmitFn) error {
	if p.status != Up {
		return errors.Errorf("invalid status for pardo %v: %v, want Up", p.Node.ID(), p.status)
	}
	if err := callNoPanic(ctx, func(ctx context.Context) error {
		return p.Node.Fn().Process(ctx, elm, emit)
	}); err != nil {
		return p.fail(err)
	}
	return nil
}

// Reduce feeds a key with its grouped values through the element function as
// a single key/value-sequence record.
func (p *ParDo) Reduce(ctx context.Context, key any, values []any, emit graph.EmitFn) error {
	return p.Map(ctx, typex.KV{Key: key, Value: values}, emit)
}

// Cleanup finishes the element function. Trailing emissions invoke emit.
func (p *ParDo) Cleanup(ctx context.Context, emit graph.EmitFn) error {
	if p.status != Up {
		return errors.Errorf("invalid status for pardo %v: %v, want Up", p.Node.ID(), p.status)
	}
	if err := callNoPanic(ctx, func(ctx context.Context) error {
		return p.Node.Fn().Cleanup(ctx, emit)
	}); err != nil {
		return p.fail(err)
	}
	p.status = Down
	return nil
}

func (p *ParDo) fail(err error) error {
	p.status = Broken
	return err
}

func (p *ParDo) String() string {
	return fmt.Sprintf("ParDo[%v] %v", p.Node.ID(), p.status)
}

// CombineReducer executes a Combine node behind a GroupByKey as a
// left-to-right fold over each key's values.
type CombineReducer struct {
	Node *graph.Combine

	status Status
}

// NewCombineReducer returns an executor for the given combine node.
func NewCombineReducer(n *graph.Combine) *CombineReducer {
	return &CombineReducer{Node: n}
}

// Setup initializes the reducer.
func (c *CombineReducer) Setup(ctx context.Context) error {
	if c.status != Initializing {
		return errors.Errorf("invalid status for combine %v: %v, want Initializing", c.Node.ID(), c.status)
	}
	c.status = Up
	return nil
}

// Reduce folds the values of one key and emits a single (key, reduced)
// record. An empty value sequence is a precondition violation.
func (c *CombineReducer) Reduce(ctx context.Context, key any, values []any, emit graph.EmitFn) error {
	if c.status != Up {
		return errors.Errorf("invalid status for combine %v: %v, want Up", c.Node.ID(), c.status)
	}
	if len(values) == 0 {
		return errors.Errorf("combine %v: empty value sequence for key %v", c.Node.ID(), key)
	}

	var acc any
	err := callNoPanic(ctx, func(context.Context) error {
		acc = values[0]
		for _, v := range values[1:] {
			next, err := c.Node.Fn()(acc, v)
			if err != nil {
				return err
			}
			acc = next
		}
		return nil
	})
	if err != nil {
		c.status = Broken
		return err
	}
	return emit(typex.KV{Key: key, Value: acc})
}

// Cleanup finishes the reducer.
func (c *CombineReducer) Cleanup(ctx context.Context) error {
	c.status = Down
	return nil
}
