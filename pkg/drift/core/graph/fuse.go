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

package graph

import (
	"context"
	"fmt"

	"github.com/driftdata/drift/pkg/drift/core/graph/coder"
	"github.com/driftdata/drift/pkg/drift/core/typex"
	"github.com/driftdata/drift/internal/errors"
)

// Fuse merges two adjacent ParallelDo nodes into one. The result is
// observationally equivalent to running pd1 and feeding every emitted record
// into pd2, without materializing the intermediate collection: emissions are
// threaded eagerly and in order through pd2's process function.
//
// Precondition: pd2's sole data input is pd1. Violations are caller bugs and
// fail fast with an error naming both node ids.
//
// The fused node reads pd1's inputs, produces pd2's output type, carries
// pd1's sinks followed by pd2's, and takes pd2's bridge identity: it
// physically replaces pd2 in the graph. Its environment is an Op node
// pairing the two source environments. Fusion is associative.
func Fuse(pd1, pd2 *ParallelDo) (*ParallelDo, error) {
	ins := pd2.Inputs()
	if len(ins) != 1 || ins[0].ID() != pd1.ID() {
		return nil, errors.Errorf(
			"cannot fuse: node %v is not the sole data input of node %v (inputs: %v)",
			pd1.ID(), pd2.ID(), NodeIDs(ins))
	}

	env := pairEnvs(pd1.Env(), pd2.Env())

	fused := &ParallelDo{
		id:     nextID(),
		ins:    pd1.Inputs(),
		env:    env,
		fn:     &fusedFn{f: pd1.Fn(), g: pd2.Fn()},
		in:     pd1.InputCoder(),
		out:    pd2.Coder(),
		bridge: pd2.Bridge(),
		sinks:  append(pd1.Sinks(), pd2.Sinks()...),
	}
	return fused, nil
}

// pairEnvs builds the environment of a fused node: an Op whose function
// constructs a pair and whose coder pairs the two source coders.
func pairEnvs(a, b ValueNode) *Op {
	fn := func(x, y any) (any, error) {
		return typex.Pair{Fst: x, Snd: y}, nil
	}
	return NewOp(fn, coder.NewPair(a.Coder(), b.Coder()), a, b)
}

// fusedFn composes two element functions. Setup splits a paired environment
// between the two; process and cleanup thread every upstream emission
// through g's process function before the call returns.
type fusedFn struct {
	f, g DoFn
}

func (c *fusedFn) Setup(ctx context.Context, env any) error {
	p, ok := env.(typex.Pair)
	if !ok {
		return errors.Errorf("fused setup: environment is %T, not a pair", env)
	}
	if err := c.f.Setup(ctx, p.Fst); err != nil {
		return err
	}
	return c.g.Setup(ctx, p.Snd)
}

func (c *fusedFn) Process(ctx context.Context, value any, emit EmitFn) error {
	return c.f.Process(ctx, value, c.into(ctx, emit))
}

func (c *fusedFn) Cleanup(ctx context.Context, emit EmitFn) error {
	// f's cleanup-time emissions still pass through g; g then cleans up
	// against the final emitter.
	if err := c.f.Cleanup(ctx, c.into(ctx, emit)); err != nil {
		return err
	}
	return c.g.Cleanup(ctx, emit)
}

// into returns an emitter that feeds each value synchronously into g.
func (c *fusedFn) into(ctx context.Context, emit EmitFn) EmitFn {
	return func(value any) error {
		return c.g.Process(ctx, value, emit)
	}
}

// LowerCombine converts a Combine node into an equivalent ParallelDo that,
// given a key paired with a non-empty value sequence, emits a single
// (key, reduced value) record using left-to-right reduction. The lowered
// node ignores its environment, keeps the combine's bridge identity and
// sinks, and reads the same input. An empty value sequence is a caller
// precondition violation and fails with an error naming the node.
func LowerCombine(c *Combine) *ParallelDo {
	in := coder.NewKV(c.KeyCoder(), coder.NewIterable(c.ValueCoder()))
	env := NewReturn(typex.Unit{}, coder.NewUnit())

	return &ParallelDo{
		id:     nextID(),
		ins:    c.Inputs(),
		env:    env,
		fn:     &loweredCombineFn{fn: c.Fn(), node: c.ID()},
		in:     in,
		out:    c.Coder(),
		bridge: c.Bridge(),
		sinks:  c.Sinks(),
	}
}

// loweredCombineFn folds a value sequence with an associative reduce
// function, reproducing the combine's left-to-right reduction order.
type loweredCombineFn struct {
	fn   CombineFn
	node NodeID
}

func (l *loweredCombineFn) Setup(ctx context.Context, env any) error {
	return nil // trivial unit environment
}

func (l *loweredCombineFn) Process(ctx context.Context, value any, emit EmitFn) error {
	kv, ok := value.(typex.KV)
	if !ok {
		return errors.Errorf("lowered combine %v: record is %T, not a KV", l.node, value)
	}
	values, ok := kv.Value.([]any)
	if !ok {
		return errors.Errorf("lowered combine %v: key %v has %T values, not a sequence", l.node, kv.Key, kv.Value)
	}
	if len(values) == 0 {
		return errors.Errorf("lowered combine %v: empty value sequence for key %v", l.node, kv.Key)
	}

	acc := values[0]
	for _, v := range values[1:] {
		next, err := l.fn(acc, v)
		if err != nil {
			return err
		}
		acc = next
	}
	return emit(typex.KV{Key: kv.Key, Value: acc})
}

func (l *loweredCombineFn) Cleanup(ctx context.Context, emit EmitFn) error {
	return nil
}

// FuseChain left-folds Fuse over a chain of ParallelDo nodes, rewiring each
// node onto the running fusion first. The chain must be adjacent: each node's
// sole data input is its predecessor in pds.
func FuseChain(pds ...*ParallelDo) (*ParallelDo, error) {
	if len(pds) == 0 {
		return nil, errors.New("cannot fuse an empty chain")
	}
	fused := pds[0]
	for i, pd := range pds[1:] {
		ins := pd.Inputs()
		if len(ins) != 1 || ins[0].ID() != pds[i].ID() {
			return nil, errors.Errorf(
				"cannot fuse chain: node %v is not the sole data input of node %v",
				pds[i].ID(), pd.ID())
		}
		next, err := Fuse(fused, pd.WithInputs(fused))
		if err != nil {
			return nil, err
		}
		fused = next
	}
	return fused, nil
}

// String name for the fused function, for graph printing.
func (c *fusedFn) name() string {
	return fmt.Sprintf("%v+%v", FnName(c.f), FnName(c.g))
}
