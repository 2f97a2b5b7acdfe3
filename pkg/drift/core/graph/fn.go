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
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
)

// EmitFn consumes a single value produced by an element function. During a
// single Process call the emitter may be invoked any number of times, and in
// a fused chain each emission directly invokes the downstream function
// before the call returns.
type EmitFn func(value any) error

// DoFn is the element function carried by a ParallelDo node: a
// setup/process/cleanup triple invoked in that order by the task runner.
// Setup receives the pulled broadcast environment; cleanup may emit trailing
// values. Errors propagate to the task runner unmodified.
type DoFn interface {
	Setup(ctx context.Context, env any) error
	Process(ctx context.Context, value any, emit EmitFn) error
	Cleanup(ctx context.Context, emit EmitFn) error
}

// CombineFn is an associative reduce function over values that share a key.
type CombineFn func(left, right any) (any, error)

// OpFn is the binary function of an Op node, combining two upstream values
// into one.
type OpFn func(a, b any) (any, error)

// SimpleFn is a DoFn assembled from optional closures. Nil phases are no-ops.
type SimpleFn struct {
	Name string

	SetupFn   func(ctx context.Context, env any) error
	ProcessFn func(ctx context.Context, value any, emit EmitFn) error
	CleanupFn func(ctx context.Context, emit EmitFn) error
}

// Setup runs the setup closure, if any.
func (f *SimpleFn) Setup(ctx context.Context, env any) error {
	if f.SetupFn == nil {
		return nil
	}
	return f.SetupFn(ctx, env)
}

// Process runs the process closure, if any.
func (f *SimpleFn) Process(ctx context.Context, value any, emit EmitFn) error {
	if f.ProcessFn == nil {
		return nil
	}
	return f.ProcessFn(ctx, value, emit)
}

// Cleanup runs the cleanup closure, if any.
func (f *SimpleFn) Cleanup(ctx context.Context, emit EmitFn) error {
	if f.CleanupFn == nil {
		return nil
	}
	return f.CleanupFn(ctx, emit)
}

// MapFn returns a DoFn that emits f(v) for every input v.
func MapFn(name string, f func(value any) (any, error)) DoFn {
	return &SimpleFn{
		Name: name,
		ProcessFn: func(ctx context.Context, value any, emit EmitFn) error {
			out, err := f(value)
			if err != nil {
				return err
			}
			return emit(out)
		},
	}
}

// FlatMapFn returns a DoFn that emits every element of f(v) in order.
func FlatMapFn(name string, f func(value any) ([]any, error)) DoFn {
	return &SimpleFn{
		Name: name,
		ProcessFn: func(ctx context.Context, value any, emit EmitFn) error {
			outs, err := f(value)
			if err != nil {
				return err
			}
			for _, out := range outs {
				if err := emit(out); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// FilterFn returns a DoFn that emits v iff keep(v).
func FilterFn(name string, keep func(value any) (bool, error)) DoFn {
	return &SimpleFn{
		Name: name,
		ProcessFn: func(ctx context.Context, value any, emit EmitFn) error {
			ok, err := keep(value)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			return emit(value)
		},
	}
}

// FnName returns a printable name for a DoFn.
func FnName(fn DoFn) string {
	switch f := fn.(type) {
	case *SimpleFn:
		if f.Name != "" {
			return f.Name
		}
	case *fusedFn:
		return f.name()
	case *loweredCombineFn:
		return fmt.Sprintf("combine-%v", f.node)
	}
	return "fn"
}

// Grouping is the key-grouping strategy of GroupByKey and Combine nodes. It
// operates on encoded keys, so any key type with a coder can be grouped.
type Grouping interface {
	// Partition assigns an encoded key to one of parts partitions.
	Partition(key []byte, parts int) int

	// Compare orders encoded keys. Keys compare equal iff they belong to
	// the same group.
	Compare(a, b []byte) int
}

// NaturalGrouping groups byte-equal keys and partitions by hash. It is the
// default grouping.
type NaturalGrouping struct{}

// Partition assigns the key by FNV-1a hash.
func (NaturalGrouping) Partition(key []byte, parts int) int {
	if parts <= 1 {
		return 0
	}
	h := fnv.New32a()
	h.Write(key)
	return int(h.Sum32() % uint32(parts))
}

// Compare orders keys bytewise.
func (NaturalGrouping) Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}
