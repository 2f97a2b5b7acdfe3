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

// Package drift is the user-facing layer for assembling dataflow graphs.
// Collections and values are lazy: methods record nodes in a graph which a
// runner later optimizes and executes. Misuse of the builders, such as
// grouping a collection that is not keyed, panics at construction time.
package drift

import (
	"fmt"

	"github.com/driftdata/drift/pkg/drift/core/graph"
	"github.com/driftdata/drift/pkg/drift/core/graph/coder"
	"github.com/driftdata/drift/pkg/drift/core/typex"
)

// Collection is a lazy distributed collection: a handle on a graph node
// producing multiple records.
type Collection struct {
	n graph.CompNode
}

// Value is a lazy single value: a handle on a value node.
type Value struct {
	n graph.ValueNode
}

// Output is anything that can feed a graph root.
type Output interface {
	Node() graph.CompNode
}

// Node returns the underlying graph node.
func (c Collection) Node() graph.CompNode { return c.n }

// Node returns the underlying graph node.
func (v Value) Node() graph.CompNode { return v.n }

// ValueNode returns the underlying value node.
func (v Value) ValueNode() graph.ValueNode { return v.n }

// Source returns a collection read from the given source. The coder
// describes one record.
func Source(src graph.Source, c *coder.Coder) Collection {
	return Collection{n: graph.NewLoad(src, c)}
}

// Return returns a value holding the given in-memory value.
func Return(value any, c *coder.Coder) Value {
	return Value{n: graph.NewReturn(value, c)}
}

// NewRoot returns a graph root over the given outputs.
func NewRoot(outs ...Output) *graph.Root {
	var ins []graph.CompNode
	for _, out := range outs {
		ins = append(ins, out.Node())
	}
	return graph.NewRoot(ins...)
}

// unitEnv is the environment for element functions that need none.
func unitEnv() graph.ValueNode {
	return graph.NewReturn(typex.Unit{}, coder.NewUnit())
}

// ParDo applies an element function to every record, producing records of
// the given output coder. The function runs with a trivial environment.
func (c Collection) ParDo(fn graph.DoFn, out *coder.Coder) Collection {
	return c.ParDoEnv(fn, Value{n: unitEnv()}, out)
}

// ParDoEnv applies an element function with the given broadcast environment.
func (c Collection) ParDoEnv(fn graph.DoFn, env Value, out *coder.Coder) Collection {
	return Collection{n: graph.NewParallelDo(fn, env.n, c.n.Coder(), out, c.n)}
}

// Map emits f(v) for every record v.
func (c Collection) Map(name string, f func(any) (any, error), out *coder.Coder) Collection {
	return c.ParDo(graph.MapFn(name, f), out)
}

// FlatMap emits every element of f(v), in order, for every record v.
func (c Collection) FlatMap(name string, f func(any) ([]any, error), out *coder.Coder) Collection {
	return c.ParDo(graph.FlatMapFn(name, f), out)
}

// Filter keeps the records for which keep returns true.
func (c Collection) Filter(name string, keep func(any) (bool, error)) Collection {
	return c.ParDo(graph.FilterFn(name, keep), c.n.Coder())
}

// GroupByKey groups a keyed collection by key. The collection's coder must
// be a KV coder. An optional grouping overrides the natural one.
func (c Collection) GroupByKey(g ...graph.Grouping) Collection {
	kv := c.n.Coder()
	if !coder.IsKV(kv) {
		panic(fmt.Sprintf("GroupByKey: collection %v is not keyed: %v", c.n.ID(), kv))
	}
	var grouping graph.Grouping
	if len(g) > 0 {
		grouping = g[0]
	}
	return Collection{n: graph.NewGroupByKey(kv.Components[0], kv.Components[1], grouping, c.n)}
}

// CombinePerKey reduces the grouped values of each key with an associative
// function. The collection's coder must be KV with sequence values, as
// produced by GroupByKey.
func (c Collection) CombinePerKey(fn graph.CombineFn, g ...graph.Grouping) Collection {
	kv := c.n.Coder()
	if !coder.IsKV(kv) || !coder.IsIterable(kv.Components[1]) {
		panic(fmt.Sprintf("CombinePerKey: collection %v is not grouped: %v", c.n.ID(), kv))
	}
	var grouping graph.Grouping
	if len(g) > 0 {
		grouping = g[0]
	}
	return Collection{n: graph.NewCombine(fn, kv.Components[0], coder.SkipIterable(kv.Components[1]), grouping, c.n)}
}

// Materialize returns the collection's content as a single aggregate value.
func (c Collection) Materialize() Value {
	pn, ok := c.n.(graph.ProcessNode)
	if !ok {
		panic(fmt.Sprintf("Materialize: node %v is not a process node", c.n.ID()))
	}
	return Value{n: graph.NewMaterialise(pn, coder.NewIterable(c.n.Coder()))}
}

// WriteTo also writes the collection to the given sink, in addition to its
// bridge. It returns the collection carrying the sink; downstream consumers
// must use the returned collection.
func (c Collection) WriteTo(s graph.Sink) Collection {
	pn, ok := c.n.(graph.ProcessNode)
	if !ok {
		panic(fmt.Sprintf("WriteTo: node %v is not a process node", c.n.ID()))
	}
	return Collection{n: pn.AddSink(s)}
}

// Op returns the value of fn applied to two upstream values.
func Op(fn graph.OpFn, c *coder.Coder, a, b Output) Value {
	return Value{n: graph.NewOp(fn, c, a.Node(), b.Node())}
}
