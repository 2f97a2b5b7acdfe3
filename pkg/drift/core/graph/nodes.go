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

	"github.com/driftdata/drift/pkg/drift/core/broadcast"
	"github.com/driftdata/drift/pkg/drift/core/graph/coder"
)

// The eight node variants. Process nodes: ParallelDo, Combine, GroupByKey.
// Value nodes: Load, Return, Materialise, Op, Root. Constructors are total;
// codecs and functions are supplied by the caller and not validated here.

// ParallelDo applies an element function to every record of its inputs. The
// function's environment is the value of a separate value node, pulled
// through the broadcast machinery at setup time.
type ParallelDo struct {
	id     NodeID
	ins    []CompNode
	env    ValueNode
	fn     DoFn
	in     *coder.Coder
	out    *coder.Coder
	bridge *BridgeStore
	sinks  []Sink
}

// NewParallelDo returns a ParallelDo over the given inputs with a fresh
// bridge identity and no sinks.
func NewParallelDo(fn DoFn, env ValueNode, in, out *coder.Coder, ins ...CompNode) *ParallelDo {
	return &ParallelDo{
		id:     nextID(),
		ins:    ins,
		env:    env,
		fn:     fn,
		in:     in,
		out:    out,
		bridge: NewBridgeStore(),
	}
}

// ID returns the node identity.
func (p *ParallelDo) ID() NodeID { return p.id }

// Coder returns the output coder, derived from the declared output type.
func (p *ParallelDo) Coder() *coder.Coder { return p.out }

// InputCoder returns the coder of the records the element function consumes.
func (p *ParallelDo) InputCoder() *coder.Coder { return p.in }

// Inputs returns the upstream data inputs. The environment node is not a
// data input.
func (p *ParallelDo) Inputs() []CompNode { return cloneNodes(p.ins) }

// Env returns the environment value node.
func (p *ParallelDo) Env() ValueNode { return p.env }

// Fn returns the element function.
func (p *ParallelDo) Fn() DoFn { return p.fn }

// Bridge returns the node's bridge store.
func (p *ParallelDo) Bridge() *BridgeStore { return p.bridge }

// Sinks returns the node's external sinks.
func (p *ParallelDo) Sinks() []Sink { return cloneSinks(p.sinks) }

// UpdateSinks derives a new ParallelDo with sinks replaced by f(sinks). The
// receiver is unchanged; the bridge identity is preserved.
func (p *ParallelDo) UpdateSinks(f func([]Sink) []Sink) ProcessNode {
	q := *p
	q.id = nextID()
	q.sinks = f(p.Sinks())
	return &q
}

// AddSink derives a new ParallelDo with s appended to the sinks.
func (p *ParallelDo) AddSink(s Sink) ProcessNode {
	return p.UpdateSinks(func(sinks []Sink) []Sink { return append(sinks, s) })
}

// WithInputs derives a new ParallelDo reading from the given inputs instead.
// All other fields, including the bridge identity, are preserved.
func (p *ParallelDo) WithInputs(ins ...CompNode) *ParallelDo {
	q := *p
	q.id = nextID()
	q.ins = ins
	return &q
}

// WithEnv derives a new ParallelDo using the given environment node instead.
func (p *ParallelDo) WithEnv(env ValueNode) *ParallelDo {
	q := *p
	q.id = nextID()
	q.env = env
	return &q
}

func (p *ParallelDo) String() string {
	return fmt.Sprintf("%v: ParallelDo/%v %v env:%v -> %v", p.id, FnName(p.fn), NodeIDs(p.ins), p.env.ID(), p.out)
}

func (p *ParallelDo) processNode() {}

// Combine reduces the values of each key/values record with an associative
// function. Input records are key/value-sequence pairs, as produced by
// GroupByKey.
type Combine struct {
	id       NodeID
	in       CompNode
	fn       CombineFn
	key      *coder.Coder
	value    *coder.Coder
	grouping Grouping
	bridge   *BridgeStore
	sinks    []Sink
}

// NewCombine returns a Combine over the given input. A nil grouping defaults
// to NaturalGrouping.
func NewCombine(fn CombineFn, key, value *coder.Coder, g Grouping, in CompNode) *Combine {
	if g == nil {
		g = NaturalGrouping{}
	}
	return &Combine{
		id:       nextID(),
		in:       in,
		fn:       fn,
		key:      key,
		value:    value,
		grouping: g,
		bridge:   NewBridgeStore(),
	}
}

// ID returns the node identity.
func (c *Combine) ID() NodeID { return c.id }

// Coder returns the output coder: key paired with the reduced value.
func (c *Combine) Coder() *coder.Coder { return coder.NewKV(c.key, c.value) }

// KeyCoder returns the key coder.
func (c *Combine) KeyCoder() *coder.Coder { return c.key }

// ValueCoder returns the value coder.
func (c *Combine) ValueCoder() *coder.Coder { return c.value }

// Inputs returns the single upstream node.
func (c *Combine) Inputs() []CompNode { return []CompNode{c.in} }

// Fn returns the reduce function.
func (c *Combine) Fn() CombineFn { return c.fn }

// Grouping returns the key-grouping strategy.
func (c *Combine) Grouping() Grouping { return c.grouping }

// Bridge returns the node's bridge store.
func (c *Combine) Bridge() *BridgeStore { return c.bridge }

// Sinks returns the node's external sinks.
func (c *Combine) Sinks() []Sink { return cloneSinks(c.sinks) }

// UpdateSinks derives a new Combine with sinks replaced by f(sinks).
func (c *Combine) UpdateSinks(f func([]Sink) []Sink) ProcessNode {
	q := *c
	q.id = nextID()
	q.sinks = f(c.Sinks())
	return &q
}

// AddSink derives a new Combine with s appended to the sinks.
func (c *Combine) AddSink(s Sink) ProcessNode {
	return c.UpdateSinks(func(sinks []Sink) []Sink { return append(sinks, s) })
}

// WithInputs derives a new Combine reading from the given input instead.
func (c *Combine) WithInputs(ins ...CompNode) *Combine {
	q := *c
	q.id = nextID()
	q.in = ins[0]
	return &q
}

func (c *Combine) String() string {
	return fmt.Sprintf("%v: Combine [%v] -> KV<%v,%v>", c.id, c.in.ID(), c.key, c.value)
}

func (c *Combine) processNode() {}

// GroupByKey groups the key/value records of its input by key. The output
// value coder is the sequence coder wrapping the element coder.
type GroupByKey struct {
	id       NodeID
	in       CompNode
	key      *coder.Coder
	value    *coder.Coder
	grouping Grouping
	bridge   *BridgeStore
	sinks    []Sink
}

// NewGroupByKey returns a GroupByKey over the given input. A nil grouping
// defaults to NaturalGrouping.
func NewGroupByKey(key, value *coder.Coder, g Grouping, in CompNode) *GroupByKey {
	if g == nil {
		g = NaturalGrouping{}
	}
	return &GroupByKey{
		id:       nextID(),
		in:       in,
		key:      key,
		value:    value,
		grouping: g,
		bridge:   NewBridgeStore(),
	}
}

// ID returns the node identity.
func (g *GroupByKey) ID() NodeID { return g.id }

// Coder returns the output coder: key paired with a sequence of values.
func (g *GroupByKey) Coder() *coder.Coder {
	return coder.NewKV(g.key, coder.NewIterable(g.value))
}

// KeyCoder returns the key coder.
func (g *GroupByKey) KeyCoder() *coder.Coder { return g.key }

// ValueCoder returns the element coder of the grouped values.
func (g *GroupByKey) ValueCoder() *coder.Coder { return g.value }

// Inputs returns the single upstream node.
func (g *GroupByKey) Inputs() []CompNode { return []CompNode{g.in} }

// Grouping returns the key-grouping strategy.
func (g *GroupByKey) Grouping() Grouping { return g.grouping }

// Bridge returns the node's bridge store.
func (g *GroupByKey) Bridge() *BridgeStore { return g.bridge }

// Sinks returns the node's external sinks.
func (g *GroupByKey) Sinks() []Sink { return cloneSinks(g.sinks) }

// UpdateSinks derives a new GroupByKey with sinks replaced by f(sinks).
func (g *GroupByKey) UpdateSinks(f func([]Sink) []Sink) ProcessNode {
	q := *g
	q.id = nextID()
	q.sinks = f(g.Sinks())
	return &q
}

// AddSink derives a new GroupByKey with s appended to the sinks.
func (g *GroupByKey) AddSink(s Sink) ProcessNode {
	return g.UpdateSinks(func(sinks []Sink) []Sink { return append(sinks, s) })
}

// WithInputs derives a new GroupByKey reading from the given input instead.
func (g *GroupByKey) WithInputs(ins ...CompNode) *GroupByKey {
	q := *g
	q.id = nextID()
	q.in = ins[0]
	return &q
}

func (g *GroupByKey) String() string {
	return fmt.Sprintf("%v: GroupByKey [%v] -> %v", g.id, g.in.ID(), g.Coder())
}

func (g *GroupByKey) processNode() {}

// Load produces a single value read from an external source.
type Load struct {
	id  NodeID
	src Source
	c   *coder.Coder
	envCache
}

// NewLoad returns a Load for the given source descriptor.
func NewLoad(src Source, c *coder.Coder) *Load {
	return &Load{id: nextID(), src: src, c: c}
}

// ID returns the node identity.
func (l *Load) ID() NodeID { return l.id }

// Coder returns the value coder.
func (l *Load) Coder() *coder.Coder { return l.c }

// Inputs returns nil; Load is a leaf.
func (l *Load) Inputs() []CompNode { return nil }

// Source returns the external source descriptor.
func (l *Load) Source() Source { return l.src }

// Environment returns the node's broadcast environment, binding it on first
// access.
func (l *Load) Environment(ctx context.Context, bc broadcast.Context) (*broadcast.Env, error) {
	return l.environment(l.id, l.c, bc)
}

func (l *Load) String() string {
	return fmt.Sprintf("%v: Load -> %v", l.id, l.c)
}

func (l *Load) valueNode() {}

// Return produces a single in-memory value.
type Return struct {
	id    NodeID
	value any
	c     *coder.Coder
	envCache
}

// NewReturn returns a Return holding the given value.
func NewReturn(value any, c *coder.Coder) *Return {
	return &Return{id: nextID(), value: value, c: c}
}

// ID returns the node identity.
func (r *Return) ID() NodeID { return r.id }

// Coder returns the value coder.
func (r *Return) Coder() *coder.Coder { return r.c }

// Inputs returns nil; Return is a leaf.
func (r *Return) Inputs() []CompNode { return nil }

// Value returns the held value.
func (r *Return) Value() any { return r.value }

// Environment returns the node's broadcast environment, binding it on first
// access.
func (r *Return) Environment(ctx context.Context, bc broadcast.Context) (*broadcast.Env, error) {
	return r.environment(r.id, r.c, bc)
}

func (r *Return) String() string {
	return fmt.Sprintf("%v: Return %v -> %v", r.id, r.value, r.c)
}

func (r *Return) valueNode() {}

// Materialise produces the aggregate value of an upstream process node's
// output collection.
type Materialise struct {
	id NodeID
	in ProcessNode
	c  *coder.Coder
	envCache
}

// NewMaterialise returns a Materialise of the given process node.
func NewMaterialise(in ProcessNode, c *coder.Coder) *Materialise {
	return &Materialise{id: nextID(), in: in, c: c}
}

// ID returns the node identity.
func (m *Materialise) ID() NodeID { return m.id }

// Coder returns the coder of the materialized aggregate.
func (m *Materialise) Coder() *coder.Coder { return m.c }

// Inputs returns the single upstream process node.
func (m *Materialise) Inputs() []CompNode { return []CompNode{m.in} }

// Upstream returns the process node being materialized.
func (m *Materialise) Upstream() ProcessNode { return m.in }

// Environment returns the node's broadcast environment, binding it on first
// access.
func (m *Materialise) Environment(ctx context.Context, bc broadcast.Context) (*broadcast.Env, error) {
	return m.environment(m.id, m.c, bc)
}

func (m *Materialise) String() string {
	return fmt.Sprintf("%v: Materialise [%v] -> %v", m.id, m.in.ID(), m.c)
}

func (m *Materialise) valueNode() {}

// Op produces the value of a binary function over two upstream values.
// Fusion uses Op nodes to pair the environments of the fused functions.
type Op struct {
	id   NodeID
	a, b CompNode
	fn   OpFn
	c    *coder.Coder
	envCache
}

// NewOp returns an Op applying fn to the values of a and b.
func NewOp(fn OpFn, c *coder.Coder, a, b CompNode) *Op {
	return &Op{id: nextID(), a: a, b: b, fn: fn, c: c}
}

// ID returns the node identity.
func (o *Op) ID() NodeID { return o.id }

// Coder returns the value coder.
func (o *Op) Coder() *coder.Coder { return o.c }

// Inputs returns the two upstream nodes.
func (o *Op) Inputs() []CompNode { return []CompNode{o.a, o.b} }

// Fn returns the binary function.
func (o *Op) Fn() OpFn { return o.fn }

// Environment returns the node's broadcast environment, binding it on first
// access.
func (o *Op) Environment(ctx context.Context, bc broadcast.Context) (*broadcast.Env, error) {
	return o.environment(o.id, o.c, bc)
}

func (o *Op) String() string {
	return fmt.Sprintf("%v: Op [%v %v] -> %v", o.id, o.a.ID(), o.b.ID(), o.c)
}

func (o *Op) valueNode() {}

// Root is the terminal marker of a graph. Executing a graph means executing
// everything a Root transitively references.
type Root struct {
	id  NodeID
	ins []CompNode
	envCache
}

// NewRoot returns a Root over the given nodes.
func NewRoot(ins ...CompNode) *Root {
	return &Root{id: nextID(), ins: ins}
}

// ID returns the node identity.
func (r *Root) ID() NodeID { return r.id }

// Coder returns the unit coder; a Root produces no value of its own.
func (r *Root) Coder() *coder.Coder { return coder.NewUnit() }

// Inputs returns the root's upstream nodes.
func (r *Root) Inputs() []CompNode { return cloneNodes(r.ins) }

// Environment returns the node's broadcast environment, binding it on first
// access.
func (r *Root) Environment(ctx context.Context, bc broadcast.Context) (*broadcast.Env, error) {
	return r.environment(r.id, r.Coder(), bc)
}

// WithInputs derives a new Root over the given nodes instead.
func (r *Root) WithInputs(ins ...CompNode) *Root {
	return NewRoot(ins...)
}

func (r *Root) String() string {
	return fmt.Sprintf("%v: Root %v", r.id, NodeIDs(r.ins))
}

func (r *Root) valueNode() {}

func cloneSinks(sinks []Sink) []Sink {
	if sinks == nil {
		return nil
	}
	out := make([]Sink, len(sinks))
	copy(out, sinks)
	return out
}

func cloneNodes(nodes []CompNode) []CompNode {
	if nodes == nil {
		return nil
	}
	out := make([]CompNode, len(nodes))
	copy(out, nodes)
	return out
}
