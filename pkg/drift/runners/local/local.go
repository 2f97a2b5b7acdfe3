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

// Package local contains an in-process runner for development, testing and
// small datasets. It executes a graph directly: process node outputs are
// held in memory keyed by bridge identity, environments travel through an
// in-process broadcast context, and grouping uses encoded keys.
package local

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/driftdata/drift/pkg/drift/core/broadcast"
	"github.com/driftdata/drift/pkg/drift/core/graph"
	"github.com/driftdata/drift/pkg/drift/core/runtime/exec"
	"github.com/driftdata/drift/pkg/drift/core/typex"
	"github.com/driftdata/drift/internal/errors"
	"github.com/driftdata/drift/pkg/drift/log"
)

// Result gives access to the values and collections a graph execution
// produced.
type Result struct {
	values  map[graph.NodeID]any
	bridges map[string][]any
}

// Value returns the computed value of a value node.
func (r *Result) Value(n graph.ValueNode) (any, bool) {
	v, ok := r.values[n.ID()]
	return v, ok
}

// Records returns the bridge contents of a process node.
func (r *Result) Records(n graph.ProcessNode) []any {
	return r.bridges[n.Bridge().ID()]
}

// Execute runs the graph under root to completion. Independent root inputs
// run concurrently; shared subgraphs are evaluated once.
func Execute(ctx context.Context, root *graph.Root) (*Result, error) {
	e := &eval{
		bc:      broadcast.NewMem(),
		bridges: make(map[string][]any),
		values:  make(map[graph.NodeID]any),
		tasks:   make(map[graph.NodeID]*task),
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, in := range root.Inputs() {
		in := in
		g.Go(func() error {
			_, err := e.evalComp(gctx, in)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return &Result{values: e.values, bridges: e.bridges}, nil
}

// task is the single evaluation of one node, shared between branches.
type task struct {
	once sync.Once
	recs []any
	err  error
}

type eval struct {
	bc *broadcast.Mem

	mu      sync.Mutex
	bridges map[string][]any       // bridge id -> records
	values  map[graph.NodeID]any   // value node results
	tasks   map[graph.NodeID]*task // node id -> evaluation
}

// evalComp evaluates any node to its record stream. A process node yields
// its bridge contents; a value node yields a single record holding its
// value, except that a Return holding []any and a Load both yield their
// elements as individual records when consumed as a data input.
func (e *eval) evalComp(ctx context.Context, n graph.CompNode) ([]any, error) {
	t := e.taskFor(n.ID())
	t.once.Do(func() {
		t.recs, t.err = e.evalNode(ctx, n)
	})
	return t.recs, t.err
}

func (e *eval) taskFor(id graph.NodeID) *task {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.tasks[id]
	if !ok {
		t = &task{}
		e.tasks[id] = t
	}
	return t
}

func (e *eval) evalNode(ctx context.Context, n graph.CompNode) ([]any, error) {
	switch t := n.(type) {
	case *graph.ParallelDo:
		return e.runParallelDo(ctx, t)
	case *graph.GroupByKey:
		return e.runGroupByKey(ctx, t)
	case *graph.Combine:
		return e.runCombine(ctx, t)
	case *graph.Load:
		return t.Source().ReadAll(ctx)
	case *graph.Return:
		if list, ok := t.Value().([]any); ok {
			e.setValue(t.ID(), t.Value())
			return list, nil
		}
		e.setValue(t.ID(), t.Value())
		return []any{t.Value()}, nil
	case *graph.Materialise:
		recs, err := e.evalComp(ctx, t.Upstream())
		if err != nil {
			return nil, err
		}
		e.setValue(t.ID(), recs)
		return []any{recs}, nil
	case *graph.Op:
		return e.runOp(ctx, t)
	case *graph.Root:
		for _, in := range t.Inputs() {
			if _, err := e.evalComp(ctx, in); err != nil {
				return nil, err
			}
		}
		e.setValue(t.ID(), typex.Unit{})
		return nil, nil
	default:
		return nil, errors.Errorf("unknown node variant %T (node %v)", n, n.ID())
	}
}

// valueOf evaluates a node to the single value it contributes as an operand
// or environment.
func (e *eval) valueOf(ctx context.Context, n graph.CompNode) (any, error) {
	recs, err := e.evalComp(ctx, n)
	if err != nil {
		return nil, err
	}
	if v, ok := e.value(n.ID()); ok {
		return v, nil
	}
	// Process nodes and loads contribute their record stream.
	if len(recs) == 1 {
		return recs[0], nil
	}
	return recs, nil
}

func (e *eval) runParallelDo(ctx context.Context, pd *graph.ParallelDo) ([]any, error) {
	// Environment first: compute, push through the broadcast binding, and
	// let the executor pull it back on setup.
	envVal, err := e.valueOf(ctx, pd.Env())
	if err != nil {
		return nil, errors.WithContextf(err, "evaluating environment of node %v", pd.ID())
	}
	env, err := pd.Env().Environment(ctx, e.bc)
	if err != nil {
		return nil, err
	}
	if err := env.Push(ctx, envVal); err != nil {
		return nil, err
	}

	var input []any
	for _, in := range pd.Inputs() {
		recs, err := e.evalComp(ctx, in)
		if err != nil {
			return nil, err
		}
		input = append(input, recs...)
	}

	log.Debugf(ctx, "local: running %v over %v records", pd, len(input))

	p := exec.NewParDo(pd, e.bc)
	if err := p.Setup(ctx); err != nil {
		return nil, err
	}
	var out []any
	emit := func(v any) error {
		out = append(out, v)
		return nil
	}
	for _, elm := range input {
		if err := p.Map(ctx, elm, emit); err != nil {
			return nil, err
		}
	}
	if err := p.Cleanup(ctx, emit); err != nil {
		return nil, err
	}
	return out, e.store(ctx, pd, out)
}

func (e *eval) runGroupByKey(ctx context.Context, gbk *graph.GroupByKey) ([]any, error) {
	input, err := e.evalComp(ctx, gbk.Inputs()[0])
	if err != nil {
		return nil, err
	}

	// Group by encoded key so any coded key type works.
	type group struct {
		encoded []byte
		key     any
		values  []any
	}
	groups := make(map[string]*group)
	for _, elm := range input {
		kv, ok := elm.(typex.KV)
		if !ok {
			return nil, errors.Errorf("group-by-key %v: record is %T, not a KV", gbk.ID(), elm)
		}
		enc, err := gbk.KeyCoder().Encode(kv.Key)
		if err != nil {
			return nil, errors.Wrapf(err, "group-by-key %v failed to encode key %v", gbk.ID(), kv.Key)
		}
		g, ok := groups[string(enc)]
		if !ok {
			g = &group{encoded: enc, key: kv.Key}
			groups[string(enc)] = g
		}
		g.values = append(g.values, kv.Value)
	}

	// Deterministic output order per the grouping's comparator.
	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return gbk.Grouping().Compare(ordered[i].encoded, ordered[j].encoded) < 0
	})

	out := make([]any, 0, len(ordered))
	for _, g := range ordered {
		out = append(out, typex.KV{Key: g.key, Value: g.values})
	}

	log.Debugf(ctx, "local: %v grouped %v records into %v keys", gbk, len(input), len(out))
	return out, e.store(ctx, gbk, out)
}

func (e *eval) runCombine(ctx context.Context, c *graph.Combine) ([]any, error) {
	input, err := e.evalComp(ctx, c.Inputs()[0])
	if err != nil {
		return nil, err
	}

	red := exec.NewCombineReducer(c)
	if err := red.Setup(ctx); err != nil {
		return nil, err
	}
	var out []any
	emit := func(v any) error {
		out = append(out, v)
		return nil
	}
	for _, elm := range input {
		kv, ok := elm.(typex.KV)
		if !ok {
			return nil, errors.Errorf("combine %v: record is %T, not a KV", c.ID(), elm)
		}
		values, ok := kv.Value.([]any)
		if !ok {
			return nil, errors.Errorf("combine %v: key %v has %T values, not a sequence", c.ID(), kv.Key, kv.Value)
		}
		if err := red.Reduce(ctx, kv.Key, values, emit); err != nil {
			return nil, err
		}
	}
	if err := red.Cleanup(ctx); err != nil {
		return nil, err
	}
	return out, e.store(ctx, c, out)
}

func (e *eval) runOp(ctx context.Context, op *graph.Op) ([]any, error) {
	ins := op.Inputs()
	a, err := e.valueOf(ctx, ins[0])
	if err != nil {
		return nil, err
	}
	b, err := e.valueOf(ctx, ins[1])
	if err != nil {
		return nil, err
	}
	v, err := op.Fn()(a, b)
	if err != nil {
		return nil, errors.WithContextf(err, "applying op node %v", op.ID())
	}
	e.setValue(op.ID(), v)
	return []any{v}, nil
}

// store writes a process node's output to its bridge and duplicates it to
// every sink, bridge first.
func (e *eval) store(ctx context.Context, n graph.ProcessNode, out []any) error {
	e.mu.Lock()
	e.bridges[n.Bridge().ID()] = out
	e.mu.Unlock()

	for _, sink := range n.Sinks() {
		if err := sink.WriteAll(ctx, out); err != nil {
			return errors.Wrapf(err, "writing sink for node %v", n.ID())
		}
	}
	return nil
}

func (e *eval) setValue(id graph.NodeID, v any) {
	e.mu.Lock()
	e.values[id] = v
	e.mu.Unlock()
}

func (e *eval) value(id graph.NodeID) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.values[id]
	return v, ok
}
