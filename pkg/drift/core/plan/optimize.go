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

// Package plan rewrites a dataflow graph into a smaller equivalent one
// before execution: chains of element-wise nodes are fused into single
// nodes, and aggregate nodes that cannot run as reducers are lowered into
// element-wise equivalents. Rewrites are pure; input graphs are unchanged.
package plan

import (
	"github.com/driftdata/drift/pkg/drift/core/graph"
	"github.com/driftdata/drift/internal/errors"
)

// Optimize returns an optimized equivalent of the graph under root.
//
// Two rewrites are applied bottom-up until exhausted:
//
//   - A ParallelDo whose sole data input is another ParallelDo with no other
//     consumer is fused with it.
//   - A Combine not directly fed by a GroupByKey is lowered to a ParallelDo
//     (and may then fuse with its upstream). A Combine on a GroupByKey is
//     kept for reducer execution.
func Optimize(root *graph.Root) (*graph.Root, error) {
	o := &optimizer{
		counts: consumerCounts(root),
		memo:   make(map[graph.NodeID]graph.CompNode),
	}

	var ins []graph.CompNode
	for _, in := range root.Inputs() {
		n, err := o.rewrite(in)
		if err != nil {
			return nil, err
		}
		ins = append(ins, n)
	}
	return root.WithInputs(ins...), nil
}

type optimizer struct {
	// counts holds data-input consumer counts, keyed by node id. Rewritten
	// nodes inherit the count of the node they replace.
	counts map[graph.NodeID]int
	// memo maps original node ids to their rewritten nodes, so shared
	// subgraphs are rewritten once and keep a single identity.
	memo map[graph.NodeID]graph.CompNode
}

func (o *optimizer) rewrite(n graph.CompNode) (graph.CompNode, error) {
	if r, ok := o.memo[n.ID()]; ok {
		return r, nil
	}

	out, err := o.rewriteNode(n)
	if err != nil {
		return nil, err
	}
	o.memo[n.ID()] = out
	if out.ID() != n.ID() {
		o.counts[out.ID()] = o.counts[n.ID()]
	}
	return out, nil
}

func (o *optimizer) rewriteNode(n graph.CompNode) (graph.CompNode, error) {
	switch t := n.(type) {
	case *graph.ParallelDo:
		ins, changed, err := o.rewriteAll(t.Inputs())
		if err != nil {
			return nil, err
		}
		env, err := o.rewriteValue(t.Env())
		if err != nil {
			return nil, err
		}
		pd := t
		if changed {
			pd = pd.WithInputs(ins...)
		}
		if env.ID() != t.Env().ID() {
			pd = pd.WithEnv(env)
		}
		return o.fuseUp(pd)

	case *graph.Combine:
		in, err := o.rewrite(t.Inputs()[0])
		if err != nil {
			return nil, err
		}
		c := t
		if in.ID() != t.Inputs()[0].ID() {
			c = c.WithInputs(in)
		}
		if _, ok := in.(*graph.GroupByKey); ok {
			return c, nil
		}
		// No grouped input upstream: run element-wise.
		return o.fuseUp(graph.LowerCombine(c))

	case *graph.GroupByKey:
		in, err := o.rewrite(t.Inputs()[0])
		if err != nil {
			return nil, err
		}
		if in.ID() == t.Inputs()[0].ID() {
			return t, nil
		}
		return t.WithInputs(in), nil

	case *graph.Load, *graph.Return:
		return n, nil

	case *graph.Materialise:
		in, err := o.rewrite(t.Upstream())
		if err != nil {
			return nil, err
		}
		if in.ID() == t.Upstream().ID() {
			return t, nil
		}
		pn, ok := in.(graph.ProcessNode)
		if !ok {
			return nil, errors.Errorf("materialise %v: rewritten upstream %v is not a process node", t.ID(), in.ID())
		}
		return graph.NewMaterialise(pn, t.Coder()), nil

	case *graph.Op:
		ins, changed, err := o.rewriteAll(t.Inputs())
		if err != nil {
			return nil, err
		}
		if !changed {
			return t, nil
		}
		return graph.NewOp(t.Fn(), t.Coder(), ins[0], ins[1]), nil

	case *graph.Root:
		ins, _, err := o.rewriteAll(t.Inputs())
		if err != nil {
			return nil, err
		}
		return t.WithInputs(ins...), nil

	default:
		return nil, errors.Errorf("unknown node variant %T (node %v)", n, n.ID())
	}
}

// fuseUp repeatedly fuses pd with its upstream ParallelDo while the
// adjacency and single-consumer preconditions hold.
func (o *optimizer) fuseUp(pd *graph.ParallelDo) (graph.CompNode, error) {
	for {
		ins := pd.Inputs()
		if len(ins) != 1 {
			return pd, nil
		}
		up, ok := ins[0].(*graph.ParallelDo)
		if !ok {
			return pd, nil
		}
		if o.counts[up.ID()] != 1 {
			return pd, nil
		}
		fused, err := graph.Fuse(up, pd)
		if err != nil {
			return nil, err
		}
		o.counts[fused.ID()] = o.counts[pd.ID()]
		pd = fused
	}
}

func (o *optimizer) rewriteAll(ins []graph.CompNode) ([]graph.CompNode, bool, error) {
	var out []graph.CompNode
	changed := false
	for _, in := range ins {
		n, err := o.rewrite(in)
		if err != nil {
			return nil, false, err
		}
		if n.ID() != in.ID() {
			changed = true
		}
		out = append(out, n)
	}
	return out, changed, nil
}

func (o *optimizer) rewriteValue(n graph.ValueNode) (graph.ValueNode, error) {
	r, err := o.rewrite(n)
	if err != nil {
		return nil, err
	}
	v, ok := r.(graph.ValueNode)
	if !ok {
		return nil, errors.Errorf("node %v rewrote to a non-value node %v", n.ID(), r.ID())
	}
	return v, nil
}

// consumerCounts walks the graph and counts, per node id, how many data
// inputs reference the node. Environment references are not data inputs.
func consumerCounts(root *graph.Root) map[graph.NodeID]int {
	counts := make(map[graph.NodeID]int)
	seen := make(map[graph.NodeID]bool)

	var walk func(n graph.CompNode)
	walk = func(n graph.CompNode) {
		if seen[n.ID()] {
			return
		}
		seen[n.ID()] = true
		for _, in := range n.Inputs() {
			counts[in.ID()]++
			walk(in)
		}
		if pd, ok := n.(*graph.ParallelDo); ok {
			walk(pd.Env())
		}
	}
	walk(root)
	return counts
}
