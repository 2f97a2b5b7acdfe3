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

package plan

import (
	"testing"

	"github.com/driftdata/drift/pkg/drift/core/graph"
	"github.com/driftdata/drift/pkg/drift/core/graph/coder"
	"github.com/driftdata/drift/pkg/drift/core/typex"
)

func unitReturn() graph.ValueNode {
	return graph.NewReturn(typex.Unit{}, coder.NewUnit())
}

func mapNode(name string, in graph.CompNode) *graph.ParallelDo {
	fn := graph.MapFn(name, func(v any) (any, error) { return v, nil })
	return graph.NewParallelDo(fn, unitReturn(), coder.NewVarInt(), coder.NewVarInt(), in)
}

// countKinds tallies the node variants reachable from root.
func countKinds(root *graph.Root) map[string]int {
	counts := make(map[string]int)
	for _, n := range Nodes(root) {
		switch n.(type) {
		case *graph.ParallelDo:
			counts["pardo"]++
		case *graph.Combine:
			counts["combine"]++
		case *graph.GroupByKey:
			counts["gbk"]++
		case *graph.Op:
			counts["op"]++
		case *graph.Return:
			counts["return"]++
		}
	}
	return counts
}

func TestOptimizeFusesChain(t *testing.T) {
	src := graph.NewReturn([]any{int64(1)}, coder.NewVarInt())
	pd1 := mapNode("a", src)
	pd2 := mapNode("b", pd1)
	pd3 := mapNode("c", pd2)
	root := graph.NewRoot(pd3)

	opt, err := Optimize(root)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	ins := opt.Inputs()
	if len(ins) != 1 {
		t.Fatalf("optimized root has %v inputs, want 1", len(ins))
	}
	fused, ok := ins[0].(*graph.ParallelDo)
	if !ok {
		t.Fatalf("optimized root input is %T, want *graph.ParallelDo", ins[0])
	}
	if got := graph.NodeIDs(fused.Inputs()); len(got) != 1 || got[0] != src.ID() {
		t.Errorf("fused inputs = %v, want [%v]", got, src.ID())
	}
	// The fusion replaces the tail of the chain: its bridge survives.
	if fused.Bridge() != pd3.Bridge() {
		t.Errorf("fused bridge = %v, want %v", fused.Bridge(), pd3.Bridge())
	}
	if got := countKinds(opt)["pardo"]; got != 1 {
		t.Errorf("optimized graph has %v pardo nodes, want 1", got)
	}
}

func TestOptimizeKeepsSharedUpstream(t *testing.T) {
	src := graph.NewReturn([]any{int64(1)}, coder.NewVarInt())
	shared := mapNode("shared", src)
	left := mapNode("left", shared)
	right := mapNode("right", shared)
	root := graph.NewRoot(left, right)

	opt, err := Optimize(root)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	// The shared node has two consumers and must not be fused into either.
	if got := countKinds(opt)["pardo"]; got != 3 {
		t.Errorf("optimized graph has %v pardo nodes, want 3", got)
	}

	// Both branches must keep referencing a single shared instance.
	ins := opt.Inputs()
	a := ins[0].(*graph.ParallelDo).Inputs()[0]
	b := ins[1].(*graph.ParallelDo).Inputs()[0]
	if a.ID() != b.ID() {
		t.Errorf("branches reference distinct upstream nodes %v and %v", a.ID(), b.ID())
	}
}

func TestOptimizeKeepsCombineOnGroupByKey(t *testing.T) {
	src := graph.NewReturn([]any{}, coder.NewKV(coder.NewString(), coder.NewVarInt()))
	gbk := graph.NewGroupByKey(coder.NewString(), coder.NewVarInt(), nil, src)
	cmb := graph.NewCombine(func(l, r any) (any, error) { return l, nil },
		coder.NewString(), coder.NewVarInt(), nil, gbk)
	root := graph.NewRoot(cmb)

	opt, err := Optimize(root)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	got, ok := opt.Inputs()[0].(*graph.Combine)
	if !ok {
		t.Fatalf("optimized root input is %T, want *graph.Combine", opt.Inputs()[0])
	}
	if got.ID() != cmb.ID() {
		t.Errorf("combine was rewritten to %v, want original %v", got.ID(), cmb.ID())
	}
}

func TestOptimizeLowersDetachedCombine(t *testing.T) {
	// Grouped records arrive pre-built, with no GroupByKey upstream: the
	// combine cannot run as a reducer and is lowered, then fused with the
	// element-wise node above it.
	src := graph.NewReturn([]any{
		typex.KV{Key: "k", Value: []any{int64(1), int64(2)}},
	}, coder.NewKV(coder.NewString(), coder.NewIterable(coder.NewVarInt())))

	pre := graph.NewParallelDo(
		graph.MapFn("pre", func(v any) (any, error) { return v, nil }),
		unitReturn(),
		src.Coder(), src.Coder(), src)
	cmb := graph.NewCombine(func(l, r any) (any, error) { return l, nil },
		coder.NewString(), coder.NewVarInt(), nil, pre)
	root := graph.NewRoot(cmb)

	opt, err := Optimize(root)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	kinds := countKinds(opt)
	if kinds["combine"] != 0 {
		t.Errorf("optimized graph still has %v combine nodes", kinds["combine"])
	}
	if kinds["pardo"] != 1 {
		t.Errorf("optimized graph has %v pardo nodes, want 1 fused", kinds["pardo"])
	}

	fused, ok := opt.Inputs()[0].(*graph.ParallelDo)
	if !ok {
		t.Fatalf("optimized root input is %T, want *graph.ParallelDo", opt.Inputs()[0])
	}
	// Lowering keeps the combine's bridge; fusion then keeps the lowered
	// node's bridge. Downstream consumers of the combine still resolve.
	if fused.Bridge() != cmb.Bridge() {
		t.Errorf("fused bridge = %v, want the combine's %v", fused.Bridge(), cmb.Bridge())
	}
}

func TestOptimizeDoesNotFuseAcrossGroupByKey(t *testing.T) {
	src := graph.NewReturn([]any{}, coder.NewKV(coder.NewString(), coder.NewVarInt()))
	pre := graph.NewParallelDo(
		graph.MapFn("pre", func(v any) (any, error) { return v, nil }),
		unitReturn(), src.Coder(), src.Coder(), src)
	gbk := graph.NewGroupByKey(coder.NewString(), coder.NewVarInt(), nil, pre)
	post := graph.NewParallelDo(
		graph.MapFn("post", func(v any) (any, error) { return v, nil }),
		unitReturn(), gbk.Coder(), gbk.Coder(), gbk)
	root := graph.NewRoot(post)

	opt, err := Optimize(root)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}

	kinds := countKinds(opt)
	if kinds["pardo"] != 2 || kinds["gbk"] != 1 {
		t.Errorf("optimized graph kinds = %v, want 2 pardo and 1 gbk", kinds)
	}
}

func TestOptimizeLeavesInputGraphUnchanged(t *testing.T) {
	src := graph.NewReturn([]any{int64(1)}, coder.NewVarInt())
	pd1 := mapNode("a", src)
	pd2 := mapNode("b", pd1)
	root := graph.NewRoot(pd2)

	before := Print(root)
	if _, err := Optimize(root); err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if after := Print(root); after != before {
		t.Errorf("Optimize mutated its input graph:\nbefore:\n%v\nafter:\n%v", before, after)
	}
}

func TestNodesOrder(t *testing.T) {
	src := graph.NewReturn([]any{int64(1)}, coder.NewVarInt())
	pd := mapNode("a", src)
	root := graph.NewRoot(pd)

	pos := make(map[graph.NodeID]int)
	for i, n := range Nodes(root) {
		pos[n.ID()] = i
	}

	if pos[src.ID()] > pos[pd.ID()] {
		t.Errorf("producer %v listed after consumer %v", src.ID(), pd.ID())
	}
	if pos[pd.ID()] > pos[root.ID()] {
		t.Errorf("node %v listed after root %v", pd.ID(), root.ID())
	}
	if _, ok := pos[pd.Env().ID()]; !ok {
		t.Errorf("environment node %v missing from listing", pd.Env().ID())
	}
}
