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
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/driftdata/drift/pkg/drift/core/broadcast"
	"github.com/driftdata/drift/pkg/drift/core/graph"
	"github.com/driftdata/drift/pkg/drift/core/graph/coder"
	"github.com/driftdata/drift/pkg/drift/core/typex"
)

// newParDo builds an executor for a map-style node whose environment holds
// the given value, already published.
func newParDo(t *testing.T, fn graph.DoFn, envValue any, envCoder *coder.Coder) *ParDo {
	t.Helper()
	ctx := context.Background()
	bc := broadcast.NewMem()

	envNode := graph.NewReturn(envValue, envCoder)
	pd := graph.NewParallelDo(fn, envNode, coder.NewVarInt(), coder.NewVarInt())

	env, err := envNode.Environment(ctx, bc)
	if err != nil {
		t.Fatalf("Environment failed: %v", err)
	}
	if err := env.Push(ctx, envValue); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	return NewParDo(pd, bc)
}

func TestParDoLifecycle(t *testing.T) {
	ctx := context.Background()

	var setupEnv any
	fn := &graph.SimpleFn{
		Name: "addBase",
		SetupFn: func(ctx context.Context, env any) error {
			setupEnv = env
			return nil
		},
		ProcessFn: func(ctx context.Context, value any, emit graph.EmitFn) error {
			return emit(value.(int64) + setupEnv.(int64))
		},
		CleanupFn: func(ctx context.Context, emit graph.EmitFn) error {
			return emit(int64(-1))
		},
	}

	p := newParDo(t, fn, int64(100), coder.NewVarInt())
	if err := p.Setup(ctx); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if got, want := setupEnv, any(int64(100)); got != want {
		t.Errorf("setup environment = %v, want %v", got, want)
	}

	var out []any
	emit := func(v any) error {
		out = append(out, v)
		return nil
	}
	for _, elm := range []int64{1, 2} {
		if err := p.Map(ctx, elm, emit); err != nil {
			t.Fatalf("Map(%v) failed: %v", elm, err)
		}
	}
	if err := p.Cleanup(ctx, emit); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	want := []any{int64(101), int64(102), int64(-1)}
	if d := cmp.Diff(want, out); d != "" {
		t.Errorf("emissions mismatch: (-want, +got)\n%v", d)
	}
}

func TestParDoStatusChecks(t *testing.T) {
	ctx := context.Background()
	nop := func(any) error { return nil }

	t.Run("map before setup", func(t *testing.T) {
		p := newParDo(t, graph.MapFn("id", func(v any) (any, error) { return v, nil }), typex.Unit{}, coder.NewUnit())
		if err := p.Map(ctx, int64(1), nop); err == nil {
			t.Errorf("Map before Setup succeeded, want error")
		}
	})

	t.Run("setup twice", func(t *testing.T) {
		p := newParDo(t, graph.MapFn("id", func(v any) (any, error) { return v, nil }), typex.Unit{}, coder.NewUnit())
		if err := p.Setup(ctx); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
		if err := p.Setup(ctx); err == nil {
			t.Errorf("second Setup succeeded, want error")
		}
	})

	t.Run("map after failure", func(t *testing.T) {
		fn := graph.MapFn("boom", func(v any) (any, error) {
			return nil, fmt.Errorf("boom")
		})
		p := newParDo(t, fn, typex.Unit{}, coder.NewUnit())
		if err := p.Setup(ctx); err != nil {
			t.Fatalf("Setup failed: %v", err)
		}
		if err := p.Map(ctx, int64(1), nop); err == nil {
			t.Fatalf("Map of failing fn succeeded, want error")
		}
		if err := p.Map(ctx, int64(2), nop); err == nil {
			t.Errorf("Map on broken executor succeeded, want error")
		}
	})
}

func TestParDoRecoversPanic(t *testing.T) {
	ctx := context.Background()
	fn := graph.MapFn("panics", func(v any) (any, error) {
		panic("element function bug")
	})
	p := newParDo(t, fn, typex.Unit{}, coder.NewUnit())
	if err := p.Setup(ctx); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := p.Map(ctx, int64(1), func(any) error { return nil }); err == nil {
		t.Errorf("Map of panicking fn succeeded, want error")
	}
}

func TestParDoReduce(t *testing.T) {
	ctx := context.Background()
	fn := &graph.SimpleFn{
		Name: "count",
		ProcessFn: func(ctx context.Context, value any, emit graph.EmitFn) error {
			kv := value.(typex.KV)
			return emit(typex.KV{Key: kv.Key, Value: int64(len(kv.Value.([]any)))})
		},
	}
	p := newParDo(t, fn, typex.Unit{}, coder.NewUnit())
	if err := p.Setup(ctx); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	var out []any
	emit := func(v any) error {
		out = append(out, v)
		return nil
	}
	if err := p.Reduce(ctx, "k", []any{int64(1), int64(2), int64(3)}, emit); err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}
	want := []any{typex.KV{Key: "k", Value: int64(3)}}
	if d := cmp.Diff(want, out); d != "" {
		t.Errorf("emissions mismatch: (-want, +got)\n%v", d)
	}
}

func TestCombineReducer(t *testing.T) {
	ctx := context.Background()
	sum := func(l, r any) (any, error) {
		return l.(int64) + r.(int64), nil
	}
	c := graph.NewCombine(sum, coder.NewString(), coder.NewVarInt(), nil,
		graph.NewReturn(typex.Unit{}, coder.NewUnit()))

	red := NewCombineReducer(c)
	if err := red.Setup(ctx); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}

	var out []any
	emit := func(v any) error {
		out = append(out, v)
		return nil
	}
	if err := red.Reduce(ctx, "k", []any{int64(3), int64(5), int64(2)}, emit); err != nil {
		t.Fatalf("Reduce failed: %v", err)
	}
	if err := red.Cleanup(ctx); err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}

	want := []any{typex.KV{Key: "k", Value: int64(10)}}
	if d := cmp.Diff(want, out); d != "" {
		t.Errorf("emissions mismatch: (-want, +got)\n%v", d)
	}
}

func TestCombineReducerEmptySequence(t *testing.T) {
	ctx := context.Background()
	c := graph.NewCombine(func(l, r any) (any, error) { return l, nil },
		coder.NewString(), coder.NewVarInt(), nil,
		graph.NewReturn(typex.Unit{}, coder.NewUnit()))

	red := NewCombineReducer(c)
	if err := red.Setup(ctx); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	if err := red.Reduce(ctx, "k", nil, func(any) error { return nil }); err == nil {
		t.Errorf("Reduce of empty sequence succeeded, want error")
	}
}

func TestCombineReducerStatusChecks(t *testing.T) {
	ctx := context.Background()
	c := graph.NewCombine(func(l, r any) (any, error) { return l, nil },
		coder.NewString(), coder.NewVarInt(), nil,
		graph.NewReturn(typex.Unit{}, coder.NewUnit()))

	red := NewCombineReducer(c)
	if err := red.Reduce(ctx, "k", []any{int64(1)}, func(any) error { return nil }); err == nil {
		t.Errorf("Reduce before Setup succeeded, want error")
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		s    Status
		want string
	}{
		{Initializing, "Initializing"},
		{Up, "Up"},
		{Broken, "Broken"},
		{Down, "Down"},
	}
	for _, test := range tests {
		if got := test.s.String(); got != test.want {
			t.Errorf("Status(%d).String() = %v, want %v", int(test.s), got, test.want)
		}
	}
}
