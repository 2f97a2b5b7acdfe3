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

package broadcast

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/driftdata/drift/pkg/drift/core/graph/coder"
	"github.com/driftdata/drift/pkg/drift/core/typex"
)

func TestMemFirstPublishWins(t *testing.T) {
	ctx := context.Background()
	m := NewMem()

	if err := m.Publish(ctx, "tag", []byte("first")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if err := m.Publish(ctx, "tag", []byte("second")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	got, err := m.Fetch(ctx, "tag")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(got) != "first" {
		t.Errorf("Fetch = %q, want %q", got, "first")
	}
}

func TestMemConcurrentPublish(t *testing.T) {
	ctx := context.Background()
	m := NewMem()

	const workers = 16
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := m.Publish(ctx, "tag", []byte(fmt.Sprintf("w%v", i))); err != nil {
				t.Errorf("Publish failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	first, err := m.Fetch(ctx, "tag")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	again, err := m.Fetch(ctx, "tag")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if string(first) != string(again) {
		t.Errorf("Fetch unstable: %q then %q", first, again)
	}
}

func TestMemFetchMissing(t *testing.T) {
	m := NewMem()
	if _, err := m.Fetch(context.Background(), "absent"); err == nil {
		t.Errorf("Fetch of unpublished tag succeeded, want error")
	}
}

func TestEnvRoundTrip(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		c     *coder.Coder
		value any
	}{
		{"varint", coder.NewVarInt(), int64(42)},
		{"string", coder.NewString(), "hello"},
		{"unit", coder.NewUnit(), typex.Unit{}},
		{
			"pair",
			coder.NewPair(coder.NewString(), coder.NewVarInt()),
			typex.Pair{Fst: "x", Snd: int64(1)},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			env := NewEnv("env-"+test.name, test.c, NewMem())
			if err := env.Push(ctx, test.value); err != nil {
				t.Fatalf("Push(%v) failed: %v", test.value, err)
			}
			got, err := env.Pull(ctx)
			if err != nil {
				t.Fatalf("Pull failed: %v", err)
			}
			if d := cmp.Diff(test.value, got); d != "" {
				t.Errorf("round trip mismatch: (-want, +got)\n%v", d)
			}
		})
	}
}

func TestEnvPullUnpublished(t *testing.T) {
	env := NewEnv("env-x", coder.NewVarInt(), NewMem())
	if _, err := env.Pull(context.Background()); err == nil {
		t.Errorf("Pull before Push succeeded, want error")
	}
}

func TestEnvPushBadValue(t *testing.T) {
	env := NewEnv("env-x", coder.NewVarInt(), NewMem())
	if err := env.Push(context.Background(), "not an int"); err == nil {
		t.Errorf("Push of mistyped value succeeded, want error")
	}
}
