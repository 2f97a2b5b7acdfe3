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

package coder

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/driftdata/drift/pkg/drift/core/typex"
)

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		c     *Coder
		value any
	}{
		{"string", NewString(), "hello"},
		{"string empty", NewString(), ""},
		{"bytes", NewBytes(), []byte{1, 2, 3}},
		{"varint", NewVarInt(), int64(42)},
		{"varint negative", NewVarInt(), int64(-7)},
		{"unit", NewUnit(), typex.Unit{}},
		{"kv", NewKV(NewString(), NewVarInt()), typex.KV{Key: "a", Value: int64(1)}},
		{
			"kv nested",
			NewKV(NewString(), NewKV(NewString(), NewVarInt())),
			typex.KV{Key: "a", Value: typex.KV{Key: "b", Value: int64(2)}},
		},
		{"pair", NewPair(NewString(), NewVarInt()), typex.Pair{Fst: "x", Snd: int64(3)}},
		{
			"pair of units",
			NewPair(NewUnit(), NewUnit()),
			typex.Pair{Fst: typex.Unit{}, Snd: typex.Unit{}},
		},
		{"iterable", NewIterable(NewString()), []any{"a", "b", "c"}},
		{"iterable empty", NewIterable(NewVarInt()), []any{}},
		{
			"grouped record",
			NewKV(NewString(), NewIterable(NewVarInt())),
			typex.KV{Key: "k", Value: []any{int64(1), int64(2)}},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			data, err := test.c.Encode(test.value)
			if err != nil {
				t.Fatalf("Encode(%v) failed: %v", test.value, err)
			}
			got, err := test.c.Decode(data)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if d := cmp.Diff(test.value, got); d != "" {
				t.Errorf("round trip mismatch: (-want, +got)\n%v", d)
			}
		})
	}
}

func TestEncodeBadType(t *testing.T) {
	tests := []struct {
		name  string
		c     *Coder
		value any
	}{
		{"string coder on int", NewString(), 42},
		{"varint coder on string", NewVarInt(), "nope"},
		{"kv coder on scalar", NewKV(NewString(), NewVarInt()), "nope"},
		{"iterable coder on scalar", NewIterable(NewString()), "nope"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := test.c.Encode(test.value); err == nil {
				t.Errorf("Encode(%v) succeeded, want error", test.value)
			}
		})
	}
}

func TestCustomRoundTrip(t *testing.T) {
	c := NewCustom("json",
		func(v any) ([]byte, error) { return json.Marshal(v) },
		func(data []byte) (any, error) {
			var v any
			err := json.Unmarshal(data, &v)
			return v, err
		})

	value := map[string]any{"word": "ten", "count": float64(10)}
	data, err := c.Encode(value)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := c.Decode(data)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if d := cmp.Diff(value, got); d != "" {
		t.Errorf("round trip mismatch: (-want, +got)\n%v", d)
	}
}

func TestDecodeTrailingBytes(t *testing.T) {
	c := NewUnit()
	if _, err := c.Decode([]byte{1}); err == nil {
		t.Errorf("Decode with trailing bytes succeeded, want error")
	}
}

func TestEquals(t *testing.T) {
	kv := NewKV(NewString(), NewVarInt())
	tests := []struct {
		name string
		a, b *Coder
		want bool
	}{
		{"same kind", NewString(), NewString(), true},
		{"different kind", NewString(), NewVarInt(), false},
		{"equal composite", kv, NewKV(NewString(), NewVarInt()), true},
		{"different component", kv, NewKV(NewVarInt(), NewVarInt()), false},
		{"kv vs pair", kv, NewPair(NewString(), NewVarInt()), false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.a.Equals(test.b); got != test.want {
				t.Errorf("%v.Equals(%v) = %v, want %v", test.a, test.b, got, test.want)
			}
		})
	}
}

func TestSkipIterable(t *testing.T) {
	elm := NewString()
	if got := SkipIterable(NewIterable(elm)); !got.Equals(elm) {
		t.Errorf("SkipIterable(Iterable<string>) = %v, want %v", got, elm)
	}
	if got := SkipIterable(elm); !got.Equals(elm) {
		t.Errorf("SkipIterable(string) = %v, want %v", got, elm)
	}
}

func TestString(t *testing.T) {
	c := NewKV(NewString(), NewIterable(NewVarInt()))
	if got, want := c.String(), "KV<string,Iterable<varint>>"; got != want {
		t.Errorf("String() = %v, want %v", got, want)
	}
}
