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

// Package typex contains the value shapes that flow between graph nodes.
// Records are dynamically typed; the coder attached to each node describes
// the concrete wire form.
package typex

import "fmt"

// KV is a key/value record, the input shape of GroupByKey and Combine.
type KV struct {
	Key   any
	Value any
}

func (kv KV) String() string {
	return fmt.Sprintf("KV<%v,%v>", kv.Key, kv.Value)
}

// Pair is an ordered pair of values. Fused environments are pairs.
type Pair struct {
	Fst any
	Snd any
}

func (p Pair) String() string {
	return fmt.Sprintf("(%v,%v)", p.Fst, p.Snd)
}

// Unit is the trivial environment for element functions that need none.
type Unit struct{}

func (Unit) String() string {
	return "()"
}

// IsKV returns true iff v is a KV record.
func IsKV(v any) bool {
	_, ok := v.(KV)
	return ok
}
