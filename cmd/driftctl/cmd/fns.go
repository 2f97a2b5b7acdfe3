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

package cmd

import (
	"encoding/json"
	"strings"

	"github.com/driftdata/drift/pkg/drift/core/graph"
	"github.com/driftdata/drift/pkg/drift/core/graph/coder"
	"github.com/driftdata/drift/pkg/drift/core/typex"
	"github.com/driftdata/drift/internal/errors"
)

// registeredFn is an element function jobspecs can name, together with the
// output coder it produces for a given input coder.
type registeredFn struct {
	op  string // "map", "flatmap" or "filter"
	fn  graph.DoFn
	out func(in *coder.Coder) *coder.Coder
}

func identityCoder(in *coder.Coder) *coder.Coder { return in }

var elementFns = map[string]registeredFn{
	"identity": {
		op:  "map",
		fn:  graph.MapFn("identity", func(v any) (any, error) { return v, nil }),
		out: identityCoder,
	},
	"upper": {
		op: "map",
		fn: graph.MapFn("upper", func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, errors.Errorf("upper: %T is not a string", v)
			}
			return strings.ToUpper(s), nil
		}),
		out: func(*coder.Coder) *coder.Coder { return coder.NewString() },
	},
	"tokenize": {
		op: "flatmap",
		fn: graph.FlatMapFn("tokenize", func(v any) ([]any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, errors.Errorf("tokenize: %T is not a string", v)
			}
			var words []any
			for _, w := range strings.Fields(s) {
				words = append(words, strings.ToLower(strings.Trim(w, ".,;?!-")))
			}
			return words, nil
		}),
		out: func(*coder.Coder) *coder.Coder { return coder.NewString() },
	},
	"pair_one": {
		op: "map",
		fn: graph.MapFn("pair_one", func(v any) (any, error) {
			return typex.KV{Key: v, Value: int64(1)}, nil
		}),
		out: func(in *coder.Coder) *coder.Coder { return coder.NewKV(in, coder.NewVarInt()) },
	},
	"not_empty": {
		op: "filter",
		fn: graph.FilterFn("not_empty", func(v any) (bool, error) {
			s, ok := v.(string)
			if !ok {
				return false, errors.Errorf("not_empty: %T is not a string", v)
			}
			return strings.TrimSpace(s) != "", nil
		}),
		out: identityCoder,
	},
	"format_kv": {
		op: "map",
		fn: graph.MapFn("format_kv", func(v any) (any, error) {
			kv, ok := v.(typex.KV)
			if !ok {
				return nil, errors.Errorf("format_kv: %T is not a KV", v)
			}
			b, err := json.Marshal(map[string]any{"key": kv.Key, "value": kv.Value})
			if err != nil {
				return nil, err
			}
			return string(b), nil
		}),
		out: func(*coder.Coder) *coder.Coder { return coder.NewString() },
	},
}

var combineFns = map[string]graph.CombineFn{
	"sum": func(left, right any) (any, error) {
		l, lok := left.(int64)
		r, rok := right.(int64)
		if !lok || !rok {
			return nil, errors.Errorf("sum: cannot add %T and %T", left, right)
		}
		return l + r, nil
	},
	"concat": func(left, right any) (any, error) {
		l, lok := left.(string)
		r, rok := right.(string)
		if !lok || !rok {
			return nil, errors.Errorf("concat: cannot join %T and %T", left, right)
		}
		return l + r, nil
	},
}

// jsonCoder codes arbitrary records as JSON. Avro sources yield native
// values with no single wire coder, so jobspecs fall back to JSON.
func jsonCoder() *coder.Coder {
	return coder.NewCustom("json",
		func(v any) ([]byte, error) { return json.Marshal(v) },
		func(data []byte) (any, error) {
			var v any
			err := json.Unmarshal(data, &v)
			return v, err
		})
}
