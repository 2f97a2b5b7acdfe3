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

// Package coder contains coder representation and utilities. Coders describe
// how to serialize and deserialize the values produced by graph nodes and may
// be provided by users. Coders compose: key/value records, environment pairs
// and grouped value sequences are coded by wrapping the element coders.
package coder

import (
	"fmt"
	"strings"

	"github.com/driftdata/drift/pkg/drift/core/typex"
	"github.com/driftdata/drift/internal/errors"
)

// CustomCoder contains possibly untyped encode/decode user functions. A
// custom coder is opaque to the graph layer: only the runner and the
// broadcast machinery invoke it.
type CustomCoder struct {
	// Name is the coder name. Informational only.
	Name string

	// Enc is the encoding function: T -> []byte.
	Enc func(value any) ([]byte, error)
	// Dec is the decoding function: []byte -> T.
	Dec func(data []byte) (any, error)
}

// Equals returns true iff the two custom coders are equal. It assumes that
// coders with the same name are identical.
func (c *CustomCoder) Equals(o *CustomCoder) bool {
	return c.Name == o.Name
}

func (c *CustomCoder) String() string {
	return c.Name
}

// NewCustomCoder creates a coder for the supplied functions defining a
// particular encoding strategy.
func NewCustomCoder(name string, encode func(any) ([]byte, error), decode func([]byte) (any, error)) *CustomCoder {
	if encode == nil || decode == nil {
		panic(fmt.Sprintf("custom coder %v must have both encode and decode", name))
	}
	return &CustomCoder{Name: name, Enc: encode, Dec: decode}
}

// Kind represents the type of coder used.
type Kind string

// Tags for the supported encoding strategies.
const (
	Custom   Kind = "Custom"
	Bytes    Kind = "bytes"
	String   Kind = "string"
	VarInt   Kind = "varint"
	Unit     Kind = "unit"
	KV       Kind = "KV"
	Pair     Kind = "Pair"
	Iterable Kind = "Iterable"
)

// Coder is a description of how to encode and decode values of a given type.
// Except for the "custom" kind, coders are built in. Composite kinds hold
// their component coders.
type Coder struct {
	Kind Kind

	Components []*Coder     // KV, Pair, Iterable
	Custom     *CustomCoder // Custom
}

// Equals returns true iff the two coders are equal.
func (c *Coder) Equals(o *Coder) bool {
	if c.Kind != o.Kind {
		return false
	}
	if len(c.Components) != len(o.Components) {
		return false
	}
	for i, elm := range c.Components {
		if !elm.Equals(o.Components[i]) {
			return false
		}
	}
	if c.Custom != nil {
		if !c.Custom.Equals(o.Custom) {
			return false
		}
	}
	return true
}

func (c *Coder) String() string {
	if c == nil {
		return "$"
	}
	if c.Custom != nil {
		return c.Custom.String()
	}

	ret := fmt.Sprintf("%v", c.Kind)
	if len(c.Components) > 0 {
		var args []string
		for _, elm := range c.Components {
			args = append(args, elm.String())
		}
		ret += fmt.Sprintf("<%v>", strings.Join(args, ","))
	}
	return ret
}

// NewBytes returns a new []byte coder using the built-in scheme.
func NewBytes() *Coder {
	return &Coder{Kind: Bytes}
}

// NewString returns a new UTF-8 string coder using the built-in scheme.
func NewString() *Coder {
	return &Coder{Kind: String}
}

// NewVarInt returns a new int64 coder using the built-in zig-zag scheme.
func NewVarInt() *Coder {
	return &Coder{Kind: VarInt}
}

// NewUnit returns the coder for the trivial unit value. It encodes to zero
// bytes and is used for environments of element functions that need none.
func NewUnit() *Coder {
	return &Coder{Kind: Unit}
}

// NewCustom returns a coder wrapping the supplied encode/decode functions.
func NewCustom(name string, encode func(any) ([]byte, error), decode func([]byte) (any, error)) *Coder {
	return &Coder{Kind: Custom, Custom: NewCustomCoder(name, encode, decode)}
}

// IsKV returns true iff the coder is for key/value records.
func IsKV(c *Coder) bool {
	return c.Kind == KV
}

// NewKV returns a coder for key/value records.
func NewKV(key, value *Coder) *Coder {
	checkCodersNotNil(key, value)
	return &Coder{Kind: KV, Components: []*Coder{key, value}}
}

// IsPair returns true iff the coder is for value pairs.
func IsPair(c *Coder) bool {
	return c.Kind == Pair
}

// NewPair returns a coder for pairs of values. Fusing two nodes pairs their
// environment coders with this coder.
func NewPair(fst, snd *Coder) *Coder {
	checkCodersNotNil(fst, snd)
	return &Coder{Kind: Pair, Components: []*Coder{fst, snd}}
}

// IsIterable returns true iff the coder is for a value sequence.
func IsIterable(c *Coder) bool {
	return c.Kind == Iterable
}

// NewIterable returns a coder for sequences of the given element coder. The
// grouped output of GroupByKey is coded with this coder.
func NewIterable(elm *Coder) *Coder {
	checkCodersNotNil(elm)
	return &Coder{Kind: Iterable, Components: []*Coder{elm}}
}

// SkipIterable returns the element coder of an Iterable coder, or the coder
// itself otherwise.
func SkipIterable(c *Coder) *Coder {
	if c.Kind == Iterable {
		return c.Components[0]
	}
	return c
}

func checkCodersNotNil(list ...*Coder) {
	for i, c := range list {
		if c == nil {
			panic(fmt.Sprintf("nil coder at index: %v", i))
		}
	}
}

// Encode serializes the given value with the coder. Composite coders encode
// each component length-prefixed, so any coder may be nested in any other.
func (c *Coder) Encode(value any) ([]byte, error) {
	var buf buffer
	if err := c.encodeTo(&buf, value); err != nil {
		return nil, err
	}
	return buf.bytes, nil
}

// Decode deserializes a value from data produced by Encode on an equal coder.
func (c *Coder) Decode(data []byte) (any, error) {
	r := &reader{data: data}
	v, err := c.decodeFrom(r)
	if err != nil {
		return nil, err
	}
	if r.pos != len(r.data) {
		return nil, errors.Errorf("decode %v: %v trailing bytes", c, len(r.data)-r.pos)
	}
	return v, nil
}

func (c *Coder) encodeTo(buf *buffer, value any) error {
	switch c.Kind {
	case Bytes:
		b, ok := value.([]byte)
		if !ok {
			return errors.Errorf("bytes coder: %T is not []byte", value)
		}
		buf.writeBytes(b)
		return nil

	case String:
		s, ok := value.(string)
		if !ok {
			return errors.Errorf("string coder: %T is not string", value)
		}
		buf.writeBytes([]byte(s))
		return nil

	case VarInt:
		n, err := asInt64(value)
		if err != nil {
			return err
		}
		buf.writeVarInt(n)
		return nil

	case Unit:
		if _, ok := value.(typex.Unit); !ok {
			return errors.Errorf("unit coder: %T is not typex.Unit", value)
		}
		return nil

	case KV:
		kv, ok := value.(typex.KV)
		if !ok {
			return errors.Errorf("KV coder: %T is not typex.KV", value)
		}
		if err := encodePrefixed(buf, c.Components[0], kv.Key); err != nil {
			return errors.WithContext(err, "encoding KV key")
		}
		if err := encodePrefixed(buf, c.Components[1], kv.Value); err != nil {
			return errors.WithContext(err, "encoding KV value")
		}
		return nil

	case Pair:
		p, ok := value.(typex.Pair)
		if !ok {
			return errors.Errorf("pair coder: %T is not typex.Pair", value)
		}
		if err := encodePrefixed(buf, c.Components[0], p.Fst); err != nil {
			return errors.WithContext(err, "encoding pair fst")
		}
		if err := encodePrefixed(buf, c.Components[1], p.Snd); err != nil {
			return errors.WithContext(err, "encoding pair snd")
		}
		return nil

	case Iterable:
		list, ok := value.([]any)
		if !ok {
			return errors.Errorf("iterable coder: %T is not []any", value)
		}
		buf.writeVarInt(int64(len(list)))
		for i, elm := range list {
			if err := encodePrefixed(buf, c.Components[0], elm); err != nil {
				return errors.WithContextf(err, "encoding iterable element %v", i)
			}
		}
		return nil

	case Custom:
		b, err := c.Custom.Enc(value)
		if err != nil {
			return errors.Wrapf(err, "custom coder %v failed to encode", c.Custom.Name)
		}
		buf.writeBytes(b)
		return nil

	default:
		return errors.Errorf("unknown coder kind: %v", c.Kind)
	}
}

func (c *Coder) decodeFrom(r *reader) (any, error) {
	switch c.Kind {
	case Bytes:
		return r.readRemaining(), nil

	case String:
		return string(r.readRemaining()), nil

	case VarInt:
		return r.readVarInt()

	case Unit:
		return typex.Unit{}, nil

	case KV:
		key, err := decodePrefixed(r, c.Components[0])
		if err != nil {
			return nil, errors.WithContext(err, "decoding KV key")
		}
		value, err := decodePrefixed(r, c.Components[1])
		if err != nil {
			return nil, errors.WithContext(err, "decoding KV value")
		}
		return typex.KV{Key: key, Value: value}, nil

	case Pair:
		fst, err := decodePrefixed(r, c.Components[0])
		if err != nil {
			return nil, errors.WithContext(err, "decoding pair fst")
		}
		snd, err := decodePrefixed(r, c.Components[1])
		if err != nil {
			return nil, errors.WithContext(err, "decoding pair snd")
		}
		return typex.Pair{Fst: fst, Snd: snd}, nil

	case Iterable:
		n, err := r.readVarInt()
		if err != nil {
			return nil, err
		}
		if n < 0 {
			return nil, errors.Errorf("iterable coder: negative length %v", n)
		}
		list := make([]any, 0, n)
		for i := int64(0); i < n; i++ {
			elm, err := decodePrefixed(r, c.Components[0])
			if err != nil {
				return nil, errors.WithContextf(err, "decoding iterable element %v", i)
			}
			list = append(list, elm)
		}
		return list, nil

	case Custom:
		v, err := c.Custom.Dec(r.readRemaining())
		if err != nil {
			return nil, errors.Wrapf(err, "custom coder %v failed to decode", c.Custom.Name)
		}
		return v, nil

	default:
		return nil, errors.Errorf("unknown coder kind: %v", c.Kind)
	}
}

// encodePrefixed encodes a component value with a varint length prefix, so
// that non-self-delimiting coders can be nested.
func encodePrefixed(buf *buffer, c *Coder, value any) error {
	b, err := c.Encode(value)
	if err != nil {
		return err
	}
	buf.writeVarInt(int64(len(b)))
	buf.writeBytes(b)
	return nil
}

func decodePrefixed(r *reader, c *Coder) (any, error) {
	n, err := r.readVarInt()
	if err != nil {
		return nil, err
	}
	b, err := r.readBytes(int(n))
	if err != nil {
		return nil, err
	}
	return c.Decode(b)
}

func asInt64(value any) (int64, error) {
	switch n := value.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	default:
		return 0, errors.Errorf("varint coder: %T is not an integer", value)
	}
}
