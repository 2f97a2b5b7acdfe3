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
	"encoding/binary"

	"github.com/driftdata/drift/internal/errors"
)

// buffer is a minimal append-only byte sink for the built-in encoders.
type buffer struct {
	bytes []byte
}

func (b *buffer) writeBytes(p []byte) {
	b.bytes = append(b.bytes, p...)
}

func (b *buffer) writeVarInt(n int64) {
	var tmp [binary.MaxVarintLen64]byte
	size := binary.PutVarint(tmp[:], n)
	b.bytes = append(b.bytes, tmp[:size]...)
}

// reader is a cursor over an encoded byte slice.
type reader struct {
	data []byte
	pos  int
}

func (r *reader) readVarInt() (int64, error) {
	n, size := binary.Varint(r.data[r.pos:])
	if size <= 0 {
		return 0, errors.New("malformed varint")
	}
	r.pos += size
	return n, nil
}

func (r *reader) readBytes(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, errors.Errorf("short read: want %v bytes, have %v", n, len(r.data)-r.pos)
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *reader) readRemaining() []byte {
	b := r.data[r.pos:]
	r.pos = len(r.data)
	return b
}
