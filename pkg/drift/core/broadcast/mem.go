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
	"sync"

	"github.com/driftdata/drift/internal/errors"
)

// Mem is an in-process broadcast Context, used by the local runner and
// tests. The first publish for a tag wins; later publishes are no-ops.
type Mem struct {
	m sync.Map // tag -> []byte
}

// NewMem returns an empty in-process broadcast context.
func NewMem() *Mem {
	return &Mem{}
}

// Publish stores data under tag. Idempotent: concurrent publishers for the
// same tag resolve to a single stored value.
func (m *Mem) Publish(ctx context.Context, tag string, data []byte) error {
	m.m.LoadOrStore(tag, data)
	return nil
}

// Fetch returns the data stored under tag.
func (m *Mem) Fetch(ctx context.Context, tag string) ([]byte, error) {
	v, ok := m.m.Load(tag)
	if !ok {
		return nil, errors.Errorf("no value published under tag %v", tag)
	}
	return v.([]byte), nil
}
