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

package graph

import (
	"context"

	"github.com/google/uuid"
)

// Source describes how to read an external dataset into records. The graph
// layer only stores and threads the reference; it performs no I/O.
type Source interface {
	// ReadAll reads the entire dataset, one record per element.
	ReadAll(ctx context.Context) ([]any, error)
}

// Sink describes how to durably write records to an external destination.
type Sink interface {
	// WriteAll writes the given records.
	WriteAll(ctx context.Context, values []any) error
}

// BridgeStore names the canonical intermediate artifact connecting a
// producer node to its downstream consumers. Its identity is generated once
// at node construction and preserved through any non-structural update; it
// changes only when fusion replaces the node with a new downstream identity.
type BridgeStore struct {
	id string
}

// NewBridgeStore returns a bridge with a fresh identity.
func NewBridgeStore() *BridgeStore {
	return &BridgeStore{id: uuid.NewString()}
}

// ID returns the identity naming the durable intermediate artifact.
func (b *BridgeStore) ID() string {
	return b.id
}

func (b *BridgeStore) String() string {
	return "bridge:" + b.id[:8]
}
