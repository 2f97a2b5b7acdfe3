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

// Package graph contains the dataflow graph representation: the closed set
// of node variants built lazily by the user-facing layer, and the fusion
// rewrites that collapse adjacent element-wise nodes before the graph is
// handed to a runner. Nodes are immutable once constructed; every rewrite
// produces new node instances.
package graph

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/driftdata/drift/pkg/drift/core/broadcast"
	"github.com/driftdata/drift/pkg/drift/core/graph/coder"
)

// NodeID uniquely identifies a node instance for the lifetime of the
// process. Two structurally identical nodes are still distinct graph
// positions; node equality is by id, never by content.
type NodeID int64

var idCounter atomic.Int64

// nextID returns a fresh node id. Safe for concurrent graph construction.
func nextID() NodeID {
	return NodeID(idCounter.Add(1))
}

// CompNode is a node in the dataflow graph: either a process node producing
// a distributed multi-record collection, or a value node producing a single
// broadcastable value.
type CompNode interface {
	// ID returns the process-wide unique identity of the node.
	ID() NodeID

	// Coder describes the wire type of the values the node produces.
	Coder() *coder.Coder

	// Inputs returns the upstream nodes, in declaration order.
	Inputs() []CompNode

	String() string
}

// ProcessNode is a node whose output is a distributed multi-record
// collection. Its output feeds downstream consumers through a single bridge
// store and may additionally be duplicated to external sinks.
type ProcessNode interface {
	CompNode

	// Bridge returns the canonical intermediate artifact for the node's
	// output: the write target when the node executes and the read source
	// for every downstream consumer.
	Bridge() *BridgeStore

	// Sinks returns the additional external destinations for the node's
	// output. Sinks are best-effort duplicates and do not affect the bridge
	// read contract.
	Sinks() []Sink

	// UpdateSinks derives a new node of the same variant with the sink list
	// replaced by f(sinks). The receiver is unchanged; the result has a
	// fresh identity but the same bridge identity.
	UpdateSinks(f func([]Sink) []Sink) ProcessNode

	// AddSink derives a new node with s appended to the sink list.
	AddSink(s Sink) ProcessNode

	processNode() // closed union
}

// ValueNode is a node whose output is a single value, used for broadcast
// parameters and aggregated materializations.
type ValueNode interface {
	CompNode

	// Environment returns the broadcast environment for the node, binding
	// it on first access. Binding is idempotent: every call on the same
	// node instance returns the same environment, even under concurrent
	// first access.
	Environment(ctx context.Context, bc broadcast.Context) (*broadcast.Env, error)

	valueNode() // closed union
}

// envCache is the lazily bound broadcast environment carried by every value
// node. Exactly one environment survives a racing first access.
type envCache struct {
	env atomic.Pointer[broadcast.Env]
}

func (c *envCache) environment(id NodeID, cdr *coder.Coder, bc broadcast.Context) (*broadcast.Env, error) {
	if e := c.env.Load(); e != nil {
		return e, nil
	}
	e := broadcast.NewEnv(envTag(id), cdr, bc)
	if c.env.CompareAndSwap(nil, e) {
		return e, nil
	}
	return c.env.Load(), nil
}

// envTag names the broadcast slot for a value node. Tags are derived from
// node identity, so distinct nodes never collide.
func envTag(id NodeID) string {
	return fmt.Sprintf("env-%v", int64(id))
}

// NodeIDs returns the ids of the given nodes, in order.
func NodeIDs(nodes []CompNode) []NodeID {
	var ids []NodeID
	for _, n := range nodes {
		ids = append(ids, n.ID())
	}
	return ids
}
