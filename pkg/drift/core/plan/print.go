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

package plan

import (
	"strings"

	"github.com/driftdata/drift/pkg/drift/core/graph"
)

// Print returns a readable listing of the graph under root, one node per
// line, producers before consumers.
func Print(root *graph.Root) string {
	var lines []string
	for _, n := range Nodes(root) {
		lines = append(lines, n.String())
	}
	return strings.Join(lines, "\n")
}

// Nodes returns every node reachable from root, producers before consumers.
func Nodes(root *graph.Root) []graph.CompNode {
	var nodes []graph.CompNode
	seen := make(map[graph.NodeID]bool)

	var walk func(n graph.CompNode)
	walk = func(n graph.CompNode) {
		if seen[n.ID()] {
			return
		}
		seen[n.ID()] = true
		for _, in := range n.Inputs() {
			walk(in)
		}
		if pd, ok := n.(*graph.ParallelDo); ok {
			walk(pd.Env())
		}
		nodes = append(nodes, n)
	}
	walk(root)
	return nodes
}
