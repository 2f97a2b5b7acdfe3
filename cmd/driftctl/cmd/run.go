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
	"context"

	"github.com/spf13/cobra"

	"github.com/driftdata/drift/pkg/drift/core/graph"
	"github.com/driftdata/drift/pkg/drift/core/plan"
	"github.com/driftdata/drift/pkg/drift/runners/local"
)

var (
	runCmd = &cobra.Command{
		Use:   "run <jobspec>",
		Short: "Run a job on the local runner",
		RunE:  runFn,
		Args:  cobra.ExactArgs(1),
	}

	noOptimize bool
)

func init() {
	runCmd.Flags().BoolVar(&noOptimize, "no-optimize", false, "Run the graph without fusion")
}

func runFn(cmd *cobra.Command, args []string) error {
	spec, err := LoadJobSpec(args[0])
	if err != nil {
		return err
	}
	root, err := Build(spec)
	if err != nil {
		return err
	}
	if !noOptimize {
		root, err = plan.Optimize(root)
		if err != nil {
			return err
		}
	}

	result, err := local.Execute(context.Background(), root)
	if err != nil {
		return err
	}

	for _, n := range plan.Nodes(root) {
		if pn, ok := n.(graph.ProcessNode); ok {
			cmd.Printf("%v: %v records\n", pn.ID(), len(result.Records(pn)))
		}
	}
	return nil
}
