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
	"github.com/spf13/cobra"

	"github.com/driftdata/drift/pkg/drift/core/plan"
)

var describeCmd = &cobra.Command{
	Use:   "describe <jobspec>",
	Short: "Print a job's graph before and after optimization",
	RunE:  describeFn,
	Args:  cobra.ExactArgs(1),
}

func describeFn(cmd *cobra.Command, args []string) error {
	spec, err := LoadJobSpec(args[0])
	if err != nil {
		return err
	}
	root, err := Build(spec)
	if err != nil {
		return err
	}

	cmd.Printf("job %v:\n%v\n", spec.Name, plan.Print(root))

	optimized, err := plan.Optimize(root)
	if err != nil {
		return err
	}
	cmd.Printf("\noptimized:\n%v\n", plan.Print(optimized))
	return nil
}
