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
	"os"

	"gopkg.in/yaml.v3"

	"github.com/driftdata/drift/pkg/drift"
	"github.com/driftdata/drift/pkg/drift/core/graph"
	"github.com/driftdata/drift/pkg/drift/core/graph/coder"
	"github.com/driftdata/drift/internal/errors"
	"github.com/driftdata/drift/pkg/drift/io/avroio"
	"github.com/driftdata/drift/pkg/drift/io/textio"
)

// JobSpec is a YAML description of a linear dataflow job: a source, a list
// of named steps, and an optional sink.
type JobSpec struct {
	Name   string        `yaml:"name"`
	Source EndpointSpec  `yaml:"source"`
	Steps  []StepSpec    `yaml:"steps"`
	Sink   *EndpointSpec `yaml:"sink,omitempty"`
}

// EndpointSpec describes an external source or sink.
type EndpointSpec struct {
	Kind   string `yaml:"kind"` // "text" or "avro"
	Path   string `yaml:"path"`
	Schema string `yaml:"schema,omitempty"` // avro sinks only
}

// StepSpec describes one operation of the job. Element-wise steps name a
// function from the registry; gbk takes none.
type StepSpec struct {
	Op string `yaml:"op"` // "map", "flatmap", "filter", "gbk", "combine"
	Fn string `yaml:"fn,omitempty"`
}

// LoadJobSpec reads and parses a jobspec file.
func LoadJobSpec(path string) (*JobSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var spec JobSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, errors.Wrapf(err, "malformed jobspec %v", path)
	}
	if spec.Source.Path == "" {
		return nil, errors.Errorf("jobspec %v has no source path", path)
	}
	return &spec, nil
}

// Build assembles the graph described by the jobspec and returns its root.
func Build(spec *JobSpec) (*graph.Root, error) {
	col, err := buildSource(spec.Source)
	if err != nil {
		return nil, err
	}

	for i, step := range spec.Steps {
		next, err := buildStep(col, step)
		if err != nil {
			return nil, errors.WithContextf(err, "building step %v of job %v", i, spec.Name)
		}
		col = next
	}

	if spec.Sink != nil {
		sink, err := buildSink(*spec.Sink)
		if err != nil {
			return nil, err
		}
		// Sinks hang off process nodes; a stepless job gets an identity step.
		if _, ok := col.Node().(graph.ProcessNode); !ok {
			col = col.Map("identity", func(v any) (any, error) { return v, nil }, col.Node().Coder())
		}
		col = col.WriteTo(sink)
	}
	return drift.NewRoot(col), nil
}

func buildSource(ep EndpointSpec) (drift.Collection, error) {
	switch ep.Kind {
	case "", "text":
		return drift.Source(textio.Read(ep.Path), coder.NewString()), nil
	case "avro":
		return drift.Source(avroio.Read(ep.Path), jsonCoder()), nil
	default:
		return drift.Collection{}, errors.Errorf("unknown source kind: %v", ep.Kind)
	}
}

func buildSink(ep EndpointSpec) (graph.Sink, error) {
	switch ep.Kind {
	case "", "text":
		return textio.Write(ep.Path), nil
	case "avro":
		if ep.Schema == "" {
			return nil, errors.New("avro sink needs a schema")
		}
		return avroio.Write(ep.Path, ep.Schema), nil
	default:
		return nil, errors.Errorf("unknown sink kind: %v", ep.Kind)
	}
}

func buildStep(col drift.Collection, step StepSpec) (drift.Collection, error) {
	switch step.Op {
	case "map", "flatmap", "filter":
		reg, ok := elementFns[step.Fn]
		if !ok {
			return drift.Collection{}, errors.Errorf("unknown element function: %q", step.Fn)
		}
		if reg.op != step.Op {
			return drift.Collection{}, errors.Errorf("function %q is a %v, not a %v", step.Fn, reg.op, step.Op)
		}
		return col.ParDo(reg.fn, reg.out(col.Node().Coder())), nil

	case "gbk":
		return col.GroupByKey(), nil

	case "combine":
		fn, ok := combineFns[step.Fn]
		if !ok {
			return drift.Collection{}, errors.Errorf("unknown combine function: %q", step.Fn)
		}
		return col.CombinePerKey(fn), nil

	default:
		return drift.Collection{}, errors.Errorf("unknown op: %q", step.Op)
	}
}
