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

// Package avroio contains sources and sinks for Avro object container
// files. Records are goavro native values (maps, slices and Go scalars).
package avroio

import (
	"context"
	"fmt"
	"os"

	"github.com/linkedin/goavro/v2"

	"github.com/driftdata/drift/internal/errors"
	"github.com/driftdata/drift/pkg/drift/log"
)

// Source reads an Avro OCF file, one datum per record.
type Source struct {
	Path string
}

// Read returns a source for the given path.
func Read(path string) *Source {
	return &Source{Path: path}
}

// ReadAll reads every datum of the file using its embedded schema.
func (s *Source) ReadAll(ctx context.Context) ([]any, error) {
	log.Infof(ctx, "Reading AVRO from %v", s.Path)

	fd, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	r, err := goavro.NewOCFReader(fd)
	if err != nil {
		return nil, errors.Wrapf(err, "reading avro %v", s.Path)
	}

	var records []any
	for r.Scan() {
		datum, err := r.Read()
		if err != nil {
			return nil, errors.Wrapf(err, "reading avro datum from %v", s.Path)
		}
		records = append(records, datum)
	}
	return records, r.Err()
}

func (s *Source) String() string {
	return fmt.Sprintf("avroio.Source(%v)", s.Path)
}

// Sink writes records to an Avro OCF file with the given schema.
type Sink struct {
	Path   string
	Schema string
}

// Write returns a sink for the given path and schema.
func Write(path, schema string) *Sink {
	return &Sink{Path: path, Schema: schema}
}

// WriteAll writes the given records, replacing any existing file. Records
// must be goavro native values matching the schema.
func (s *Sink) WriteAll(ctx context.Context, values []any) error {
	log.Infof(ctx, "Writing AVRO to %v", s.Path)

	fd, err := os.Create(s.Path)
	if err != nil {
		return err
	}
	defer fd.Close()

	w, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:      fd,
		Schema: s.Schema,
	})
	if err != nil {
		return errors.Wrapf(err, "opening avro writer for %v", s.Path)
	}
	if err := w.Append(values); err != nil {
		return errors.Wrapf(err, "writing avro %v", s.Path)
	}
	return nil
}

func (s *Sink) String() string {
	return fmt.Sprintf("avroio.Sink(%v)", s.Path)
}
