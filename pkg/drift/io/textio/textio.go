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

// Package textio contains sources and sinks for newline-delimited text
// files. Each line is one record.
package textio

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/driftdata/drift/internal/errors"
	"github.com/driftdata/drift/pkg/drift/log"
)

// Source reads a text file, one string record per line.
type Source struct {
	Path string
}

// Read returns a source for the given path.
func Read(path string) *Source {
	return &Source{Path: path}
}

// ReadAll reads every line of the file.
func (s *Source) ReadAll(ctx context.Context) ([]any, error) {
	log.Infof(ctx, "Reading from %v", s.Path)

	fd, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	var records []any
	scanner := bufio.NewScanner(fd)
	for scanner.Scan() {
		records = append(records, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading %v", s.Path)
	}
	return records, nil
}

func (s *Source) String() string {
	return fmt.Sprintf("textio.Source(%v)", s.Path)
}

// Sink writes records to a text file, one line per record.
type Sink struct {
	Path string
}

// Write returns a sink for the given path.
func Write(path string) *Sink {
	return &Sink{Path: path}
}

// WriteAll writes the given records, replacing any existing file.
func (s *Sink) WriteAll(ctx context.Context, values []any) error {
	log.Infof(ctx, "Writing to %v", s.Path)

	fd, err := os.Create(s.Path)
	if err != nil {
		return err
	}
	defer fd.Close()

	w := bufio.NewWriter(fd)
	for _, v := range values {
		if _, err := fmt.Fprintln(w, v); err != nil {
			return errors.Wrapf(err, "writing %v", s.Path)
		}
	}
	return w.Flush()
}

func (s *Sink) String() string {
	return fmt.Sprintf("textio.Sink(%v)", s.Path)
}
