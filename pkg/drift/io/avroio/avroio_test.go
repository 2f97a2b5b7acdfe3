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

package avroio

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const countSchema = `{
	"type": "record",
	"name": "wordcount",
	"fields": [
		{"name": "word", "type": "string"},
		{"name": "count", "type": "long"}
	]
}`

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "counts.avro")

	records := []any{
		map[string]any{"word": "ten", "count": int64(10)},
		map[string]any{"word": "two", "count": int64(2)},
	}

	if err := Write(path, countSchema).WriteAll(ctx, records); err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}
	got, err := Read(path).ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if d := cmp.Diff(records, got); d != "" {
		t.Errorf("round trip mismatch: (-want, +got)\n%v", d)
	}
}

func TestRoundTripPrimitive(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "words.avro")
	records := []any{"alpha", "beta"}

	if err := Write(path, `"string"`).WriteAll(ctx, records); err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}
	got, err := Read(path).ReadAll(ctx)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if d := cmp.Diff(records, got); d != "" {
		t.Errorf("round trip mismatch: (-want, +got)\n%v", d)
	}
}

func TestWriteBadSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.avro")
	err := Write(path, `{"type": "nonsense"}`).WriteAll(context.Background(), []any{"x"})
	if err == nil {
		t.Errorf("WriteAll with invalid schema succeeded, want error")
	}
}

func TestWriteMismatchedRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.avro")
	err := Write(path, countSchema).WriteAll(context.Background(), []any{"not a record"})
	if err == nil {
		t.Errorf("WriteAll of mismatched record succeeded, want error")
	}
}

func TestReadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.avro")
	if _, err := Read(path).ReadAll(context.Background()); err == nil {
		t.Errorf("ReadAll of missing file succeeded, want error")
	}
}
