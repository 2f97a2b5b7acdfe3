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

// Package log contains a re-targetable context-aware logging system. Notably,
// it allows runners to transparently provide appropriate logging context --
// such as node or task information -- for user code logging.
package log

import (
	"context"
	"fmt"
	"log"
	"os"
)

// Severity is the severity of the log message.
type Severity int

// Valid severities.
const (
	SevUnspecified Severity = iota
	SevDebug
	SevInfo
	SevWarn
	SevError
	SevFatal
)

func (s Severity) String() string {
	switch s {
	case SevDebug:
		return "DEBUG"
	case SevInfo:
		return "INFO"
	case SevWarn:
		return "WARN"
	case SevError:
		return "ERROR"
	case SevFatal:
		return "FATAL"
	default:
		return "UNSPECIFIED"
	}
}

// Logger is a context-aware logging backend. The richer context allows for
// more sophisticated logging setups. Must be concurrency safe.
type Logger interface {
	// Log logs the message in some implementation-dependent way. Log should
	// always return regardless of the severity.
	Log(ctx context.Context, sev Severity, msg string)
}

var logger Logger = &Standard{}

// SetLogger sets the global Logger. Intended to be called during
// initialization only.
func SetLogger(l Logger) {
	if l == nil {
		panic("Logger cannot be nil")
	}
	logger = l
}

// Output logs the given message to the global logger.
func Output(ctx context.Context, sev Severity, msg string) {
	logger.Log(ctx, sev, msg)
}

// User-facing logging functions.

// Debugf writes the fmt.Sprintf-formatted arguments to the global logger with
// debug severity.
func Debugf(ctx context.Context, format string, v ...interface{}) {
	Output(ctx, SevDebug, fmt.Sprintf(format, v...))
}

// Infof writes the fmt.Sprintf-formatted arguments to the global logger with
// info severity.
func Infof(ctx context.Context, format string, v ...interface{}) {
	Output(ctx, SevInfo, fmt.Sprintf(format, v...))
}

// Warnf writes the fmt.Sprintf-formatted arguments to the global logger with
// warn severity.
func Warnf(ctx context.Context, format string, v ...interface{}) {
	Output(ctx, SevWarn, fmt.Sprintf(format, v...))
}

// Errorf writes the fmt.Sprintf-formatted arguments to the global logger with
// error severity.
func Errorf(ctx context.Context, format string, v ...interface{}) {
	Output(ctx, SevError, fmt.Sprintf(format, v...))
}

// Fatalf writes the fmt.Sprintf-formatted arguments to the global logger with
// fatal severity, followed by a call to os.Exit(1).
func Fatalf(ctx context.Context, format string, v ...interface{}) {
	Output(ctx, SevFatal, fmt.Sprintf(format, v...))
	os.Exit(1)
}

// Standard is a wrapper over the standard Go logger. It is the default
// backend.
type Standard struct{}

// Log logs the message to the standard Go logger.
func (s *Standard) Log(ctx context.Context, sev Severity, msg string) {
	log.Printf("%v %v", sev, msg)
}
