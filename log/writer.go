/*
 * Copyright 2020 Guardtime, Inc.
 *
 * This file is part of the Guardtime client SDK.
 *
 * Licensed under the Apache License, Version 2.0 (the "License").
 * You may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *     http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES, CONDITIONS, OR OTHER LICENSES OF ANY KIND, either
 * express or implied. See the License for the specific language governing
 * permissions and limitations under the License.
 * "Guardtime" and "KSI" are trademarks or registered trademarks of
 * Guardtime, Inc., and no license to trademarks is granted; Guardtime
 * reserves and retains all trademark rights.
 */

package log

import (
	"fmt"
	"io"
	stdlog "log"
	"strings"

	"github.com/guardtime/ksicore/errors"
)

// Priority is the logging level.
type Priority int

// Log priorities, ordered from the most verbose.
const (
	DEBUG Priority = iota
	INFO
	NOTICE
	WARNING
	ERROR
	// NONE disables the output.
	NONE
)

var priorityTags = map[Priority]string{
	DEBUG:   "[D]",
	INFO:    "[I]",
	NOTICE:  "[N]",
	WARNING: "[W]",
	ERROR:   "[E]",
}

var priorityNames = map[string]Priority{
	"debug":   DEBUG,
	"info":    INFO,
	"notice":  NOTICE,
	"warning": WARNING,
	"warn":    WARNING,
	"error":   ERROR,
	"none":    NONE,
}

// ParsePriority returns the priority for the given case-insensitive name (eg. "debug", "warning").
func ParsePriority(name string) (Priority, error) {
	p, ok := priorityNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return NONE, errors.New(errors.KsiInvalidFormatError).
			AppendMessage(fmt.Sprintf("Unknown log level: '%s'.", name))
	}
	return p, nil
}

func (p Priority) String() string {
	for n, v := range priorityNames {
		if v == p && n != "warn" {
			return n
		}
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// WriterLogger generates lines of output to an io.Writer. Each line is prefixed with the priority tag.
type WriterLogger struct {
	level Priority
	out   *stdlog.Logger
}

// New returns a new WriterLogger that writes events with priority level and above to w.
// In case w is nil, the output is discarded.
func New(level Priority, w io.Writer) (*WriterLogger, error) {
	if level < DEBUG || level >= NONE {
		return nil, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Invalid log priority.")
	}
	if w == nil {
		w = io.Discard
	}
	return &WriterLogger{
		level: level,
		out:   stdlog.New(w, "", stdlog.LstdFlags|stdlog.Lmicroseconds),
	}, nil
}

func (l *WriterLogger) write(p Priority, v ...interface{}) {
	if l == nil || l.out == nil || p < l.level {
		return
	}
	l.out.Println(priorityTags[p], fmt.Sprint(v...))
}

// Debug implements Logger interface.
func (l *WriterLogger) Debug(v ...interface{}) { l.write(DEBUG, v...) }

// Info implements Logger interface.
func (l *WriterLogger) Info(v ...interface{}) { l.write(INFO, v...) }

// Notice implements Logger interface.
func (l *WriterLogger) Notice(v ...interface{}) { l.write(NOTICE, v...) }

// Warning implements Logger interface.
func (l *WriterLogger) Warning(v ...interface{}) { l.write(WARNING, v...) }

// Error implements Logger interface.
func (l *WriterLogger) Error(v ...interface{}) { l.write(ERROR, v...) }
