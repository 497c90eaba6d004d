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
	"io"

	"github.com/sirupsen/logrus"
)

// LogrusLogger forwards the log events to a logrus logger. Notice events are mapped to logrus info level with
// the field "notice" set.
type LogrusLogger struct {
	entry *logrus.Entry
}

// NewLogrus wraps l. The optional fields are attached to every event (eg. component name).
func NewLogrus(l *logrus.Logger, fields logrus.Fields) *LogrusLogger {
	if l == nil {
		l = logrus.New()
		l.SetOutput(io.Discard)
	}
	return &LogrusLogger{entry: l.WithFields(fields)}
}

// LogrusLevel maps the priority to the matching logrus level.
func LogrusLevel(p Priority) logrus.Level {
	switch p {
	case DEBUG:
		return logrus.DebugLevel
	case INFO, NOTICE:
		return logrus.InfoLevel
	case WARNING:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}

// WithField returns a copy of the logger with an additional field.
func (l *LogrusLogger) WithField(key string, value interface{}) *LogrusLogger {
	if l == nil {
		return nil
	}
	return &LogrusLogger{entry: l.entry.WithField(key, value)}
}

// Debug implements Logger interface.
func (l *LogrusLogger) Debug(v ...interface{}) {
	if l != nil {
		l.entry.Debug(v...)
	}
}

// Info implements Logger interface.
func (l *LogrusLogger) Info(v ...interface{}) {
	if l != nil {
		l.entry.Info(v...)
	}
}

// Notice implements Logger interface.
func (l *LogrusLogger) Notice(v ...interface{}) {
	if l != nil {
		l.entry.WithField("notice", true).Info(v...)
	}
}

// Warning implements Logger interface.
func (l *LogrusLogger) Warning(v ...interface{}) {
	if l != nil {
		l.entry.Warn(v...)
	}
}

// Error implements Logger interface.
func (l *LogrusLogger) Error(v ...interface{}) {
	if l != nil {
		l.entry.Error(v...)
	}
}
