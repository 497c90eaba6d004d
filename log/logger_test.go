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
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestUnitLoggerPriorities(t *testing.T) {
	tests := []struct {
		level    Priority
		expected []string
		absent   []string
	}{
		{DEBUG, []string{"[D]", "[I]", "[N]", "[W]", "[E]"}, nil},
		{NOTICE, []string{"[N]", "[W]", "[E]"}, []string{"[D]", "[I]"}},
		{ERROR, []string{"[E]"}, []string{"[D]", "[I]", "[N]", "[W]"}},
	}

	for _, tc := range tests {
		var b bytes.Buffer
		logger, err := New(tc.level, &b)
		if err != nil {
			t.Fatal("Failed to create new logger:", err)
		}
		logger.Debug("debug message")
		logger.Info("info message")
		logger.Notice("notice message")
		logger.Warning("warning message")
		logger.Error("error message")

		for _, s := range tc.expected {
			if !strings.Contains(b.String(), s) {
				t.Errorf("Level %s: failed to find %s message.", tc.level, s)
			}
		}
		for _, s := range tc.absent {
			if strings.Contains(b.String(), s) {
				t.Errorf("Level %s: %s message must not be added.", tc.level, s)
			}
		}
	}
}

func TestUnitLoggerNonePriority(t *testing.T) {
	if _, err := New(NONE, nil); err == nil {
		t.Fatal("Logger creation must fail.")
	}
}

func TestUnitLoggerNil(t *testing.T) {
	var logger *WriterLogger

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("nil logger must not fail: %s.", r)
		}
	}()

	logger.Debug("x")
	logger.Info("x")
	logger.Notice("x")
	logger.Warning("x")
	logger.Error("x")
}

func TestUnitParsePriority(t *testing.T) {
	tests := []struct {
		in  string
		out Priority
		ok  bool
	}{
		{"debug", DEBUG, true},
		{" WARN ", WARNING, true},
		{"Error", ERROR, true},
		{"none", NONE, true},
		{"verbose", NONE, false},
	}
	for _, tc := range tests {
		p, err := ParsePriority(tc.in)
		if (err == nil) != tc.ok {
			t.Errorf("%q: unexpected error state: %v", tc.in, err)
		}
		if p != tc.out {
			t.Errorf("%q: priority mismatch: %v", tc.in, p)
		}
	}
}

func TestUnitGlobalLogger(t *testing.T) {
	defer SetLogger(nil)

	var b bytes.Buffer
	logger, err := New(DEBUG, &b)
	if err != nil {
		t.Fatal("Failed to create new logger:", err)
	}
	SetLogger(logger)
	Info("global", " info")
	if !strings.Contains(b.String(), "global info") {
		t.Error("Global logger output mismatch: ", b.String())
	}

	SetLogger(nil)
	b.Reset()
	Error("disabled")
	if b.Len() != 0 {
		t.Error("Disabled logger must not produce output.")
	}
}

func TestUnitLogrusLogger(t *testing.T) {
	var b bytes.Buffer
	base := logrus.New()
	base.SetOutput(&b)
	base.SetFormatter(&logrus.JSONFormatter{})
	base.SetLevel(LogrusLevel(DEBUG))

	logger := NewLogrus(base, logrus.Fields{"component": "verifier"}).WithField("run", "abc")
	logger.Notice("policy fallback")

	var event map[string]interface{}
	if err := json.Unmarshal(b.Bytes(), &event); err != nil {
		t.Fatal("Failed to parse logrus output: ", err)
	}
	if event["msg"] != "policy fallback" || event["component"] != "verifier" || event["run"] != "abc" {
		t.Error("Unexpected event: ", event)
	}
	if event["notice"] != true || event["level"] != "info" {
		t.Error("Notice mapping mismatch: ", event)
	}
}

func TestUnitLogrusLevelMapping(t *testing.T) {
	if LogrusLevel(WARNING) != logrus.WarnLevel || LogrusLevel(NOTICE) != logrus.InfoLevel ||
		LogrusLevel(ERROR) != logrus.ErrorLevel {
		t.Error("Level mapping mismatch.")
	}
}
