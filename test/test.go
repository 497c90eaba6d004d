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

// Package test contains helpers shared by the package tests.
package test

import (
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"

	"github.com/guardtime/ksicore/log"
)

// Case is a test case.
type Case struct {
	Func func(t *testing.T, opts ...interface{})
}

// Suite is a collection of test cases.
type Suite []Case

// Runner runs every test case in the receiver test suite as a subtest named after the case function.
func (ts Suite) Runner(t *testing.T, opts ...interface{}) {
	t.Helper()

	for _, tc := range ts {
		name := runtime.FuncForPC(reflect.ValueOf(tc.Func).Pointer()).Name()
		if i := strings.LastIndex(name, "."); i >= 0 {
			name = name[i+1:]
		}
		log.Debug("---- :::: Run test case: ", name, " :::: ----")
		f := tc.Func
		t.Run(name, func(t *testing.T) { f(t, opts...) })
	}
}

// InitLogger creates a log file <path>/<name>.log and returns a logger writing into it. The returned close
// function must be called when the logger is not needed any more.
func InitLogger(t *testing.T, path string, level log.Priority, name string) (logger log.Logger, fClose func(), err error) {
	t.Helper()

	if err = os.MkdirAll(path, os.ModePerm); err != nil {
		return nil, nil, err
	}
	// Subtest names contain path separators.
	fileName := strings.ReplaceAll(name, "/", "_") + ".log"
	logFile, err := os.Create(filepath.Join(path, fileName))
	if err != nil {
		return nil, nil, err
	}
	fClose = func() { _ = logFile.Close() }

	wl, err := log.New(level, logFile)
	if err != nil {
		fClose()
		return nil, nil, err
	}
	return wl, fClose, nil
}
