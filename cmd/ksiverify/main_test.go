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

package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/guardtime/ksicore/conf"
	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/log"
	"github.com/guardtime/ksicore/signature"
	"github.com/guardtime/ksicore/signature/verify/result"
	"github.com/guardtime/ksicore/test"
)

var testLogDir = filepath.Join("..", "..", "test", "out", "ksiverify")

func TestUnitKsiVerify(t *testing.T) {
	logger, defFunc, err := test.InitLogger(t, testLogDir, log.DEBUG, t.Name())
	if err != nil {
		t.Fatal("Failed to initialize logger: ", err)
	}
	defer defFunc()
	// Apply logger.
	log.SetLogger(logger)

	test.Suite{
		{Func: testParseArgsInvalid},
		{Func: testParseArgs},
		{Func: testSelectPolicy},
		{Func: testLoadConfigPolicyOverride},
		{Func: testNewLogger},
		{Func: testNewFileHandlerNoSource},
		{Func: testNewFileHandlerURLWithCache},
		{Func: testNewFileHandlerMissingFile},
		{Func: testExitCode},
		{Func: testRunUsage},
		{Func: testRunMissingSignature},
	}.Runner(t)
}

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "ksiverify.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal("Failed to write config: ", err)
	}
	return path
}

func testParseArgsInvalid(t *testing.T, _ ...interface{}) {
	for _, args := range [][]string{
		nil,
		{"a.ksig", "b.ksig"},
		{"-unknown", "a.ksig"},
	} {
		if _, err := parseArgs(args, io.Discard); err == nil {
			t.Errorf("Must fail with args: %v", args)
		}
	}
}

func testParseArgs(t *testing.T, _ ...interface{}) {
	opts, err := parseArgs([]string{
		"-config", "ksi.yaml",
		"-document", "doc.txt",
		"-alg", "sha-512",
		"-policy", "key",
		"-no-color",
		"sig.ksig",
	}, io.Discard)
	if err != nil {
		t.Fatal("Failed to parse args: ", err)
	}
	if opts.config != "ksi.yaml" || opts.document != "doc.txt" || opts.alg != "sha-512" ||
		opts.policy != "key" || !opts.noColor || opts.sigFile != "sig.ksig" {
		t.Errorf("Unexpected options: %+v", opts)
	}
}

func testSelectPolicy(t *testing.T, _ ...interface{}) {
	for name, expected := range map[string]*signature.Policy{
		"":                          signature.DefaultPolicy,
		conf.PolicyDefault:          signature.DefaultPolicy,
		conf.PolicyInternal:         signature.InternalPolicy,
		conf.PolicyCalendar:         signature.CalendarBasedPolicy,
		conf.PolicyKey:              signature.KeyBasedPolicy,
		conf.PolicyPublicationsFile: signature.PublicationsFileBasedPolicy,
		conf.PolicyUserPublication:  signature.UserProvidedPublicationBasedPolicy,
	} {
		p, err := selectPolicy(name)
		if err != nil {
			t.Fatalf("Failed to select policy '%s': %s", name, err)
		}
		if p != expected {
			t.Errorf("Policy '%s' mismatch: %s", name, p)
		}
	}

	if _, err := selectPolicy("strict"); errors.CodeOf(err) != errors.KsiInvalidArgumentError {
		t.Error("Unknown policy must fail: ", err)
	}
}

func testLoadConfigPolicyOverride(t *testing.T, _ ...interface{}) {
	path := writeConfig(t, "verification:\n  policy: internal\n")

	cfg, err := loadConfig(&options{config: path, policy: conf.PolicyCalendar})
	if err != nil {
		t.Fatal("Failed to load config: ", err)
	}
	if cfg.Verification.Policy != conf.PolicyCalendar {
		t.Error("Policy override not applied: ", cfg.Verification.Policy)
	}

	if _, err := loadConfig(&options{config: path, policy: "strict"}); errors.CodeOf(err) != errors.KsiInvalidFormatError {
		t.Error("Invalid policy override must fail: ", err)
	}
}

func testNewLogger(t *testing.T, _ ...interface{}) {
	cfg := conf.Default()
	cfg.Log.Level = "info"
	cfg.Log.Format = conf.FormatJSON

	var buf bytes.Buffer
	logger := newLogger(cfg, &buf)
	logger.Debug("hidden")
	logger.Info("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Debug record must be filtered: ", out)
	}
	if !strings.Contains(out, `"msg":"visible"`) || !strings.Contains(out, `"app":"ksiverify"`) {
		t.Error("Unexpected JSON record: ", out)
	}
}

func testNewFileHandlerNoSource(t *testing.T, _ ...interface{}) {
	if _, _, err := newFileHandler(conf.Default()); errors.CodeOf(err) != errors.KsiInvalidStateError {
		t.Error("Missing source must fail: ", err)
	}
}

func testNewFileHandlerURLWithCache(t *testing.T, _ ...interface{}) {
	cfg := conf.Default()
	cfg.Publications.URL = "http://localhost/ksi-publications.bin"
	cfg.Publications.TrustedCertDir = t.TempDir()
	cfg.Publications.CertConstraints = "E=publications@guardtime.com"
	cfg.Publications.TTL = time.Hour
	cfg.Cache.Redis.Addr = "localhost:6379"
	cfg.Cache.Redis.KeyPrefix = "test:"

	handler, closer, err := newFileHandler(cfg)
	if err != nil {
		t.Fatal("Failed to create handler: ", err)
	}
	if closer == nil {
		t.Fatal("Redis cache closer must be returned.")
	}
	defer closer.Close()

	ttl, err := handler.FileTTL()
	if err != nil {
		t.Fatal("Failed to get TTL: ", err)
	}
	if ttl != time.Hour {
		t.Error("TTL mismatch: ", ttl)
	}
}

func testNewFileHandlerMissingFile(t *testing.T, _ ...interface{}) {
	cfg := conf.Default()
	cfg.Publications.File = filepath.Join(t.TempDir(), "missing.bin")

	if _, _, err := newFileHandler(cfg); errors.CodeOf(err) != errors.KsiIoError {
		t.Error("Missing file must fail: ", err)
	}
}

func testExitCode(t *testing.T, _ ...interface{}) {
	for c, expected := range map[result.Code]int{
		result.OK:   exitOK,
		result.FAIL: exitFail,
		result.NA:   exitNA,
	} {
		if code := exitCode(c); code != expected {
			t.Errorf("Exit code mismatch for %s: %d", c, code)
		}
	}
}

func testRunUsage(t *testing.T, _ ...interface{}) {
	if code := run(nil, io.Discard, io.Discard); code != exitUsage {
		t.Error("Unexpected exit code: ", code)
	}
}

func testRunMissingSignature(t *testing.T, _ ...interface{}) {
	path := writeConfig(t, "verification:\n  policy: internal\n")
	sigFile := filepath.Join(t.TempDir(), "missing.ksig")

	var stderr bytes.Buffer
	code := run([]string{"-config", path, "-no-color", "-log", filepath.Join(t.TempDir(), "run.log"), sigFile},
		io.Discard, &stderr)
	if code == exitOK || code == exitUsage {
		t.Error("Unexpected exit code: ", code)
	}
	if !strings.Contains(stderr.String(), "Failed to open signature file") {
		t.Error("Unexpected output: ", stderr.String())
	}
}
