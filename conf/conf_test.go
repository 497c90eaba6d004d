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

package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/hash"
	"github.com/guardtime/ksicore/log"
	"github.com/guardtime/ksicore/pdu"
	"github.com/guardtime/ksicore/test"
)

var testLogDir = filepath.Join("..", "test", "out", "conf")

func TestUnitConf(t *testing.T) {
	logger, defFunc, err := test.InitLogger(t, testLogDir, log.DEBUG, t.Name())
	if err != nil {
		t.Fatal("Failed to initialize logger: ", err)
	}
	defer defFunc()
	// Apply logger.
	log.SetLogger(logger)

	test.Suite{
		{Func: testParseFull},
		{Func: testParseEmpty},
		{Func: testParseUnknownKey},
		{Func: testParseInvalidValues},
		{Func: testParseUserPublication},
		{Func: testEnvOverrides},
		{Func: testLoadFile},
		{Func: testLoadMissingFile},
		{Func: testNeedsPublicationsFile},
	}.Runner(t)
}

func noEnv(string) (string, bool) { return "", false }

func testParseFull(t *testing.T, _ ...interface{}) {
	cfg, err := parse([]byte(`
publications:
  url: "https://verify.guardtime.com/ksi-publications.bin"
  cnstr: "E=publications@guardtime.com"
  ttl: 2h30m
cache:
  redis:
    addr: "localhost:6379"
    password: "secret"
    db: 2
    keyPrefix: "test:"
verification:
  policy: publications-file
  extendingAllowed: true
log:
  level: debug
  format: json
`), noEnv)
	if err != nil {
		t.Fatal("Failed to parse configuration: ", err)
	}
	if cfg.Publications.URL != "https://verify.guardtime.com/ksi-publications.bin" ||
		cfg.Publications.CertConstraints != "E=publications@guardtime.com" ||
		cfg.Publications.TTL != 150*time.Minute {
		t.Error("Publications mismatch: ", cfg.Publications)
	}
	if cfg.Cache.Redis != (Redis{Addr: "localhost:6379", Password: "secret", DB: 2, KeyPrefix: "test:"}) {
		t.Error("Redis mismatch: ", cfg.Cache.Redis)
	}
	if cfg.Verification.Policy != PolicyPublicationsFile || !cfg.Verification.ExtendingAllowed {
		t.Error("Verification mismatch: ", cfg.Verification)
	}
	if cfg.LogLevel() != log.DEBUG || cfg.Log.Format != FormatJSON {
		t.Error("Log mismatch: ", cfg.Log)
	}
}

func testParseEmpty(t *testing.T, _ ...interface{}) {
	cfg, err := parse(nil, noEnv)
	if err != nil {
		t.Fatal("Failed to parse empty configuration: ", err)
	}
	if *cfg != *Default() {
		t.Error("Defaults mismatch: ", cfg)
	}
	if cfg.LogLevel() != log.INFO {
		t.Error("Default log level mismatch: ", cfg.LogLevel())
	}
}

func testParseUnknownKey(t *testing.T, _ ...interface{}) {
	_, err := parse([]byte("publications:\n  uri: \"https://example.com\"\n"), noEnv)
	if errors.CodeOf(err) != errors.KsiInvalidFormatError {
		t.Error("Unknown key must fail with invalid format: ", err)
	}
}

func testParseInvalidValues(t *testing.T, _ ...interface{}) {
	for _, tc := range []struct {
		name string
		raw  string
	}{
		{"UrlAndFile", "publications:\n  url: \"https://example.com\"\n  file: \"pub.bin\"\n"},
		{"NegativeTTL", "publications:\n  ttl: -1h\n"},
		{"BadTTL", "publications:\n  ttl: often\n"},
		{"BadConstraint", "publications:\n  cnstr: \"XYZ\"\n"},
		{"NegativeDB", "cache:\n  redis:\n    db: -1\n"},
		{"UnknownPolicy", "verification:\n  policy: trust-me\n"},
		{"UserPolicyWithoutPublication", "verification:\n  policy: user-publication\n"},
		{"BadUserPublication", "verification:\n  userPublication: \"AAAA\"\n"},
		{"UnknownLevel", "log:\n  level: verbose\n"},
		{"UnknownFormat", "log:\n  format: xml\n"},
		{"NotYaml", "publications: [\n"},
	} {
		if _, err := parse([]byte(tc.raw), noEnv); errors.CodeOf(err) != errors.KsiInvalidFormatError {
			t.Errorf("%s: must fail with invalid format: %v", tc.name, err)
		}
	}
}

func testParseUserPublication(t *testing.T, _ ...interface{}) {
	h, err := hash.SHA2_256.Sum([]byte("publication"))
	if err != nil {
		t.Fatal("Failed to calculate hash: ", err)
	}
	pub, err := pdu.NewPublicationData(1500086400, h)
	if err != nil {
		t.Fatal("Failed to create publication data: ", err)
	}

	cfg, err := parse([]byte("verification:\n  policy: user-publication\n  userPublication: \""+pub.Base32()+"\"\n"), noEnv)
	if err != nil {
		t.Fatal("Failed to parse configuration: ", err)
	}
	parsed, err := pdu.PublicationDataFromString(cfg.Verification.UserPublication)
	if err != nil || !parsed.Equal(pub) {
		t.Error("User publication mismatch: ", err)
	}
}

func testEnvOverrides(t *testing.T, _ ...interface{}) {
	env := map[string]string{
		EnvPubFileURL:    "https://mirror.example.com/ksi-publications.bin",
		EnvRedisAddr:     "redis:6379",
		EnvRedisPassword: "from-env",
		EnvLogLevel:      "warning",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	cfg, err := parse([]byte(`
publications:
  file: "ksi-publications.bin"
cache:
  redis:
    addr: "localhost:6379"
log:
  level: debug
`), lookup)
	if err != nil {
		t.Fatal("Failed to parse configuration: ", err)
	}
	if cfg.Publications.URL != env[EnvPubFileURL] || cfg.Publications.File != "" {
		t.Error("Publications file URL must be overridden: ", cfg.Publications)
	}
	if cfg.Cache.Redis.Addr != "redis:6379" || cfg.Cache.Redis.Password != "from-env" {
		t.Error("Redis must be overridden: ", cfg.Cache.Redis)
	}
	if cfg.LogLevel() != log.WARNING {
		t.Error("Log level must be overridden: ", cfg.Log.Level)
	}

	// Overrides are validated as well.
	env[EnvLogLevel] = "loud"
	if _, err := parse(nil, lookup); errors.CodeOf(err) != errors.KsiInvalidFormatError {
		t.Error("Invalid override must fail: ", err)
	}
}

func testLoadFile(t *testing.T, _ ...interface{}) {
	path := filepath.Join(t.TempDir(), "ksi.yaml")
	if err := os.WriteFile(path, []byte("verification:\n  policy: key\n"), 0600); err != nil {
		t.Fatal("Failed to write configuration: ", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal("Failed to load configuration: ", err)
	}
	if cfg.Verification.Policy != PolicyKey {
		t.Error("Policy mismatch: ", cfg.Verification.Policy)
	}

	if err := os.WriteFile(path, []byte("verification:\n  policy: none\n"), 0600); err != nil {
		t.Fatal("Failed to write configuration: ", err)
	}
	if _, err := Load(path); errors.CodeOf(err) != errors.KsiInvalidFormatError {
		t.Error("Invalid file must fail with invalid format: ", err)
	}
}

func testLoadMissingFile(t *testing.T, _ ...interface{}) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); errors.CodeOf(err) != errors.KsiIoError {
		t.Error("Missing file must fail with IO error: ", err)
	}
}

func testNeedsPublicationsFile(t *testing.T, _ ...interface{}) {
	for policy, exp := range map[string]bool{
		PolicyDefault:          true,
		PolicyKey:              true,
		PolicyPublicationsFile: true,
		PolicyInternal:         false,
		PolicyCalendar:         false,
		PolicyUserPublication:  false,
	} {
		cfg := Default()
		cfg.Verification.Policy = policy
		if cfg.NeedsPublicationsFile() != exp {
			t.Errorf("Policy %s mismatch.", policy)
		}
	}
}
