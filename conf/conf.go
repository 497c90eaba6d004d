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

// Package conf loads the configuration of a verification run from a YAML file, with environment overrides for
// the deployment specific values.
//
// Example:
//   publications:
//     url: "https://verify.guardtime.com/ksi-publications.bin"
//     cnstr: "E=publications@guardtime.com"
//     ttl: 8h
//   cache:
//     redis:
//       addr: "localhost:6379"
//   verification:
//     policy: default
//   log:
//     level: info
package conf

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/log"
	"github.com/guardtime/ksicore/pdu"
	"github.com/guardtime/ksicore/publications"
)

// Environment variables overriding the file values.
const (
	EnvPubFileURL    = "KSI_PUBFILE_URL"
	EnvRedisAddr     = "KSI_REDIS_ADDR"
	EnvRedisPassword = "KSI_REDIS_PASSWORD"
	EnvLogLevel      = "KSI_LOG_LEVEL"
)

// Verification policy names.
const (
	PolicyDefault          = "default"
	PolicyInternal         = "internal"
	PolicyCalendar         = "calendar"
	PolicyKey              = "key"
	PolicyPublicationsFile = "publications-file"
	PolicyUserPublication  = "user-publication"
)

// Log output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Config is the configuration of a verification run.
type Config struct {
	Publications Publications `yaml:"publications"`
	Cache        Cache        `yaml:"cache"`
	Verification Verification `yaml:"verification"`
	Log          Log          `yaml:"log"`
}

// Publications describes where the publications file is received from and how it is trusted.
type Publications struct {
	// Download URL. Mutually exclusive with File.
	URL string `yaml:"url"`
	// Local publications file.
	File string `yaml:"file"`
	// Signing certificate subject constraints, eg. "E=publications@guardtime.com".
	CertConstraints string `yaml:"cnstr"`
	// Directory of trusted PEM certificates. If empty, the system certificate store is used.
	TrustedCertDir string `yaml:"trustedCertDir"`
	// Time the verified file is kept before it is downloaded again. 0 means the handler default.
	TTL time.Duration `yaml:"ttl"`
}

// Cache describes the shared publications file cache.
type Cache struct {
	Redis Redis `yaml:"redis"`
}

// Redis holds the connection parameters of the Redis cache. The cache is disabled if Addr is empty.
type Redis struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// Verification selects the verification policy.
type Verification struct {
	Policy           string `yaml:"policy"`
	ExtendingAllowed bool   `yaml:"extendingAllowed"`
	// Publication string, required by the user publication policy.
	UserPublication string `yaml:"userPublication"`
}

// Log configures the log output.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used for the values not present in the file.
func Default() *Config {
	return &Config{
		Verification: Verification{Policy: PolicyDefault},
		Log:          Log{Level: "info", Format: FormatText},
	}
}

// Load reads the configuration from the YAML file at path, applies the environment overrides and validates the
// result.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.KsiIoError).SetExtError(err).
			AppendMessage(fmt.Sprintf("Failed to read configuration file '%s'.", path))
	}
	cfg, err := Parse(raw)
	if err != nil {
		return nil, errors.KsiErr(err).AppendMessage(fmt.Sprintf("Invalid configuration file '%s'.", path))
	}
	return cfg, nil
}

// Parse decodes the YAML configuration, applies the environment overrides and validates the result. Unknown keys
// are rejected.
func Parse(raw []byte) (*Config, error) {
	return parse(raw, os.LookupEnv)
}

func parse(raw []byte, lookupEnv func(string) (string, bool)) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.New(errors.KsiInvalidFormatError).SetExtError(err).
			AppendMessage("Failed to decode configuration.")
	}

	cfg.applyEnv(lookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvPubFileURL); ok {
		c.Publications.URL = v
		c.Publications.File = ""
	}
	if v, ok := lookup(EnvRedisAddr); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := lookup(EnvRedisPassword); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Log.Level = v
	}
}

func invalid(format string, v ...interface{}) error {
	return errors.New(errors.KsiInvalidFormatError).AppendMessage(fmt.Sprintf(format, v...))
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New(errors.KsiInvalidArgumentError)
	}

	p := c.Publications
	if p.URL != "" && p.File != "" {
		return invalid("Publications file URL and local file are mutually exclusive.")
	}
	if p.TTL < 0 {
		return invalid("Negative publications file TTL: %s.", p.TTL)
	}
	if p.CertConstraints != "" {
		if _, err := publications.ParseCertConstraints(p.CertConstraints); err != nil {
			return errors.New(errors.KsiInvalidFormatError).SetExtError(err).
				AppendMessage("Invalid publications file certificate constraints.")
		}
	}

	if c.Cache.Redis.DB < 0 {
		return invalid("Negative Redis database index: %d.", c.Cache.Redis.DB)
	}

	switch c.Verification.Policy {
	case PolicyDefault, PolicyInternal, PolicyCalendar, PolicyKey, PolicyPublicationsFile:
	case PolicyUserPublication:
		if c.Verification.UserPublication == "" {
			return invalid("Policy '%s' requires user publication.", PolicyUserPublication)
		}
	default:
		return invalid("Unknown verification policy: '%s'.", c.Verification.Policy)
	}
	if c.Verification.UserPublication != "" {
		if _, err := pdu.PublicationDataFromString(c.Verification.UserPublication); err != nil {
			return errors.New(errors.KsiInvalidFormatError).SetExtError(err).AppendMessage("Invalid user publication.")
		}
	}

	if _, err := log.ParsePriority(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case FormatText, FormatJSON:
	default:
		return invalid("Unknown log format: '%s'.", c.Log.Format)
	}
	return nil
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() log.Priority {
	p, err := log.ParsePriority(c.Log.Level)
	if err != nil {
		return log.INFO
	}
	return p
}

// NeedsPublicationsFile reports whether the selected policy reads the publications file.
func (c *Config) NeedsPublicationsFile() bool {
	switch c.Verification.Policy {
	case PolicyDefault, PolicyKey, PolicyPublicationsFile:
		return true
	}
	return false
}
