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

// Package sysconf loads the configuration of the system tests, ie. tests that need external resources such as a
// publications file server or a Redis instance.
package sysconf

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Configuration is the system test configuration.
//
// Example:
//   pubfile:
//     url: "https://verify.guardtime.com/ksi-publications.bin"
//     cnstr: "1.2.840.113549.1.9.1=publications@guardtime.com"
//   redis:
//     addr: "localhost:6379"
type Configuration struct {
	Pubfile Pubfile `yaml:"pubfile"`
	Redis   Redis   `yaml:"redis"`
}

// Pubfile holds the publications file location and the signing certificate constraints.
type Pubfile struct {
	URL   string `yaml:"url"`
	Cnstr string `yaml:"cnstr"`
}

// Redis holds the connection parameters of the publications file cache.
type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// New reads the configuration from the YAML file at path.
func New(path string) (*Configuration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := new(Configuration)
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
