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

package pdu

import (
	"path/filepath"
	"testing"

	"github.com/guardtime/ksicore/hash"
)

var testLogDir = filepath.Join("..", "test", "out", "pdu")

func sum(t *testing.T, alg hash.Algorithm, data ...[]byte) hash.DataHash {
	t.Helper()
	h, err := alg.Sum(data...)
	if err != nil {
		t.Fatal("Failed to calculate hash: ", err)
	}
	return h
}

func siblingLink(t *testing.T, dir LinkDirection, corr int, seed string) *ChainLink {
	t.Helper()
	l, err := NewSiblingHashLink(dir, corr, sum(t, hash.SHA2_256, []byte(seed)))
	if err != nil {
		t.Fatal("Failed to create link: ", err)
	}
	return l
}
