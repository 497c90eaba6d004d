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

package hash

import (
	"fmt"
	"hash"

	"github.com/guardtime/ksicore/errors"
)

// DataHasher is the data hash computation object.
type DataHasher struct {
	algo Algorithm
	hsr  hash.Hash
}

// New returns a new hasher for the algorithm.
//
// Fails fast with KsiHashAlgorithmNotImplemented in case there is no implementation for the algorithm, and with
// KsiUnknownHashAlgorithm in case the algorithm is not defined.
func (a Algorithm) New() (*DataHasher, error) {
	if !a.Defined() {
		return nil, errors.New(errors.KsiUnknownHashAlgorithm).
			AppendMessage(fmt.Sprintf("Hash algorithm is not supported: %d.", a))
	}
	f := implementation(a)
	if f == nil {
		return nil, errors.New(errors.KsiHashAlgorithmNotImplemented).
			AppendMessage(fmt.Sprintf("%s hash function is not implemented.", a))
	}
	return &DataHasher{algo: a, hsr: f()}, nil
}

// Sum is a shortcut for computing the hash of the concatenation of the data chunks.
func (a Algorithm) Sum(data ...[]byte) (DataHash, error) {
	h, err := a.New()
	if err != nil {
		return DataHash{}, err
	}
	for _, d := range data {
		if _, err := h.Write(d); err != nil {
			return DataHash{}, err
		}
	}
	return h.Sum()
}

// Write (via the embedded io.Writer interface) adds more data to the running hash.
// In case of KsiInvalidArgumentError error (e.g. h is nil), function returns non
// standard -1 as count of bytes written.
func (h *DataHasher) Write(p []byte) (int, error) {
	if h == nil || h.hsr == nil {
		return -1, errors.New(errors.KsiInvalidArgumentError)
	}
	n, err := h.hsr.Write(p)
	if err != nil {
		return n, errors.New(errors.KsiCryptoFailure).SetExtError(err)
	}
	return n, nil
}

// Sum returns the hash value of the data written so far. It does not change the underlying hash state.
func (h *DataHasher) Sum() (DataHash, error) {
	if h == nil || h.hsr == nil {
		return DataHash{}, errors.New(errors.KsiInvalidArgumentError)
	}
	return New(h.algo, h.hsr.Sum(nil))
}

// Reset resets the hasher to its initial state.
func (h *DataHasher) Reset() {
	if h == nil || h.hsr == nil {
		return
	}
	h.hsr.Reset()
}

// Algorithm returns the hash function of the hasher.
func (h *DataHasher) Algorithm() Algorithm {
	if h == nil {
		return SHA_NA
	}
	return h.algo
}

// Size returns the resulting digest length in bytes. In case of an error, a negative value is returned.
func (h *DataHasher) Size() int {
	if h == nil || h.hsr == nil {
		return -1
	}
	return h.algo.Size()
}
