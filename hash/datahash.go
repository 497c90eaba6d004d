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
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"github.com/guardtime/ksicore/errors"
)

// DataHash is an immutable hash value tagged with the algorithm that produced it. The zero value is not a valid
// hash (see IsZero). DataHash values are comparable with == and can be used as map keys.
type DataHash struct {
	// Imprint: algorithm id octet followed by the digest.
	imprint string
}

// New returns a hash value from the algorithm and the digest bytes.
//
// Possible return errors:
//  - KsiUnknownHashAlgorithm in case the algorithm is not defined;
//  - KsiInvalidArgumentError in case the digest length does not match the algorithm.
func New(a Algorithm, digest []byte) (DataHash, error) {
	if !a.Defined() {
		return DataHash{}, errors.New(errors.KsiUnknownHashAlgorithm).
			AppendMessage(fmt.Sprintf("Unknown hash algorithm: %d.", a))
	}
	if len(digest) != a.Size() {
		return DataHash{}, errors.New(errors.KsiInvalidArgumentError).
			AppendMessage(fmt.Sprintf("%s digest length must be %d, got %d.", a, a.Size(), len(digest)))
	}
	buf := make([]byte, 0, 1+len(digest))
	buf = append(buf, byte(a))
	buf = append(buf, digest...)
	return DataHash{imprint: string(buf)}, nil
}

// FromImprint returns a hash value from its imprint representation.
//
// Possible return errors:
//  - KsiInvalidFormatError in case the imprint is empty or its length does not match the algorithm;
//  - KsiUnknownHashAlgorithm in case the first octet is not a defined algorithm id.
func FromImprint(raw []byte) (DataHash, error) {
	if len(raw) == 0 {
		return DataHash{}, errors.New(errors.KsiInvalidFormatError).AppendMessage("Empty imprint.")
	}
	a := Algorithm(raw[0])
	if !a.Defined() {
		return DataHash{}, errors.New(errors.KsiUnknownHashAlgorithm).
			AppendMessage(fmt.Sprintf("Unknown hash algorithm id in imprint: 0x%02x.", raw[0]))
	}
	if len(raw) != 1+a.Size() {
		return DataHash{}, errors.New(errors.KsiInvalidFormatError).
			AppendMessage(fmt.Sprintf("Imprint length mismatch for %s: %d.", a, len(raw)))
	}
	return DataHash{imprint: string(raw)}, nil
}

// MustFromImprint is like FromImprint but panics on error. Intended for static test vectors.
func MustFromImprint(raw []byte) DataHash {
	h, err := FromImprint(raw)
	if err != nil {
		panic(err)
	}
	return h
}

// Zero returns the hash value with all digest bytes set to zero.
func (a Algorithm) Zero() DataHash {
	if !a.Defined() {
		return DataHash{}
	}
	h, _ := New(a, make([]byte, a.Size()))
	return h
}

// IsZero reports whether h is the uninitialized value.
func (h DataHash) IsZero() bool {
	return len(h.imprint) == 0
}

// Algorithm returns the hash function used to generate the digest, or SHA_NA for the zero value.
func (h DataHash) Algorithm() Algorithm {
	if h.IsZero() {
		return SHA_NA
	}
	return Algorithm(h.imprint[0])
}

// Digest returns a copy of the digest bytes.
func (h DataHash) Digest() []byte {
	if h.IsZero() {
		return nil
	}
	return []byte(h.imprint[1:])
}

// Imprint returns a copy of the imprint bytes.
func (h DataHash) Imprint() []byte {
	if h.IsZero() {
		return nil
	}
	return []byte(h.imprint)
}

// Equal reports whether both values are equal. The time taken is independent of the digest contents.
func (h DataHash) Equal(o DataHash) bool {
	return subtle.ConstantTimeCompare([]byte(h.imprint), []byte(o.imprint)) == 1
}

// String implements Stringer interface, eg. "SHA-256:0a1b...". Returns empty string for the zero value.
func (h DataHash) String() string {
	if h.IsZero() {
		return ""
	}
	return h.Algorithm().String() + ":" + hex.EncodeToString(h.Digest())
}
