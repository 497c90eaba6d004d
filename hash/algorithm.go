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

// Package hash implements the hash function identifiers (see Algorithm), their lifecycle status and the
// immutable hash value type DataHash.
//
// A DataHash is serialized as an 'imprint': a one-octet hash function identifier concatenated with the digest.
//
// The status of an algorithm (see Status) is always evaluated against a caller supplied policy time, usually the
// aggregation time of a signature, so that historical data remains verifiable after an algorithm is deprecated.
package hash

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"sort"
	"strings"
	"sync"

	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"

	"github.com/guardtime/ksicore/errors"
)

// Algorithm is the hash function identifier.
type Algorithm int

const (
	// SHA1 is SHA-1 algorithm. Deprecated as of 01.07.2016.
	SHA1 Algorithm = 0x00
	// SHA2_256 is SHA-256 algorithm.
	SHA2_256 Algorithm = 0x01
	// RIPEMD160 is RIPEMD-160 algorithm.
	RIPEMD160 Algorithm = 0x02
	// SHA2_384 is SHA-384 algorithm.
	SHA2_384 Algorithm = 0x04
	// SHA2_512 is SHA-512 algorithm.
	SHA2_512 Algorithm = 0x05
	// SHA3_224 is SHA3-224 algorithm.
	SHA3_224 Algorithm = 0x07
	// SHA3_256 is SHA3-256 algorithm.
	SHA3_256 Algorithm = 0x08
	// SHA3_384 is SHA3-384 algorithm.
	SHA3_384 Algorithm = 0x09
	// SHA3_512 is SHA3-512 algorithm.
	SHA3_512 Algorithm = 0x0a
	// SM3 algorithm. There is no built-in implementation, see RegisterHash().
	SM3 Algorithm = 0x0b

	// SHA_NA defines an invalid algorithm.
	SHA_NA Algorithm = 0x100
)

// Default is the recommended algorithm for hash computation.
const Default = SHA2_256

// Status describes the hash function state at a certain time.
//
// Functions are deprecated once collisions have become affordable: a signature using a deprecated function remains
// valid as long as its time is before the deprecation date. When 2nd pre-image resistance is broken, the function
// is marked obsolete and any use of it at or after the obsolete date fails the verification.
type Status byte

const (
	// Unknown algorithm.
	Unknown = Status(iota)
	// Normal function can be used for all hashing purposes with no restrictions.
	Normal
	// NotTrusted function is known but must not be relied upon.
	NotTrusted
	// Deprecated since the given date due to the loss of collision resistance.
	Deprecated
	// Obsolete since the given date due to loss of 2nd pre-image resistance.
	Obsolete
	// NotImplemented function is defined by the protocol, but no implementation is available.
	NotImplemented
)

var statusNames = [...]string{"Unknown", "Normal", "NotTrusted", "Deprecated", "Obsolete", "NotImplemented"}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", byte(s))
}

type algorithmInfo struct {
	// Digest length in bytes.
	size int
	// Underlying block size in bytes.
	blockSize int
	// Static status, refined by the deprecation and obsolete dates.
	status Status
	// Unix time the function has been marked as deprecated, 0 if not set.
	deprecatedFrom int64
	// Unix time the function has been marked as obsolete, 0 if not set.
	obsoleteFrom int64
	// Canonical name first, aliases after it.
	names []string
}

var algorithms = map[Algorithm]algorithmInfo{
	SHA1:      {20, 64, Normal, 1467331200, 0, []string{"SHA-1", "SHA1"}},
	SHA2_256:  {32, 64, Normal, 0, 0, []string{"SHA-256", "SHA2-256", "SHA-2", "SHA2", "SHA256", "DEFAULT"}},
	RIPEMD160: {20, 64, Normal, 0, 0, []string{"RIPEMD-160", "RIPEMD160"}},
	SHA2_384:  {48, 128, Normal, 0, 0, []string{"SHA-384", "SHA384", "SHA2-384"}},
	SHA2_512:  {64, 128, Normal, 0, 0, []string{"SHA-512", "SHA512", "SHA2-512"}},
	SHA3_224:  {28, 144, Normal, 0, 0, []string{"SHA3-224"}},
	SHA3_256:  {32, 136, Normal, 0, 0, []string{"SHA3-256"}},
	SHA3_384:  {48, 104, Normal, 0, 0, []string{"SHA3-384"}},
	SHA3_512:  {64, 72, Normal, 0, 0, []string{"SHA3-512"}},
	SM3:       {32, 64, NotImplemented, 0, 0, []string{"SM-3", "SM3"}},
}

var (
	implMu sync.RWMutex
	impls  = map[Algorithm]func() hash.Hash{
		SHA1:      sha1.New,
		SHA2_256:  sha256.New,
		RIPEMD160: ripemd160.New,
		SHA2_384:  sha512.New384,
		SHA2_512:  sha512.New,
		SHA3_224:  sha3.New224,
		SHA3_256:  sha3.New256,
		SHA3_384:  sha3.New384,
		SHA3_512:  sha3.New512,
	}
)

// RegisterHash registers a function that returns a new instance of the given hash function. It is intended for
// algorithms that have no built-in implementation (eg. SM3). Panics if the algorithm is not defined.
func RegisterHash(a Algorithm, f func() hash.Hash) {
	if !a.Defined() {
		panic(fmt.Sprintf("RegisterHash() unknown hash function: %d.", a))
	}
	implMu.Lock()
	defer implMu.Unlock()
	if f == nil {
		delete(impls, a)
		return
	}
	impls[a] = f
}

func implementation(a Algorithm) func() hash.Hash {
	implMu.RLock()
	defer implMu.RUnlock()
	return impls[a]
}

// Defined reports whether the given hash function is defined by the protocol.
func (a Algorithm) Defined() bool {
	_, ok := algorithms[a]
	return ok
}

// Registered reports whether the hash value can be calculated with the given algorithm.
func (a Algorithm) Registered() bool {
	return a.Defined() && implementation(a) != nil
}

// String returns the canonical name of the algorithm, or empty string for an unknown algorithm.
func (a Algorithm) String() string {
	if info, ok := algorithms[a]; ok {
		return info.names[0]
	}
	return ""
}

// ByName returns the hash function specified by the case insensitive name. Accepted names include "default",
// "sha-1", "sha1", "sha-256", "sha2-256", "sha2", "sha256", "ripemd-160", "sha-384", "sha-512", "sha3-224",
// "sha3-256", "sha3-384", "sha3-512", "sm-3" and "sm3".
//
// Returns KsiUnknownHashAlgorithm error in case of unrecognized name.
func ByName(name string) (Algorithm, error) {
	for a, info := range algorithms {
		for _, n := range info.names {
			if strings.EqualFold(n, name) {
				return a, nil
			}
		}
	}
	return SHA_NA, errors.New(errors.KsiUnknownHashAlgorithm).
		AppendMessage(fmt.Sprintf("Unknown hash algorithm: %s.", name))
}

// Size returns the digest length in bytes, or -1 for an unknown algorithm.
func (a Algorithm) Size() int {
	if info, ok := algorithms[a]; ok {
		return info.size
	}
	return -1
}

// BlockSize returns the size of the data block the algorithm operates upon in bytes, or -1 for an unknown algorithm.
func (a Algorithm) BlockSize() int {
	if info, ok := algorithms[a]; ok {
		return info.blockSize
	}
	return -1
}

// DeprecatedFrom returns the Unix time the function has been marked as deprecated, or 0 if not set.
func (a Algorithm) DeprecatedFrom() (int64, error) {
	if info, ok := algorithms[a]; ok {
		return info.deprecatedFrom, nil
	}
	return 0, errors.New(errors.KsiUnknownHashAlgorithm).
		AppendMessage(fmt.Sprintf("Unknown hash algorithm: %d.", a))
}

// ObsoleteFrom returns the Unix time the function has been marked as obsolete, or 0 if not set.
func (a Algorithm) ObsoleteFrom() (int64, error) {
	if info, ok := algorithms[a]; ok {
		return info.obsoleteFrom, nil
	}
	return 0, errors.New(errors.KsiUnknownHashAlgorithm).
		AppendMessage(fmt.Sprintf("Unknown hash algorithm: %d.", a))
}

// StatusAt returns the status of the hash function at the given Unix time.
//
// Obsolete takes precedence over Deprecated. An algorithm statically marked NotImplemented is reported as Normal
// once an implementation has been registered.
func (a Algorithm) StatusAt(at int64) Status {
	info, ok := algorithms[a]
	if !ok {
		return Unknown
	}
	switch {
	case info.obsoleteFrom != 0 && info.obsoleteFrom <= at:
		return Obsolete
	case info.deprecatedFrom != 0 && info.deprecatedFrom <= at:
		return Deprecated
	case info.status == NotImplemented && a.Registered():
		return Normal
	}
	return info.status
}

// IsTrustedAt reports whether the algorithm can be relied upon without restrictions at the given Unix time.
func (a Algorithm) IsTrustedAt(at int64) bool {
	return a.StatusAt(at) == Normal
}

// IsDeprecatedAt reports whether the algorithm has been deprecated at the given Unix time.
func (a Algorithm) IsDeprecatedAt(at int64) bool {
	info, ok := algorithms[a]
	return ok && info.deprecatedFrom != 0 && info.deprecatedFrom <= at
}

// IsObsoleteAt reports whether the algorithm has been obsoleted at the given Unix time.
func (a Algorithm) IsObsoleteAt(at int64) bool {
	info, ok := algorithms[a]
	return ok && info.obsoleteFrom != 0 && info.obsoleteFrom <= at
}

// ListDefined returns the defined hash functions in ascending id order.
func ListDefined() []Algorithm {
	tmp := make([]Algorithm, 0, len(algorithms))
	for a := range algorithms {
		tmp = append(tmp, a)
	}
	sort.Slice(tmp, func(i, j int) bool { return tmp[i] < tmp[j] })
	return tmp
}

// ListSupported returns the hash functions that can be used for computation in ascending id order.
func ListSupported() []Algorithm {
	var tmp []Algorithm
	for _, a := range ListDefined() {
		if a.Registered() {
			tmp = append(tmp, a)
		}
	}
	return tmp
}
