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

package tlv

import (
	"fmt"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/hash"
)

// Flags are the optional TLV header flags passed to the constructors.
type Flags byte

const (
	// NonCritical marks the element as non-critical.
	NonCritical = Flags(HeaderFlagN)
	// ForwardUnknown marks the element as forwardable.
	ForwardUnknown = Flags(HeaderFlagF)
)

// NewRaw returns a TLV element with the given binary value.
func NewRaw(tag uint16, value []byte, flags ...Flags) (*Tlv, error) {
	if tag > MaxTagValue {
		return nil, errors.New(errors.KsiInvalidFormatError).
			AppendMessage(fmt.Sprintf("TLV tag exceeds maximum range: %x.", tag))
	}
	if len(value) > MaxValueLength {
		return nil, errors.New(errors.KsiBufferOverflow).
			AppendMessage(fmt.Sprintf("TLV [%x] value exceeds maximum length: %d.", tag, len(value)))
	}
	t := &Tlv{Tag: tag, value: append([]byte(nil), value...)}
	for _, f := range flags {
		t.NonCritical = t.NonCritical || f&NonCritical != 0
		t.ForwardUnknown = t.ForwardUnknown || f&ForwardUnknown != 0
	}
	return t, nil
}

// NewNested returns a composite TLV element. Nil children are skipped, which allows optional elements to be
// passed as is.
func NewNested(tag uint16, children []*Tlv, flags ...Flags) (*Tlv, error) {
	var value []byte
	for _, c := range children {
		if c == nil {
			continue
		}
		value = append(value, c.Bytes()...)
	}
	return NewRaw(tag, value, flags...)
}

// NewUint64 returns a TLV element holding v as a minimal big-endian integer. Zero is encoded as an empty value.
func NewUint64(tag uint16, v uint64, flags ...Flags) (*Tlv, error) {
	var buf []byte
	for ; v > 0; v >>= 8 {
		buf = append([]byte{byte(v)}, buf...)
	}
	return NewRaw(tag, buf, flags...)
}

// NewUtf8 returns a TLV element holding the NUL terminated string.
func NewUtf8(tag uint16, s string, flags ...Flags) (*Tlv, error) {
	return NewRaw(tag, append([]byte(s), 0), flags...)
}

// NewImprint returns a TLV element holding the imprint of the hash value.
func NewImprint(tag uint16, h hash.DataHash, flags ...Flags) (*Tlv, error) {
	if h.IsZero() {
		return nil, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing hash value.")
	}
	return NewRaw(tag, h.Imprint(), flags...)
}
