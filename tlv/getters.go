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

// Uint64 interprets the value as a big-endian unsigned integer of at most 8 octets. An empty value is zero.
func (t *Tlv) Uint64() (uint64, error) {
	if t == nil {
		return 0, errors.New(errors.KsiInvalidArgumentError)
	}
	if len(t.value) > 8 {
		return 0, errors.New(errors.KsiInvalidFormatError).
			AppendMessage(fmt.Sprintf("TLV [%x] value for 64bit integer is too large (%d bytes).", t.Tag, len(t.value)))
	}
	var v uint64
	for _, b := range t.value {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// Utf8 interprets the value as a NUL terminated string. The terminating octet is left out.
func (t *Tlv) Utf8() (string, error) {
	if t == nil {
		return "", errors.New(errors.KsiInvalidArgumentError)
	}
	n := len(t.value)
	if n == 0 {
		return "", errors.New(errors.KsiInvalidFormatError).
			AppendMessage(fmt.Sprintf("TLV [%x] value for string is empty.", t.Tag))
	}
	if t.value[n-1] != 0 {
		return "", errors.New(errors.KsiInvalidFormatError).
			AppendMessage(fmt.Sprintf("TLV [%x] string must end with 0 octet.", t.Tag))
	}
	return string(t.value[:n-1]), nil
}

// DataHash interprets the value as a hash imprint.
func (t *Tlv) DataHash() (hash.DataHash, error) {
	if t == nil {
		return hash.DataHash{}, errors.New(errors.KsiInvalidArgumentError)
	}
	h, err := hash.FromImprint(t.value)
	if err != nil {
		return hash.DataHash{}, errors.KsiErr(err).AppendMessage(fmt.Sprintf("TLV [%x] contains invalid imprint.", t.Tag))
	}
	return h, nil
}
