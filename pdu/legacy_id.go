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
	"encoding/hex"
	"fmt"
	"unicode/utf8"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/log"
)

const (
	legacyIDRawLen  = 29
	legacyIDMaxStr  = 25
	legacyIDHdrHigh = 0x03
	legacyIDHdrLow  = 0x00
	legacyIDStrPos  = 3
)

// LegacyID is a client identifier converted from a legacy signature. The value is exactly 29 octets:
//  +------+------+---------+------------------+------------------+
//  |    Header   |  StrLen |    UTF8 string   |      Padding     |
//  +------+------+---------+------------------+------------------+
//  | 0x03 | 0x00 |    x    |        ...       |0x00{1..25-StrLen}|
//  +------+------+---------+------------------+------------------+
// The leading 03 octet is an invalid hash algorithm identifier, so the value can never be confused with an imprint.
type LegacyID struct {
	clientID string
	raw      []byte
}

// NewLegacyID encodes the client identifier. The identifier may not exceed 25 octets.
func NewLegacyID(clientID string) (*LegacyID, error) {
	if len(clientID) > legacyIDMaxStr {
		return nil, errors.New(errors.KsiInvalidArgumentError).
			AppendMessage(fmt.Sprintf("Legacy ID client identifier too long: %d octets.", len(clientID)))
	}
	if !utf8.ValidString(clientID) {
		return nil, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Legacy ID must be a valid UTF-8 string.")
	}
	raw := make([]byte, legacyIDRawLen)
	raw[0] = legacyIDHdrHigh
	raw[1] = legacyIDHdrLow
	raw[2] = byte(len(clientID))
	copy(raw[legacyIDStrPos:], clientID)
	return &LegacyID{clientID: clientID, raw: raw}, nil
}

// legacyIDFromBytes validates and decodes the 29 octet legacy ID value.
func legacyIDFromBytes(value []byte) (*LegacyID, error) {
	if len(value) != legacyIDRawLen {
		log.Debug("Legacy ID data length mismatch: ", hex.EncodeToString(value))
		return nil, errors.New(errors.KsiInvalidFormatError).AppendMessage("Legacy ID data length mismatch.")
	}
	if value[0] != legacyIDHdrHigh || value[1] != legacyIDHdrLow {
		log.Debug("Legacy ID header mismatch: ", hex.EncodeToString(value))
		return nil, errors.New(errors.KsiInvalidFormatError).AppendMessage("Legacy ID header mismatch.")
	}
	strLen := int(value[2])
	if strLen > legacyIDMaxStr {
		log.Debug("Legacy ID string length mismatch: ", hex.EncodeToString(value))
		return nil, errors.New(errors.KsiInvalidFormatError).AppendMessage("Legacy ID string length mismatch.")
	}
	for _, b := range value[legacyIDStrPos+strLen:] {
		if b != 0 {
			log.Debug("Legacy ID padding mismatch: ", hex.EncodeToString(value))
			return nil, errors.New(errors.KsiInvalidFormatError).AppendMessage("Legacy ID padding mismatch.")
		}
	}
	str := value[legacyIDStrPos : legacyIDStrPos+strLen]
	if !utf8.Valid(str) {
		return nil, errors.New(errors.KsiInvalidFormatError).AppendMessage("Legacy ID is not a valid UTF-8 string.")
	}
	return &LegacyID{
		clientID: string(str),
		raw:      append([]byte(nil), value...),
	}, nil
}

// ClientID returns the embedded client identifier.
func (l *LegacyID) ClientID() string {
	if l == nil {
		return ""
	}
	return l.clientID
}

// Bytes returns the 29 octet encoded value.
func (l *LegacyID) Bytes() []byte {
	if l == nil {
		return nil
	}
	return append([]byte(nil), l.raw...)
}
