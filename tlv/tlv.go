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

// Package tlv implements the Type-Length-Value tree the KSI data structures are encoded with.
//
// A TLV element has a header with flags, a 13-bit type tag and the value length, followed by the value. The value of
// a composite element is a sequence of nested elements. The header comes in two forms:
//  - TLV8:  1 octet flags+tag, 1 octet length (tag <= 0x1f, length <= 0xff);
//  - TLV16: 2 octets flags+tag, 2 octets length.
//
// Tlv values are immutable once built: Parse copies the input, accessors return copies.
package tlv

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/guardtime/ksicore/errors"
)

// HeaderMask holds mask values for different bits in TLV header.
type HeaderMask byte

const (
	// HeaderFlag16 is mask for 16bit flag.
	HeaderFlag16 = HeaderMask(0x80)
	// HeaderFlagN is mask for Non-Critical flag.
	HeaderFlagN = HeaderMask(0x40)
	// HeaderFlagF is mask for Forward Unknown flag.
	HeaderFlagF = HeaderMask(0x20)
	// HeaderTypeMask is mask for type in the first header byte.
	HeaderTypeMask = HeaderMask(0x1f)
)

const (
	// MaxValueLength is the maximum size of the TLV value.
	MaxValueLength = 0xffff
	// MaxTagValue is the maximum size of the TLV tag value.
	MaxTagValue = 0x1fff
)

// Tlv is a single TLV element.
type Tlv struct {
	// Tag is the TLV type.
	Tag uint16
	// NonCritical is set if the element may be ignored by a receiver that does not know it.
	NonCritical bool
	// ForwardUnknown is set if the element may be forwarded by a receiver that does not know it.
	ForwardUnknown bool

	// Set if the element was decoded with the 16-bit header.
	hdr16 bool
	value []byte
}

// Parse decodes exactly one TLV element from raw. Trailing bytes are a format error.
func Parse(raw []byte) (*Tlv, error) {
	t, n, err := decode(raw)
	if err != nil {
		return nil, err
	}
	if n != len(raw) {
		return nil, errors.New(errors.KsiInvalidFormatError).
			AppendMessage(fmt.Sprintf("Unexpected %d trailing bytes after TLV.", len(raw)-n))
	}
	return t, nil
}

// ParseList decodes a concatenation of TLV elements.
func ParseList(raw []byte) ([]*Tlv, error) {
	var list []*Tlv
	for len(raw) > 0 {
		t, n, err := decode(raw)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
		raw = raw[n:]
	}
	return list, nil
}

// ReadFrom decodes one TLV element from the stream.
func ReadFrom(r io.Reader) (*Tlv, error) {
	if r == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}

	hdr := make([]byte, 4)
	if _, err := io.ReadFull(r, hdr[:2]); err != nil {
		return nil, errors.New(errors.KsiIoError).SetExtError(err).AppendMessage("Unable to read TLV header.")
	}
	hdrLen := 2
	if hdr[0]&byte(HeaderFlag16) != 0 {
		if _, err := io.ReadFull(r, hdr[2:4]); err != nil {
			return nil, errors.New(errors.KsiIoError).SetExtError(err).AppendMessage("Unable to read TLV16 header.")
		}
		hdrLen = 4
	}
	t, valueLen, _, err := decodeHeader(hdr[:hdrLen])
	if err != nil {
		return nil, err
	}
	t.value = make([]byte, valueLen)
	if _, err := io.ReadFull(r, t.value); err != nil {
		return nil, errors.New(errors.KsiIoError).SetExtError(err).AppendMessage("Unable to read TLV value.")
	}
	return t, nil
}

func decodeHeader(raw []byte) (*Tlv, int, int, error) {
	if len(raw) < 2 {
		return nil, 0, 0, errors.New(errors.KsiInvalidFormatError).AppendMessage("Not enough bytes for TLV header.")
	}
	t := &Tlv{
		NonCritical:    raw[0]&byte(HeaderFlagN) != 0,
		ForwardUnknown: raw[0]&byte(HeaderFlagF) != 0,
		Tag:            uint16(raw[0] & byte(HeaderTypeMask)),
	}
	if raw[0]&byte(HeaderFlag16) == 0 {
		return t, int(raw[1]), 2, nil
	}
	if len(raw) < 4 {
		return nil, 0, 0, errors.New(errors.KsiInvalidFormatError).AppendMessage("Not enough bytes for TLV16 header.")
	}
	t.Tag = t.Tag<<8 | uint16(raw[1])
	t.hdr16 = true
	return t, int(binary.BigEndian.Uint16(raw[2:4])), 4, nil
}

func decode(raw []byte) (*Tlv, int, error) {
	t, valueLen, hdrLen, err := decodeHeader(raw)
	if err != nil {
		return nil, 0, err
	}
	if len(raw) < hdrLen+valueLen {
		return nil, 0, errors.New(errors.KsiInvalidFormatError).
			AppendMessage(fmt.Sprintf("TLV [%x] value truncated: expected %d bytes, got %d.",
				t.Tag, valueLen, len(raw)-hdrLen))
	}
	t.value = append([]byte(nil), raw[hdrLen:hdrLen+valueLen]...)
	return t, hdrLen + valueLen, nil
}

// Value returns a copy of the TLV value.
func (t *Tlv) Value() []byte {
	if t == nil {
		return nil
	}
	return append([]byte(nil), t.value...)
}

// Len returns the value length.
func (t *Tlv) Len() int {
	if t == nil {
		return 0
	}
	return len(t.value)
}

// Bytes returns the encoded TLV element (header and value). A decoded element keeps its header form, so that the
// input is reproduced exactly. A built element uses the shortest header form.
func (t *Tlv) Bytes() []byte {
	if t == nil {
		return nil
	}
	var flags byte
	if t.NonCritical {
		flags |= byte(HeaderFlagN)
	}
	if t.ForwardUnknown {
		flags |= byte(HeaderFlagF)
	}

	var buf bytes.Buffer
	if !t.hdr16 && t.Tag <= uint16(HeaderTypeMask) && len(t.value) <= 0xff {
		buf.Grow(2 + len(t.value))
		buf.WriteByte(flags | byte(t.Tag))
		buf.WriteByte(byte(len(t.value)))
	} else {
		buf.Grow(4 + len(t.value))
		buf.WriteByte(byte(HeaderFlag16) | flags | byte(t.Tag>>8))
		buf.WriteByte(byte(t.Tag))
		buf.WriteByte(byte(len(t.value) >> 8))
		buf.WriteByte(byte(len(t.value)))
	}
	buf.Write(t.value)
	return buf.Bytes()
}

// Children decodes the value as a list of nested elements. The result is not cached, every call returns a new
// list.
func (t *Tlv) Children() ([]*Tlv, error) {
	if t == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	list, err := ParseList(t.value)
	if err != nil {
		return nil, errors.KsiErr(err).AppendMessage(fmt.Sprintf("Unable to parse nested elements of TLV [%x].", t.Tag))
	}
	return list, nil
}

// Child returns the first nested element with the given tag, or nil if there is none.
func (t *Tlv) Child(tag uint16) (*Tlv, error) {
	list, err := t.ChildrenByTag(tag)
	if err != nil || len(list) == 0 {
		return nil, err
	}
	return list[0], nil
}

// ChildrenByTag returns the nested elements with the given tag in encoding order.
func (t *Tlv) ChildrenByTag(tag uint16) ([]*Tlv, error) {
	list, err := t.Children()
	if err != nil {
		return nil, err
	}
	var res []*Tlv
	for _, c := range list {
		if c.Tag == tag {
			res = append(res, c)
		}
	}
	return res, nil
}

// String implements Stringer interface.
func (t *Tlv) String() string {
	if t == nil {
		return ""
	}
	var flags string
	if t.NonCritical {
		flags += ",N"
	}
	if t.ForwardUnknown {
		flags += ",F"
	}
	return fmt.Sprintf("TLV[%x%s]:%x", t.Tag, flags, t.value)
}
