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
	"encoding/binary"
	"fmt"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/hash"
	"github.com/guardtime/ksicore/tlv"
)

const (
	tagMetadata = 0x04

	tagMetaClientID  = 0x01
	tagMetaMachineID = 0x02
	tagMetaSeqNr     = 0x03
	tagMetaReqTime   = 0x04
	tagMetaPadding   = 0x1e
)

// Metadata incorporates the client identity and other information about the request into the hash chain. The
// 'client identifier' is mandatory, the 'machine identifier', 'sequence number' and 'request time' are optional.
//
// The 'padding' element (N and F flags set) makes the value length even, so that the metadata can not be confused
// with a sibling hash imprint, which always has an odd length.
//
// The hashed value is the raw value exactly as decoded, unknown non-critical elements included.
type Metadata struct {
	clientID  string
	machineID *string
	seqNr     *uint64
	reqTime   *uint64

	hasPadding bool
	raw        []byte
}

type (
	// MetadataOption is a functional optional value setter.
	MetadataOption func(*metadata) error

	metadata struct {
		obj Metadata
	}
)

// MetadataMachineID is setter for the optional machine ID value.
func MetadataMachineID(id string) MetadataOption {
	return func(m *metadata) error {
		if m == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing metadata base object.")
		}
		m.obj.machineID = &id
		return nil
	}
}

// MetadataSequenceNr is setter for the optional sequence number value.
func MetadataSequenceNr(n uint64) MetadataOption {
	return func(m *metadata) error {
		if m == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing metadata base object.")
		}
		m.obj.seqNr = &n
		return nil
	}
}

// MetadataReqTime is setter for the optional request time value.
func MetadataReqTime(t uint64) MetadataOption {
	return func(m *metadata) error {
		if m == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing metadata base object.")
		}
		m.obj.reqTime = &t
		return nil
	}
}

// NewMetadata returns a new metadata instance. The padding element is always added.
func NewMetadata(clientID string, opts ...MetadataOption) (*Metadata, error) {
	tmp := metadata{obj: Metadata{clientID: clientID}}
	for _, setter := range opts {
		if setter == nil {
			return nil, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Provided option is nil.")
		}
		if err := setter(&tmp); err != nil {
			return nil, errors.KsiErr(err).AppendMessage("Unable to initialize metadata.")
		}
	}

	body, err := tmp.obj.encodeFields()
	if err != nil {
		return nil, err
	}
	// The padding element adds either 3 or 4 octets.
	padValue := []byte{0x01}
	if len(body)%2 == 0 {
		padValue = []byte{0x01, 0x01}
	}
	pad, err := tlv.NewRaw(tagMetaPadding, padValue, tlv.NonCritical, tlv.ForwardUnknown)
	if err != nil {
		return nil, err
	}
	tmp.obj.raw = append(pad.Bytes(), body...)
	tmp.obj.hasPadding = true
	return &tmp.obj, nil
}

func (m *Metadata) encodeFields() ([]byte, error) {
	var enc encoder
	enc.add(tlv.NewUtf8(tagMetaClientID, m.clientID))
	if m.machineID != nil {
		enc.add(tlv.NewUtf8(tagMetaMachineID, *m.machineID))
	}
	if m.seqNr != nil {
		enc.add(tlv.NewUint64(tagMetaSeqNr, *m.seqNr))
	}
	if m.reqTime != nil {
		enc.add(tlv.NewUint64(tagMetaReqTime, *m.reqTime))
	}
	t, err := enc.build(tagMetadata)
	if err != nil {
		return nil, err
	}
	return t.Value(), nil
}

type metadataTlv struct {
	clientID  *string  `tlv:"1,utf8"`
	machineID *string  `tlv:"2,utf8"`
	seqNr     *uint64  `tlv:"3,int"`
	reqTime   *uint64  `tlv:"4,int"`
	padding   *tlv.Tlv `tlv:"1e,tlvobj"`
}

func newMetadataFromTlv(t *tlv.Tlv) (*Metadata, error) {
	var d metadataTlv
	if err := decode(tmplMetadata, t, &d); err != nil {
		return nil, err
	}
	if d.clientID == nil {
		return nil, errors.New(errors.KsiInvalidFormatError).
			AppendMessage("AggregationChainLink metadata does not contain clientId element")
	}
	return &Metadata{
		clientID:   *d.clientID,
		machineID:  d.machineID,
		seqNr:      d.seqNr,
		reqTime:    d.reqTime,
		hasPadding: d.padding != nil,
		raw:        t.Value(),
	}, nil
}

// ClientID returns the client identifier.
func (m *Metadata) ClientID() string {
	if m == nil {
		return ""
	}
	return m.clientID
}

// MachineID returns the machine identifier, or an empty string if not present.
func (m *Metadata) MachineID() string {
	if m == nil || m.machineID == nil {
		return ""
	}
	return *m.machineID
}

// SequenceNr returns the sequence number, or 0 if not present.
func (m *Metadata) SequenceNr() uint64 {
	if m == nil || m.seqNr == nil {
		return 0
	}
	return *m.seqNr
}

// ReqTime returns the request time, or 0 if not present.
func (m *Metadata) ReqTime() uint64 {
	if m == nil || m.reqTime == nil {
		return 0
	}
	return *m.reqTime
}

// HasPadding reports whether the metadata contains the padding element.
func (m *Metadata) HasPadding() bool {
	return m != nil && m.hasPadding
}

// Value returns the metadata value as it is hashed into the chain.
func (m *Metadata) Value() []byte {
	if m == nil {
		return nil
	}
	return append([]byte(nil), m.raw...)
}

// Tlv returns the metadata element.
func (m *Metadata) Tlv() (*tlv.Tlv, error) {
	if m == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	return tlv.NewRaw(tagMetadata, m.raw)
}

// VerifyPadding checks the structure of the metadata value. If the padding element is present, it must be encoded
// in TLV8 form with N and F flags, hold either 01 or 01 01, and the value length must be even. Without padding,
// the value must not be interpretable as a hash imprint.
func (m *Metadata) VerifyPadding() error {
	if m == nil {
		return errors.New(errors.KsiInvalidArgumentError)
	}

	if !m.hasPadding {
		if len(m.raw) == 0 {
			return nil
		}
		if alg := hash.Algorithm(m.raw[0]); alg.Defined() && alg.Size()+1 == len(m.raw) {
			return paddingErr("Metadata could be interpreted as imprint.")
		}
		return nil
	}

	for off := 0; off < len(m.raw); {
		is16 := m.raw[off]&byte(tlv.HeaderFlag16) != 0
		hdrLen, valLen := 2, 0
		if is16 {
			if off+4 > len(m.raw) {
				return paddingErr("Metadata value truncated.")
			}
			hdrLen = 4
			valLen = int(binary.BigEndian.Uint16(m.raw[off+2 : off+4]))
		} else {
			if off+2 > len(m.raw) {
				return paddingErr("Metadata value truncated.")
			}
			valLen = int(m.raw[off+1])
		}
		if off+hdrLen+valLen > len(m.raw) {
			return paddingErr("Metadata value truncated.")
		}
		el, err := tlv.Parse(m.raw[off : off+hdrLen+valLen])
		if err != nil {
			return err
		}
		off += hdrLen + valLen

		if el.Tag != tagMetaPadding {
			continue
		}
		if is16 {
			return paddingErr("Metadata padding not encoded as TLV8.")
		}
		if !el.NonCritical || !el.ForwardUnknown {
			return paddingErr("Metadata padding does not have N and F flags set.")
		}
		switch v := el.Value(); {
		case len(v) == 1 && v[0] == 0x01:
		case len(v) == 2 && v[0] == 0x01 && v[1] == 0x01:
		case len(v) == 1 || len(v) == 2:
			return paddingErr("Metadata padding has invalid value.")
		default:
			return paddingErr("Metadata padding has invalid length.")
		}
	}
	if len(m.raw)%2 != 0 {
		return paddingErr("Metadata value length is not even.")
	}
	return nil
}

func paddingErr(msg string) error {
	return errors.New(errors.KsiInvalidFormatError).AppendMessage(msg)
}

// String implements fmt.(Stringer) interface.
func (m *Metadata) String() string {
	if m == nil {
		return ""
	}
	return fmt.Sprintf("Client ID: '%s'; Machine ID: '%s'; Sequence number: %d; Request time: %d",
		m.ClientID(), m.MachineID(), m.SequenceNr(), m.ReqTime())
}
