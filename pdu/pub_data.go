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
	"encoding/base32"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"hash/crc32"
	"strconv"
	"strings"
	"time"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/hash"
	"github.com/guardtime/ksicore/log"
	"github.com/guardtime/ksicore/tlv"
)

const (
	tagPubDataTime = 0x02
	tagPubDataHash = 0x04

	pubStringGroup = 6
)

// PublicationData is the published data containing:
//  * 'publication time': represented as a 64-bit unsigned integer;
//  * 'published hash': output hash value of the calendar hash chain at the publication time.
type PublicationData struct {
	pubTime uint64
	pubHash hash.DataHash
}

// NewPublicationData returns publication data for the calendar root hash h at time t.
func NewPublicationData(t uint64, h hash.DataHash) (*PublicationData, error) {
	if h.IsZero() {
		return nil, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing published hash.")
	}
	return &PublicationData{pubTime: t, pubHash: h}, nil
}

type publicationDataTlv struct {
	pubTime *uint64        `tlv:"2,int,C1"`
	pubHash *hash.DataHash `tlv:"4,imp,C1"`
}

// NewPublicationDataFromTlv decodes the publication data element.
func NewPublicationDataFromTlv(t *tlv.Tlv) (*PublicationData, error) {
	var d publicationDataTlv
	if err := decode(tmplPublicationData, t, &d); err != nil {
		return nil, err
	}
	return &PublicationData{pubTime: *d.pubTime, pubHash: *d.pubHash}, nil
}

// PublicationDataFromString parses a publication string.
//
// A publication string represents the published data in a form suitable for printed media and manual entry. It is
// constructed as follows:
//  1. The publication time as a 64-bit big-endian integer (leading zeros preserved), followed by the published
//     hash imprint.
//  2. The CRC-32 checksum of the above is appended.
//  3. The result is encoded in base32 and optionally broken into groups by dashes.
//
// For example, the publication string for 2009-02-15T00:00:00Z:
//  AAAAAA-CJS5NQ-AAPOD6-6I7U75-PD6RDO-PCM7PZ-V4RWCG-Y4LPSE-6AQKXC-YUDHET-M4WE23-XFPW6G
func PublicationDataFromString(s string) (*PublicationData, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "-", "")
	if s == "" {
		return nil, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Empty publication string.")
	}
	raw, err := base32.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.New(errors.KsiInvalidFormatError).SetExtError(err).
			AppendMessage(fmt.Sprintf("Unable to decode base32 string: '%s'", s))
	}
	if len(raw) < 8+1+4 {
		return nil, errors.New(errors.KsiInvalidFormatError).
			AppendMessage(fmt.Sprintf("Publication data inconsistent length: %s", hex.EncodeToString(raw)))
	}
	body, crc := raw[:len(raw)-4], raw[len(raw)-4:]
	if crc32.ChecksumIEEE(body) != binary.BigEndian.Uint32(crc) {
		return nil, errors.New(errors.KsiInvalidFormatError).AppendMessage("Publication string CRC mismatch.")
	}
	h, err := hash.FromImprint(body[8:])
	if err != nil {
		return nil, errors.KsiErr(err).AppendMessage("Publication string contains invalid imprint.")
	}
	p := &PublicationData{pubTime: binary.BigEndian.Uint64(body[:8]), pubHash: h}
	log.Debug("Publication data from string: ", p.pubTime, " ", p.pubHash)
	return p, nil
}

// Base32 returns the publication string, dash separated in groups of 6 characters.
func (p *PublicationData) Base32() string {
	if p == nil {
		return ""
	}
	imprint := p.pubHash.Imprint()
	raw := make([]byte, 8, 8+len(imprint)+4)
	binary.BigEndian.PutUint64(raw, p.pubTime)
	raw = append(raw, imprint...)
	raw = binary.BigEndian.AppendUint32(raw, crc32.ChecksumIEEE(raw))

	enc := base32.StdEncoding.EncodeToString(raw)
	groups := make([]string, 0, len(enc)/pubStringGroup+1)
	for len(enc) > pubStringGroup {
		groups = append(groups, enc[:pubStringGroup])
		enc = enc[pubStringGroup:]
	}
	if len(enc) > 0 {
		groups = append(groups, enc)
	}
	return strings.Join(groups, "-")
}

// Equal reports whether p and o represent the same publication.
func (p *PublicationData) Equal(o *PublicationData) bool {
	return p != nil && o != nil && (p == o || (p.pubTime == o.pubTime && p.pubHash.Equal(o.pubHash)))
}

// PublicationTime returns the publication time.
func (p *PublicationData) PublicationTime() time.Time {
	if p == nil {
		return time.Time{}
	}
	return time.Unix(int64(p.pubTime), 0)
}

// PublishedHash returns the published hash.
func (p *PublicationData) PublishedHash() hash.DataHash {
	if p == nil {
		return hash.DataHash{}
	}
	return p.pubHash
}

// Tlv returns the encoded publication data element.
func (p *PublicationData) Tlv() (*tlv.Tlv, error) {
	if p == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	var enc encoder
	enc.add(tlv.NewUint64(tagPubDataTime, p.pubTime))
	enc.add(tlv.NewImprint(tagPubDataHash, p.pubHash))
	return enc.build(tagPubData)
}

// Bytes returns the binary TLV encoding. This is the data signed by the calendar authentication record.
func (p *PublicationData) Bytes() ([]byte, error) {
	t, err := p.Tlv()
	if err != nil {
		return nil, err
	}
	return t.Bytes(), nil
}

// String implements fmt.(Stringer) interface.
func (p *PublicationData) String() string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("Publication time: (")
	b.WriteString(strconv.FormatUint(p.pubTime, 10))
	b.WriteString(") ")
	b.WriteString(p.PublicationTime().UTC().String())
	b.WriteString("\n")
	b.WriteString("Published hash  : ")
	b.WriteString(p.pubHash.String())
	b.WriteString("\n")
	return b.String()
}
