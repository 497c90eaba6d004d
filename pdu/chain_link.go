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
	"fmt"
	"strconv"
	"strings"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/hash"
	"github.com/guardtime/ksicore/tlv"
)

// LinkDirection is the side of the hash chain link. The values match the link TLV types.
type LinkDirection uint16

const (
	// Left link: the accumulated hash is the left operand, the sibling data the right one.
	Left LinkDirection = tagLinkLeft
	// Right link: the sibling data is the left operand.
	Right LinkDirection = tagLinkRight
)

func (d LinkDirection) String() string {
	switch d {
	case Left:
		return "L"
	case Right:
		return "R"
	default:
		return "?"
	}
}

// SiblingKind identifies the variant of the link sibling data.
type SiblingKind byte

const (
	KindSiblingHash SiblingKind = iota + 1
	KindLegacyID
	KindMetadata
)

const (
	tagLevelCorr   = 0x01
	tagSiblingHash = 0x02
	tagLegacyID    = 0x03
)

// ChainLink is a hash chain link.
//
// Each node in the aggregation tree has a level that is strictly larger than the level of either child. If the tree
// is not perfectly balanced, the level may increase by more than one from a child to the parent; the 'level
// correction' holds the additional increase. The sibling data is exactly one of:
//  * 'sibling hash': the hash value of the sibling node in the tree;
//  * 'legacy client identifier': a client identifier converted from a legacy signature;
//  * 'metadata': client identity and other information about the request.
//
// Calendar hash chain links carry a sibling hash only, without level correction.
type ChainLink struct {
	direction LinkDirection
	levelCorr byte
	kind      SiblingKind

	siblingHash hash.DataHash
	legacyID    *LegacyID
	metadata    *Metadata

	calendar bool
}

func checkDirection(dir LinkDirection) error {
	if dir != Left && dir != Right {
		return errors.New(errors.KsiInvalidArgumentError).AppendMessage(fmt.Sprintf("Invalid link direction: %d.", dir))
	}
	return nil
}

func checkLevelCorrection(corr int64) error {
	if corr < 0 || corr > 0xff {
		return errors.New(errors.KsiInvalidFormatError).
			AppendMessage(fmt.Sprintf("Unsupported level correction amount %d", corr))
	}
	return nil
}

func newLink(dir LinkDirection, corr int) (*ChainLink, error) {
	if err := checkDirection(dir); err != nil {
		return nil, err
	}
	if err := checkLevelCorrection(int64(corr)); err != nil {
		return nil, err
	}
	return &ChainLink{direction: dir, levelCorr: byte(corr)}, nil
}

// NewSiblingHashLink returns an aggregation hash chain link with a sibling hash.
func NewSiblingHashLink(dir LinkDirection, corr int, sibling hash.DataHash) (*ChainLink, error) {
	if sibling.IsZero() {
		return nil, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing sibling hash.")
	}
	l, err := newLink(dir, corr)
	if err != nil {
		return nil, err
	}
	l.kind = KindSiblingHash
	l.siblingHash = sibling
	return l, nil
}

// NewLegacyIDLink returns an aggregation hash chain link with a legacy client identifier.
func NewLegacyIDLink(dir LinkDirection, corr int, clientID string) (*ChainLink, error) {
	id, err := NewLegacyID(clientID)
	if err != nil {
		return nil, err
	}
	l, err := newLink(dir, corr)
	if err != nil {
		return nil, err
	}
	l.kind = KindLegacyID
	l.legacyID = id
	return l, nil
}

// NewMetadataLink returns an aggregation hash chain link with metadata.
func NewMetadataLink(dir LinkDirection, corr int, md *Metadata) (*ChainLink, error) {
	if md == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing metadata.")
	}
	l, err := newLink(dir, corr)
	if err != nil {
		return nil, err
	}
	l.kind = KindMetadata
	l.metadata = md
	return l, nil
}

// NewCalendarLink returns a calendar hash chain link.
func NewCalendarLink(dir LinkDirection, sibling hash.DataHash) (*ChainLink, error) {
	l, err := NewSiblingHashLink(dir, 0, sibling)
	if err != nil {
		return nil, err
	}
	l.calendar = true
	return l, nil
}

type chainLinkTlv struct {
	levelCorr   *uint64  `tlv:"1,int"`
	siblingHash *tlv.Tlv `tlv:"2,tlvobj"`
	legacyID    *tlv.Tlv `tlv:"3,tlvobj"`
	metadata    *tlv.Tlv `tlv:"4,tlvobj"`
}

// NewChainLinkFromTlv decodes an aggregation hash chain link.
func NewChainLinkFromTlv(t *tlv.Tlv) (*ChainLink, error) {
	if t == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	dir := LinkDirection(t.Tag)
	if err := checkDirection(dir); err != nil {
		return nil, errors.New(errors.KsiInvalidFormatError).AppendMessage(fmt.Sprintf("Invalid link type [%x].", t.Tag))
	}
	var d chainLinkTlv
	if err := decode(tmplChainLink, t, &d); err != nil {
		return nil, err
	}

	l := &ChainLink{direction: dir}
	if d.levelCorr != nil {
		if *d.levelCorr > 0xff {
			return nil, checkLevelCorrection(int64(*d.levelCorr))
		}
		l.levelCorr = byte(*d.levelCorr)
	}
	if err := checkSiblingData(d.siblingHash != nil, d.legacyID != nil, d.metadata != nil); err != nil {
		return nil, err
	}

	var err error
	switch {
	case d.siblingHash != nil:
		l.kind = KindSiblingHash
		l.siblingHash, err = d.siblingHash.DataHash()
	case d.legacyID != nil:
		l.kind = KindLegacyID
		l.legacyID, err = legacyIDFromBytes(d.legacyID.Value())
	default:
		l.kind = KindMetadata
		l.metadata, err = newMetadataFromTlv(d.metadata)
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func checkSiblingData(sib, lid, md bool) error {
	var present []string
	if sib {
		present = append(present, "sibling hash")
	}
	if lid {
		present = append(present, "legacy id")
	}
	if md {
		present = append(present, "metadata")
	}

	switch len(present) {
	case 0:
		return errors.New(errors.KsiInvalidFormatError).AppendMessage("AggregationChainLink sibling data must consist " +
			"of one of the following: 'sibling hash', 'legacy id' or 'metadata'")
	case 1:
		return nil
	}
	list := strings.Join(present[:len(present)-1], ", ") + " and " + present[len(present)-1]
	return errors.New(errors.KsiInvalidFormatError).
		AppendMessage(fmt.Sprintf("Multiple sibling data items in hash step. %s are present",
			strings.ToUpper(list[:1])+list[1:]))
}

// NewCalendarLinkFromTlv decodes a calendar hash chain link, which holds the sibling imprint as its value.
func NewCalendarLinkFromTlv(t *tlv.Tlv) (*ChainLink, error) {
	if t == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	dir := LinkDirection(t.Tag)
	if err := checkDirection(dir); err != nil {
		return nil, errors.New(errors.KsiInvalidFormatError).AppendMessage(fmt.Sprintf("Invalid link type [%x].", t.Tag))
	}
	h, err := t.DataHash()
	if err != nil {
		return nil, err
	}
	return &ChainLink{direction: dir, kind: KindSiblingHash, siblingHash: h, calendar: true}, nil
}

// Direction returns the link direction.
func (l *ChainLink) Direction() LinkDirection {
	if l == nil {
		return 0
	}
	return l.direction
}

// IsLeft reports whether the link is a left link.
func (l *ChainLink) IsLeft() bool {
	return l != nil && l.direction == Left
}

// LevelCorrection returns the level correction.
func (l *ChainLink) LevelCorrection() byte {
	if l == nil {
		return 0
	}
	return l.levelCorr
}

// Kind returns the sibling data variant.
func (l *ChainLink) Kind() SiblingKind {
	if l == nil {
		return 0
	}
	return l.kind
}

// SiblingHash returns the sibling hash, or a zero value if the link has different sibling data.
func (l *ChainLink) SiblingHash() hash.DataHash {
	if l == nil {
		return hash.DataHash{}
	}
	return l.siblingHash
}

// LegacyID returns the legacy client identifier, or nil.
func (l *ChainLink) LegacyID() *LegacyID {
	if l == nil {
		return nil
	}
	return l.legacyID
}

// Metadata returns the link metadata, or nil.
func (l *ChainLink) Metadata() *Metadata {
	if l == nil {
		return nil
	}
	return l.metadata
}

// SiblingData returns the octets hashed for the sibling side of the link.
func (l *ChainLink) SiblingData() ([]byte, error) {
	if l == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	switch l.kind {
	case KindSiblingHash:
		return l.siblingHash.Imprint(), nil
	case KindLegacyID:
		return l.legacyID.Bytes(), nil
	case KindMetadata:
		return l.metadata.Value(), nil
	default:
		return nil, errors.New(errors.KsiInvalidStateError).AppendMessage("Link is missing sibling data.")
	}
}

// Identity returns the link identity, or nil if the link carries a sibling hash.
func (l *ChainLink) Identity() *Identity {
	if l == nil {
		return nil
	}
	switch l.kind {
	case KindLegacyID:
		return &Identity{Type: IdentityTypeLegacyID, ClientID: l.legacyID.ClientID()}
	case KindMetadata:
		return &Identity{
			Type:        IdentityTypeMetadata,
			ClientID:    l.metadata.ClientID(),
			MachineID:   l.metadata.MachineID(),
			SequenceNr:  l.metadata.SequenceNr(),
			RequestTime: l.metadata.ReqTime(),
		}
	default:
		return nil
	}
}

// Tlv returns the encoded link.
func (l *ChainLink) Tlv() (*tlv.Tlv, error) {
	if l == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	if l.calendar {
		return tlv.NewImprint(uint16(l.direction), l.siblingHash)
	}

	var enc encoder
	if l.levelCorr != 0 {
		enc.add(tlv.NewUint64(tagLevelCorr, uint64(l.levelCorr)))
	}
	switch l.kind {
	case KindSiblingHash:
		enc.add(tlv.NewImprint(tagSiblingHash, l.siblingHash))
	case KindLegacyID:
		enc.add(tlv.NewRaw(tagLegacyID, l.legacyID.Bytes()))
	case KindMetadata:
		enc.add(l.metadata.Tlv())
	}
	return enc.build(uint16(l.direction))
}

// String implements fmt.(Stringer) interface.
func (l *ChainLink) String() string {
	if l == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("Link: ")
	b.WriteString(l.direction.String())
	if l.levelCorr != 0 {
		b.WriteString(", LevelCorr: ")
		b.WriteString(strconv.Itoa(int(l.levelCorr)))
	}
	if l.kind == KindSiblingHash {
		b.WriteString(", Sibling: ")
		b.WriteString(l.siblingHash.String())
	} else {
		b.WriteString(", Identity: ")
		b.WriteString(l.Identity().String())
	}
	return b.String()
}

// ChainLinkList is alias type for []*ChainLink.
type ChainLinkList []*ChainLink

// String implements fmt.(Stringer) interface.
func (l ChainLinkList) String() string {
	var b strings.Builder
	for _, link := range l {
		b.WriteString(link.String())
		b.WriteString("\n")
	}
	return b.String()
}

// fold computes the hash chain. For aggregation chains the level grows by 1 plus the level correction at each
// step; calendar chains stay at level 0xff and take the algorithm of the left link siblings.
func (l ChainLinkList) fold(calendar bool, algorithm hash.Algorithm, input hash.DataHash, level byte) (hash.DataHash, byte, error) {
	if input.IsZero() {
		return hash.DataHash{}, 0, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing input hash.")
	}
	if calendar {
		algorithm = input.Algorithm()
		level = 0xff
	}

	var (
		acc = input
		lvl = uint64(level)
	)
	for i, link := range l {
		if link == nil {
			return hash.DataHash{}, 0, errors.New(errors.KsiInvalidStateError).
				AppendMessage(fmt.Sprintf("Missing chain link at position %d.", i))
		}
		if calendar {
			if link.direction == Left {
				algorithm = link.siblingHash.Algorithm()
			}
		} else {
			lvl += uint64(link.levelCorr) + 1
			if lvl > 0xff {
				return hash.DataHash{}, 0, errors.New(errors.KsiInvalidFormatError).
					AppendMessage(fmt.Sprintf("Aggregation chain level out of range at link %d.", i))
			}
		}

		sibling, err := link.SiblingData()
		if err != nil {
			return hash.DataHash{}, 0, err
		}
		hsr, err := algorithm.New()
		if err != nil {
			return hash.DataHash{}, 0, err
		}
		if link.direction == Left {
			_, _ = hsr.Write(acc.Imprint())
			_, _ = hsr.Write(sibling)
		} else {
			_, _ = hsr.Write(sibling)
			_, _ = hsr.Write(acc.Imprint())
		}
		_, _ = hsr.Write([]byte{byte(lvl)})

		if acc, err = hsr.Sum(); err != nil {
			return hash.DataHash{}, 0, err
		}
	}
	return acc, byte(lvl), nil
}
