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
	"strings"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/tlv"
)

const (
	tagPubRef    = 0x09
	tagPubRepURI = 0x0a
)

// PublicationRec represents the information related to a published hash value:
//  * 'published data': consists of a 'publication time' and a 'published hash';
//  * 'publication reference': bibliographic references to the media outlets where the publication appeared;
//  * 'publications repository URI': URIs of publications repositories (publications files).
type PublicationRec struct {
	tag       uint16
	pubData   *PublicationData
	pubRef    []string
	pubRepURI []string
}

// PublicationRecOption is a functional optional value setter.
type PublicationRecOption func(*PublicationRec) error

// PubRecOptPublicationRef sets the publication references.
func PubRecOptPublicationRef(refs ...string) PublicationRecOption {
	return func(p *PublicationRec) error {
		if p == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing publication record base object.")
		}
		p.pubRef = append([]string(nil), refs...)
		return nil
	}
}

// PubRecOptPublicationRepURI sets the publications repository URIs.
func PubRecOptPublicationRepURI(uris ...string) PublicationRecOption {
	return func(p *PublicationRec) error {
		if p == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing publication record base object.")
		}
		p.pubRepURI = append([]string(nil), uris...)
		return nil
	}
}

// NewPublicationRec returns a new signature publication record.
func NewPublicationRec(pubData *PublicationData, opts ...PublicationRecOption) (*PublicationRec, error) {
	return newPublicationRec(TagPublicationRec, pubData, opts...)
}

func newPublicationRec(tag uint16, pubData *PublicationData, opts ...PublicationRecOption) (*PublicationRec, error) {
	if pubData == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing publication data.")
	}
	p := &PublicationRec{tag: tag, pubData: pubData}
	for _, setter := range opts {
		if setter == nil {
			return nil, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Provided option is nil.")
		}
		if err := setter(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

type publicationRecTlv struct {
	pubData   *tlv.Tlv `tlv:"10,tlvobj,C1"`
	pubRef    []string `tlv:"9,utf8"`
	pubRepURI []string `tlv:"a,utf8"`
}

// NewPublicationRecFromTlv decodes a publication record. The element type differs between the signature (0x803)
// and the publications file (0x703), hence it is taken from t.
func NewPublicationRecFromTlv(t *tlv.Tlv) (*PublicationRec, error) {
	var d publicationRecTlv
	if err := decode(tmplPublicationRec, t, &d); err != nil {
		return nil, err
	}
	pubData, err := NewPublicationDataFromTlv(d.pubData)
	if err != nil {
		return nil, err
	}
	return &PublicationRec{tag: t.Tag, pubData: pubData, pubRef: d.pubRef, pubRepURI: d.pubRepURI}, nil
}

// PublicationData returns the published data.
func (p *PublicationRec) PublicationData() *PublicationData {
	if p == nil {
		return nil
	}
	return p.pubData
}

// PublicationRef returns the publication references.
func (p *PublicationRec) PublicationRef() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.pubRef...)
}

// PublicationRepURI returns the publications repository URIs.
func (p *PublicationRec) PublicationRepURI() []string {
	if p == nil {
		return nil
	}
	return append([]string(nil), p.pubRepURI...)
}

// WithTag returns a copy of the record to be encoded with a different element type.
func (p *PublicationRec) WithTag(tag uint16) *PublicationRec {
	if p == nil {
		return nil
	}
	c := *p
	c.tag = tag
	return &c
}

// Tlv returns the encoded publication record.
func (p *PublicationRec) Tlv() (*tlv.Tlv, error) {
	if p == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	var enc encoder
	enc.add(p.pubData.Tlv())
	for _, r := range p.pubRef {
		enc.add(tlv.NewUtf8(tagPubRef, r))
	}
	for _, u := range p.pubRepURI {
		enc.add(tlv.NewUtf8(tagPubRepURI, u))
	}
	return enc.build(p.tag)
}

// String implements fmt.(Stringer) interface.
func (p *PublicationRec) String() string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(p.pubData.String())
	for _, r := range p.pubRef {
		b.WriteString("Reference       : ")
		b.WriteString(r)
		b.WriteString("\n")
	}
	for _, u := range p.pubRepURI {
		b.WriteString("Repository URI  : ")
		b.WriteString(u)
		b.WriteString("\n")
	}
	return b.String()
}
