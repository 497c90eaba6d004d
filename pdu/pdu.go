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

// Package pdu defines the KSI signature data structures and the hash chain computations over them.
//
// All structures are decoded from a tlv.Tlv tree and are immutable afterwards. A structure built programmatically
// keeps its TLV encoding, so that the bytes that are hashed are always the bytes that would be serialized.
package pdu

import (
	"fmt"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/hash"
	"github.com/guardtime/ksicore/templates"
	"github.com/guardtime/ksicore/tlv"
)

// KSI signature element types.
const (
	TagSignature          = 0x800
	TagAggregationChain   = 0x801
	TagCalendarChain      = 0x802
	TagPublicationRec     = 0x803
	TagAggregationAuthRec = 0x804
	TagCalendarAuthRec    = 0x805
	TagRFC3161            = 0x806
)

// Nested element types shared by several structures.
const (
	tagAggrTime   = 0x02
	tagChainIndex = 0x03
	tagInputData  = 0x04
	tagInputHash  = 0x05
	tagAggrAlgo   = 0x06
	tagLinkLeft   = 0x07
	tagLinkRight  = 0x08

	tagPubData = 0x10
	tagSigData = 0x0b
)

// Registered template names.
const (
	tmplAggregationChain   = "pdu.AggregationChain"
	tmplAggregationAuthRec = "pdu.AggregationAuthRec"
	tmplCalendarChain      = "pdu.CalendarChain"
	tmplCalendarAuthRec    = "pdu.CalendarAuthRec"
	tmplChainLink          = "pdu.ChainLink"
	tmplMetadata           = "pdu.Metadata"
	tmplPublicationData    = "pdu.PublicationData"
	tmplPublicationRec     = "pdu.PublicationRec"
	tmplRFC3161            = "pdu.RFC3161"
	tmplSignatureData      = "pdu.SignatureData"
	tmplCertificateRecord  = "pdu.CertificateRecord"
	tmplPublicationsHeader = "pdu.PublicationsHeader"
)

func init() {
	for _, r := range []struct {
		obj  interface{}
		name string
		tags []uint16
	}{
		{&aggregationChainTlv{}, tmplAggregationChain, []uint16{TagAggregationChain}},
		{&aggregationAuthRecTlv{}, tmplAggregationAuthRec, []uint16{TagAggregationAuthRec}},
		{&calendarChainTlv{}, tmplCalendarChain, []uint16{TagCalendarChain}},
		{&calendarAuthRecTlv{}, tmplCalendarAuthRec, []uint16{TagCalendarAuthRec}},
		{&chainLinkTlv{}, tmplChainLink, []uint16{tagLinkLeft, tagLinkRight}},
		{&metadataTlv{}, tmplMetadata, []uint16{tagMetadata}},
		{&publicationDataTlv{}, tmplPublicationData, []uint16{tagPubData}},
		{&publicationRecTlv{}, tmplPublicationRec, []uint16{TagPublicationRec, TagPubFilePubRec}},
		{&rfc3161Tlv{}, tmplRFC3161, []uint16{TagRFC3161}},
		{&signatureDataTlv{}, tmplSignatureData, []uint16{tagSigData}},
		{&certificateRecordTlv{}, tmplCertificateRecord, []uint16{TagPubFileCertRec}},
		{&publicationsHeaderTlv{}, tmplPublicationsHeader, []uint16{TagPubFileHeader}},
	} {
		if err := templates.Register(r.obj, r.name, r.tags...); err != nil {
			panic(err)
		}
	}
}

// decode decodes t with the named template. An unknown child is skipped if it is non-critical, otherwise the whole
// structure is rejected.
func decode(name string, t *tlv.Tlv, v interface{}) error {
	if t == nil {
		return errors.New(errors.KsiInvalidArgumentError)
	}
	return templates.Decode(name, t, v)
}

// algorithm converts a decoded hash algorithm identifier.
func algorithm(v uint64, parent uint16) (hash.Algorithm, error) {
	if !hash.Algorithm(v).Defined() {
		return hash.SHA_NA, errors.New(errors.KsiUnknownHashAlgorithm).
			AppendMessage(fmt.Sprintf("Unknown hash algorithm [%x] in [%x].", v, parent))
	}
	return hash.Algorithm(v), nil
}

// encoder collects nested elements, stopping at the first error.
type encoder struct {
	list []*tlv.Tlv
	err  error
}

func (c *encoder) add(t *tlv.Tlv, err error) {
	if c.err != nil {
		return
	}
	if err != nil {
		c.err = err
		return
	}
	c.list = append(c.list, t)
}

func (c *encoder) build(tag uint16, flags ...tlv.Flags) (*tlv.Tlv, error) {
	if c.err != nil {
		return nil, c.err
	}
	return tlv.NewNested(tag, c.list, flags...)
}
