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
	"time"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/hash"
	"github.com/guardtime/ksicore/tlv"
)

// CalendarAuthRec authenticates a calendar hash chain with a PKI signature:
//  * 'published data': the publication time and the output hash of the calendar hash chain;
//  * 'signature data': the signature over the whole 'published data' element, TLV header included.
type CalendarAuthRec struct {
	pubData *PublicationData
	sigData *SignatureData
}

// NewCalendarAuthRec returns a new calendar authentication record.
func NewCalendarAuthRec(pubData *PublicationData, sigData *SignatureData) (*CalendarAuthRec, error) {
	if pubData == nil || sigData == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	return &CalendarAuthRec{pubData: pubData, sigData: sigData}, nil
}

type calendarAuthRecTlv struct {
	pubData *tlv.Tlv `tlv:"10,tlvobj,C1"`
	sigData *tlv.Tlv `tlv:"b,tlvobj,C1"`
}

// NewCalendarAuthRecFromTlv decodes a calendar authentication record.
func NewCalendarAuthRecFromTlv(t *tlv.Tlv) (*CalendarAuthRec, error) {
	var d calendarAuthRecTlv
	if err := decode(tmplCalendarAuthRec, t, &d); err != nil {
		return nil, err
	}
	var (
		c   = &CalendarAuthRec{}
		err error
	)
	if c.pubData, err = NewPublicationDataFromTlv(d.pubData); err != nil {
		return nil, err
	}
	if c.sigData, err = newSignatureDataFromTlv(d.sigData); err != nil {
		return nil, err
	}
	return c, nil
}

// PublicationData returns the signed publication data.
func (c *CalendarAuthRec) PublicationData() *PublicationData {
	if c == nil {
		return nil
	}
	return c.pubData
}

// SignatureData returns the signature data.
func (c *CalendarAuthRec) SignatureData() *SignatureData {
	if c == nil {
		return nil
	}
	return c.sigData
}

// Tlv returns the encoded record.
func (c *CalendarAuthRec) Tlv() (*tlv.Tlv, error) {
	if c == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	var enc encoder
	enc.add(c.pubData.Tlv())
	enc.add(c.sigData.Tlv())
	return enc.build(TagCalendarAuthRec)
}

// AggregationAuthRec authenticates an aggregation hash chain with a PKI signature. It is parsed and retained, but
// not used by any verification policy.
type AggregationAuthRec struct {
	aggrTime   uint64
	chainIndex []uint64
	inputHash  hash.DataHash
	sigData    *SignatureData
}

type aggregationAuthRecTlv struct {
	aggrTime   *uint64        `tlv:"2,int,C1"`
	chainIndex []uint64       `tlv:"3,int,C1_N"`
	inputHash  *hash.DataHash `tlv:"5,imp,C1"`
	sigData    *tlv.Tlv       `tlv:"b,tlvobj,C1"`
}

// NewAggregationAuthRecFromTlv decodes an aggregation authentication record.
func NewAggregationAuthRecFromTlv(t *tlv.Tlv) (*AggregationAuthRec, error) {
	var d aggregationAuthRecTlv
	if err := decode(tmplAggregationAuthRec, t, &d); err != nil {
		return nil, err
	}
	sigData, err := newSignatureDataFromTlv(d.sigData)
	if err != nil {
		return nil, err
	}
	return &AggregationAuthRec{
		aggrTime:   *d.aggrTime,
		chainIndex: d.chainIndex,
		inputHash:  *d.inputHash,
		sigData:    sigData,
	}, nil
}

// AggregationTime returns the aggregation time.
func (a *AggregationAuthRec) AggregationTime() time.Time {
	if a == nil {
		return time.Time{}
	}
	return time.Unix(int64(a.aggrTime), 0)
}

// ChainIndex returns the chain index.
func (a *AggregationAuthRec) ChainIndex() []uint64 {
	if a == nil {
		return nil
	}
	return append([]uint64(nil), a.chainIndex...)
}

// InputHash returns the input hash.
func (a *AggregationAuthRec) InputHash() hash.DataHash {
	if a == nil {
		return hash.DataHash{}
	}
	return a.inputHash
}

// SignatureData returns the signature data.
func (a *AggregationAuthRec) SignatureData() *SignatureData {
	if a == nil {
		return nil
	}
	return a.sigData
}

// Tlv returns the encoded record.
func (a *AggregationAuthRec) Tlv() (*tlv.Tlv, error) {
	if a == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	var enc encoder
	enc.add(tlv.NewUint64(tagAggrTime, a.aggrTime))
	for _, i := range a.chainIndex {
		enc.add(tlv.NewUint64(tagChainIndex, i))
	}
	enc.add(tlv.NewImprint(tagInputHash, a.inputHash))
	enc.add(a.sigData.Tlv())
	return enc.build(TagAggregationAuthRec)
}
