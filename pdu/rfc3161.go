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

const (
	tagTstInfoPrefix = 0x10
	tagTstInfoSuffix = 0x11
	tagTstInfoAlgo   = 0x12
	tagSigAttrPrefix = 0x13
	tagSigAttrSuffix = 0x14
	tagSigAttrAlgo   = 0x15
)

// RFC3161 is the compatibility record for legacy signatures issued in the RFC 3161 time-stamp format. There the
// document hash was not signed directly, but via two intermediate structures:
//  1. The document hash was entered into the MessageImprint field of the TSTInfo structure.
//  2. The hash of the TSTInfo structure was entered into the MessageDigest field of the SignedAttributes.
//  3. The hash of the SignedAttributes structure was signed.
// The record holds the data preceding and succeeding the hash values within both structures and the hash
// functions used. It belongs to the first aggregation chain (same aggregation time and chain index) and converts
// the document hash into the input hash of that chain.
type RFC3161 struct {
	aggrTime   uint64
	chainIndex []uint64
	inputData  []byte
	inputHash  hash.DataHash

	tstInfoPrefix []byte
	tstInfoSuffix []byte
	tstInfoAlgo   hash.Algorithm

	sigAttrPrefix []byte
	sigAttrSuffix []byte
	sigAttrAlgo   hash.Algorithm
}

// RFC3161Fields holds the values of a programmatically built record.
type RFC3161Fields struct {
	AggregationTime uint64
	ChainIndex      []uint64
	InputHash       hash.DataHash
	TstInfoPrefix   []byte
	TstInfoSuffix   []byte
	TstInfoAlgo     hash.Algorithm
	SigAttrPrefix   []byte
	SigAttrSuffix   []byte
	SigAttrAlgo     hash.Algorithm
}

// NewRFC3161 returns a new RFC3161 record.
func NewRFC3161(f RFC3161Fields) (*RFC3161, error) {
	if len(f.ChainIndex) == 0 || f.InputHash.IsZero() {
		return nil, errors.New(errors.KsiInvalidArgumentError).
			AppendMessage("RFC3161 record requires chain index and input hash.")
	}
	if !f.TstInfoAlgo.Defined() || !f.SigAttrAlgo.Defined() {
		return nil, errors.New(errors.KsiUnknownHashAlgorithm)
	}
	return &RFC3161{
		aggrTime:      f.AggregationTime,
		chainIndex:    append([]uint64(nil), f.ChainIndex...),
		inputHash:     f.InputHash,
		tstInfoPrefix: append([]byte(nil), f.TstInfoPrefix...),
		tstInfoSuffix: append([]byte(nil), f.TstInfoSuffix...),
		tstInfoAlgo:   f.TstInfoAlgo,
		sigAttrPrefix: append([]byte(nil), f.SigAttrPrefix...),
		sigAttrSuffix: append([]byte(nil), f.SigAttrSuffix...),
		sigAttrAlgo:   f.SigAttrAlgo,
	}, nil
}

type rfc3161Tlv struct {
	aggrTime      *uint64        `tlv:"2,int,C1"`
	chainIndex    []uint64       `tlv:"3,int,C1_N"`
	inputData     []byte         `tlv:"4,bin"`
	inputHash     *hash.DataHash `tlv:"5,imp,C1"`
	tstInfoPrefix []byte         `tlv:"10,bin,C1"`
	tstInfoSuffix []byte         `tlv:"11,bin,C1"`
	tstInfoAlgo   *uint64        `tlv:"12,int8,C1"`
	sigAttrPrefix []byte         `tlv:"13,bin,C1"`
	sigAttrSuffix []byte         `tlv:"14,bin,C1"`
	sigAttrAlgo   *uint64        `tlv:"15,int8,C1"`
}

// NewRFC3161FromTlv decodes an RFC3161 record.
func NewRFC3161FromTlv(t *tlv.Tlv) (*RFC3161, error) {
	var d rfc3161Tlv
	if err := decode(tmplRFC3161, t, &d); err != nil {
		return nil, err
	}
	r := &RFC3161{
		aggrTime:      *d.aggrTime,
		chainIndex:    d.chainIndex,
		inputData:     d.inputData,
		inputHash:     *d.inputHash,
		tstInfoPrefix: d.tstInfoPrefix,
		tstInfoSuffix: d.tstInfoSuffix,
		sigAttrPrefix: d.sigAttrPrefix,
		sigAttrSuffix: d.sigAttrSuffix,
	}
	var err error
	if r.tstInfoAlgo, err = algorithm(*d.tstInfoAlgo, TagRFC3161); err != nil {
		return nil, err
	}
	if r.sigAttrAlgo, err = algorithm(*d.sigAttrAlgo, TagRFC3161); err != nil {
		return nil, err
	}
	return r, nil
}

// AggregationTime returns the aggregation time.
func (r *RFC3161) AggregationTime() time.Time {
	if r == nil {
		return time.Time{}
	}
	return time.Unix(int64(r.aggrTime), 0)
}

// ChainIndex returns the chain index.
func (r *RFC3161) ChainIndex() []uint64 {
	if r == nil {
		return nil
	}
	return append([]uint64(nil), r.chainIndex...)
}

// InputHash returns the document hash the record was created for.
func (r *RFC3161) InputHash() hash.DataHash {
	if r == nil {
		return hash.DataHash{}
	}
	return r.inputHash
}

// TstInfoAlgo returns the hash algorithm of the TSTInfo structure.
func (r *RFC3161) TstInfoAlgo() hash.Algorithm {
	if r == nil {
		return hash.SHA_NA
	}
	return r.tstInfoAlgo
}

// SigAttrAlgo returns the hash algorithm of the SignedAttributes structure.
func (r *RFC3161) SigAttrAlgo() hash.Algorithm {
	if r == nil {
		return hash.SHA_NA
	}
	return r.sigAttrAlgo
}

// OutputHash computes the record output, which is the input hash of the first aggregation chain:
//  H_alg(H_sigAttr(sigAttrPrefix || H_tst(tstPrefix || input || tstSuffix) || sigAttrSuffix))
// The intermediate hashes are embedded as digests, the final hash is computed over the SignedAttributes imprint.
func (r *RFC3161) OutputHash(algorithm hash.Algorithm) (hash.DataHash, error) {
	if r == nil {
		return hash.DataHash{}, errors.New(errors.KsiInvalidArgumentError)
	}
	tst, err := r.tstInfoAlgo.Sum(r.tstInfoPrefix, r.inputHash.Digest(), r.tstInfoSuffix)
	if err != nil {
		return hash.DataHash{}, errors.KsiErr(err).AppendMessage("Failed to calculate TSTInfo digest.")
	}
	sigAttr, err := r.sigAttrAlgo.Sum(r.sigAttrPrefix, tst.Digest(), r.sigAttrSuffix)
	if err != nil {
		return hash.DataHash{}, errors.KsiErr(err).AppendMessage("Failed to calculate signed attributes digest.")
	}
	return algorithm.Sum(sigAttr.Imprint())
}

// Tlv returns the encoded record.
func (r *RFC3161) Tlv() (*tlv.Tlv, error) {
	if r == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	var enc encoder
	enc.add(tlv.NewUint64(tagAggrTime, r.aggrTime))
	for _, i := range r.chainIndex {
		enc.add(tlv.NewUint64(tagChainIndex, i))
	}
	if r.inputData != nil {
		enc.add(tlv.NewRaw(tagInputData, r.inputData))
	}
	enc.add(tlv.NewImprint(tagInputHash, r.inputHash))
	enc.add(tlv.NewRaw(tagTstInfoPrefix, r.tstInfoPrefix))
	enc.add(tlv.NewRaw(tagTstInfoSuffix, r.tstInfoSuffix))
	enc.add(tlv.NewUint64(tagTstInfoAlgo, uint64(r.tstInfoAlgo)))
	enc.add(tlv.NewRaw(tagSigAttrPrefix, r.sigAttrPrefix))
	enc.add(tlv.NewRaw(tagSigAttrSuffix, r.sigAttrSuffix))
	enc.add(tlv.NewUint64(tagSigAttrAlgo, uint64(r.sigAttrAlgo)))
	return enc.build(TagRFC3161)
}
