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
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/hash"
	"github.com/guardtime/ksicore/tlv"
)

// ChainResult is the output of a hash chain computation.
type ChainResult struct {
	Hash  hash.DataHash
	Level byte
}

// AggregationChain is the aggregation hash chain structure consisting of the following fields:
//  * 'aggregation time': the completion time of the aggregation round from which the hash chain starts;
//  * 'chain index': the location of the component in the aggregation tree. The bits represent the path from the root
//    of the tree to the location of a hash value, left and right moves as 0 and 1 bits respectively;
//  * 'input hash' and an optional 'input data': the input for the computation specified by the hash chain;
//  * 'aggregation algorithm': the hash function used to compute the output hash values of the links;
//  * 'chain links': a sequence of left and right links.
type AggregationChain struct {
	aggrTime   uint64
	chainIndex []uint64
	inputData  []byte
	inputHash  hash.DataHash
	algorithm  hash.Algorithm
	links      ChainLinkList
}

// AggregationChainOption is a functional optional value setter.
type AggregationChainOption func(*AggregationChain) error

// AggrChainOptInputData sets the optional input data.
func AggrChainOptInputData(d []byte) AggregationChainOption {
	return func(c *AggregationChain) error {
		if c == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing aggregation chain base object.")
		}
		c.inputData = append([]byte(nil), d...)
		return nil
	}
}

// NewAggregationChain returns a new aggregation hash chain.
func NewAggregationChain(aggrTime uint64, chainIndex []uint64, input hash.DataHash, algorithm hash.Algorithm,
	links []*ChainLink, opts ...AggregationChainOption) (*AggregationChain, error) {

	if len(chainIndex) == 0 || input.IsZero() || len(links) == 0 {
		return nil, errors.New(errors.KsiInvalidArgumentError).
			AppendMessage("Aggregation chain requires chain index, input hash and links.")
	}
	if !algorithm.Defined() {
		return nil, errors.New(errors.KsiUnknownHashAlgorithm)
	}
	c := &AggregationChain{
		aggrTime:   aggrTime,
		chainIndex: append([]uint64(nil), chainIndex...),
		inputHash:  input,
		algorithm:  algorithm,
		links:      append(ChainLinkList(nil), links...),
	}
	for i, l := range c.links {
		if l == nil || l.calendar {
			return nil, errors.New(errors.KsiInvalidArgumentError).
				AppendMessage(fmt.Sprintf("Invalid aggregation chain link at position %d.", i))
		}
	}
	for _, setter := range opts {
		if setter == nil {
			return nil, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Provided option is nil.")
		}
		if err := setter(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

type aggregationChainTlv struct {
	aggrTime   *uint64        `tlv:"2,int,C1"`
	chainIndex []uint64       `tlv:"3,int,C1_N"`
	inputData  []byte         `tlv:"4,bin"`
	inputHash  *hash.DataHash `tlv:"5,imp,C1"`
	algorithm  *uint64        `tlv:"6,int8,C1"`
	links      []*tlv.Tlv     `tlv:"7|8,tlvobj,C1_N"`
}

// NewAggregationChainFromTlv decodes an aggregation hash chain.
func NewAggregationChainFromTlv(t *tlv.Tlv) (*AggregationChain, error) {
	var d aggregationChainTlv
	if err := decode(tmplAggregationChain, t, &d); err != nil {
		return nil, err
	}
	alg, err := algorithm(*d.algorithm, TagAggregationChain)
	if err != nil {
		return nil, err
	}

	c := &AggregationChain{
		aggrTime:   *d.aggrTime,
		chainIndex: d.chainIndex,
		inputData:  d.inputData,
		inputHash:  *d.inputHash,
		algorithm:  alg,
	}
	for _, lt := range d.links {
		link, err := NewChainLinkFromTlv(lt)
		if err != nil {
			return nil, errors.KsiErr(err).AppendMessage("Failed to decode aggregation chain link.")
		}
		c.links = append(c.links, link)
	}
	return c, nil
}

// Tlv returns the encoded aggregation hash chain.
func (c *AggregationChain) Tlv() (*tlv.Tlv, error) {
	if c == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	var enc encoder
	enc.add(tlv.NewUint64(tagAggrTime, c.aggrTime))
	for _, i := range c.chainIndex {
		enc.add(tlv.NewUint64(tagChainIndex, i))
	}
	if c.inputData != nil {
		enc.add(tlv.NewRaw(tagInputData, c.inputData))
	}
	enc.add(tlv.NewImprint(tagInputHash, c.inputHash))
	enc.add(tlv.NewUint64(tagAggrAlgo, uint64(c.algorithm)))
	for _, l := range c.links {
		enc.add(l.Tlv())
	}
	return enc.build(TagAggregationChain)
}

// AggregationTime returns the aggregation time.
func (c *AggregationChain) AggregationTime() time.Time {
	if c == nil {
		return time.Time{}
	}
	return time.Unix(int64(c.aggrTime), 0)
}

// ChainIndex returns a copy of the chain index.
func (c *AggregationChain) ChainIndex() []uint64 {
	if c == nil {
		return nil
	}
	return append([]uint64(nil), c.chainIndex...)
}

// InputData returns the input data, or nil if not present.
func (c *AggregationChain) InputData() []byte {
	if c == nil || c.inputData == nil {
		return nil
	}
	return append([]byte(nil), c.inputData...)
}

// InputHash returns the input hash.
func (c *AggregationChain) InputHash() hash.DataHash {
	if c == nil {
		return hash.DataHash{}
	}
	return c.inputHash
}

// Algorithm returns the aggregation algorithm.
func (c *AggregationChain) Algorithm() hash.Algorithm {
	if c == nil {
		return hash.SHA_NA
	}
	return c.algorithm
}

// Links returns the chain links.
func (c *AggregationChain) Links() ChainLinkList {
	if c == nil {
		return nil
	}
	return append(ChainLinkList(nil), c.links...)
}

// CalculateChainIndex returns the location of the chain in the aggregation tree computed from the link directions.
// The value starts with a 1-bit so that no leading 0-bits are lost, followed by one bit per link, from the last
// link to the first, left links as 1.
func (c *AggregationChain) CalculateChainIndex() (uint64, error) {
	if c == nil || len(c.links) == 0 {
		return 0, errors.New(errors.KsiInvalidArgumentError)
	}
	if len(c.links) >= 64 {
		return 0, errors.New(errors.KsiInvalidFormatError).
			AppendMessage(fmt.Sprintf("Aggregation chain too long for chain index: %d links.", len(c.links)))
	}

	var shape uint64 = 1
	for i := len(c.links) - 1; i >= 0; i-- {
		shape <<= 1
		if c.links[i].IsLeft() {
			shape |= 1
		}
	}
	return shape, nil
}

// ChainIndexMatchesLinks reports whether the last chain index element corresponds to the shape of the links.
func (c *AggregationChain) ChainIndexMatchesLinks() bool {
	if c == nil || len(c.chainIndex) == 0 {
		return false
	}
	shape, err := c.CalculateChainIndex()
	return err == nil && shape == c.chainIndex[len(c.chainIndex)-1]
}

// CalculateOutput computes the chain output hash and level from the given input hash and input level. At each link
// the level grows by the level correction plus one and must not exceed 0xff. A chain without links returns the
// input unchanged.
func (c *AggregationChain) CalculateOutput(in hash.DataHash, level byte) (ChainResult, error) {
	if c == nil {
		return ChainResult{}, errors.New(errors.KsiInvalidArgumentError)
	}
	if len(c.links) == 0 {
		return ChainResult{Hash: in, Level: level}, nil
	}
	h, lvl, err := c.links.fold(false, c.algorithm, in, level)
	if err != nil {
		return ChainResult{}, errors.KsiErr(err).AppendMessage("Failed to calculate aggregation hash chain output.")
	}
	return ChainResult{Hash: h, Level: lvl}, nil
}

// Output computes the chain output from its own input hash.
func (c *AggregationChain) Output(level byte) (ChainResult, error) {
	return c.CalculateOutput(c.InputHash(), level)
}

// Identity returns the link identities, lowest link first.
func (c *AggregationChain) Identity() IdentityList {
	if c == nil {
		return nil
	}
	var l IdentityList
	for _, link := range c.links {
		if id := link.Identity(); id != nil {
			l = append(l, id)
		}
	}
	return l
}

// String implements fmt.(Stringer) interface.
func (c *AggregationChain) String() string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("Aggregation time: (")
	b.WriteString(strconv.FormatUint(c.aggrTime, 10))
	b.WriteString(") ")
	b.WriteString(c.AggregationTime().UTC().String())
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Chain index     : %02x\n", c.chainIndex))
	if c.inputData != nil {
		b.WriteString("Input data      : ")
		b.WriteString(hex.EncodeToString(c.inputData))
		b.WriteString("\n")
	}
	b.WriteString("Input hash      : ")
	b.WriteString(c.inputHash.String())
	b.WriteString("\n")
	b.WriteString("Aggr. algorithm : ")
	b.WriteString(c.algorithm.String())
	b.WriteString("\n")
	b.WriteString(c.links.String())
	return b.String()
}

// AggregationChainList is alias type for []*AggregationChain.
type AggregationChainList []*AggregationChain

// Sort orders the chains by descending chain index length, the most specific chain first. Equal lengths keep their
// original order.
func (l AggregationChainList) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		return len(l[i].chainIndex) > len(l[j].chainIndex)
	})
}

// CalculateOutput folds the chains in order, each chain output feeding the next one. The input hashes of the
// chains must match the output of the preceding chain.
func (l AggregationChainList) CalculateOutput(in hash.DataHash, level byte) (ChainResult, error) {
	if len(l) == 0 {
		return ChainResult{}, errors.New(errors.KsiInvalidArgumentError)
	}
	res := ChainResult{Hash: in, Level: level}
	for i, c := range l {
		if i > 0 && !res.Hash.Equal(c.inputHash) {
			return ChainResult{}, errors.New(errors.KsiInvalidFormatError).
				AppendMessage(fmt.Sprintf("Aggregation chain %d input hash does not match the previous chain output.", i))
		}
		var err error
		if res, err = c.CalculateOutput(res.Hash, res.Level); err != nil {
			return ChainResult{}, err
		}
	}
	return res, nil
}

// Identity returns the identities of all chains, most specific chain first.
func (l AggregationChainList) Identity() IdentityList {
	var r IdentityList
	for _, c := range l {
		r = append(r, c.Identity()...)
	}
	return r
}
