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
	"time"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/hash"
	"github.com/guardtime/ksicore/log"
	"github.com/guardtime/ksicore/tlv"
)

const tagPubTime = 0x01

// CalendarChain is the calendar hash chain structure consisting of:
//  * 'publication time': time of the calendar root hash;
//  * 'aggregation time': optional, defaults to the publication time;
//  * 'input hash': the input for the computation specified by the hash chain;
//  * 'chain links': a sequence of left and right links holding sibling imprints.
type CalendarChain struct {
	pubTime   uint64
	aggrTime  *uint64
	inputHash hash.DataHash
	links     ChainLinkList
}

// NewCalendarChain returns a new calendar hash chain. If aggrTime is nil, the aggregation time is not encoded
// and defaults to the publication time.
func NewCalendarChain(pubTime uint64, aggrTime *uint64, input hash.DataHash, links []*ChainLink) (*CalendarChain, error) {
	if input.IsZero() || len(links) == 0 {
		return nil, errors.New(errors.KsiInvalidArgumentError).
			AppendMessage("Calendar chain requires input hash and links.")
	}
	c := &CalendarChain{
		pubTime:   pubTime,
		inputHash: input,
		links:     make(ChainLinkList, 0, len(links)),
	}
	if aggrTime != nil {
		t := *aggrTime
		c.aggrTime = &t
	}
	for i, l := range links {
		if l == nil || l.kind != KindSiblingHash {
			return nil, errors.New(errors.KsiInvalidArgumentError).
				AppendMessage(fmt.Sprintf("Invalid calendar chain link at position %d.", i))
		}
		cl := *l
		cl.calendar = true
		cl.levelCorr = 0
		c.links = append(c.links, &cl)
	}
	return c, nil
}

type calendarChainTlv struct {
	pubTime   *uint64        `tlv:"1,int,C1"`
	aggrTime  *uint64        `tlv:"2,int"`
	inputHash *hash.DataHash `tlv:"5,imp,C1"`
	links     []*tlv.Tlv     `tlv:"7|8,tlvobj,C1_N"`
}

// NewCalendarChainFromTlv decodes a calendar hash chain.
func NewCalendarChainFromTlv(t *tlv.Tlv) (*CalendarChain, error) {
	var d calendarChainTlv
	if err := decode(tmplCalendarChain, t, &d); err != nil {
		return nil, err
	}

	c := &CalendarChain{pubTime: *d.pubTime, aggrTime: d.aggrTime, inputHash: *d.inputHash}
	for _, lt := range d.links {
		link, err := NewCalendarLinkFromTlv(lt)
		if err != nil {
			return nil, errors.KsiErr(err).AppendMessage("Failed to decode calendar chain link.")
		}
		c.links = append(c.links, link)
	}
	return c, nil
}

// Tlv returns the encoded calendar hash chain.
func (c *CalendarChain) Tlv() (*tlv.Tlv, error) {
	if c == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	var enc encoder
	enc.add(tlv.NewUint64(tagPubTime, c.pubTime))
	if c.aggrTime != nil {
		enc.add(tlv.NewUint64(tagAggrTime, *c.aggrTime))
	}
	enc.add(tlv.NewImprint(tagInputHash, c.inputHash))
	for _, l := range c.links {
		enc.add(l.Tlv())
	}
	return enc.build(TagCalendarChain)
}

// PublicationTime returns the publication time.
func (c *CalendarChain) PublicationTime() time.Time {
	if c == nil {
		return time.Time{}
	}
	return time.Unix(int64(c.pubTime), 0)
}

// AggregationTime returns the aggregation time. If not encoded, the publication time is returned.
func (c *CalendarChain) AggregationTime() time.Time {
	if c == nil {
		return time.Time{}
	}
	if c.aggrTime == nil {
		return c.PublicationTime()
	}
	return time.Unix(int64(*c.aggrTime), 0)
}

// InputHash returns the input hash.
func (c *CalendarChain) InputHash() hash.DataHash {
	if c == nil {
		return hash.DataHash{}
	}
	return c.inputHash
}

// Links returns the chain links.
func (c *CalendarChain) Links() ChainLinkList {
	if c == nil {
		return nil
	}
	return append(ChainLinkList(nil), c.links...)
}

// CalculateOutput computes the calendar root hash. The level is 0xff at every step. The hash algorithm starts as
// the input hash algorithm and switches to the sibling algorithm at every left link.
func (c *CalendarChain) CalculateOutput() (hash.DataHash, error) {
	if c == nil {
		return hash.DataHash{}, errors.New(errors.KsiInvalidArgumentError)
	}
	h, _, err := c.links.fold(true, hash.SHA_NA, c.inputHash, 0xff)
	if err != nil {
		return hash.DataHash{}, errors.KsiErr(err).AppendMessage("Failed to calculate calendar hash chain root hash.")
	}
	return h, nil
}

// PublicationData returns the publication time and the calendar root hash.
func (c *CalendarChain) PublicationData() (*PublicationData, error) {
	h, err := c.CalculateOutput()
	if err != nil {
		return nil, err
	}
	return NewPublicationData(c.pubTime, h)
}

// CalculateAggregationTime derives the aggregation time from the publication time and the shape of the chain.
//
// The calendar tree is built deterministically: the shape of the tree at any moment follows from the number of
// leaves, one per second since 1970-01-01T00:00:00Z. The left sub-tree of a node is always a perfect binary tree,
// and a right sub-tree with M leaves has the shape of an entire calendar tree on M leaves. Walking the chain from
// the root, every right link contributes the leaves of the sub-tree to its left.
func (c *CalendarChain) CalculateAggregationTime() (time.Time, error) {
	if c == nil || len(c.links) == 0 {
		return time.Time{}, errors.New(errors.KsiInvalidArgumentError)
	}

	var (
		t int64
		r = int64(c.pubTime)
	)
	for i := len(c.links) - 1; i >= 0; i-- {
		if r <= 0 {
			return time.Time{}, errors.New(errors.KsiInvalidFormatError).
				AppendMessage("Calendar chain shape does not match the publication time.")
		}
		if c.links[i].IsLeft() {
			r = highBit(r) - 1
		} else {
			t += highBit(r)
			r -= highBit(r)
		}
	}
	if r != 0 {
		return time.Time{}, errors.New(errors.KsiInvalidFormatError).
			AppendMessage("Calendar chain shape does not match the publication time.")
	}
	return time.Unix(t, 0), nil
}

// highBit returns the highest integral power of 2 less than or equal to r.
func highBit(r int64) int64 {
	r |= r >> 1
	r |= r >> 2
	r |= r >> 4
	r |= r >> 8
	r |= r >> 16
	r |= r >> 32
	return r - (r >> 1)
}

func (l ChainLinkList) nextRight(from int) (*ChainLink, int) {
	for i := from; i < len(l); i++ {
		if !l[i].IsLeft() {
			return l[i], i
		}
	}
	return nil, len(l)
}

// RightLinksMatch verifies that the right links of the two chains are pairwise equal. Left links and publication
// times may differ.
func (c *CalendarChain) RightLinksMatch(o *CalendarChain) error {
	if c == nil || o == nil {
		return errors.New(errors.KsiInvalidArgumentError)
	}

	var (
		ci, oi int
		cl, ol *ChainLink
	)
	for {
		cl, ci = c.links.nextRight(ci)
		ol, oi = o.links.nextRight(oi)
		if cl == nil && ol == nil {
			return nil
		}
		if cl == nil || ol == nil {
			msg := "Different number of right links in calendar hash chain."
			log.Info(msg)
			return errors.New(errors.KsiIncompatibleHashChain).AppendMessage(msg)
		}
		if !cl.siblingHash.Equal(ol.siblingHash) {
			msg := "Different sibling hashes in right links in calendar hash chains."
			log.Info(msg)
			return errors.New(errors.KsiIncompatibleHashChain).AppendMessage(msg)
		}
		ci++
		oi++
	}
}

// String implements fmt.(Stringer) interface.
func (c *CalendarChain) String() string {
	if c == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString("Publication time: (")
	b.WriteString(strconv.FormatUint(c.pubTime, 10))
	b.WriteString(") ")
	b.WriteString(c.PublicationTime().UTC().String())
	b.WriteString("\n")
	if c.aggrTime != nil {
		b.WriteString("Aggregation time: (")
		b.WriteString(strconv.FormatUint(*c.aggrTime, 10))
		b.WriteString(") ")
		b.WriteString(c.AggregationTime().UTC().String())
		b.WriteString("\n")
	}
	b.WriteString("Input hash      : ")
	b.WriteString(c.inputHash.String())
	b.WriteString("\n")
	b.WriteString(c.links.String())
	return b.String()
}
