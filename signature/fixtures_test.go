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

package signature

import (
	"encoding/binary"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/guardtime/ksicore/hash"
	"github.com/guardtime/ksicore/pdu"
	"github.com/guardtime/ksicore/publications"
	"github.com/guardtime/ksicore/test/utils/mock"
	"github.com/guardtime/ksicore/test/utils/pki"
	"github.com/guardtime/ksicore/tlv"
)

var testLogDir = filepath.Join("..", "test", "out", "signature")

const (
	testAggrTime uint64 = 1500000000
	// A day after the aggregation.
	testPubTime uint64 = 1500086400
	// A week after the aggregation.
	testNextPubTime uint64 = 1500604800
	// Calendar head returned by the mock extender.
	testHeadTime uint64 = 1501000000
)

func sum(t *testing.T, alg hash.Algorithm, data ...[]byte) hash.DataHash {
	t.Helper()
	h, err := alg.Sum(data...)
	if err != nil {
		t.Fatal("Failed to calculate hash: ", err)
	}
	return h
}

func unix(v uint64) time.Time { return time.Unix(int64(v), 0) }

/*
	Aggregation hash chains.

	The most specific chain has links [Left legacy id, Right sibling] and chain index [6 5], the least specific
	one [Right sibling, Left metadata] and chain index [6]. The identity is "ANon :: GT".
*/

type chainSpec struct {
	aggrTime  [2]uint64
	algorithm hash.Algorithm
	index     [2][]uint64
	// Input hash level of the most specific chain.
	level byte
}

func defaultChainSpec() chainSpec {
	return chainSpec{
		aggrTime:  [2]uint64{testAggrTime, testAggrTime},
		algorithm: hash.SHA2_256,
		index:     [2][]uint64{{6, 5}, {6}},
	}
}

func aggregationChains(t *testing.T, spec chainSpec, doc hash.DataHash) ([]*pdu.AggregationChain, pdu.ChainResult) {
	t.Helper()

	legacy, err := pdu.NewLegacyIDLink(pdu.Left, 0, "ANon")
	if err != nil {
		t.Fatal("Failed to create legacy id link: ", err)
	}
	sib0, err := pdu.NewSiblingHashLink(pdu.Right, 0, sum(t, hash.SHA2_256, []byte("chain-0")))
	if err != nil {
		t.Fatal("Failed to create sibling link: ", err)
	}
	c0, err := pdu.NewAggregationChain(spec.aggrTime[0], spec.index[0], doc, spec.algorithm, []*pdu.ChainLink{legacy, sib0})
	if err != nil {
		t.Fatal("Failed to create aggregation chain: ", err)
	}
	out0, err := c0.CalculateOutput(doc, spec.level)
	if err != nil {
		t.Fatal("Failed to calculate aggregation chain output: ", err)
	}

	sib1, err := pdu.NewSiblingHashLink(pdu.Right, 0, sum(t, hash.SHA2_256, []byte("chain-1")))
	if err != nil {
		t.Fatal("Failed to create sibling link: ", err)
	}
	md, err := pdu.NewMetadata("GT", pdu.MetadataMachineID("test-machine"), pdu.MetadataSequenceNr(1))
	if err != nil {
		t.Fatal("Failed to create metadata: ", err)
	}
	mdLink, err := pdu.NewMetadataLink(pdu.Left, 0, md)
	if err != nil {
		t.Fatal("Failed to create metadata link: ", err)
	}
	c1, err := pdu.NewAggregationChain(spec.aggrTime[1], spec.index[1], out0.Hash, spec.algorithm, []*pdu.ChainLink{sib1, mdLink})
	if err != nil {
		t.Fatal("Failed to create aggregation chain: ", err)
	}
	out1, err := c1.CalculateOutput(out0.Hash, out0.Level)
	if err != nil {
		t.Fatal("Failed to calculate aggregation chain output: ", err)
	}
	return []*pdu.AggregationChain{c0, c1}, out1
}

/*
	Calendar hash chains.

	The siblings are derived from the range of leaves the sibling sub-tree covers, hence the right links of the
	chains of different publication times match, as in the real calendar.
*/

func highBitOf(r uint64) uint64 {
	hb := uint64(1)
	for hb <= r/2 {
		hb <<= 1
	}
	return hb
}

func rangeHash(t *testing.T, alg hash.Algorithm, from, to uint64) hash.DataHash {
	t.Helper()
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf, from)
	binary.BigEndian.PutUint64(buf[8:], to)
	return sum(t, alg, buf)
}

// calendarChain returns the calendar hash chain from aggr to the root of pub. The siblings of the left links are
// computed with leftAlg.
func calendarChain(t *testing.T, pub, aggr uint64, input hash.DataHash, leftAlg hash.Algorithm) *pdu.CalendarChain {
	t.Helper()
	if aggr > pub {
		t.Fatal("Aggregation time after publication time.")
	}

	var (
		rootToLeaf []*pdu.ChainLink
		from       uint64
		r          = pub
	)
	for r > 0 {
		hb := highBitOf(r)
		var (
			l   *pdu.ChainLink
			err error
		)
		if aggr-from < hb {
			// Sibling is the right sub-tree.
			l, err = pdu.NewCalendarLink(pdu.Left, rangeHash(t, leftAlg, from+hb, from+r))
			r = hb - 1
		} else {
			// Sibling is the perfect left sub-tree.
			l, err = pdu.NewCalendarLink(pdu.Right, rangeHash(t, hash.SHA2_256, from, from+hb-1))
			from += hb
			r -= hb
		}
		if err != nil {
			t.Fatal("Failed to create calendar link: ", err)
		}
		rootToLeaf = append(rootToLeaf, l)
	}
	if from != aggr {
		t.Fatal("Calendar shape mismatch.")
	}

	links := make([]*pdu.ChainLink, len(rootToLeaf))
	for i, l := range rootToLeaf {
		links[len(links)-1-i] = l
	}
	at := aggr
	cal, err := pdu.NewCalendarChain(pub, &at, input, links)
	if err != nil {
		t.Fatal("Failed to create calendar chain: ", err)
	}
	return cal
}

func publicationData(t *testing.T, cal *pdu.CalendarChain) *pdu.PublicationData {
	t.Helper()
	pd, err := cal.PublicationData()
	if err != nil {
		t.Fatal("Failed to get publication data: ", err)
	}
	return pd
}

/*
	Signature fixture.
*/

type sigFixture struct {
	doc     hash.DataHash
	chains  []*pdu.AggregationChain
	root    pdu.ChainResult
	cal     *pdu.CalendarChain
	pubRec  *pdu.PublicationRec
	authRec *pdu.CalendarAuthRec
	extra   []*tlv.Tlv
}

// newFixture returns a signature with aggregation hash chains and the calendar hash chain to testPubTime.
func newFixture(t *testing.T) *sigFixture {
	t.Helper()
	return newFixtureWithSpec(t, defaultChainSpec())
}

func newFixtureWithSpec(t *testing.T, spec chainSpec) *sigFixture {
	t.Helper()
	f := &sigFixture{doc: sum(t, hash.SHA2_256, []byte("document"))}
	f.chains, f.root = aggregationChains(t, spec, f.doc)
	f.cal = calendarChain(t, testPubTime, spec.aggrTime[1], f.root.Hash, hash.SHA2_256)
	return f
}

func (f *sigFixture) withoutCalendar() *sigFixture {
	f.cal = nil
	f.pubRec = nil
	f.authRec = nil
	return f
}

func (f *sigFixture) withCalendar(c *pdu.CalendarChain) *sigFixture {
	f.cal = c
	return f
}

func (f *sigFixture) withPublicationRec(t *testing.T) *sigFixture {
	t.Helper()
	rec, err := pdu.NewPublicationRec(publicationData(t, f.cal))
	if err != nil {
		t.Fatal("Failed to create publication record: ", err)
	}
	f.pubRec = rec
	return f
}

func (f *sigFixture) withCalendarAuthRec(t *testing.T, auth *pki.Authority) *sigFixture {
	t.Helper()
	rec, err := auth.CalendarAuthRec(publicationData(t, f.cal))
	if err != nil {
		t.Fatal("Failed to create calendar authentication record: ", err)
	}
	f.authRec = rec
	return f
}

func (f *sigFixture) withExtra(e ...*tlv.Tlv) *sigFixture {
	f.extra = append(f.extra, e...)
	return f
}

func (f *sigFixture) tlv(t *testing.T) *tlv.Tlv {
	t.Helper()

	var children []*tlv.Tlv
	add := func(e *tlv.Tlv, err error) {
		if err != nil {
			t.Fatal("Failed to encode signature element: ", err)
		}
		children = append(children, e)
	}
	for _, c := range f.chains {
		add(c.Tlv())
	}
	if f.cal != nil {
		add(f.cal.Tlv())
	}
	if f.pubRec != nil {
		add(f.pubRec.Tlv())
	}
	if f.authRec != nil {
		add(f.authRec.Tlv())
	}
	children = append(children, f.extra...)

	sig, err := tlv.NewNested(pdu.TagSignature, children)
	if err != nil {
		t.Fatal("Failed to encode signature: ", err)
	}
	return sig
}

func (f *sigFixture) build(t *testing.T) *Signature {
	t.Helper()
	sig, err := New(BuildFromTlv(f.tlv(t)))
	if err != nil {
		t.Fatal("Failed to create signature: ", err)
	}
	return sig
}

// extender returns an extender computing the calendar hash chain of the fixture aggregation tree root.
func (f *sigFixture) extender(t *testing.T) *mock.Extender {
	return f.extenderWithAlg(t, hash.SHA2_256)
}

func (f *sigFixture) extenderWithAlg(t *testing.T, leftAlg hash.Algorithm) *mock.Extender {
	aggr := f.chains[len(f.chains)-1].AggregationTime()
	return mock.NewExtender(func(from, to time.Time) (*pdu.CalendarChain, error) {
		if !from.Equal(aggr) {
			return nil, fmt.Errorf("unexpected aggregation time: %d", from.Unix())
		}
		pub := testHeadTime
		if !to.IsZero() {
			pub = uint64(to.Unix())
		}
		return calendarChain(t, pub, uint64(aggr.Unix()), f.root.Hash, leftAlg), nil
	})
}

func testAuthority(t *testing.T) *pki.Authority {
	t.Helper()
	auth, err := pki.Default()
	if err != nil {
		t.Fatal("Failed to create test authority: ", err)
	}
	return auth
}

// publicationsFile returns a publications file signed by auth, with the certificate of auth and the given
// publications.
func publicationsFile(t *testing.T, auth *pki.Authority, pubs ...*pdu.PublicationData) *publications.File {
	t.Helper()
	cert, err := auth.CertificateRecord()
	if err != nil {
		t.Fatal("Failed to create certificate record: ", err)
	}
	raw, err := pki.PublicationsFile{
		Created:      unix(testHeadTime),
		Certs:        []*pdu.CertificateRecord{cert},
		Publications: pubs,
		Signer:       auth,
	}.Build()
	if err != nil {
		t.Fatal("Failed to build publications file: ", err)
	}
	f, err := publications.NewFile(publications.FileFromBytes(raw))
	if err != nil {
		t.Fatal("Failed to decode publications file: ", err)
	}
	return f
}

// calendarPublication returns the publication at pub of the fixture aggregation tree root.
func (f *sigFixture) calendarPublication(t *testing.T, pub uint64) *pdu.PublicationData {
	t.Helper()
	aggr := uint64(f.chains[len(f.chains)-1].AggregationTime().Unix())
	return publicationData(t, calendarChain(t, pub, aggr, f.root.Hash, hash.SHA2_256))
}

func verificationContext(t *testing.T, sig *Signature, opts ...VerCtxOption) *VerificationContext {
	t.Helper()
	ctx, err := NewVerificationContext(sig, opts...)
	if err != nil {
		t.Fatal("Failed to create verification context: ", err)
	}
	return ctx
}
