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
	"testing"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/hash"
	"github.com/guardtime/ksicore/log"
	"github.com/guardtime/ksicore/test"
	"github.com/guardtime/ksicore/tlv"
)

func TestUnitCalChain(t *testing.T) {
	logger, defFunc, err := test.InitLogger(t, testLogDir, log.DEBUG, t.Name())
	if err != nil {
		t.Fatal("Failed to initialize logger: ", err)
	}
	defer defFunc()
	log.SetLogger(logger)

	test.Suite{
		{Func: testCalChainOutput},
		{Func: testCalChainAlgorithmSwitch},
		{Func: testCalChainAggregationTime},
		{Func: testCalChainRightLinksMatch},
		{Func: testCalChainTlvRoundTrip},
	}.Runner(t)
}

func calLink(t *testing.T, dir LinkDirection, alg hash.Algorithm, seed string) *ChainLink {
	t.Helper()
	l, err := NewCalendarLink(dir, sum(t, alg, []byte(seed)))
	if err != nil {
		t.Fatal("Failed to create calendar link: ", err)
	}
	return l
}

func testCalChainOutput(t *testing.T, _ ...interface{}) {
	in := sum(t, hash.SHA2_256, []byte("input"))
	left := calLink(t, Left, hash.SHA2_256, "l")
	right := calLink(t, Right, hash.SHA2_256, "r")

	c, err := NewCalendarChain(3, nil, in, []*ChainLink{left, right})
	if err != nil {
		t.Fatal("Failed to create calendar chain: ", err)
	}
	out, err := c.CalculateOutput()
	if err != nil {
		t.Fatal("Failed to calculate output: ", err)
	}
	step1 := sum(t, hash.SHA2_256, in.Imprint(), left.SiblingHash().Imprint(), []byte{0xff})
	step2 := sum(t, hash.SHA2_256, right.SiblingHash().Imprint(), step1.Imprint(), []byte{0xff})
	if !out.Equal(step2) {
		t.Fatal("Calendar output mismatch.")
	}

	pub, err := c.PublicationData()
	if err != nil || !pub.PublishedHash().Equal(step2) || pub.PublicationTime().Unix() != 3 {
		t.Fatal("Publication data mismatch: ", pub, err)
	}
	if !c.AggregationTime().Equal(c.PublicationTime()) {
		t.Fatal("Aggregation time must default to the publication time.")
	}
}

func testCalChainAlgorithmSwitch(t *testing.T, _ ...interface{}) {
	in := sum(t, hash.SHA2_256, []byte("input"))

	// Right links keep the algorithm of the accumulated hash.
	c, _ := NewCalendarChain(1, nil, in, []*ChainLink{calLink(t, Right, hash.SHA2_512, "r")})
	out, err := c.CalculateOutput()
	if err != nil || out.Algorithm() != hash.SHA2_256 {
		t.Fatal("Right link must not switch the algorithm: ", out, err)
	}

	// Left links switch to the sibling algorithm.
	c, _ = NewCalendarChain(1, nil, in, []*ChainLink{calLink(t, Left, hash.SHA2_512, "l")})
	out, err = c.CalculateOutput()
	if err != nil || out.Algorithm() != hash.SHA2_512 {
		t.Fatal("Left link must switch the algorithm: ", out, err)
	}
}

func testCalChainAggregationTime(t *testing.T, _ ...interface{}) {
	in := sum(t, hash.SHA2_256, []byte("input"))
	tests := []struct {
		pubTime uint64
		dirs    []LinkDirection
		aggr    int64
		ok      bool
	}{
		{1, []LinkDirection{Left}, 0, true},
		{1, []LinkDirection{Right}, 1, true},
		{3, []LinkDirection{Right, Right}, 3, true},
		{3, []LinkDirection{Right, Left}, 1, true},
		{3, []LinkDirection{Right}, 0, false},
	}
	for i, tc := range tests {
		var links []*ChainLink
		for _, d := range tc.dirs {
			links = append(links, calLink(t, d, hash.SHA2_256, "s"))
		}
		c, err := NewCalendarChain(tc.pubTime, nil, in, links)
		if err != nil {
			t.Fatalf("Test %d: failed to create chain: %v", i, err)
		}
		at, err := c.CalculateAggregationTime()
		if !tc.ok {
			if errors.CodeOf(err) != errors.KsiInvalidFormatError {
				t.Errorf("Test %d: shape mismatch must fail: %v", i, err)
			}
			continue
		}
		if err != nil || at.Unix() != tc.aggr {
			t.Errorf("Test %d: aggregation time mismatch: %v (%v)", i, at.Unix(), err)
		}
	}
}

func testCalChainRightLinksMatch(t *testing.T, _ ...interface{}) {
	in := sum(t, hash.SHA2_256, []byte("input"))
	r1 := calLink(t, Right, hash.SHA2_256, "r1")
	r2 := calLink(t, Right, hash.SHA2_256, "r2")

	a, _ := NewCalendarChain(5, nil, in, []*ChainLink{r1, calLink(t, Left, hash.SHA2_256, "a"), r2})
	b, _ := NewCalendarChain(9, nil, in, []*ChainLink{r1, r2, calLink(t, Left, hash.SHA2_256, "b")})
	if err := a.RightLinksMatch(b); err != nil {
		t.Fatal("Right links must match: ", err)
	}

	c, _ := NewCalendarChain(5, nil, in, []*ChainLink{r2, r1})
	if err := a.RightLinksMatch(c); errors.CodeOf(err) != errors.KsiIncompatibleHashChain {
		t.Fatal("Different right links must not match: ", err)
	}
	d, _ := NewCalendarChain(5, nil, in, []*ChainLink{r1})
	if err := a.RightLinksMatch(d); errors.CodeOf(err) != errors.KsiIncompatibleHashChain {
		t.Fatal("Different right link count must not match: ", err)
	}
}

func testCalChainTlvRoundTrip(t *testing.T, _ ...interface{}) {
	in := sum(t, hash.SHA2_256, []byte("input"))
	aggr := uint64(2)
	c, _ := NewCalendarChain(3, &aggr, in, []*ChainLink{calLink(t, Left, hash.SHA2_256, "a"),
		calLink(t, Right, hash.SHA2_256, "b")})

	ct, err := c.Tlv()
	if err != nil {
		t.Fatal("Failed to encode chain: ", err)
	}
	parsed, _ := tlv.Parse(ct.Bytes())
	decoded, err := NewCalendarChainFromTlv(parsed)
	if err != nil {
		t.Fatal("Failed to decode chain: ", err)
	}
	if decoded.AggregationTime().Unix() != 2 || decoded.PublicationTime().Unix() != 3 || len(decoded.Links()) != 2 {
		t.Fatal("Decoded chain mismatch:\n", decoded)
	}
	a, _ := c.CalculateOutput()
	b, _ := decoded.CalculateOutput()
	if !a.Equal(b) {
		t.Fatal("Decoded chain output mismatch.")
	}
}
