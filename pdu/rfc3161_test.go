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

	"github.com/guardtime/ksicore/hash"
	"github.com/guardtime/ksicore/tlv"
)

func testRFC3161Record(t *testing.T) *RFC3161 {
	t.Helper()
	r, err := NewRFC3161(RFC3161Fields{
		AggregationTime: 1400000000,
		ChainIndex:      []uint64{3, 5},
		InputHash:       sum(t, hash.SHA2_256, []byte("document")),
		TstInfoPrefix:   []byte{0x30, 0x81},
		TstInfoSuffix:   []byte{0x02, 0x01, 0x00},
		TstInfoAlgo:     hash.SHA2_256,
		SigAttrPrefix:   []byte{0x31, 0x5c},
		SigAttrSuffix:   []byte{},
		SigAttrAlgo:     hash.SHA2_512,
	})
	if err != nil {
		t.Fatal("Failed to create RFC3161 record: ", err)
	}
	return r
}

func TestUnitRFC3161OutputHash(t *testing.T) {
	r := testRFC3161Record(t)

	out, err := r.OutputHash(hash.SHA2_256)
	if err != nil {
		t.Fatal("Failed to calculate output hash: ", err)
	}
	tst := sum(t, hash.SHA2_256, []byte{0x30, 0x81}, r.InputHash().Digest(), []byte{0x02, 0x01, 0x00})
	sigAttr := sum(t, hash.SHA2_512, []byte{0x31, 0x5c}, tst.Digest())
	want := sum(t, hash.SHA2_256, sigAttr.Imprint())
	if !out.Equal(want) {
		t.Fatal("Output hash mismatch: ", out)
	}
}

func TestUnitRFC3161TlvRoundTrip(t *testing.T) {
	r := testRFC3161Record(t)
	rt, err := r.Tlv()
	if err != nil {
		t.Fatal("Failed to encode record: ", err)
	}
	parsed, err := tlv.Parse(rt.Bytes())
	if err != nil {
		t.Fatal("Failed to parse record: ", err)
	}
	decoded, err := NewRFC3161FromTlv(parsed)
	if err != nil {
		t.Fatal("Failed to decode record: ", err)
	}
	if decoded.TstInfoAlgo() != hash.SHA2_256 || decoded.SigAttrAlgo() != hash.SHA2_512 ||
		len(decoded.ChainIndex()) != 2 || decoded.AggregationTime().Unix() != 1400000000 {
		t.Fatal("Decoded record mismatch.")
	}
	a, _ := r.OutputHash(hash.SHA2_256)
	b, _ := decoded.OutputHash(hash.SHA2_256)
	if !a.Equal(b) {
		t.Fatal("Decoded record output mismatch.")
	}
}
