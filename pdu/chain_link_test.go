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
	"bytes"
	"strings"
	"testing"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/hash"
	"github.com/guardtime/ksicore/log"
	"github.com/guardtime/ksicore/test"
	"github.com/guardtime/ksicore/tlv"
)

func TestUnitChainLink(t *testing.T) {
	logger, defFunc, err := test.InitLogger(t, testLogDir, log.DEBUG, t.Name())
	if err != nil {
		t.Fatal("Failed to initialize logger: ", err)
	}
	defer defFunc()
	log.SetLogger(logger)

	test.Suite{
		{Func: testLevelCorrectionRange},
		{Func: testLinkLevelCorrectionFromTlv},
		{Func: testLinkWithoutSiblingData},
		{Func: testLinkWithMultipleSiblingData},
		{Func: testLinkTlvRoundTrip},
		{Func: testLinkUnknownCriticalElement},
		{Func: testLegacyIDEncoding},
		{Func: testLegacyIDInvalid},
		{Func: testNilLinkUsage},
	}.Runner(t)
}

func testLevelCorrectionRange(t *testing.T, _ ...interface{}) {
	h := sum(t, hash.SHA2_256, []byte("sibling"))
	tests := []struct {
		corr int
		ok   bool
	}{
		{0, true},
		{255, true},
		{256, false},
		{-1, false},
	}
	for _, tc := range tests {
		l, err := NewSiblingHashLink(Left, tc.corr, h)
		if tc.ok {
			if err != nil || int(l.LevelCorrection()) != tc.corr {
				t.Errorf("Level correction %d must be accepted: %v", tc.corr, err)
			}
			continue
		}
		if errors.CodeOf(err) != errors.KsiInvalidFormatError {
			t.Errorf("Level correction %d must be rejected, got: %v", tc.corr, err)
			continue
		}
		if !strings.Contains(err.Error(), "Unsupported level correction amount") {
			t.Errorf("Unexpected error message: %s", err)
		}
	}
}

func testLinkLevelCorrectionFromTlv(t *testing.T, _ ...interface{}) {
	corr, _ := tlv.NewUint64(tagLevelCorr, 256)
	sib, _ := tlv.NewImprint(tagSiblingHash, sum(t, hash.SHA2_256, []byte("s")))
	lt, _ := tlv.NewNested(tagLinkRight, []*tlv.Tlv{corr, sib})

	_, err := NewChainLinkFromTlv(lt)
	if errors.CodeOf(err) != errors.KsiInvalidFormatError ||
		!strings.Contains(err.Error(), "Unsupported level correction amount 256") {
		t.Fatal("Level correction 256 must be rejected: ", err)
	}
}

func testLinkWithoutSiblingData(t *testing.T, _ ...interface{}) {
	corr, _ := tlv.NewUint64(tagLevelCorr, 1)
	lt, _ := tlv.NewNested(tagLinkLeft, []*tlv.Tlv{corr})

	_, err := NewChainLinkFromTlv(lt)
	if err == nil {
		t.Fatal("Link without sibling data must fail.")
	}
	if !strings.Contains(err.Error(), "AggregationChainLink sibling data must consist of one of the following: "+
		"'sibling hash', 'legacy id' or 'metadata'") {
		t.Fatal("Unexpected error message: ", err)
	}
}

func testLinkWithMultipleSiblingData(t *testing.T, _ ...interface{}) {
	sib, _ := tlv.NewImprint(tagSiblingHash, sum(t, hash.SHA2_256, []byte("s")))
	lid, _ := NewLegacyID("anon")
	lidTlv, _ := tlv.NewRaw(tagLegacyID, lid.Bytes())
	md, _ := NewMetadata("anon")
	mdTlv, _ := md.Tlv()

	tests := []struct {
		children []*tlv.Tlv
		msg      string
	}{
		{[]*tlv.Tlv{sib, lidTlv}, "Multiple sibling data items in hash step. Sibling hash and legacy id are present"},
		{[]*tlv.Tlv{lidTlv, mdTlv}, "Multiple sibling data items in hash step. Legacy id and metadata are present"},
		{[]*tlv.Tlv{sib, lidTlv, mdTlv},
			"Multiple sibling data items in hash step. Sibling hash, legacy id and metadata are present"},
	}
	for i, tc := range tests {
		lt, _ := tlv.NewNested(tagLinkLeft, tc.children)
		_, err := NewChainLinkFromTlv(lt)
		if errors.CodeOf(err) != errors.KsiInvalidFormatError || !strings.Contains(err.Error(), tc.msg) {
			t.Errorf("Test %d: unexpected error: %v", i, err)
		}
	}
}

func testLinkTlvRoundTrip(t *testing.T, _ ...interface{}) {
	md, err := NewMetadata("client", MetadataMachineID("machine"), MetadataSequenceNr(7), MetadataReqTime(1500000000))
	if err != nil {
		t.Fatal("Failed to create metadata: ", err)
	}
	mdLink, _ := NewMetadataLink(Right, 3, md)
	lidLink, _ := NewLegacyIDLink(Left, 0, "legacy")

	for _, link := range []*ChainLink{siblingLink(t, Left, 1, "a"), mdLink, lidLink} {
		lt, err := link.Tlv()
		if err != nil {
			t.Fatal("Failed to encode link: ", err)
		}
		parsed, err := tlv.Parse(lt.Bytes())
		if err != nil {
			t.Fatal("Failed to parse link TLV: ", err)
		}
		decoded, err := NewChainLinkFromTlv(parsed)
		if err != nil {
			t.Fatal("Failed to decode link: ", err)
		}
		if decoded.Direction() != link.Direction() || decoded.LevelCorrection() != link.LevelCorrection() ||
			decoded.Kind() != link.Kind() {
			t.Fatal("Decoded link mismatch: ", decoded)
		}
		a, _ := decoded.SiblingData()
		b, _ := link.SiblingData()
		if !bytes.Equal(a, b) {
			t.Fatal("Sibling data mismatch.")
		}
	}

	id := mdLink.Identity()
	if id.Type != IdentityTypeMetadata || id.ClientID != "client" || id.MachineID != "machine" ||
		id.SequenceNr != 7 || id.RequestTime != 1500000000 {
		t.Fatal("Metadata identity mismatch: ", id)
	}
	if id := lidLink.Identity(); id.Type != IdentityTypeLegacyID || id.ClientID != "legacy" {
		t.Fatal("Legacy identity mismatch: ", id)
	}
}

func testLinkUnknownCriticalElement(t *testing.T, _ ...interface{}) {
	sib, _ := tlv.NewImprint(tagSiblingHash, sum(t, hash.SHA2_256, []byte("s")))
	unknownN, _ := tlv.NewRaw(0x15, []byte{1}, tlv.NonCritical)
	unknownC, _ := tlv.NewRaw(0x15, []byte{1})

	lt, _ := tlv.NewNested(tagLinkLeft, []*tlv.Tlv{sib, unknownN})
	if _, err := NewChainLinkFromTlv(lt); err != nil {
		t.Fatal("Unknown non-critical element must be ignored: ", err)
	}
	lt, _ = tlv.NewNested(tagLinkLeft, []*tlv.Tlv{sib, unknownC})
	if _, err := NewChainLinkFromTlv(lt); errors.CodeOf(err) != errors.KsiInvalidFormatError {
		t.Fatal("Unknown critical element must be rejected: ", err)
	}
}

func testLegacyIDEncoding(t *testing.T, _ ...interface{}) {
	id, err := NewLegacyID("GT")
	if err != nil {
		t.Fatal("Failed to create legacy ID: ", err)
	}
	raw := id.Bytes()
	if len(raw) != 29 || raw[0] != 0x03 || raw[1] != 0x00 || raw[2] != 2 || string(raw[3:5]) != "GT" {
		t.Fatalf("Legacy ID encoding mismatch: %x", raw)
	}
	decoded, err := legacyIDFromBytes(raw)
	if err != nil || decoded.ClientID() != "GT" {
		t.Fatal("Legacy ID decoding failed: ", err)
	}
}

func testLegacyIDInvalid(t *testing.T, _ ...interface{}) {
	if _, err := NewLegacyID(strings.Repeat("x", 26)); err == nil {
		t.Fatal("Too long client id must fail.")
	}

	valid, _ := NewLegacyID("GT")
	badLen := valid.Bytes()[:28]
	badHdr := valid.Bytes()
	badHdr[1] = 0x01
	badStrLen := valid.Bytes()
	badStrLen[2] = 26
	badPad := valid.Bytes()
	badPad[28] = 0x01

	for i, raw := range [][]byte{badLen, badHdr, badStrLen, badPad} {
		if _, err := legacyIDFromBytes(raw); errors.CodeOf(err) != errors.KsiInvalidFormatError {
			t.Errorf("Test %d: invalid legacy ID must be rejected: %v", i, err)
		}
	}
}

func testNilLinkUsage(t *testing.T, _ ...interface{}) {
	var l *ChainLink
	if l.Direction() != 0 || l.IsLeft() || l.Kind() != 0 || l.Identity() != nil || l.String() != "" {
		t.Fatal("Nil link must be safe to use.")
	}
	if _, err := l.SiblingData(); err == nil {
		t.Fatal("Nil link sibling data must fail.")
	}
}
