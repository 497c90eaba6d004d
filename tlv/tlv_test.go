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

package tlv

import (
	"bytes"
	"testing"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/hash"
	"github.com/guardtime/ksicore/test/utils"
)

func TestUnitParseTlv8(t *testing.T) {
	raw := utils.StringToBin("6203010203")

	tlv, err := Parse(raw)
	if err != nil {
		t.Fatal("Failed to parse TLV: ", err)
	}
	if tlv.Tag != 0x02 || !tlv.NonCritical || !tlv.ForwardUnknown {
		t.Fatal("Header mismatch: ", tlv)
	}
	if !bytes.Equal(tlv.Value(), []byte{1, 2, 3}) {
		t.Fatal("Value mismatch: ", tlv)
	}
	if !bytes.Equal(tlv.Bytes(), raw) {
		t.Fatal("Re-encoding mismatch.")
	}
}

func TestUnitParseTlv16(t *testing.T) {
	raw := utils.StringToBin("8801000401020304")

	tlv, err := Parse(raw)
	if err != nil {
		t.Fatal("Failed to parse TLV: ", err)
	}
	if tlv.Tag != 0x801 || tlv.NonCritical || tlv.ForwardUnknown || tlv.Len() != 4 {
		t.Fatal("Header mismatch: ", tlv)
	}
	if !bytes.Equal(tlv.Bytes(), raw) {
		t.Fatal("Re-encoding mismatch.")
	}
}

func TestUnitParseErrors(t *testing.T) {
	tests := []string{
		"01",           // Missing length.
		"010301",       // Truncated value.
		"880100",       // Truncated TLV16 header.
		"88010005AABB", // Truncated TLV16 value.
		"0100FF",       // Trailing data.
	}
	for _, tc := range tests {
		if _, err := Parse(utils.StringToBin(tc)); errors.CodeOf(err) != errors.KsiInvalidFormatError {
			t.Errorf("%s: expected format error, got %v", tc, err)
		}
	}
}

func TestUnitReadFrom(t *testing.T) {
	raw := utils.StringToBin("8801000401020304" + "0100")
	r := bytes.NewReader(raw)

	first, err := ReadFrom(r)
	if err != nil || first.Tag != 0x801 {
		t.Fatal("Failed to read first TLV: ", err)
	}
	second, err := ReadFrom(r)
	if err != nil || second.Tag != 0x01 || second.Len() != 0 {
		t.Fatal("Failed to read second TLV: ", err)
	}
	if _, err := ReadFrom(r); errors.CodeOf(err) != errors.KsiIoError {
		t.Fatal("Reading from exhausted stream must fail with IO error.")
	}
}

func TestUnitNestedRoundTrip(t *testing.T) {
	imprint := hash.SHA2_256.Zero()

	intTlv, _ := NewUint64(0x02, 1400000000)
	strTlv, _ := NewUtf8(0x01, "anon")
	hshTlv, _ := NewImprint(0x05, imprint)
	padTlv, _ := NewRaw(0x1e, []byte{0x01}, NonCritical, ForwardUnknown)
	root, err := NewNested(0x801, []*Tlv{intTlv, nil, strTlv, hshTlv, padTlv})
	if err != nil {
		t.Fatal("Failed to build nested TLV: ", err)
	}

	parsed, err := Parse(root.Bytes())
	if err != nil {
		t.Fatal("Failed to parse nested TLV: ", err)
	}
	children, err := parsed.Children()
	if err != nil {
		t.Fatal("Failed to parse children: ", err)
	}
	if len(children) != 4 {
		t.Fatal("Unexpected child count: ", len(children))
	}

	if v, err := children[0].Uint64(); err != nil || v != 1400000000 {
		t.Error("Integer mismatch: ", v, err)
	}
	if s, err := children[1].Utf8(); err != nil || s != "anon" {
		t.Error("String mismatch: ", s, err)
	}
	if h, err := children[2].DataHash(); err != nil || h != imprint {
		t.Error("Imprint mismatch: ", h, err)
	}
	if !children[3].NonCritical || !children[3].ForwardUnknown {
		t.Error("Flags lost.")
	}
}

func TestUnitHeaderForm(t *testing.T) {
	tests := []struct {
		tag    uint16
		length int
		hdrLen int
	}{
		{0x01, 0, 2},
		{0x1f, 0xff, 2},
		{0x1f, 0x100, 4},
		{0x20, 1, 4},
		{0x800, 0, 4},
	}
	for _, tc := range tests {
		tlv, err := NewRaw(tc.tag, make([]byte, tc.length))
		if err != nil {
			t.Fatal(err)
		}
		if got := len(tlv.Bytes()) - tc.length; got != tc.hdrLen {
			t.Errorf("Tag %x len %d: header length %d, expected %d.", tc.tag, tc.length, got, tc.hdrLen)
		}
	}
	if _, err := NewRaw(0x2000, nil); err == nil {
		t.Error("Tag out of range must fail.")
	}
}

func TestUnitNonMinimalHeaderRoundTrip(t *testing.T) {
	// TLV16 header for a type and length that fit into TLV8, nested in a TLV16 parent.
	raw := utils.StringToBin("880100088001000201020100")

	parsed, err := Parse(raw)
	if err != nil {
		t.Fatal("Failed to parse TLV: ", err)
	}
	if !bytes.Equal(parsed.Bytes(), raw) {
		t.Fatalf("Re-encoding mismatch: %x", parsed.Bytes())
	}
	children, err := parsed.Children()
	if err != nil || len(children) != 2 {
		t.Fatal("Failed to parse children: ", err)
	}
	if !bytes.Equal(children[0].Bytes(), utils.StringToBin("800100020102")) {
		t.Errorf("Child header form must be kept: %x", children[0].Bytes())
	}

	read, err := ReadFrom(bytes.NewReader(raw))
	if err != nil {
		t.Fatal("Failed to read TLV: ", err)
	}
	if !bytes.Equal(read.Bytes(), raw) {
		t.Fatalf("Re-encoding mismatch: %x", read.Bytes())
	}

	built, err := NewRaw(0x01, []byte{0x01, 0x02})
	if err != nil {
		t.Fatal(err)
	}
	if len(built.Bytes()) != 4 {
		t.Error("Built element must use the shortest header.")
	}
}

func TestUnitUint64Encoding(t *testing.T) {
	tests := []struct {
		v   uint64
		raw []byte
	}{
		{0, nil},
		{1, []byte{0x01}},
		{0x100, []byte{0x01, 0x00}},
		{0xffffffffffffffff, bytes.Repeat([]byte{0xff}, 8)},
	}
	for _, tc := range tests {
		tlv, _ := NewUint64(0x01, tc.v)
		if !bytes.Equal(tlv.Value(), tc.raw) {
			t.Errorf("%d: encoding mismatch %x.", tc.v, tlv.Value())
		}
		if v, err := tlv.Uint64(); err != nil || v != tc.v {
			t.Errorf("%d: decoding mismatch %d.", tc.v, v)
		}
	}

	tooLong, _ := NewRaw(0x01, make([]byte, 9))
	if _, err := tooLong.Uint64(); err == nil {
		t.Error("9 byte integer must fail.")
	}
}

func TestUnitUtf8Errors(t *testing.T) {
	empty, _ := NewRaw(0x01, nil)
	if _, err := empty.Utf8(); err == nil {
		t.Error("Empty string value must fail.")
	}
	unterminated, _ := NewRaw(0x01, []byte("abc"))
	if _, err := unterminated.Utf8(); err == nil {
		t.Error("Unterminated string must fail.")
	}
}

func TestUnitValueIsCopied(t *testing.T) {
	src := []byte{1, 2, 3}
	tlv, _ := NewRaw(0x01, src)
	src[0] = 9
	tlv.Value()[1] = 9
	if !bytes.Equal(tlv.Value(), []byte{1, 2, 3}) {
		t.Fatal("TLV value must be immutable.")
	}
}

func TestUnitNilTlv(t *testing.T) {
	var tlv *Tlv
	if tlv.Bytes() != nil || tlv.Value() != nil || tlv.String() != "" {
		t.Error("Nil TLV accessors must be safe.")
	}
	if _, err := tlv.Children(); err == nil {
		t.Error("Nil TLV children must fail.")
	}
}

func TestUnitChildLookup(t *testing.T) {
	a, _ := NewUint64(0x01, 1)
	b, _ := NewUint64(0x02, 2)
	c, _ := NewUint64(0x01, 3)
	root, _ := NewNested(0x10, []*Tlv{a, b, c})

	list, err := root.ChildrenByTag(0x01)
	if err != nil || len(list) != 2 {
		t.Fatal("Unexpected children: ", list, err)
	}
	if v, _ := list[1].Uint64(); v != 3 {
		t.Error("Children must keep encoding order.")
	}
	first, err := root.Child(0x02)
	if err != nil || first == nil || first.Tag != 0x02 {
		t.Fatal("Failed to find child: ", err)
	}
	if missing, err := root.Child(0x05); err != nil || missing != nil {
		t.Fatal("Missing child must be nil without error.")
	}
}
