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

package publications

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/hash"
	"github.com/guardtime/ksicore/log"
	"github.com/guardtime/ksicore/pdu"
	"github.com/guardtime/ksicore/test"
	"github.com/guardtime/ksicore/test/utils/pki"
	"github.com/guardtime/ksicore/tlv"
)

var (
	testLogDir = filepath.Join("..", "test", "out", "publications")
	// Inside the validity period of the test authority.
	testNow = time.Unix(1600000000, 0)
)

func pubData(t *testing.T, pubTime uint64) *pdu.PublicationData {
	t.Helper()
	h, err := hash.SHA2_256.Sum([]byte("calendar"), []byte{byte(pubTime), byte(pubTime >> 8)})
	if err != nil {
		t.Fatal("Failed to calculate hash: ", err)
	}
	pd, err := pdu.NewPublicationData(pubTime, h)
	if err != nil {
		t.Fatal("Failed to create publication data: ", err)
	}
	return pd
}

func authority(t *testing.T) *pki.Authority {
	t.Helper()
	a, err := pki.Default()
	if err != nil {
		t.Fatal("Failed to create test authority: ", err)
	}
	return a
}

// testFileContent returns a file with publications at 1000, 2000 and 3000 seconds and the default authority
// certificate.
func testFileContent(t *testing.T) pki.PublicationsFile {
	t.Helper()
	a := authority(t)
	certRec, err := a.CertificateRecord()
	if err != nil {
		t.Fatal("Failed to create certificate record: ", err)
	}
	return pki.PublicationsFile{
		Created:      testNow,
		Certs:        []*pdu.CertificateRecord{certRec},
		Publications: []*pdu.PublicationData{pubData(t, 1000), pubData(t, 2000), pubData(t, 3000)},
		Signer:       a,
	}
}

func buildRaw(t *testing.T, content pki.PublicationsFile) []byte {
	t.Helper()
	raw, err := content.Build()
	if err != nil {
		t.Fatal("Failed to build publications file: ", err)
	}
	return raw
}

func testFile(t *testing.T) *File {
	t.Helper()
	f, err := NewFile(FileFromBytes(buildRaw(t, testFileContent(t))))
	if err != nil {
		t.Fatal("Failed to parse publications file: ", err)
	}
	return f
}

func TestUnitFile(t *testing.T) {
	logger, defFunc, err := test.InitLogger(t, testLogDir, log.DEBUG, t.Name())
	if err != nil {
		t.Fatal("Failed to initialize logger: ", err)
	}
	defer defFunc()
	log.SetLogger(logger)

	test.Suite{
		{Func: testFileParse},
		{Func: testFileFromReaderAndFile},
		{Func: testFileInvalid},
		{Func: testFileUnknownElements},
		{Func: testFileSearch},
		{Func: testFileCertificate},
		{Func: testFileVerifyRecord},
		{Func: testFileNil},
	}.Runner(t)
}

func testFileParse(t *testing.T, _ ...interface{}) {
	raw := buildRaw(t, testFileContent(t))
	f, err := NewFile(FileFromBytes(raw))
	if err != nil {
		t.Fatal("Failed to parse publications file: ", err)
	}

	if v := f.Header().Version(); v != 2 {
		t.Error("Header version mismatch: ", v)
	}
	if !f.Header().CreationTime().Equal(testNow) {
		t.Error("Header creation time mismatch: ", f.Header().CreationTime())
	}
	if n := len(f.CertificateRecs()); n != 1 {
		t.Error("Certificate record count mismatch: ", n)
	}
	if n := len(f.PublicationRecs()); n != 3 {
		t.Error("Publication record count mismatch: ", n)
	}
	if !bytes.Equal(f.Bytes(), raw) {
		t.Error("Raw bytes must be kept.")
	}

	signed := f.SignedBytes()
	if !bytes.HasPrefix(signed, []byte(Magic)) {
		t.Error("Signed part must include the magic.")
	}
	sigTlv, err := tlv.NewRaw(pdu.TagPubFileSig, f.Signature())
	if err != nil {
		t.Fatal("Failed to encode signature: ", err)
	}
	if len(signed)+len(sigTlv.Bytes()) != len(raw) {
		t.Error("Signed part must end where the signature begins.")
	}
}

func testFileFromReaderAndFile(t *testing.T, _ ...interface{}) {
	raw := buildRaw(t, testFileContent(t))

	f, err := NewFile(FileFromReader(bytes.NewReader(raw)))
	if err != nil || !bytes.Equal(f.Bytes(), raw) {
		t.Fatal("Failed to parse publications file stream: ", err)
	}

	path := filepath.Join(t.TempDir(), "pubfile.bin")
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		t.Fatal("Failed to write publications file: ", err)
	}
	if _, err := NewFile(FileFromFile(path)); err != nil {
		t.Fatal("Failed to read publications file: ", err)
	}
	if _, err := NewFile(FileFromFile(path + ".missing")); errors.CodeOf(err) != errors.KsiIoError {
		t.Fatal("Missing file must be an IO error: ", err)
	}
	if _, err := NewFile(FileFromURL(path)); err != nil {
		t.Fatal("Failed to load publications file via URL: ", err)
	}
}

func testFileInvalid(t *testing.T, _ ...interface{}) {
	valid := buildRaw(t, testFileContent(t))

	unsigned := testFileContent(t)
	unsigned.Signer = nil

	sigTlv, err := tlv.NewRaw(pdu.TagPubFileSig, []byte{0x30, 0x00})
	if err != nil {
		t.Fatal(err)
	}
	trailing := testFileContent(t)
	trailing.Signer = nil
	trailing.Extra = []*tlv.Tlv{sigTlv, sigTlv}

	tests := []struct {
		name string
		raw  []byte
		code errors.ErrorCode
	}{
		{"empty", nil, errors.KsiInvalidArgumentError},
		{"short", []byte("KSIP"), errors.KsiInvalidFormatError},
		{"magic only", []byte(Magic), errors.KsiInvalidFormatError},
		{"bad magic", append([]byte("KSIPUBLX"), valid[8:]...), errors.KsiInvalidFormatError},
		{"truncated", valid[:len(valid)-3], errors.KsiInvalidFormatError},
		{"no signature", buildRaw(t, unsigned), errors.KsiInvalidFormatError},
		{"after signature", buildRaw(t, trailing), errors.KsiInvalidFormatError},
		{"no header", append([]byte(Magic), sigTlv.Bytes()...), errors.KsiInvalidFormatError},
	}
	for _, tc := range tests {
		if _, err := NewFile(FileFromBytes(tc.raw)); errors.CodeOf(err) != tc.code {
			t.Errorf("%s: expected %v, got: %v", tc.name, tc.code, err)
		}
	}
	if _, err := NewFile(nil); errors.CodeOf(err) != errors.KsiInvalidArgumentError {
		t.Error("Nil builder must be rejected: ", err)
	}
}

func testFileUnknownElements(t *testing.T, _ ...interface{}) {
	nonCritical, err := tlv.NewRaw(0x7ff, []byte{1, 2, 3}, tlv.NonCritical)
	if err != nil {
		t.Fatal(err)
	}
	content := testFileContent(t)
	content.Extra = []*tlv.Tlv{nonCritical}
	if _, err := NewFile(FileFromBytes(buildRaw(t, content))); err != nil {
		t.Fatal("Unknown non-critical element must be ignored: ", err)
	}

	critical, err := tlv.NewRaw(0x7ff, []byte{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	content.Extra = []*tlv.Tlv{critical}
	if _, err := NewFile(FileFromBytes(buildRaw(t, content))); errors.CodeOf(err) != errors.KsiInvalidFormatError {
		t.Fatal("Unknown critical element must be rejected: ", err)
	}
}

func testFileSearch(t *testing.T, _ ...interface{}) {
	f := testFile(t)
	at := func(s int64) time.Time { return time.Unix(s, 0) }

	tests := []struct {
		name string
		by   PubRecSearchBy
		// Expected publication time, 0 if nothing is expected.
		exp int64
	}{
		{"exact", PubRecSearchByTime(at(2000)), 2000},
		{"exact missing", PubRecSearchByTime(at(2500)), 0},
		{"nearest before first", PubRecSearchNearest(at(10)), 1000},
		{"nearest between", PubRecSearchNearest(at(1500)), 2000},
		{"nearest exact", PubRecSearchNearest(at(2000)), 2000},
		{"nearest after last", PubRecSearchNearest(at(3500)), 0},
		{"latest", PubRecSearchLatest(at(1500)), 3000},
		{"latest none", PubRecSearchLatest(at(3000)), 0},
		{"pub data", PubRecSearchByPubData(pubData(t, 3000)), 3000},
		{"pub data missing", PubRecSearchByPubData(pubData(t, 4000)), 0},
		{"pub string", PubRecSearchByPubString(pubData(t, 1000).Base32()), 1000},
	}
	for _, tc := range tests {
		rec, err := f.PublicationRec(tc.by)
		if err != nil {
			t.Fatalf("%s: search failed: %v", tc.name, err)
		}
		switch {
		case tc.exp == 0 && rec != nil:
			t.Errorf("%s: unexpected record: %v", tc.name, rec)
		case tc.exp != 0 && rec == nil:
			t.Errorf("%s: record not found", tc.name)
		case tc.exp != 0 && rec.PublicationData().PublicationTime().Unix() != tc.exp:
			t.Errorf("%s: wrong record: %v", tc.name, rec)
		}
	}

	if _, err := f.PublicationRec(PubRecSearchByPubString("invalid")); errors.CodeOf(err) != errors.KsiInvalidFormatError {
		t.Error("Invalid publication string must be rejected: ", err)
	}
	if _, err := f.PublicationRec(nil); errors.CodeOf(err) != errors.KsiInvalidArgumentError {
		t.Error("Nil search strategy must be rejected: ", err)
	}
}

func testFileCertificate(t *testing.T, _ ...interface{}) {
	f := testFile(t)
	a := authority(t)

	rec, err := f.Certificate(a.CertID())
	if err != nil || rec == nil {
		t.Fatal("Certificate not found: ", err)
	}
	if !bytes.Equal(rec.Cert(), a.Cert.Raw) {
		t.Fatal("Certificate mismatch.")
	}
	if rec, err := f.Certificate([]byte{0xde, 0xad}); err != nil || rec != nil {
		t.Fatal("Unknown certificate must not be found: ", rec, err)
	}
	if _, err := f.Certificate(nil); errors.CodeOf(err) != errors.KsiInvalidArgumentError {
		t.Fatal("Missing id must be rejected: ", err)
	}
}

func testFileVerifyRecord(t *testing.T, _ ...interface{}) {
	f := testFile(t)
	a := authority(t)

	authRec, err := a.CalendarAuthRec(pubData(t, uint64(testNow.Unix())))
	if err != nil {
		t.Fatal("Failed to create calendar auth record: ", err)
	}
	if err := f.VerifyRecord(authRec); err != nil {
		t.Fatal("Calendar auth record must verify: ", err)
	}

	// Signature over a different publication.
	other := authRec.SignatureData()
	forged, err := pdu.NewCalendarAuthRec(pubData(t, uint64(testNow.Unix())+1), other)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.VerifyRecord(forged); errors.CodeOf(err) != errors.KsiInvalidPkiSignature {
		t.Error("Forged record must fail: ", err)
	}

	// Unknown certificate.
	sigData, err := pdu.NewSignatureData(pki.SigTypeSHA256WithRSA, other.SignatureValue(), []byte{1, 2, 3, 4}, "")
	if err != nil {
		t.Fatal(err)
	}
	unknown, err := pdu.NewCalendarAuthRec(authRec.PublicationData(), sigData)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.VerifyRecord(unknown); errors.CodeOf(err) != errors.KsiInvalidStateError {
		t.Error("Unknown certificate must fail: ", err)
	}

	// Published before the certificate became valid.
	early, err := a.CalendarAuthRec(pubData(t, uint64(pki.NotBefore.Unix())-1))
	if err != nil {
		t.Fatal(err)
	}
	if err := f.VerifyRecord(early); errors.CodeOf(err) != errors.KsiPkiCertificateNotTrusted {
		t.Error("Certificate validity must be checked at publication time: ", err)
	}
}

func testFileNil(t *testing.T, _ ...interface{}) {
	var f *File
	if f.Header() != nil || f.CertificateRecs() != nil || f.PublicationRecs() != nil ||
		f.Signature() != nil || f.Bytes() != nil || f.SignedBytes() != nil {
		t.Error("Nil receiver must be safe.")
	}
	if err := f.VerifyRecord(nil); errors.CodeOf(err) != errors.KsiInvalidArgumentError {
		t.Error("Nil receiver must be rejected: ", err)
	}
}
