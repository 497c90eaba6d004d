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
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"testing"
	"time"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/tlv"
)

const oidECDSAWithSHA256 = "1.2.840.10045.4.3.2"

func testCertificate(t *testing.T) (*ecdsa.PrivateKey, []byte) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal("Failed to generate key: ", err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "calendar"},
		NotBefore:    time.Unix(1400000000, 0),
		NotAfter:     time.Unix(1900000000, 0),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		t.Fatal("Failed to create certificate: ", err)
	}
	return key, der
}

func TestUnitCertificateRecord(t *testing.T) {
	key, der := testCertificate(t)
	rec, err := NewCertificateRecord([]byte{1, 2, 3, 4}, der)
	if err != nil {
		t.Fatal("Failed to create certificate record: ", err)
	}

	rt, _ := rec.Tlv()
	parsed, _ := tlv.Parse(rt.Bytes())
	decoded, err := NewCertificateRecordFromTlv(parsed)
	if err != nil || string(decoded.CertID()) != string([]byte{1, 2, 3, 4}) {
		t.Fatal("Failed to decode certificate record: ", err)
	}

	tests := []struct {
		at    int64
		valid bool
	}{
		{1300000000, false},
		{1500000000, true},
		{2000000000, false},
	}
	for _, tc := range tests {
		if ok, err := decoded.IsValid(time.Unix(tc.at, 0)); err != nil || ok != tc.valid {
			t.Errorf("Validity at %d mismatch: %v (%v)", tc.at, ok, err)
		}
	}

	data := []byte("publication data")
	digest := sha256.Sum256(data)
	sig, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
	if err != nil {
		t.Fatal("Failed to sign: ", err)
	}
	if err := decoded.VerifySignature(oidECDSAWithSHA256, data, sig); err != nil {
		t.Fatal("Signature must verify: ", err)
	}
	if err := decoded.VerifySignature(oidECDSAWithSHA256, []byte("other data"), sig); errors.CodeOf(err) != errors.KsiInvalidPkiSignature {
		t.Fatal("Signature over other data must fail: ", err)
	}
	if err := decoded.VerifySignature("1.2.3.4", data, sig); errors.CodeOf(err) != errors.KsiInvalidPkiSignature {
		t.Fatal("Unknown signature type must fail: ", err)
	}
}

func TestUnitPublicationsHeader(t *testing.T) {
	h := NewPublicationsHeader(2, time.Unix(1500000000, 0), "https://example.com/pubfile")
	ht, err := h.Tlv()
	if err != nil {
		t.Fatal("Failed to encode header: ", err)
	}
	parsed, _ := tlv.Parse(ht.Bytes())
	decoded, err := NewPublicationsHeaderFromTlv(parsed)
	if err != nil {
		t.Fatal("Failed to decode header: ", err)
	}
	if decoded.Version() != 2 || decoded.CreationTime().Unix() != 1500000000 ||
		decoded.RepositoryURI() != "https://example.com/pubfile" {
		t.Fatal("Decoded header mismatch.")
	}
}
