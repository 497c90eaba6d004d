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

// Package pki builds test certificate authorities and signed publications files.
package pki

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/binary"
	"encoding/pem"
	"hash/crc32"
	"math/big"
	"sync"
	"time"

	"github.com/fullsailor/pkcs7"

	"github.com/guardtime/ksicore/pdu"
	"github.com/guardtime/ksicore/tlv"
)

// Validity period of the default authority. Tests that depend on certificate validity should use a clock
// between the two.
var (
	NotBefore = time.Unix(1400000000, 0)
	NotAfter  = time.Unix(1900000000, 0)
)

const (
	// CommonName and Email are the subject attributes of the default authority.
	CommonName = "KSI Test Publications"
	Email      = "publications@example.com"

	// SigTypeSHA256WithRSA is the signature type of records signed by an Authority.
	SigTypeSHA256WithRSA = "1.2.840.113549.1.1.11"
)

var oidEmail = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 1}

// Authority is a self-signed certificate with its private key.
type Authority struct {
	Cert *x509.Certificate
	Key  *rsa.PrivateKey
}

var (
	defaultOnce sync.Once
	defaultAuth *Authority
	defaultErr  error
)

// Default returns the process wide test authority. Key generation is slow, hence it is done once.
func Default() (*Authority, error) {
	defaultOnce.Do(func() {
		defaultAuth, defaultErr = NewAuthority(CommonName, Email, NotBefore, NotAfter)
	})
	return defaultAuth, defaultErr
}

// NewAuthority generates a new self-signed certificate authority.
func NewAuthority(cn, email string, notBefore, notAfter time.Time) (*Authority, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, err
	}
	serial, err := rand.Int(rand.Reader, big.NewInt(1<<62))
	if err != nil {
		return nil, err
	}
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			CommonName: cn,
			ExtraNames: []pkix.AttributeTypeAndValue{{Type: oidEmail, Value: email}},
		},
		NotBefore:             notBefore,
		NotAfter:              notAfter,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, err
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, err
	}
	return &Authority{Cert: cert, Key: key}, nil
}

// CertID returns the identifier the certificate is referenced with from signatures.
func (a *Authority) CertID() []byte {
	id := make([]byte, 4)
	binary.BigEndian.PutUint32(id, crc32.ChecksumIEEE(a.Cert.Raw))
	return id
}

// CertificateRecord returns the publications file record of the certificate.
func (a *Authority) CertificateRecord() (*pdu.CertificateRecord, error) {
	return pdu.NewCertificateRecord(a.CertID(), a.Cert.Raw)
}

// PEM returns the PEM encoded certificate.
func (a *Authority) PEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: a.Cert.Raw})
}

// Sign signs data with SHA256WithRSA.
func (a *Authority) Sign(data []byte) ([]byte, error) {
	digest := sha256.Sum256(data)
	return rsa.SignPKCS1v15(rand.Reader, a.Key, crypto.SHA256, digest[:])
}

// CalendarAuthRec returns a calendar authentication record over the publication data.
func (a *Authority) CalendarAuthRec(pubData *pdu.PublicationData) (*pdu.CalendarAuthRec, error) {
	raw, err := pubData.Bytes()
	if err != nil {
		return nil, err
	}
	sig, err := a.Sign(raw)
	if err != nil {
		return nil, err
	}
	sigData, err := pdu.NewSignatureData(SigTypeSHA256WithRSA, sig, a.CertID(), "")
	if err != nil {
		return nil, err
	}
	return pdu.NewCalendarAuthRec(pubData, sigData)
}

// PublicationsFile describes the content of a publications file.
type PublicationsFile struct {
	Created      time.Time
	Certs        []*pdu.CertificateRecord
	Publications []*pdu.PublicationData
	// Extra elements are written after the publications.
	Extra []*tlv.Tlv
	// Signer signs the file. If nil, the signature element is omitted.
	Signer *Authority
}

// Build encodes the publications file.
func (f PublicationsFile) Build() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("KSIPUBLF")

	hdr, err := pdu.NewPublicationsHeader(2, f.Created, "").Tlv()
	if err != nil {
		return nil, err
	}
	buf.Write(hdr.Bytes())
	for _, c := range f.Certs {
		t, err := c.Tlv()
		if err != nil {
			return nil, err
		}
		buf.Write(t.Bytes())
	}
	for _, p := range f.Publications {
		rec, err := pdu.NewPublicationRec(p)
		if err != nil {
			return nil, err
		}
		t, err := rec.WithTag(pdu.TagPubFilePubRec).Tlv()
		if err != nil {
			return nil, err
		}
		buf.Write(t.Bytes())
	}
	for _, t := range f.Extra {
		buf.Write(t.Bytes())
	}
	if f.Signer == nil {
		return buf.Bytes(), nil
	}

	sd, err := pkcs7.NewSignedData(buf.Bytes())
	if err != nil {
		return nil, err
	}
	if err := sd.AddSigner(f.Signer.Cert, f.Signer.Key, pkcs7.SignerInfoConfig{}); err != nil {
		return nil, err
	}
	sig, err := sd.Finish()
	if err != nil {
		return nil, err
	}
	sigTlv, err := tlv.NewRaw(pdu.TagPubFileSig, sig)
	if err != nil {
		return nil, err
	}
	buf.Write(sigTlv.Bytes())
	return buf.Bytes(), nil
}
