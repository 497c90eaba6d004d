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
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"time"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/log"
	"github.com/guardtime/ksicore/tlv"
)

// Publications file element types.
const (
	TagPubFileHeader  = 0x701
	TagPubFileCertRec = 0x702
	TagPubFilePubRec  = 0x703
	TagPubFileSig     = 0x704
)

const (
	tagCertRecID   = 0x01
	tagCertRecCert = 0x02
)

// CertificateRecord is a public key certificate for verifying calendar authentication records, consisting of the
// 'certificate identifier' and the DER encoded X.509 'certificate value'.
type CertificateRecord struct {
	certID []byte
	cert   []byte
}

// NewCertificateRecord returns a new certificate record.
func NewCertificateRecord(certID, cert []byte) (*CertificateRecord, error) {
	if len(certID) == 0 || len(cert) == 0 {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	return &CertificateRecord{
		certID: append([]byte(nil), certID...),
		cert:   append([]byte(nil), cert...),
	}, nil
}

type certificateRecordTlv struct {
	certID []byte `tlv:"1,bin,C1"`
	cert   []byte `tlv:"2,bin,C1"`
}

// NewCertificateRecordFromTlv decodes a certificate record.
func NewCertificateRecordFromTlv(t *tlv.Tlv) (*CertificateRecord, error) {
	var d certificateRecordTlv
	if err := decode(tmplCertificateRecord, t, &d); err != nil {
		return nil, err
	}
	return &CertificateRecord{certID: d.certID, cert: d.cert}, nil
}

// CertID returns the certificate identifier.
func (c *CertificateRecord) CertID() []byte {
	if c == nil {
		return nil
	}
	return append([]byte(nil), c.certID...)
}

// Cert returns the DER encoded certificate.
func (c *CertificateRecord) Cert() []byte {
	if c == nil {
		return nil
	}
	return append([]byte(nil), c.cert...)
}

// X509 parses the certificate.
func (c *CertificateRecord) X509() (*x509.Certificate, error) {
	if c == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	cert, err := x509.ParseCertificate(c.cert)
	if err != nil {
		return nil, errors.New(errors.KsiCryptoFailure).SetExtError(err).AppendMessage("Failed to parse certificate.")
	}
	return cert, nil
}

// IsValid reports whether the certificate was valid at the given time.
func (c *CertificateRecord) IsValid(at time.Time) (bool, error) {
	cert, err := c.X509()
	if err != nil {
		return false, err
	}
	return !at.Before(cert.NotBefore) && !at.After(cert.NotAfter), nil
}

// Tlv returns the encoded certificate record.
func (c *CertificateRecord) Tlv() (*tlv.Tlv, error) {
	if c == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	var enc encoder
	enc.add(tlv.NewRaw(tagCertRecID, c.certID))
	enc.add(tlv.NewRaw(tagCertRecCert, c.cert))
	return enc.build(TagPubFileCertRec)
}

// signatureAlgorithms maps the signature type OIDs used in the signature data.
var signatureAlgorithms = map[string]x509.SignatureAlgorithm{
	"1.2.840.113549.1.1.5":  x509.SHA1WithRSA,
	"1.2.840.113549.1.1.11": x509.SHA256WithRSA,
	"1.2.840.113549.1.1.12": x509.SHA384WithRSA,
	"1.2.840.113549.1.1.13": x509.SHA512WithRSA,
	"1.2.840.10045.4.3.2":   x509.ECDSAWithSHA256,
	"1.2.840.10045.4.3.3":   x509.ECDSAWithSHA384,
	"1.2.840.10045.4.3.4":   x509.ECDSAWithSHA512,
}

// VerifySignature checks that sig is a valid signature over signed, made with the certificate key using the
// algorithm identified by the signature type OID.
func (c *CertificateRecord) VerifySignature(sigType string, signed, sig []byte) error {
	cert, err := c.X509()
	if err != nil {
		return err
	}
	algo, ok := signatureAlgorithms[sigType]
	if !ok {
		if err := c.verifySigType(sigType); err != nil {
			return err
		}
		algo = cert.SignatureAlgorithm
	}
	if err := cert.CheckSignature(algo, signed, sig); err != nil {
		return errors.New(errors.KsiInvalidPkiSignature).SetExtError(err).AppendMessage("Failed to verify signature.")
	}
	return nil
}

// verifySigType compares the signature type OID to the signature algorithm OID of the certificate.
func (c *CertificateRecord) verifySigType(sigType string) error {
	var cert struct {
		TBSCertificate     asn1.RawValue
		SignatureAlgorithm pkix.AlgorithmIdentifier
		SignatureValue     asn1.BitString
	}
	if _, err := asn1.Unmarshal(c.cert, &cert); err != nil {
		return errors.New(errors.KsiCryptoFailure).SetExtError(err).
			AppendMessage("Failed to parse ASN.1 structure of X.509 certificate.")
	}
	if cert.SignatureAlgorithm.Algorithm.String() != sigType {
		err := errors.New(errors.KsiInvalidPkiSignature).
			AppendMessage("Signature type OID mismatch.").
			AppendMessage(fmt.Sprintf("Certificate OID=%s, expected signature type=%s",
				cert.SignatureAlgorithm.Algorithm, sigType))
		log.Debug(err)
		return err
	}
	return nil
}

const (
	tagHdrVersion = 0x01
	tagHdrCreated = 0x02
	tagHdrRepURI  = 0x03
)

// PublicationsHeader is the publications file header consisting of the file format version, the creation time of
// the file and the URI of its canonical distribution point.
type PublicationsHeader struct {
	version uint64
	created uint64
	repURI  string
}

// NewPublicationsHeader returns a new publications file header.
func NewPublicationsHeader(version uint64, created time.Time, repURI string) *PublicationsHeader {
	return &PublicationsHeader{version: version, created: uint64(created.Unix()), repURI: repURI}
}

type publicationsHeaderTlv struct {
	version *uint64 `tlv:"1,int,C1"`
	created *uint64 `tlv:"2,int,C1"`
	repURI  *string `tlv:"3,utf8"`
}

// NewPublicationsHeaderFromTlv decodes a publications file header.
func NewPublicationsHeaderFromTlv(t *tlv.Tlv) (*PublicationsHeader, error) {
	var d publicationsHeaderTlv
	if err := decode(tmplPublicationsHeader, t, &d); err != nil {
		return nil, err
	}
	h := &PublicationsHeader{version: *d.version, created: *d.created}
	if d.repURI != nil {
		h.repURI = *d.repURI
	}
	return h, nil
}

// Version returns the file format version.
func (h *PublicationsHeader) Version() uint64 {
	if h == nil {
		return 0
	}
	return h.version
}

// CreationTime returns the file creation time.
func (h *PublicationsHeader) CreationTime() time.Time {
	if h == nil {
		return time.Time{}
	}
	return time.Unix(int64(h.created), 0)
}

// RepositoryURI returns the canonical distribution point of the file.
func (h *PublicationsHeader) RepositoryURI() string {
	if h == nil {
		return ""
	}
	return h.repURI
}

// Tlv returns the encoded header.
func (h *PublicationsHeader) Tlv() (*tlv.Tlv, error) {
	if h == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	var enc encoder
	enc.add(tlv.NewUint64(tagHdrVersion, h.version))
	enc.add(tlv.NewUint64(tagHdrCreated, h.created))
	if h.repURI != "" {
		enc.add(tlv.NewUtf8(tagHdrRepURI, h.repURI))
	}
	return enc.build(TagPubFileHeader)
}
