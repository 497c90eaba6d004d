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
	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/tlv"
)

const (
	tagSigType    = 0x01
	tagSigValue   = 0x02
	tagCertID     = 0x03
	tagCertRepURI = 0x04
)

// SignatureData consists of:
//  * 'signature type': a signing algorithm and signature format identifier, as a dotted decimal OID string;
//  * 'signature value': the signature itself;
//  * 'certificate identifier' and optionally 'certificate repository URI', the latter pointing to a repository
//    (e.g. a publications file) that contains the certificate.
// As an example, the signature type "1.2.840.113549.1.1.11" denotes SHA-256 with RSA encryption.
type SignatureData struct {
	sigType    string
	sigValue   []byte
	certID     []byte
	certRepURI string
}

// NewSignatureData returns a new signature data element.
func NewSignatureData(sigType string, sigValue, certID []byte, certRepURI string) (*SignatureData, error) {
	if sigType == "" || len(sigValue) == 0 || len(certID) == 0 {
		return nil, errors.New(errors.KsiInvalidArgumentError).
			AppendMessage("Signature data requires type, value and certificate identifier.")
	}
	return &SignatureData{
		sigType:    sigType,
		sigValue:   append([]byte(nil), sigValue...),
		certID:     append([]byte(nil), certID...),
		certRepURI: certRepURI,
	}, nil
}

type signatureDataTlv struct {
	sigType    *string `tlv:"1,utf8,C1"`
	sigValue   []byte  `tlv:"2,bin,C1"`
	certID     []byte  `tlv:"3,bin,C1"`
	certRepURI *string `tlv:"4,utf8"`
}

func newSignatureDataFromTlv(t *tlv.Tlv) (*SignatureData, error) {
	var d signatureDataTlv
	if err := decode(tmplSignatureData, t, &d); err != nil {
		return nil, err
	}
	s := &SignatureData{sigType: *d.sigType, sigValue: d.sigValue, certID: d.certID}
	if d.certRepURI != nil {
		s.certRepURI = *d.certRepURI
	}
	return s, nil
}

// SignatureType returns the signature type OID.
func (s *SignatureData) SignatureType() string {
	if s == nil {
		return ""
	}
	return s.sigType
}

// SignatureValue returns the signature value.
func (s *SignatureData) SignatureValue() []byte {
	if s == nil {
		return nil
	}
	return append([]byte(nil), s.sigValue...)
}

// CertID returns the certificate identifier.
func (s *SignatureData) CertID() []byte {
	if s == nil {
		return nil
	}
	return append([]byte(nil), s.certID...)
}

// CertRepURI returns the certificate repository URI, or an empty string.
func (s *SignatureData) CertRepURI() string {
	if s == nil {
		return ""
	}
	return s.certRepURI
}

// Tlv returns the encoded signature data element.
func (s *SignatureData) Tlv() (*tlv.Tlv, error) {
	if s == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	var enc encoder
	enc.add(tlv.NewUtf8(tagSigType, s.sigType))
	enc.add(tlv.NewRaw(tagSigValue, s.sigValue))
	enc.add(tlv.NewRaw(tagCertID, s.certID))
	if s.certRepURI != "" {
		enc.add(tlv.NewUtf8(tagCertRepURI, s.certRepURI))
	}
	return enc.build(tagSigData)
}
