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
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"hash/crc32"
	"strconv"
	"strings"
	"time"

	"github.com/guardtime/ksicore/errors"
)

// OID is certificate DN object identifier.
type OID asn1.ObjectIdentifier

var (
	// OidEmail is the ASN.1 notation for Email Address attribute for use in signatures.
	OidEmail = OID([]int{1, 2, 840, 113549, 1, 9, 1})
	// OidCommonName is the ASN.1 notation for common name attribute type.
	OidCommonName = OID([]int{2, 5, 4, 3})
	// OidCountry is the ASN.1 notation for Country Name attribute type specifying a country.
	OidCountry = OID([]int{2, 5, 4, 6})
	// OidOrganization is the ASN.1 notation for Organization Name attribute type specifying an organization.
	OidOrganization = OID([]int{2, 5, 4, 10})
)

var oidAliases = map[string]OID{
	"E":     OidEmail,
	"EMAIL": OidEmail,
	"CN":    OidCommonName,
	"C":     OidCountry,
	"O":     OidOrganization,
}

// ParseOID parses either a dotted OID notation (eg. "1.2.840.113549.1.9.1") or one of the short names
// E, EMAIL, CN, C and O.
func ParseOID(s string) (OID, error) {
	s = strings.TrimSpace(s)
	if oid, ok := oidAliases[strings.ToUpper(s)]; ok {
		return oid, nil
	}

	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return nil, errors.New(errors.KsiInvalidFormatError).AppendMessage(fmt.Sprintf("Invalid OID: '%s'.", s))
	}
	oid := make(OID, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil || v < 0 {
			return nil, errors.New(errors.KsiInvalidFormatError).
				AppendMessage(fmt.Sprintf("Invalid OID component '%s' in '%s'.", p, s))
		}
		oid = append(oid, v)
	}
	return oid, nil
}

// ParseCertConstraints parses a comma separated list of 'oid=value' pairs, for example
// "E=publications@guardtime.com,2.5.4.10=Guardtime AS".
func ParseCertConstraints(s string) ([]pkix.AttributeTypeAndValue, error) {
	var cnstrs []pkix.AttributeTypeAndValue
	for _, item := range strings.Split(s, ",") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		kv := strings.SplitN(item, "=", 2)
		if len(kv) != 2 || strings.TrimSpace(kv[1]) == "" {
			return nil, errors.New(errors.KsiInvalidFormatError).
				AppendMessage(fmt.Sprintf("Invalid certificate constraint: '%s'.", item))
		}
		oid, err := ParseOID(kv[0])
		if err != nil {
			return nil, err
		}
		cnstrs = append(cnstrs, pkix.AttributeTypeAndValue{
			Type:  asn1.ObjectIdentifier(oid),
			Value: strings.TrimSpace(kv[1]),
		})
	}
	return cnstrs, nil
}

func checkCertConstraints(ref, subject []pkix.AttributeTypeAndValue) error {
	if len(ref) == 0 {
		return errors.New(errors.KsiPkiCertificateNotTrusted).
			AppendMessage("Unable to verify certificates constraints as constraints are not specified!")
	}

	for _, r := range ref {
		rString, ok := r.Value.(string)
		if !ok {
			return errors.New(errors.KsiInvalidFormatError).
				AppendMessage(fmt.Sprintf("Constraint value must be a string, but got '%v'!", r.Value))
		}

		var s *pkix.AttributeTypeAndValue
		for i := range subject {
			if r.Type.Equal(subject[i].Type) {
				s = &subject[i]
				break
			}
		}
		if s == nil {
			return errors.New(errors.KsiPkiCertificateNotTrusted).
				AppendMessage("Unable to verify certificate constraints").
				AppendMessage(fmt.Sprintf("Constraint '%s' is not specified in certificate!", r.Type.String()))
		}

		sString, ok := s.Value.(string)
		if !ok {
			return errors.New(errors.KsiInvalidFormatError).
				AppendMessage(fmt.Sprintf("Certificate attribute %s is not a string: '%v'!", r.Type, s.Value))
		}
		if rString != sString {
			return errors.New(errors.KsiPkiCertificateNotTrusted).
				AppendMessage(fmt.Sprintf("Certificate constraints mismatch for %s.", r.Type.String())).
				AppendMessage(fmt.Sprintf("Expecting '%s', but got '%s'!", rString, sString))
		}
	}
	return nil
}

func formatHexStringWithDelimiters(input string) string {
	var buf strings.Builder
	for i, char := range input {
		if i != 0 && i%2 == 0 {
			buf.WriteRune(':')
		}
		buf.WriteRune(char)
	}
	return buf.String()
}

func certState(cert *x509.Certificate, at time.Time) string {
	switch {
	case at.After(cert.NotAfter):
		return "expired"
	case at.Before(cert.NotBefore):
		return "not yet valid"
	default:
		return "valid"
	}
}

// CertificateToString returns a printable representation of the x509 certificate.
func CertificateToString(cert *x509.Certificate) string {
	if cert == nil {
		return "nil"
	}

	id := fmt.Sprintf("%08x", crc32.ChecksumIEEE(cert.Raw))
	return fmt.Sprintf("PKI Certificate (%s):\n"+
		"  * Issued to: %s\n"+
		"  * Issued by: %s\n"+
		"  * Valid from: %s to %s [%s]\n"+
		"  * Serial Number: %s\n",
		formatHexStringWithDelimiters(id), cert.Subject, cert.Issuer,
		cert.NotBefore, cert.NotAfter, certState(cert, time.Now()),
		formatHexStringWithDelimiters(cert.SerialNumber.Text(16)))
}

// CertChainToString returns a printable representation of the x509 certificate chain.
func CertChainToString(certList []*x509.Certificate) string {
	if len(certList) == 0 {
		return "nil"
	}
	var buf strings.Builder
	buf.WriteString("Certificate chain:\n\n")
	for i, cert := range certList {
		fmt.Fprintf(&buf, "Certificate(%v)\n%s\n\n", i, CertificateToString(cert))
	}
	return buf.String()
}
