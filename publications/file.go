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

// Package publications implements the KSI publications file: a trust anchor for verifying KSI signatures, together
// with a handler that downloads, caches and verifies it.
package publications

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/guardtime/ksicore/errors"
	"github.com/guardtime/ksicore/log"
	"github.com/guardtime/ksicore/net"
	"github.com/guardtime/ksicore/pdu"
	"github.com/guardtime/ksicore/tlv"
)

// Magic is the 8-byte prefix of every publications file.
const Magic = "KSIPUBLF"

// File is a trust anchor for verifying KSI signatures. It contains a list of public-key certificates
// for verifying authentication records and a list of publications for verifying publication records
// attached to calendar hash chains. A publication file has the following components that must appear
// in the following order:
//  - 8-byte magic 'KSIPUBLF';
//  - Header (Single);
//  - Public Key Certificates (Multiple) that are considered trustworthy at the time of creation of the file;
//  - Publications (Multiple) that have been created up to the file creation time;
//  - Signature (Single) of the file, a PKCS#7 signature over all preceding bytes including the magic.
type File struct {
	header    *pdu.PublicationsHeader
	certRecs  []*pdu.CertificateRecord
	pubRecs   []*pdu.PublicationRec
	signature []byte

	// Raw file, signed part is raw[:signedLen].
	raw       []byte
	signedLen int
}

// NewFile returns publications file constructed from the provided initializer.
//
// Note that the returned publications file is not verified (see (FileHandler).Verify()).
func NewFile(builder FileBuilder) (*File, error) {
	if builder == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}

	var tmp file
	if err := builder(&tmp); err != nil {
		return nil, err
	}
	return &tmp.obj, nil
}

// FileBuilder defines a publications file initializer.
type (
	FileBuilder func(*file) error
	file        struct {
		obj File
	}
)

// FileFromBytes returns initializer for the publications file to be built from binary array.
func FileFromBytes(raw []byte) FileBuilder {
	return func(p *file) error {
		if len(raw) == 0 {
			return errors.New(errors.KsiInvalidArgumentError)
		}
		if p == nil {
			return errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing publications file base object.")
		}
		if len(raw) > math.MaxUint32 {
			return errors.New(errors.KsiInvalidFormatError).AppendMessage("Publications file exceeds max size.")
		}
		return p.obj.decode(raw)
	}
}

// FileFromReader returns initializer for the publications file to be built from binary stream.
func FileFromReader(r io.Reader) FileBuilder {
	return func(p *file) error {
		if r == nil {
			return errors.New(errors.KsiInvalidArgumentError)
		}
		raw, err := io.ReadAll(io.LimitReader(r, math.MaxUint32+1))
		if err != nil {
			return errors.New(errors.KsiIoError).SetExtError(err).
				AppendMessage("Unable to read publications file stream.")
		}
		return FileFromBytes(raw)(p)
	}
}

// FileFromFile returns initializer for the publications file to be built from a binary file.
func FileFromFile(path string) FileBuilder {
	return func(p *file) error {
		f, err := os.Open(path)
		if err != nil {
			return errors.New(errors.KsiIoError).SetExtError(err).
				AppendMessage("Unable to open publications file.")
		}
		defer func() {
			if err := f.Close(); err != nil {
				log.Error("Failed to close file: ", err)
			}
		}()
		return FileFromReader(f)(p)
	}
}

// FileFromURL returns initializer for the publications file to be downloaded from the specified location.
// See net.NewClient for supported URI schemes.
func FileFromURL(url string, options ...net.ClientOpt) FileBuilder {
	return func(p *file) error {
		raw, err := download(context.Background(), url, options...)
		if err != nil {
			return err
		}
		return FileFromBytes(raw)(p)
	}
}

func download(ctx context.Context, url string, options ...net.ClientOpt) ([]byte, error) {
	if len(url) == 0 {
		return nil, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing publications file URL.")
	}
	options = append(options, net.ClientOptResponseVerifier(hasMagic))
	client, err := net.NewClient(url, options...)
	if err != nil {
		return nil, err
	}
	raw, err := client.Receive(ctx)
	if err != nil {
		return nil, errors.KsiErr(err, errors.KsiNetworkError).AppendMessage("Unable to receive publications file.")
	}
	return raw, nil
}

func hasMagic(raw []byte) (bool, error) {
	if !bytes.HasPrefix(raw, []byte(Magic)) {
		return false, fmt.Errorf("publications file magic %q not found", Magic)
	}
	return true, nil
}

func (p *File) decode(raw []byte) error {
	hdrLen := len(Magic)
	if len(raw) < hdrLen {
		return errors.New(errors.KsiInvalidFormatError).AppendMessage("Not enough bytes for publications file header.")
	}
	if len(raw) == hdrLen {
		return errors.New(errors.KsiInvalidFormatError).AppendMessage("Only publications file header is provided.")
	}
	if string(raw[:hdrLen]) != Magic {
		return errors.New(errors.KsiInvalidFormatError).
			AppendMessage(fmt.Sprintf("Unrecognized header: %x", raw[:hdrLen]))
	}

	list, err := tlv.ParseList(raw[hdrLen:])
	if err != nil {
		return errors.KsiErr(err).AppendMessage("Unable to parse publications file.")
	}

	offset := hdrLen
	for i, t := range list {
		if p.signedLen != 0 {
			return errors.New(errors.KsiInvalidFormatError).
				AppendMessage(fmt.Sprintf("Publications file element [%x] follows the signature.", t.Tag))
		}
		if i == 0 && t.Tag != pdu.TagPubFileHeader {
			return errors.New(errors.KsiInvalidFormatError).
				AppendMessage("Publications file must start with the header.")
		}

		switch t.Tag {
		case pdu.TagPubFileHeader:
			if p.header != nil {
				return errors.New(errors.KsiInvalidFormatError).AppendMessage("Multiple publications file headers.")
			}
			if p.header, err = pdu.NewPublicationsHeaderFromTlv(t); err != nil {
				return err
			}
		case pdu.TagPubFileCertRec:
			rec, err := pdu.NewCertificateRecordFromTlv(t)
			if err != nil {
				return err
			}
			p.certRecs = append(p.certRecs, rec)
		case pdu.TagPubFilePubRec:
			rec, err := pdu.NewPublicationRecFromTlv(t)
			if err != nil {
				return err
			}
			p.pubRecs = append(p.pubRecs, rec)
		case pdu.TagPubFileSig:
			p.signature = t.Value()
			p.signedLen = offset
		default:
			if !t.NonCritical {
				return errors.New(errors.KsiInvalidFormatError).
					AppendMessage(fmt.Sprintf("Unknown critical publications file element: %x.", t.Tag))
			}
			log.Debug(fmt.Sprintf("Ignoring unknown non-critical publications file element: %x.", t.Tag))
		}
		offset += len(t.Bytes())
	}
	if p.signedLen == 0 {
		return errors.New(errors.KsiInvalidFormatError).AppendMessage("Publications file signature is missing.")
	}

	p.raw = append([]byte(nil), raw...)
	return nil
}

// Header returns the publications file header.
func (p *File) Header() *pdu.PublicationsHeader {
	if p == nil {
		return nil
	}
	return p.header
}

// CertificateRecs returns the certificate records in file order.
func (p *File) CertificateRecs() []*pdu.CertificateRecord {
	if p == nil {
		return nil
	}
	return append([]*pdu.CertificateRecord(nil), p.certRecs...)
}

// PublicationRecs returns the publication records in file order.
func (p *File) PublicationRecs() []*pdu.PublicationRec {
	if p == nil {
		return nil
	}
	return append([]*pdu.PublicationRec(nil), p.pubRecs...)
}

// Signature returns the DER encoded PKCS#7 signature of the file.
func (p *File) Signature() []byte {
	if p == nil {
		return nil
	}
	return append([]byte(nil), p.signature...)
}

// Bytes returns the raw publications file.
func (p *File) Bytes() []byte {
	if p == nil {
		return nil
	}
	return append([]byte(nil), p.raw...)
}

// SignedBytes returns the part of the file covered by the signature.
func (p *File) SignedBytes() []byte {
	if p == nil {
		return nil
	}
	return append([]byte(nil), p.raw[:p.signedLen]...)
}

// Certificate returns PKI certificate record with the given ID.
//
// Returns the found certificate, or nil otherwise.
func (p *File) Certificate(id []byte) (*pdu.CertificateRecord, error) {
	if p == nil || len(id) == 0 {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}
	for _, r := range p.certRecs {
		if bytes.Equal(id, r.CertID()) {
			return r, nil
		}
	}
	return nil, nil
}

// PublicationRec returns publication record based on the provided search strategy.
//
// Returns the found publication record, or nil otherwise.
func (p *File) PublicationRec(by PubRecSearchBy) (*pdu.PublicationRec, error) {
	if p == nil || by == nil {
		return nil, errors.New(errors.KsiInvalidArgumentError)
	}

	id, err := by(p)
	if err != nil {
		return nil, err
	}
	if id < 0 {
		return nil, nil
	}
	return p.pubRecs[id], nil
}

// PubRecSearchBy specifies the publication record search criteria. Returns the index of the matching record, or -1.
type PubRecSearchBy func(*File) (int, error)

// PubRecSearchByPubString searches publication by publication string.
func PubRecSearchByPubString(pubString string) PubRecSearchBy {
	return func(p *File) (int, error) {
		if len(pubString) == 0 {
			return -1, errors.New(errors.KsiInvalidArgumentError)
		}
		pubData, err := pdu.PublicationDataFromString(pubString)
		if err != nil {
			return -1, err
		}
		return PubRecSearchByPubData(pubData)(p)
	}
}

// PubRecSearchByPubData searches publication by publication data.
func PubRecSearchByPubData(pubData *pdu.PublicationData) PubRecSearchBy {
	return func(p *File) (int, error) {
		if pubData == nil {
			return -1, errors.New(errors.KsiInvalidArgumentError)
		}
		if p == nil {
			return -1, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing publications file base object.")
		}
		for i, r := range p.pubRecs {
			if pubData.Equal(r.PublicationData()) {
				return i, nil
			}
		}
		return -1, nil
	}
}

// PubRecSearchByTime searches publication by exact time.
func PubRecSearchByTime(pubTime time.Time) PubRecSearchBy {
	return func(p *File) (int, error) {
		if p == nil {
			return -1, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing publications file base object.")
		}
		for i, r := range p.pubRecs {
			if pubTime.Equal(r.PublicationData().PublicationTime()) {
				return i, nil
			}
		}
		return -1, nil
	}
}

// PubRecSearchLatest searches for the latest available publication, it must be published after given time.
func PubRecSearchLatest(pubTime time.Time) PubRecSearchBy {
	return func(p *File) (int, error) {
		if p == nil {
			return -1, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing publications file base object.")
		}
		var (
			found = -1
			tm    = pubTime
		)
		for i, r := range p.pubRecs {
			if recTime := r.PublicationData().PublicationTime(); recTime.After(tm) {
				tm = recTime
				found = i
			}
		}
		return found, nil
	}
}

// PubRecSearchNearest searches for the earliest publication that is published at or after the given time.
func PubRecSearchNearest(pubTime time.Time) PubRecSearchBy {
	return func(p *File) (int, error) {
		if p == nil {
			return -1, errors.New(errors.KsiInvalidArgumentError).AppendMessage("Missing publications file base object.")
		}
		var (
			found = -1
			tm    time.Time
		)
		for i, r := range p.pubRecs {
			recTime := r.PublicationData().PublicationTime()
			if recTime.Before(pubTime) {
				continue
			}
			if found < 0 || recTime.Before(tm) {
				tm = recTime
				found = i
			}
		}
		return found, nil
	}
}

// VerifyRecord verifies the calendar authentication record against publications file. The certificate referenced
// by the record must be present in the file and must have been valid at the publication time.
func (p *File) VerifyRecord(rec *pdu.CalendarAuthRec) error {
	if p == nil || rec == nil {
		return errors.New(errors.KsiInvalidArgumentError)
	}

	sigData := rec.SignatureData()
	if sigData == nil {
		return errors.New(errors.KsiInvalidStateError).
			AppendMessage("Inconsistent calendar auth record.").
			AppendMessage("Missing signature data.")
	}
	pubData := rec.PublicationData()
	raw, err := pubData.Bytes()
	if err != nil {
		return err
	}

	certRec, err := p.Certificate(sigData.CertID())
	if err != nil {
		return err
	}
	if certRec == nil {
		return errors.New(errors.KsiInvalidStateError).
			AppendMessage("Suitable PKI certificate not found in publications file.")
	}
	valid, err := certRec.IsValid(pubData.PublicationTime())
	if err != nil {
		return err
	}
	if !valid {
		return errors.New(errors.KsiPkiCertificateNotTrusted).
			AppendMessage("PKI certificate was not valid at publication time.")
	}
	return certRec.VerifySignature(sigData.SignatureType(), raw, sigData.SignatureValue())
}
